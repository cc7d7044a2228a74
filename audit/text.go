package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// TextSink appends one line per prediction to a UTF-8 text file.
type TextSink struct {
	path string
}

func NewTextSink(path string) *TextSink {
	return &TextSink{path: path}
}

func (s *TextSink) Path() string {
	return s.path
}

func (s *TextSink) RecordPrediction(rec PredictionRecord) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(FormatLine(rec)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (s *TextSink) Close() error {
	return nil
}

// FormatLine renders rec as
// "2024-02-01 | prediction: Corn Soup | probability: 63.0% | weather: rain 10°C".
func FormatLine(rec PredictionRecord) string {
	return fmt.Sprintf("%s | prediction: %s | probability: %.1f%% | weather: %s %s°C\n",
		rec.Date,
		rec.PredictedSoup,
		rec.Confidence*100,
		rec.Weather,
		strconv.FormatFloat(rec.Temperature, 'f', -1, 64),
	)
}
