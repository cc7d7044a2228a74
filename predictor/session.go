package predictor

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"soupcast/audit"
	"soupcast/history"
	"soupcast/logger"
	"soupcast/ml"
)

// Session runs the predict workflow against injected input and output.
type Session struct {
	Model *ml.TrainedModel
	// Profiles is nil when history could not be loaded.
	Profiles *history.Profiles
	Sink     audit.Sink
	In       io.Reader
	Out      io.Writer
	Now      func() time.Time
	// AssumeYes saves without asking; NoSave never saves.
	AssumeYes bool
	NoSave    bool
}

type Result struct {
	Prediction  *Prediction
	Explanation Explanation
	Saved       bool
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run asks for one day's conditions, prints the forecast and offers to log it.
func (s *Session) Run() (*Result, error) {
	in := bufio.NewReader(s.In)
	var answers ml.Answers
	answers.Date = s.ask(in, "Date (YYYY-MM-DD, blank for tomorrow): ")
	answers.Weekday = s.ask(in, "Weekday 1-7, Monday=1 (blank to derive from the date): ")
	fmt.Fprintln(s.Out, "Weather options: sunny(3), cloudy(2), overcast(1), rain(0)")
	answers.Weather = s.ask(in, "Weather: ")
	answers.Temperature = s.ask(in, "Temperature in °C (blank for 20): ")
	answers.Pantry = s.ask(in, "Ingredients at hand, comma separated: ")

	raw, err := ml.ResolveInputs(answers, s.now())
	if err != nil {
		return nil, err
	}
	res, err := s.predict(raw)
	if err != nil {
		return nil, err
	}
	WriteReport(s.Out, res.Prediction, res.Explanation, s.Model.Meta, s.now())

	if s.shouldSave(in) {
		res.Saved = s.save(res.Prediction)
	}
	return res, nil
}

// RunBatch predicts every row of a CSV with date, weekday, weather,
// temperature and pantry columns. Rows that fail to parse are reported and
// skipped.
func (s *Session) RunBatch(r io.Reader) ([]Result, error) {
	// Spreadsheet exports often start with a UTF-8 BOM.
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty batch file", ml.ErrInputParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ml.ErrInputParse, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cell := func(row []string, name string) string {
		if i, ok := columns[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	results := make([]Result, 0)
	failed, total := 0, 0
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return results, fmt.Errorf("%w: line %d: %v", ml.ErrInputParse, line, err)
		}
		total++
		raw, err := ml.ResolveInputs(ml.Answers{
			Date:          cell(row, "date"),
			Weekday:       cell(row, "weekday"),
			Weather:       cell(row, "weather"),
			Temperature:   cell(row, "temperature"),
			FeedbackScore: cell(row, "feedback_score"),
			Pantry:        cell(row, "pantry"),
		}, s.now())
		if err != nil {
			failed++
			logger.Warnf("batch line %d: %v", line, err)
			fmt.Fprintf(s.Out, "line %d: %v\n", line, err)
			continue
		}
		res, err := s.predict(raw)
		if err != nil {
			return results, err
		}
		WriteSummary(s.Out, res.Prediction, res.Explanation)
		if s.AssumeYes && !s.NoSave {
			res.Saved = s.save(res.Prediction)
		}
		results = append(results, *res)
	}
	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d rows could not be read", ml.ErrInputParse, failed, total)
	}
	return results, nil
}

func (s *Session) predict(raw ml.RawInputs) (*Result, error) {
	pred, err := Predict(s.Model, raw)
	if err != nil {
		return nil, err
	}
	return &Result{
		Prediction:  pred,
		Explanation: Explain(s.Profiles, s.Model.Schema, pred.Top().Soup, raw.Ingredients),
	}, nil
}

func (s *Session) shouldSave(in *bufio.Reader) bool {
	if s.NoSave || !s.canSave() {
		return false
	}
	if s.AssumeYes {
		return true
	}
	answer := strings.ToLower(s.ask(in, "\nSave this prediction to the log? (y/n): "))
	return answer == "y" || answer == "yes"
}

// save records the top candidate. Failures are reported and otherwise
// ignored; the prediction itself already succeeded.
func (s *Session) save(pred *Prediction) bool {
	if !s.canSave() {
		return false
	}
	top := pred.Top()
	rec := audit.PredictionRecord{
		Date:          pred.Inputs.Date.Format(ml.DateLayout),
		PredictedSoup: top.Soup,
		Confidence:    top.Probability,
		Weather:       pred.Inputs.Weather,
		Temperature:   pred.Inputs.Temperature,
		CreatedAt:     s.now(),
	}
	if err := s.Sink.RecordPrediction(rec); err != nil {
		logger.Warnf("could not save prediction: %v", err)
		fmt.Fprintf(s.Out, "Prediction not saved: %v\n", err)
		return false
	}
	fmt.Fprintln(s.Out, "Prediction saved.")
	return true
}

// canSave is false without a sink or with the "none" backend, so nothing
// claims a prediction was saved when it was discarded.
func (s *Session) canSave() bool {
	switch s.Sink.(type) {
	case nil, audit.NopSink, *audit.NopSink:
		return false
	}
	return true
}

func (s *Session) ask(in *bufio.Reader, prompt string) string {
	fmt.Fprint(s.Out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		logger.Warnf("read input: %v", err)
	}
	return strings.TrimSpace(line)
}
