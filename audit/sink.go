package audit

import (
	"fmt"
	"strings"
	"time"
)

const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// PredictionRecord is one confirmed prediction. It is written once and never
// read back by the predictor.
type PredictionRecord struct {
	ID            string
	Date          string
	PredictedSoup string
	Confidence    float64
	Weather       string
	Temperature   float64
	CreatedAt     time.Time
}

type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	Evaluated  bool      `json:"evaluated"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	SplitMode  string    `json:"split_mode"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

// Sink receives confirmed predictions.
type Sink interface {
	RecordPrediction(rec PredictionRecord) error
	Close() error
}

// TrainingRecorder is implemented by sinks that also keep training runs.
type TrainingRecorder interface {
	RecordTraining(entry TrainingLog) error
	LoadTrainingLog() ([]TrainingLog, error)
}

func Open(backend, path string) (Sink, error) {
	switch strings.ToLower(backend) {
	case BackendText:
		return NewTextSink(path), nil
	case BackendSQLite:
		return NewSQLiteSink(path)
	case BackendNone, "":
		return NopSink{}, nil
	default:
		return nil, fmt.Errorf("unknown audit backend %q", backend)
	}
}

type NopSink struct{}

func (NopSink) RecordPrediction(PredictionRecord) error { return nil }
func (NopSink) Close() error                            { return nil }
