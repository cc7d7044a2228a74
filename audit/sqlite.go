package audit

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSink keeps predictions and training runs in a local SQLite file.
type SQLiteSink struct {
	db *sql.DB
}

func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit database failed: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit tables failed: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func createTables(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id TEXT PRIMARY KEY,
        date TEXT NOT NULL,
        predicted_soup TEXT NOT NULL,
        confidence REAL NOT NULL,
        weather TEXT,
        temperature REAL,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        evaluated INTEGER NOT NULL DEFAULT 0,
        accuracy REAL,
        precision REAL,
        recall REAL,
        split_mode VARCHAR(20),
        trained_at DATETIME,
        data_points INTEGER
    );
    `
	_, err := db.Exec(query)
	return err
}

func (s *SQLiteSink) RecordPrediction(rec PredictionRecord) error {
	if s.db == nil {
		return errors.New("database not initialized")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
        INSERT INTO predictions (id, date, predicted_soup, confidence, weather, temperature, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Date, rec.PredictedSoup, rec.Confidence, rec.Weather, rec.Temperature, rec.CreatedAt)
	return err
}

func (s *SQLiteSink) RecordTraining(entry TrainingLog) error {
	if s.db == nil {
		return errors.New("database not initialized")
	}
	_, err := s.db.Exec(`
        INSERT INTO training_log (model_name, evaluated, accuracy, precision, recall, split_mode, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ModelName, entry.Evaluated, entry.Accuracy, entry.Precision, entry.Recall,
		entry.SplitMode, entry.TrainedAt, entry.DataPoints)
	return err
}

// LoadTrainingLog returns training runs, newest first.
func (s *SQLiteSink) LoadTrainingLog() ([]TrainingLog, error) {
	if s.db == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := s.db.Query(`
        SELECT model_name, evaluated, accuracy, precision, recall, split_mode, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.Evaluated, &log.Accuracy, &log.Precision, &log.Recall,
			&log.SplitMode, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *SQLiteSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
