package recorder

import (
	"time"

	"BitcoinSentinel/internal/model"
)

// RunSnapshot holds everything worth keeping from one pipeline run.
type RunSnapshot struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Source     string // "api", "csv" or "storage"
	Points     int
	Missing    model.MissingReport
	Summary    *model.Summary
	Anomalies  *model.AnomalyReport
	Forecast   []model.ForecastPoint
	Upload     string // object location, empty when not uploaded
	UploadErr  string
	Err        string
}

// RunRecord is a stored run as read back from history.
type RunRecord struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	Source       string
	Points       int
	LastPrice    float64
	Anomalies    int
	ForecastDays int
	Upload       string
	UploadErr    string
	Err          string
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) (int64, error)
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
