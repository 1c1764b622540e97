package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("SQLite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at        INTEGER NOT NULL,
			finished_at       INTEGER NOT NULL,
			source            TEXT,
			points            INTEGER,
			rows_raw          INTEGER,
			rows_dropped      INTEGER,
			first_price       REAL,
			last_price        REAL,
			high_price        REAL,
			low_price         REAL,
			change_pct        REAL,
			range_position    REAL,
			z_threshold       REAL,
			z_mode            TEXT,
			iqr_window        INTEGER,
			iqr_multiplier    REAL,
			upload_location   TEXT,
			upload_error      TEXT,
			error             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS anomalies (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      INTEGER NOT NULL REFERENCES runs(id),
			timestamp   INTEGER NOT NULL,
			price       REAL,
			z_score     REAL,
			by_zscore   INTEGER,
			iqr_lower   REAL,
			iqr_upper   REAL,
			by_iqr      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id)`,

		`CREATE TABLE IF NOT EXISTS forecasts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      INTEGER NOT NULL REFERENCES runs(id),
			timestamp   INTEGER NOT NULL,
			predicted   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_run ON forecasts(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run with its flagged points and forecast in one transaction.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var first, last, high, low, change, position sql.NullFloat64
	if s := snap.Summary; s != nil {
		first, last = nullable(s.First.Price), nullable(s.Last.Price)
		high, low = nullable(s.High.Price), nullable(s.Low.Price)
		change, position = nullable(s.ChangePct), nullable(s.RangePosition)
	}
	var zThreshold, iqrMult sql.NullFloat64
	var zMode sql.NullString
	var iqrWindow sql.NullInt64
	if a := snap.Anomalies; a != nil {
		zThreshold, iqrMult = nullable(a.ZThreshold), nullable(a.IQRMultiplier)
		zMode = sql.NullString{String: string(a.ZMode), Valid: true}
		iqrWindow = sql.NullInt64{Int64: int64(a.IQRWindow), Valid: true}
	}

	res, err := tx.Exec(`INSERT INTO runs
		(started_at, finished_at, source, points, rows_raw, rows_dropped,
		 first_price, last_price, high_price, low_price, change_pct, range_position,
		 z_threshold, z_mode, iqr_window, iqr_multiplier,
		 upload_location, upload_error, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		snap.StartedAt.Unix(), snap.FinishedAt.Unix(), snap.Source, snap.Points,
		snap.Missing.Rows, snap.Missing.Dropped(),
		first, last, high, low, change, position,
		zThreshold, zMode, iqrWindow, iqrMult,
		snap.Upload, snap.UploadErr, snap.Err,
	)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if snap.Anomalies != nil {
		for _, f := range snap.Anomalies.Anomalies() {
			if _, err := tx.Exec(`INSERT INTO anomalies
				(run_id, timestamp, price, z_score, by_zscore, iqr_lower, iqr_upper, by_iqr)
				VALUES (?,?,?,?,?,?,?,?)`,
				runID, f.Timestamp.Unix(), f.Price, nullable(f.ZScore), f.ByZScore,
				nullable(f.Lower), nullable(f.Upper), f.ByIQR,
			); err != nil {
				return 0, err
			}
		}
	}
	for _, p := range snap.Forecast {
		if _, err := tx.Exec(`INSERT INTO forecasts (run_id, timestamp, predicted) VALUES (?,?,?)`,
			runID, p.Timestamp.Unix(), p.Predicted,
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	r.logger.Debug().Int64("run_id", runID).Msg("Run recorded")
	return runID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT
			r.id, r.started_at, r.finished_at, r.source, r.points, r.last_price,
			(SELECT COUNT(*) FROM anomalies a WHERE a.run_id = r.id),
			(SELECT COUNT(*) FROM forecasts f WHERE f.run_id = r.id),
			r.upload_location, r.upload_error, r.error
		FROM runs r ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, finished int64
		var lastPrice sql.NullFloat64
		var source, upload, uploadErr, runErr sql.NullString
		if err := rows.Scan(&rec.ID, &started, &finished, &source, &rec.Points, &lastPrice,
			&rec.Anomalies, &rec.ForecastDays, &upload, &uploadErr, &runErr); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(started, 0).UTC()
		rec.FinishedAt = time.Unix(finished, 0).UTC()
		rec.Source = source.String
		rec.LastPrice = lastPrice.Float64
		rec.Upload = upload.String
		rec.UploadErr = uploadErr.String
		rec.Err = runErr.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("Closing SQLite recorder")
	return r.db.Close()
}

// nullable maps undefined values to SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
