package sqlite

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Open opens (creating if needed) a benchmark database at path and
// applies the embedded schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open bench db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply bench schema: %w", err)
	}
	return db, nil
}

// BenchRun describes one benchmark sweep: the detector setup shared by
// all of its samples.
type BenchRun struct {
	RunID       string          `json:"run_id"`
	Dictionary  string          `json:"dictionary"`
	MarkerSize  float64         `json:"marker_size"`
	ImageWidth  int             `json:"image_width"`
	ImageHeight int             `json:"image_height"`
	ParamsJSON  json.RawMessage `json:"params_json,omitempty"`
	CreatedAt   int64           `json:"created_at"`
}

// BenchSample is a single synthetic pose trial within a run. Position
// and rotation errors are meaningful only when Detected is true.
type BenchSample struct {
	SampleID      string  `json:"sample_id"`
	RunID         string  `json:"run_id"`
	MarkerID      int     `json:"marker_id"`
	Distance      float64 `json:"distance"`
	YawDeg        float64 `json:"yaw_deg"`
	Detected      bool    `json:"detected"`
	PositionError float64 `json:"position_error"`
	RotationError float64 `json:"rotation_error"`
	CreatedAt     int64   `json:"created_at"`
}

// RunSummary aggregates one run's samples. Mean errors cover detected
// samples only.
type RunSummary struct {
	RunID             string  `json:"run_id"`
	Samples           int     `json:"samples"`
	Detected          int     `json:"detected"`
	MeanPositionError float64 `json:"mean_position_error"`
	MeanRotationError float64 `json:"mean_rotation_error"`
}

// BenchStore provides persistence for benchmark runs and their samples.
type BenchStore struct {
	db *sql.DB
}

// NewBenchStore creates a BenchStore backed by the given database.
func NewBenchStore(db *sql.DB) *BenchStore {
	return &BenchStore{db: db}
}

// InsertRun persists a new run. If RunID is empty, a UUID is generated.
func (s *BenchStore) InsertRun(run *BenchRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO bench_runs (
				run_id, dictionary, marker_size, image_width, image_height,
				params_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Dictionary, run.MarkerSize, run.ImageWidth, run.ImageHeight,
			paramsStr, run.CreatedAt,
		)
		return err
	})
}

// InsertSample persists a single trial. If SampleID is empty, a UUID is
// generated. Errors from undetected trials are stored as NULL so that
// aggregates skip them.
func (s *BenchStore) InsertSample(sample *BenchSample) error {
	if sample.SampleID == "" {
		sample.SampleID = uuid.New().String()
	}
	if sample.CreatedAt == 0 {
		sample.CreatedAt = time.Now().UnixNano()
	}

	var posErr, rotErr interface{}
	if sample.Detected {
		posErr = sample.PositionError
		rotErr = sample.RotationError
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO bench_samples (
				sample_id, run_id, marker_id, distance, yaw_deg,
				detected, position_error, rotation_error, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sample.SampleID, sample.RunID, sample.MarkerID, sample.Distance, sample.YawDeg,
			sample.Detected, posErr, rotErr, sample.CreatedAt,
		)
		return err
	})
}

// SamplesByRun returns all samples for a run, ordered by distance then
// yaw.
func (s *BenchStore) SamplesByRun(runID string) ([]*BenchSample, error) {
	rows, err := s.db.Query(`
		SELECT sample_id, run_id, marker_id, distance, yaw_deg,
		       detected, position_error, rotation_error, created_at
		FROM bench_samples
		WHERE run_id = ?
		ORDER BY distance, yaw_deg`, runID)
	if err != nil {
		return nil, fmt.Errorf("query bench samples: %w", err)
	}
	defer rows.Close()

	var samples []*BenchSample
	for rows.Next() {
		var sm BenchSample
		var posErr, rotErr sql.NullFloat64
		err := rows.Scan(
			&sm.SampleID, &sm.RunID, &sm.MarkerID, &sm.Distance, &sm.YawDeg,
			&sm.Detected, &posErr, &rotErr, &sm.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bench sample: %w", err)
		}
		if posErr.Valid {
			sm.PositionError = posErr.Float64
		}
		if rotErr.Valid {
			sm.RotationError = rotErr.Float64
		}
		samples = append(samples, &sm)
	}
	return samples, rows.Err()
}

// Summary aggregates one run's samples.
func (s *BenchStore) Summary(runID string) (*RunSummary, error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(detected), 0),
		       AVG(position_error),
		       AVG(rotation_error)
		FROM bench_samples
		WHERE run_id = ?`, runID)

	sum := RunSummary{RunID: runID}
	var meanPos, meanRot sql.NullFloat64
	if err := row.Scan(&sum.Samples, &sum.Detected, &meanPos, &meanRot); err != nil {
		return nil, fmt.Errorf("scan bench summary: %w", err)
	}
	if meanPos.Valid {
		sum.MeanPositionError = meanPos.Float64
	}
	if meanRot.Valid {
		sum.MeanRotationError = meanRot.Float64
	}
	return &sum, nil
}

const maxBusyRetries = 5

// isSQLiteBusy reports whether err is a transient SQLITE_BUSY failure
// worth retrying.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying with a short growing backoff while it
// fails busy. Non-busy errors return immediately.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
		}
		err = fn()
		if err == nil || !isSQLiteBusy(err) {
			return err
		}
	}
	return err
}
