// Package store keeps the history of monitor runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/rahul/travelcheck/internal/flow"
)

// timeLayout sorts lexically in the same order as time.
const timeLayout = "2006-01-02 15:04:05.000000000"

// RunStore persists run results.
type RunStore struct {
	DB *sql.DB
}

func NewRunStore(dbPath string) (*RunStore, error) {
	if !strings.HasPrefix(dbPath, ":memory:") && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive between calls.
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			completed_steps TEXT NOT NULL,
			failed_step TEXT,
			error_text TEXT,
			screenshots TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &RunStore{DB: db}, nil
}

func (s *RunStore) Close() error { return s.DB.Close() }

// Record stores r. Recording the same run twice is an error.
func (s *RunStore) Record(ctx context.Context, r flow.Result) error {
	steps, err := json.Marshal(nonNil(r.CompletedSteps))
	if err != nil {
		return err
	}
	shots, err := json.Marshal(nonNil(r.Screenshots))
	if err != nil {
		return err
	}

	query := `INSERT INTO runs (id, status, started_at, duration_ms, completed_steps, failed_step, error_text, screenshots)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.DB.ExecContext(ctx, query,
		r.ID,
		string(r.Status),
		r.StartedAt.UTC().Format(timeLayout),
		r.Duration.Milliseconds(),
		string(steps),
		r.FailedStep,
		r.ErrorText,
		string(shots),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]flow.Result, error) {
	query := `SELECT id, status, started_at, duration_ms, completed_steps, failed_step, error_text, screenshots
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []flow.Result
	for rows.Next() {
		var (
			r                    flow.Result
			status, startedAt    string
			durationMS           int64
			steps, shots         string
			failedStep, errorTxt sql.NullString
		)
		if err := rows.Scan(&r.ID, &status, &startedAt, &durationMS, &steps, &failedStep, &errorTxt, &shots); err != nil {
			return nil, err
		}
		r.Status = flow.Status(status)
		r.StartedAt, err = time.ParseInLocation(timeLayout, startedAt, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("run %s has a bad start time: %w", r.ID, err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.FailedStep = failedStep.String
		r.ErrorText = errorTxt.String
		if err := json.Unmarshal([]byte(steps), &r.CompletedSteps); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(shots), &r.Screenshots); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ConsecutiveFailures counts the failed runs since the last passing one.
func (s *RunStore) ConsecutiveFailures(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM runs
		WHERE status = ?
		AND started_at > COALESCE((SELECT MAX(started_at) FROM runs WHERE status = ?), '')`
	var n int
	if err := s.DB.QueryRowContext(ctx, query, string(flow.StatusFailed), string(flow.StatusPassed)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
