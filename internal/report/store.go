// Package report keeps annotation run reports in a sqlite database so
// failed documents can be inspected and retried later.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"annotator/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id        TEXT PRIMARY KEY,
	input     TEXT NOT NULL,
	output    TEXT NOT NULL,
	started   TEXT NOT NULL,
	finished  TEXT NOT NULL,
	succeeded INTEGER NOT NULL,
	failed    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx       INTEGER NOT NULL,
	key       TEXT NOT NULL,
	status    TEXT NOT NULL,
	reason    TEXT,
	fields    TEXT,
	PRIMARY KEY (run_id, idx)
);
`

// Run is the stored summary of a report.
type Run struct {
	ID        string
	Input     string
	Output    string
	Started   time.Time
	Finished  time.Time
	Succeeded int
	Failed    int
}

// Store persists reports.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create report schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save writes rep and its results in one transaction. Saving a run id
// again replaces the earlier rows.
func (s *Store) Save(ctx context.Context, rep *domain.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE run_id = ?`, rep.RunID); err != nil {
		return fmt.Errorf("failed to replace results: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, input, output, started, finished, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rep.RunID, rep.Input, rep.Output, rep.Started.UTC().Format(time.RFC3339Nano), rep.Finished.UTC().Format(time.RFC3339Nano), rep.Succeeded(), rep.Failed())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (run_id, idx, key, status, reason, fields)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rep.Results {
		if _, err := stmt.ExecContext(ctx, rep.RunID, r.Index, r.Key, string(r.Status), r.Reason, strings.Join(r.Fields, ",")); err != nil {
			return fmt.Errorf("failed to insert result %d: %w", r.Index, err)
		}
	}
	return tx.Commit()
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input, output, started, finished, succeeded, failed
		FROM runs
		ORDER BY started DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Input, &r.Output, &started, &finished, &r.Succeeded, &r.Failed); err != nil {
			return nil, err
		}
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		r.Finished, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Failures returns the failed results of a run in input order.
func (s *Store) Failures(ctx context.Context, runID string) ([]domain.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, key, status, reason, fields
		FROM results
		WHERE run_id = ? AND status = ?
		ORDER BY idx
	`, runID, string(domain.StatusFailed))
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var out []domain.Result
	for rows.Next() {
		var r domain.Result
		var status string
		var reason, fields sql.NullString
		if err := rows.Scan(&r.Index, &r.Key, &status, &reason, &fields); err != nil {
			return nil, err
		}
		r.Status = domain.Status(status)
		r.Reason = reason.String
		if fields.String != "" {
			r.Fields = strings.Split(fields.String, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
