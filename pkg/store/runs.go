package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wikisync/models"
)

// StartRun inserts a running ledger record for one orchestrator execution.
func (db *DB) StartRun(ctx context.Context, source, strategy string) (*models.SyncRun, error) {
	started := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		INSERT INTO sync_runs (source, strategy, status, started_at)
		VALUES (?, ?, ?, ?)
	`, source, strategy, string(models.RunRunning), started)
	if err != nil {
		return nil, fmt.Errorf("failed to start sync run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get run ID: %w", err)
	}
	return &models.SyncRun{
		ID:        id,
		Source:    source,
		Strategy:  strategy,
		Status:    models.RunRunning,
		StartedAt: started,
	}, nil
}

// CompleteRun finalizes a run as completed with its statistics.
func (db *DB) CompleteRun(ctx context.Context, runID int64, stats models.SyncStats) error {
	var errList []byte
	if len(stats.Errors) > 0 {
		var err error
		errList, err = json.Marshal(stats.Errors)
		if err != nil {
			return fmt.Errorf("failed to encode run errors: %w", err)
		}
	}
	_, err := db.ExecContext(ctx, `
		UPDATE sync_runs SET
			pages_processed = ?, pages_created = ?, pages_updated = ?,
			pages_unchanged = ?, error_count = ?, errors = ?,
			status = ?, completed_at = ?
		WHERE run_id = ?
	`, stats.Processed, stats.Created, stats.Updated,
		stats.Unchanged, stats.ErrorCount(), string(errList),
		string(models.RunCompleted), time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to complete sync run %d: %w", runID, err)
	}
	return nil
}

// FailRun finalizes a run as failed with an operator-visible message.
func (db *DB) FailRun(ctx context.Context, runID int64, msg string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_runs SET status = ?, error_message = ?, completed_at = ?
		WHERE run_id = ?
	`, string(models.RunFailed), msg, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to fail sync run %d: %w", runID, err)
	}
	return nil
}

// LastCompletedAt returns the completion time of the most recent completed
// run for a source, or nil when none exists. This is the incremental
// watermark.
func (db *DB) LastCompletedAt(ctx context.Context, source string) (*time.Time, error) {
	var completed time.Time
	err := db.QueryRowContext(ctx, `
		SELECT completed_at FROM sync_runs
		WHERE source = ? AND status = ?
		ORDER BY completed_at DESC
		LIMIT 1
	`, source, string(models.RunCompleted)).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watermark for %s: %w", source, err)
	}
	return &completed, nil
}

// ListRuns returns the most recent runs for a source, newest first.
func (db *DB) ListRuns(ctx context.Context, source string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, source, strategy, pages_processed, pages_created,
			pages_updated, pages_unchanged, errors, status, error_message,
			started_at, completed_at
		FROM sync_runs
		WHERE source = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", source, err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var (
			run       models.SyncRun
			errList   sql.NullString
			errMsg    sql.NullString
			completed sql.NullTime
			status    string
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Strategy,
			&run.Stats.Processed, &run.Stats.Created, &run.Stats.Updated,
			&run.Stats.Unchanged, &errList, &status, &errMsg,
			&run.StartedAt, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Status = models.RunStatus(status)
		run.ErrorMessage = errMsg.String
		if completed.Valid {
			run.CompletedAt = &completed.Time
		}
		if errList.Valid && errList.String != "" {
			if err := json.Unmarshal([]byte(errList.String), &run.Stats.Errors); err != nil {
				return nil, fmt.Errorf("failed to decode run errors: %w", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
