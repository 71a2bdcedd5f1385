package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/giving-analytics/internal/model"
)

// SaveRun appends a run to the run log.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classification_runs (
			id, started_at, finished_at, eligible, succeeded, failed, result
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		dbTime(run.StartedAt),
		dbTime(run.FinishedAt),
		run.Eligible,
		run.Succeeded,
		run.Failed,
		run.Result,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, classifyError(err))
	}
	return nil
}

// GetRecentRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) GetRecentRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, eligible, succeeded, failed, result
		FROM classification_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", classifyError(err))
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Eligible,
			&run.Succeeded,
			&run.Failed,
			&run.Result,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", classifyError(err))
	}

	return runs, nil
}
