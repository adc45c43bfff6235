package db

import (
	"context"
	"fmt"
)

// RunRecorder books imports into the import_runs table so every row in
// service_observations can be traced back to the merge that loaded it.
type RunRecorder struct {
	db *DB
}

func NewRunRecorder(database *DB) *RunRecorder {
	return &RunRecorder{db: database}
}

// CreateRun registers a new import and returns its ID.
func (r *RunRecorder) CreateRun(ctx context.Context, pattern string, fileCount int) (int, error) {
	var runID int
	err := r.db.conn.QueryRowContext(ctx,
		`INSERT INTO traindata.import_runs (source_pattern, file_count, started_at)
		 VALUES ($1, $2, NOW())
		 RETURNING run_id`,
		pattern, fileCount,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("creating import run: %w", err)
	}
	return runID, nil
}

// FinalizeRun stamps the run with its row count and completion time.
func (r *RunRecorder) FinalizeRun(ctx context.Context, runID, rowCount int) error {
	_, err := r.db.conn.ExecContext(ctx,
		`UPDATE traindata.import_runs
		 SET row_count = $2, completed_at = NOW()
		 WHERE run_id = $1`,
		runID, rowCount,
	)
	if err != nil {
		return fmt.Errorf("finalizing import run %d: %w", runID, err)
	}
	return nil
}

// LatestRun returns the ID of the most recent completed import, or 0
// when none exists.
func (r *RunRecorder) LatestRun(ctx context.Context) (int, error) {
	var runID int
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(run_id), 0) FROM traindata.import_runs
		 WHERE completed_at IS NOT NULL`,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("querying latest run: %w", err)
	}
	return runID, nil
}
