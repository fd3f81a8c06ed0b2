package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/interfaces"
	"github.com/ternarybob/stockit/internal/models"
)

// JobSettingsStorage implements interfaces.JobSettingsStorage for SQLite
type JobSettingsStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewJobSettingsStorage creates a new JobSettingsStorage instance
func NewJobSettingsStorage(db *SQLiteDB, logger arbor.ILogger) *JobSettingsStorage {
	return &JobSettingsStorage{
		db:     db,
		logger: logger,
	}
}

// SaveJobRun upserts the state of a scheduled job
func (s *JobSettingsStorage) SaveJobRun(ctx context.Context, run *models.JobRun) error {
	now := time.Now()
	query := `
		INSERT INTO job_settings (job_name, schedule, last_run, next_run, last_error, run_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_name) DO UPDATE SET
			schedule = excluded.schedule,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			run_count = excluded.run_count,
			updated_at = excluded.updated_at
	`

	_, err := s.db.db.ExecContext(ctx, query, run.Name, run.Schedule, nullTime(run.LastRun),
		nullTime(run.NextRun), run.LastError, run.RunCount, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to save job settings for %s: %w", run.Name, err)
	}

	run.UpdatedAt = now
	return nil
}

// GetJobRun returns the persisted state for one job
func (s *JobSettingsStorage) GetJobRun(ctx context.Context, name string) (*models.JobRun, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT job_name, schedule, last_run, next_run, last_error, run_count, updated_at
		FROM job_settings WHERE job_name = ?`, name)

	run, err := scanJobRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", name, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job settings: %w", err)
	}
	return run, nil
}

// ListJobRuns returns all persisted job states ordered by name
func (s *JobSettingsStorage) ListJobRuns(ctx context.Context) ([]*models.JobRun, error) {
	rows, err := s.db.db.QueryContext(ctx, `
		SELECT job_name, schedule, last_run, next_run, last_error, run_count, updated_at
		FROM job_settings ORDER BY job_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list job settings: %w", err)
	}
	defer rows.Close()

	var runs []*models.JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job settings: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanJobRun(row rowScanner) (*models.JobRun, error) {
	var run models.JobRun
	var lastRun, nextRun sql.NullInt64
	var updatedAt int64

	if err := row.Scan(&run.Name, &run.Schedule, &lastRun, &nextRun, &run.LastError, &run.RunCount, &updatedAt); err != nil {
		return nil, err
	}

	run.LastRun = timeFromNull(lastRun)
	run.NextRun = timeFromNull(nextRun)
	run.UpdatedAt = time.Unix(updatedAt, 0)
	return &run, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
