// Package postgres provides the PostgreSQL implementation of the job store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hemolink/donorhub/internal/jobs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements jobs.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL job repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Enqueue persists a new pending job.
func (r *Repository) Enqueue(ctx context.Context, job *jobs.Job) error {
	query := `
		INSERT INTO jobs (id, type, payload, status, attempts, max_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.Type,
		job.Payload,
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// FetchPending returns pending jobs below their attempt budget, oldest first.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]*jobs.Job, error) {
	query := `
		SELECT id, type, payload, status, attempts, max_attempts, COALESCE(last_error, ''), created_at, processed_at
		FROM jobs
		WHERE status = 'pending' AND attempts < max_attempts
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending jobs: %w", err)
	}
	defer rows.Close()

	batch := make([]*jobs.Job, 0)
	for rows.Next() {
		var job jobs.Job
		err := rows.Scan(
			&job.ID,
			&job.Type,
			&job.Payload,
			&job.Status,
			&job.Attempts,
			&job.MaxAttempts,
			&job.LastError,
			&job.CreatedAt,
			&job.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		batch = append(batch, &job)
	}

	return batch, nil
}

// Claim moves a job from pending to processing and consumes one attempt.
// The status guard makes the claim safe under concurrent processor
// invocations: only one caller observes claimed == true per attempt.
func (r *Repository) Claim(ctx context.Context, id string) (int, bool, error) {
	query := `
		UPDATE jobs
		SET status = 'processing', attempts = attempts + 1
		WHERE id = $1 AND status = 'pending'
		RETURNING attempts
	`
	var attempts int
	err := r.db.QueryRow(ctx, query, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("claim job: %w", err)
	}
	return attempts, true, nil
}

// MarkCompleted finishes a processing job.
func (r *Repository) MarkCompleted(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET status = 'completed', processed_at = NOW()
		WHERE id = $1 AND status = 'processing'
	`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return jobs.ErrJobNotFound
	}
	return nil
}

// ReleaseForRetry returns a processing job to pending with the error recorded.
func (r *Repository) ReleaseForRetry(ctx context.Context, id string, cause error) error {
	query := `
		UPDATE jobs
		SET status = 'pending', last_error = $2
		WHERE id = $1 AND status = 'processing'
	`
	result, err := r.db.Exec(ctx, query, id, cause.Error())
	if err != nil {
		return fmt.Errorf("release job for retry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return jobs.ErrJobNotFound
	}
	return nil
}

// MarkFailed terminally fails a job.
func (r *Repository) MarkFailed(ctx context.Context, id string, cause error) error {
	query := `
		UPDATE jobs
		SET status = 'failed', last_error = $2, processed_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, id, cause.Error())
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return jobs.ErrJobNotFound
	}
	return nil
}

// QueueStats returns job counts by status.
func (r *Repository) QueueStats(ctx context.Context) (*jobs.QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var stats jobs.QueueStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		switch jobs.Status(status) {
		case jobs.StatusPending:
			stats.Pending = count
		case jobs.StatusProcessing:
			stats.Processing = count
		case jobs.StatusCompleted:
			stats.Completed = count
		case jobs.StatusFailed:
			stats.Failed = count
		}
	}

	return &stats, nil
}

// DeleteOldCompleted removes completed jobs older than the given age.
func (r *Repository) DeleteOldCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM jobs WHERE status = 'completed' AND processed_at < $1`
	result, err := r.db.Exec(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("delete old completed jobs: %w", err)
	}
	return result.RowsAffected(), nil
}
