package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned when a job id does not exist in the store.
var ErrJobNotFound = errors.New("job not found")

// Repository defines the interface for job store access.
type Repository interface {
	// Enqueue persists a new pending job.
	Enqueue(ctx context.Context, job *Job) error

	// FetchPending returns pending jobs whose attempts are below their own
	// max_attempts, oldest first, capped at limit.
	FetchPending(ctx context.Context, limit int) ([]*Job, error)

	// Claim atomically moves a job from pending to processing and increments
	// its attempt counter. Returns the attempt count after the increment and
	// whether the claim won; claimed == false means another processor took
	// the job (or its status changed) since it was fetched.
	Claim(ctx context.Context, id string) (attempts int, claimed bool, err error)

	// MarkCompleted finishes a processing job and stamps processed_at.
	MarkCompleted(ctx context.Context, id string) error

	// ReleaseForRetry returns a processing job to pending, recording the
	// handler error. The job becomes eligible on the next poll cycle.
	ReleaseForRetry(ctx context.Context, id string, cause error) error

	// MarkFailed terminally fails a job, recording the last error.
	MarkFailed(ctx context.Context, id string, cause error) error

	// QueueStats returns job counts by status.
	QueueStats(ctx context.Context) (*QueueStats, error)

	// DeleteOldCompleted removes completed jobs older than the given age and
	// returns the count. No schedule calls this by default; jobs are kept
	// indefinitely unless an operator wires a cleanup.
	DeleteOldCompleted(ctx context.Context, olderThan time.Duration) (int64, error)
}

// QueueStats contains job counts by status.
type QueueStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
