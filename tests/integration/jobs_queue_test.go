//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/donorhub/internal/jobs"
	jobspostgres "github.com/hemolink/donorhub/internal/jobs/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T) *jobs.Job {
	t.Helper()
	job, err := jobs.New(jobs.TypeBloodRequestNotification, jobs.BloodRequestPayload{
		RequestID: uuid.NewString(),
	})
	require.NoError(t, err)

	// Remove the row afterwards so a non-terminal leftover cannot leak into
	// processor-driven tests.
	t.Cleanup(func() {
		_, _ = testDB.Exec(context.Background(), `DELETE FROM jobs WHERE id = $1`, job.ID)
	})
	return job
}

func findJob(batch []*jobs.Job, id string) *jobs.Job {
	for _, j := range batch {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func TestJobQueue_EnqueueAndFetch(t *testing.T) {
	ctx := context.Background()
	repo := jobspostgres.NewRepository(testDB)

	job := newTestJob(t)
	require.NoError(t, repo.Enqueue(ctx, job))

	batch, err := repo.FetchPending(ctx, 100)
	require.NoError(t, err)

	fetched := findJob(batch, job.ID)
	require.NotNil(t, fetched, "enqueued job must be fetchable")
	assert.Equal(t, jobs.TypeBloodRequestNotification, fetched.Type)
	assert.Equal(t, jobs.StatusPending, fetched.Status)
	assert.Equal(t, 0, fetched.Attempts)
	assert.Equal(t, jobs.DefaultMaxAttempts, fetched.MaxAttempts)
	assert.JSONEq(t, string(job.Payload), string(fetched.Payload))
}

func TestJobQueue_ClaimConsumesAttempt(t *testing.T) {
	ctx := context.Background()
	repo := jobspostgres.NewRepository(testDB)

	job := newTestJob(t)
	require.NoError(t, repo.Enqueue(ctx, job))

	attempts, claimed, err := repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, 1, attempts)

	// A second claim loses: the job is no longer pending.
	_, claimed, err = repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestJobQueue_CompleteClaimedJob(t *testing.T) {
	ctx := context.Background()
	repo := jobspostgres.NewRepository(testDB)

	job := newTestJob(t)
	require.NoError(t, repo.Enqueue(ctx, job))

	_, claimed, err := repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.MarkCompleted(ctx, job.ID))

	var status string
	var processedAt *time.Time
	err = testDB.QueryRow(ctx,
		`SELECT status, processed_at FROM jobs WHERE id = $1`, job.ID).
		Scan(&status, &processedAt)
	require.NoError(t, err)
	assert.Equal(t, "completed", status)
	assert.NotNil(t, processedAt)

	// Completing a job that is not processing reports not found.
	assert.ErrorIs(t, repo.MarkCompleted(ctx, job.ID), jobs.ErrJobNotFound)
}

func TestJobQueue_ReleaseForRetryKeepsAttemptCount(t *testing.T) {
	ctx := context.Background()
	repo := jobspostgres.NewRepository(testDB)

	job := newTestJob(t)
	require.NoError(t, repo.Enqueue(ctx, job))

	_, claimed, err := repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.ReleaseForRetry(ctx, job.ID, assert.AnError))

	batch, err := repo.FetchPending(ctx, 100)
	require.NoError(t, err)
	fetched := findJob(batch, job.ID)
	require.NotNil(t, fetched, "released job must be fetchable again")
	assert.Equal(t, 1, fetched.Attempts)
	assert.Contains(t, fetched.LastError, assert.AnError.Error())

	// The next claim picks up where the first left off.
	attempts, claimed, err := repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, 2, attempts)
}

func TestJobQueue_ExhaustedJobNotFetched(t *testing.T) {
	ctx := context.Background()
	repo := jobspostgres.NewRepository(testDB)

	job := newTestJob(t)
	require.NoError(t, repo.Enqueue(ctx, job))

	for i := 0; i < jobs.DefaultMaxAttempts; i++ {
		_, claimed, err := repo.Claim(ctx, job.ID)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, repo.ReleaseForRetry(ctx, job.ID, assert.AnError))
	}

	batch, err := repo.FetchPending(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, findJob(batch, job.ID), "job with exhausted attempts must not be fetched")
}

func TestJobQueue_MarkFailed(t *testing.T) {
	ctx := context.Background()
	repo := jobspostgres.NewRepository(testDB)

	job := newTestJob(t)
	require.NoError(t, repo.Enqueue(ctx, job))

	_, claimed, err := repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.MarkFailed(ctx, job.ID, assert.AnError))

	var status string
	var lastError *string
	err = testDB.QueryRow(ctx,
		`SELECT status, last_error FROM jobs WHERE id = $1`, job.ID).
		Scan(&status, &lastError)
	require.NoError(t, err)
	assert.Equal(t, "failed", status)
	require.NotNil(t, lastError)
	assert.Contains(t, *lastError, assert.AnError.Error())
}

func TestJobQueue_QueueStats(t *testing.T) {
	ctx := context.Background()
	repo := jobspostgres.NewRepository(testDB)

	job := newTestJob(t)
	require.NoError(t, repo.Enqueue(ctx, job))

	stats, err := repo.QueueStats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Pending, 1)
}

func TestJobQueue_DeleteOldCompleted(t *testing.T) {
	ctx := context.Background()
	repo := jobspostgres.NewRepository(testDB)

	job := newTestJob(t)
	require.NoError(t, repo.Enqueue(ctx, job))
	_, _, err := repo.Claim(ctx, job.ID)
	require.NoError(t, err)
	require.NoError(t, repo.MarkCompleted(ctx, job.ID))

	deleted, err := repo.DeleteOldCompleted(ctx, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	var count int
	err = testDB.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE id = $1`, job.ID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}
