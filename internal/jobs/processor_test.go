package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo implements Repository in memory for processor tests.
type memoryRepo struct {
	mu       sync.Mutex
	store    map[string]*Job
	order    []string
	releases map[string]int
	denyAll  bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		store:    make(map[string]*Job),
		releases: make(map[string]int),
	}
}

func (m *memoryRepo) Enqueue(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.store[job.ID] = &copied
	m.order = append(m.order, job.ID)
	return nil
}

func (m *memoryRepo) FetchPending(_ context.Context, limit int) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := make([]*Job, 0)
	for _, id := range m.order {
		job := m.store[id]
		if job.Status == StatusPending && job.Attempts < job.MaxAttempts {
			copied := *job
			batch = append(batch, &copied)
			if len(batch) == limit {
				break
			}
		}
	}
	return batch, nil
}

func (m *memoryRepo) Claim(_ context.Context, id string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyAll {
		return 0, false, nil
	}
	job, ok := m.store[id]
	if !ok || job.Status != StatusPending {
		return 0, false, nil
	}
	job.Status = StatusProcessing
	job.Attempts++
	return job.Attempts, true, nil
}

func (m *memoryRepo) MarkCompleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.store[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = StatusCompleted
	now := time.Now()
	job.ProcessedAt = &now
	return nil
}

func (m *memoryRepo) ReleaseForRetry(_ context.Context, id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.store[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = StatusPending
	job.LastError = cause.Error()
	m.releases[id]++
	return nil
}

func (m *memoryRepo) MarkFailed(_ context.Context, id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.store[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = StatusFailed
	job.LastError = cause.Error()
	now := time.Now()
	job.ProcessedAt = &now
	return nil
}

func (m *memoryRepo) QueueStats(_ context.Context) (*QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats QueueStats
	for _, job := range m.store {
		switch job.Status {
		case StatusPending:
			stats.Pending++
		case StatusProcessing:
			stats.Processing++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		}
	}
	return &stats, nil
}

func (m *memoryRepo) DeleteOldCompleted(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func (m *memoryRepo) get(id string) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.store[id]
}

func enqueueTestJob(t *testing.T, repo *memoryRepo, jobType Type) *Job {
	t.Helper()
	job, err := New(jobType, BloodRequestPayload{RequestID: "req-1"})
	require.NoError(t, err)
	job.Type = jobType
	require.NoError(t, repo.Enqueue(context.Background(), job))
	return job
}

func TestProcessor_RunOnce_CompletesJob(t *testing.T) {
	repo := newMemoryRepo()
	job := enqueueTestJob(t, repo, TypeBloodRequestNotification)

	var handled int
	processor := NewProcessor(ProcessorConfig{BatchSize: 10}, repo, Handlers{
		BloodRequest: func(_ context.Context, _ *Job) error {
			handled++
			return nil
		},
	})

	claimed := processor.RunOnce(context.Background())

	assert.Equal(t, 1, claimed)
	assert.Equal(t, 1, handled)

	stored := repo.get(job.ID)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.ProcessedAt)
}

func TestProcessor_FailingHandler_ExhaustsAttempts(t *testing.T) {
	repo := newMemoryRepo()
	job := enqueueTestJob(t, repo, TypeBloodRequestNotification)

	attempt := 0
	processor := NewProcessor(ProcessorConfig{BatchSize: 10}, repo, Handlers{
		BloodRequest: func(_ context.Context, _ *Job) error {
			attempt++
			return fmt.Errorf("smtp unavailable (attempt %d)", attempt)
		},
	})

	// Each cycle retries the job until the attempt budget is consumed.
	for i := 0; i < DefaultMaxAttempts; i++ {
		assert.Equal(t, 1, processor.RunOnce(context.Background()))
	}

	// Terminal: no further cycles pick the job up.
	assert.Equal(t, 0, processor.RunOnce(context.Background()))

	stored := repo.get(job.ID)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, DefaultMaxAttempts, stored.Attempts)
	assert.Equal(t, "smtp unavailable (attempt 3)", stored.LastError)

	// Pending -> Processing -> Pending exactly maxAttempts-1 times.
	assert.Equal(t, DefaultMaxAttempts-1, repo.releases[job.ID])
}

func TestProcessor_UnknownType_FailsImmediately(t *testing.T) {
	repo := newMemoryRepo()
	job := enqueueTestJob(t, repo, Type("weekly_newsletter"))

	processor := NewProcessor(ProcessorConfig{BatchSize: 10}, repo, Handlers{})
	processor.RunOnce(context.Background())

	stored := repo.get(job.ID)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Contains(t, stored.LastError, "unknown job type")
	assert.Zero(t, repo.releases[job.ID])
}

func TestProcessor_PanicDoesNotAbortBatch(t *testing.T) {
	repo := newMemoryRepo()
	panicking := enqueueTestJob(t, repo, TypeBloodRequestNotification)
	healthy := enqueueTestJob(t, repo, TypeCampaignDigest)

	processor := NewProcessor(ProcessorConfig{BatchSize: 10}, repo, Handlers{
		BloodRequest: func(_ context.Context, _ *Job) error {
			panic("nil dereference in handler")
		},
		CampaignDigest: func(_ context.Context, _ *Job) error {
			return nil
		},
	})

	claimed := processor.RunOnce(context.Background())
	assert.Equal(t, 2, claimed)

	assert.Equal(t, StatusCompleted, repo.get(healthy.ID).Status)

	stored := repo.get(panicking.ID)
	assert.Equal(t, StatusPending, stored.Status, "panicking job should be released for retry")
	assert.Contains(t, stored.LastError, "handler panic")
}

func TestProcessor_ClaimLost_SkipsHandler(t *testing.T) {
	repo := newMemoryRepo()
	enqueueTestJob(t, repo, TypeBloodRequestNotification)
	repo.denyAll = true

	var handled int
	processor := NewProcessor(ProcessorConfig{BatchSize: 10}, repo, Handlers{
		BloodRequest: func(_ context.Context, _ *Job) error {
			handled++
			return nil
		},
	})

	claimed := processor.RunOnce(context.Background())

	assert.Zero(t, claimed)
	assert.Zero(t, handled, "handler must not run for a lost claim")
}

func TestProcessor_BatchSizeCapsSelection(t *testing.T) {
	repo := newMemoryRepo()
	for i := 0; i < 15; i++ {
		enqueueTestJob(t, repo, TypeBloodRequestNotification)
	}

	processor := NewProcessor(ProcessorConfig{BatchSize: 10}, repo, Handlers{
		BloodRequest: func(_ context.Context, _ *Job) error { return nil },
	})

	assert.Equal(t, 10, processor.RunOnce(context.Background()))
	assert.Equal(t, 5, processor.RunOnce(context.Background()))
}

func TestProcessor_StartStop(t *testing.T) {
	repo := newMemoryRepo()
	processor := NewProcessor(ProcessorConfig{BatchSize: 1, PollInterval: 10 * time.Millisecond}, repo, Handlers{})

	processor.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	processor.Stop()
}

func TestNewProcessor_Defaults(t *testing.T) {
	processor := NewProcessor(ProcessorConfig{}, newMemoryRepo(), Handlers{})

	assert.Equal(t, 10, processor.config.BatchSize)
	assert.Equal(t, 30*time.Second, processor.config.PollInterval)
}

func TestNew_MarshalsPayload(t *testing.T) {
	job, err := New(TypeCampaignDigest, CampaignDigestPayload{
		DigestID:   "digest-1",
		RegionName: "Cortés",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, DefaultMaxAttempts, job.MaxAttempts)
	assert.JSONEq(t, `{"digest_id":"digest-1","region_name":"Cortés","campaigns":null,"recipients":null}`, string(job.Payload))
}

func TestNew_UnmarshalablePayload(t *testing.T) {
	_, err := New(TypeCampaignDigest, make(chan int))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownJobType))
}
