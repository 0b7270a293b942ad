package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrUnknownJobType marks a job whose type has no handler. Such jobs fail
// terminally on the first attempt; retrying cannot make a handler appear.
var ErrUnknownJobType = errors.New("unknown job type")

// HandlerFunc executes one job. A nil return completes the job; an error
// returns it to the queue until its attempt budget runs out.
type HandlerFunc func(ctx context.Context, job *Job) error

// Handlers holds one handler per job type. The processor dispatches with a
// switch over the closed type enum, so adding a type without a handler
// surfaces as a loud terminal failure rather than a silent skip.
type Handlers struct {
	BloodRequest   HandlerFunc
	CampaignDigest HandlerFunc
}

// ProcessorConfig contains processor configuration.
type ProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// DefaultProcessorConfig returns default processor configuration.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchSize:    10,
		PollInterval: 30 * time.Second,
	}
}

// Processor polls the job store and executes pending jobs with at-least-once
// semantics and a bounded attempt budget per job.
type Processor struct {
	config   ProcessorConfig
	repo     Repository
	handlers Handlers

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewProcessor creates a new job processor.
func NewProcessor(config ProcessorConfig, repo Repository, handlers Handlers) *Processor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultProcessorConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultProcessorConfig().PollInterval
	}

	return &Processor{
		config:   config,
		repo:     repo,
		handlers: handlers,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the polling loop.
func (p *Processor) Start(ctx context.Context) {
	slog.Info("starting job processor",
		"batch_size", p.config.BatchSize,
		"poll_interval", p.config.PollInterval,
	)

	p.wg.Add(1)
	go p.run(ctx)
}

// Stop gracefully stops the processor, waiting for the in-flight batch.
func (p *Processor) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	slog.Info("job processor stopped")
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce fetches one batch of pending jobs and processes it concurrently,
// returning the number of jobs this invocation claimed. Jobs in the batch
// are independent; the invocation's wall-clock time is bounded by the
// slowest job.
func (p *Processor) RunOnce(ctx context.Context) int {
	batch, err := p.repo.FetchPending(ctx, p.config.BatchSize)
	if err != nil {
		slog.Error("failed to fetch pending jobs", "error", err)
		return 0
	}

	if len(batch) == 0 {
		return 0
	}

	slog.Debug("processing jobs", "count", len(batch))

	var claimed int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, job := range batch {
		wg.Add(1)
		go func(job *Job) {
			defer wg.Done()
			if p.processJob(ctx, job) {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}(job)
	}
	wg.Wait()

	return claimed
}

// processJob claims and executes a single job. Returns false when the claim
// lost to a concurrent processor invocation.
func (p *Processor) processJob(ctx context.Context, job *Job) bool {
	attempts, claimed, err := p.repo.Claim(ctx, job.ID)
	if err != nil {
		slog.Error("failed to claim job", "job_id", job.ID, "error", err)
		return false
	}
	if !claimed {
		slog.Debug("job claimed elsewhere, skipping", "job_id", job.ID)
		return false
	}

	recordJobFetched()
	start := time.Now()
	handlerErr := p.execute(ctx, job)
	duration := time.Since(start)

	if handlerErr == nil {
		if err := p.repo.MarkCompleted(ctx, job.ID); err != nil {
			slog.Error("failed to mark job completed", "job_id", job.ID, "error", err)
		}
		recordJobProcessed(string(job.Type), "completed")
		recordJobDuration(string(job.Type), duration)
		slog.Debug("job completed",
			"job_id", job.ID,
			"type", job.Type,
			"duration", duration,
		)
		return true
	}

	p.handleExecuteError(ctx, job, attempts, handlerErr)
	return true
}

// execute dispatches the job to its handler, converting panics into errors
// so one misbehaving job cannot take down the batch.
func (p *Processor) execute(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	switch job.Type {
	case TypeBloodRequestNotification:
		if p.handlers.BloodRequest == nil {
			return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
		}
		return p.handlers.BloodRequest(ctx, job)
	case TypeCampaignDigest:
		if p.handlers.CampaignDigest == nil {
			return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
		}
		return p.handlers.CampaignDigest(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
}

func (p *Processor) handleExecuteError(ctx context.Context, job *Job, attempts int, cause error) {
	slog.Warn("job handler failed",
		"job_id", job.ID,
		"type", job.Type,
		"attempt", attempts,
		"max_attempts", job.MaxAttempts,
		"error", cause,
	)

	// A job with no handler can never succeed; fail it immediately.
	if errors.Is(cause, ErrUnknownJobType) {
		if err := p.repo.MarkFailed(ctx, job.ID, cause); err != nil {
			slog.Error("failed to mark job failed", "job_id", job.ID, "error", err)
		}
		recordJobProcessed(string(job.Type), "failed")
		return
	}

	if attempts < job.MaxAttempts {
		if err := p.repo.ReleaseForRetry(ctx, job.ID, cause); err != nil {
			slog.Error("failed to release job for retry", "job_id", job.ID, "error", err)
		}
		recordJobProcessed(string(job.Type), "retry")
		return
	}

	if err := p.repo.MarkFailed(ctx, job.ID, cause); err != nil {
		slog.Error("failed to mark job failed", "job_id", job.ID, "error", err)
	}
	recordJobProcessed(string(job.Type), "failed")
}
