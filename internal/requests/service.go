package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/donorhub/internal/domain"
	"github.com/hemolink/donorhub/internal/jobs"
	"github.com/hemolink/donorhub/internal/notifications/discord"
)

// ErrInvalidBloodType is returned when a request names an unrecognized group.
var ErrInvalidBloodType = errors.New("invalid blood type")

// Pusher fires best-effort push notifications for urgent requests.
type Pusher interface {
	NotifyUrgentRequest(ctx context.Context, notice discord.RequestNotice) bool
}

// Enqueuer persists new jobs into the job store.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *jobs.Job) error
}

// Service contains blood request business logic.
type Service struct {
	repo   Repository
	queue  Enqueuer
	pusher Pusher
}

// NewService creates a new blood request service. The pusher may be nil when
// push notifications are not configured.
func NewService(repo Repository, queue Enqueuer, pusher Pusher) *Service {
	return &Service{
		repo:   repo,
		queue:  queue,
		pusher: pusher,
	}
}

// Create persists a blood request and enqueues the donor notification job.
// Urgent requests additionally fire a push notification; that side channel
// is best-effort and never fails the creation.
func (s *Service) Create(ctx context.Context, req *domain.BloodRequest) error {
	if !req.BloodType.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidBloodType, req.BloodType)
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Urgency == "" {
		req.Urgency = domain.UrgencyNormal
	}
	req.Status = domain.RequestStatusOpen
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := s.repo.Create(ctx, req); err != nil {
		return fmt.Errorf("create blood request: %w", err)
	}

	job, err := jobs.New(jobs.TypeBloodRequestNotification, jobs.BloodRequestPayload{RequestID: req.ID})
	if err != nil {
		return fmt.Errorf("build notification job: %w", err)
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue notification job: %w", err)
	}

	slog.Info("blood request created",
		"request_id", req.ID,
		"blood_type", req.BloodType,
		"urgency", req.Urgency,
	)

	if req.Urgency == domain.UrgencyUrgent && s.pusher != nil {
		s.pushUrgent(ctx, req.ID)
	}

	return nil
}

func (s *Service) pushUrgent(ctx context.Context, id string) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		slog.Warn("failed to resolve request for urgent push", "request_id", id, "error", err)
		return
	}

	s.pusher.NotifyUrgentRequest(ctx, discord.RequestNotice{
		BloodGroup: detail.BloodType.Display(),
		City:       detail.CityName,
		Hospital:   detail.Hospital,
		Contact:    detail.Contact,
	})
}

// GetByID returns a single blood request.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// GetDetail returns a request with its city and region resolved.
func (s *Service) GetDetail(ctx context.Context, id string) (*Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns blood requests matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*domain.BloodRequest, error) {
	return s.repo.List(ctx, filter)
}

// Close marks a request closed. Closing an already closed request is a no-op.
func (s *Service) Close(ctx context.Context, id string) error {
	return s.repo.UpdateStatus(ctx, id, domain.RequestStatusClosed)
}
