package campaigns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/donorhub/internal/domain"
)

// ErrInvalidSchedule is returned when a campaign ends before it starts.
var ErrInvalidSchedule = errors.New("campaign end time must be after start time")

// DigestAttacher adds a freshly created campaign to its regional daily
// digest. Implemented by digest.Aggregator.
type DigestAttacher interface {
	AttachCampaign(ctx context.Context, campaignID string) error
}

// Service contains campaign business logic.
type Service struct {
	repo     Repository
	digester DigestAttacher
}

// NewService creates a new campaign service.
func NewService(repo Repository, digester DigestAttacher) *Service {
	return &Service{
		repo:     repo,
		digester: digester,
	}
}

// Create persists a campaign and attaches it to today's regional digest.
// A digest failure surfaces to the caller: the campaign row stays, but the
// creation request reports the error.
func (s *Service) Create(ctx context.Context, c *domain.Campaign) error {
	if err := validateSchedule(c); err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.repo.Create(ctx, c); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}

	slog.Info("campaign created", "campaign_id", c.ID, "title", c.Title)

	if s.digester != nil {
		if err := s.digester.AttachCampaign(ctx, c.ID); err != nil {
			return fmt.Errorf("attach campaign to digest: %w", err)
		}
	}

	return nil
}

// GetByID returns a single campaign.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns campaigns matching the filter and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*domain.Campaign, int, error) {
	return s.repo.List(ctx, filter)
}

// Update modifies an existing campaign.
func (s *Service) Update(ctx context.Context, c *domain.Campaign) error {
	if err := validateSchedule(c); err != nil {
		return err
	}

	c.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, c)
}

// Delete removes a campaign.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func validateSchedule(c *domain.Campaign) error {
	if c.EndsAt != nil && !c.EndsAt.After(c.StartsAt) {
		return ErrInvalidSchedule
	}
	return nil
}
