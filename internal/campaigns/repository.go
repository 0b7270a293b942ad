// Package campaigns provides HTTP handlers and business logic for managing
// blood-donation campaigns.
package campaigns

import (
	"context"
	"errors"

	"github.com/hemolink/donorhub/internal/digest"
	"github.com/hemolink/donorhub/internal/domain"
)

// ErrCampaignNotFound is returned when a campaign id does not exist.
var ErrCampaignNotFound = errors.New("campaign not found")

// ListFilter narrows campaign listings.
type ListFilter struct {
	CityID         string
	OrganizationID string
	Upcoming       bool
	Limit          int
	Offset         int
}

// Repository defines the interface for campaign persistence.
type Repository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	List(ctx context.Context, filter ListFilter) ([]*domain.Campaign, int, error)
	Update(ctx context.Context, c *domain.Campaign) error
	Delete(ctx context.Context, id string) error

	// DigestInfo resolves the digest-relevant view of a campaign, with its
	// region derived through the campaign's city.
	DigestInfo(ctx context.Context, id string) (*digest.CampaignInfo, error)
}
