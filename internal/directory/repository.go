// Package directory resolves notification recipients from registered users.
package directory

import (
	"context"

	"github.com/hemolink/donorhub/internal/domain"
)

// Recipient is a user addressable by email.
type Recipient struct {
	Email     string
	Name      string
	BloodType domain.BloodType
}

// Repository defines the interface for recipient lookups.
type Repository interface {
	// ParticipantsByRegion returns all participants whose city belongs to
	// the region. Users without an email address are excluded.
	ParticipantsByRegion(ctx context.Context, regionID string) ([]Recipient, error)

	// ParticipantsByRegionAndBloodTypes returns participants in the region
	// whose blood type is one of the given types. An empty type list yields
	// an empty result.
	ParticipantsByRegionAndBloodTypes(ctx context.Context, regionID string, types []domain.BloodType) ([]Recipient, error)
}
