package digest

import (
	"context"
	"errors"
	"time"
)

// ErrDigestNotFound is returned when a digest id does not exist.
var ErrDigestNotFound = errors.New("digest not found")

// Repository defines the interface for digest persistence.
type Repository interface {
	// FindOrCreate returns the digest for (date, region), creating it on
	// first use. The date must already be truncated to day granularity.
	FindOrCreate(ctx context.Context, date time.Time, regionID string) (*Digest, error)

	// AttachCampaign idempotently adds a campaign to a digest. Re-attaching
	// the same campaign is a no-op, not an error.
	AttachCampaign(ctx context.Context, digestID, campaignID string) error

	// ListUnsent returns all unsent digests for the given day with their
	// region names resolved.
	ListUnsent(ctx context.Context, date time.Time) ([]*Digest, error)

	// ListMemberCampaignsCreatedOn returns the digest's campaigns that were
	// created on the given day. Membership alone is not enough: a campaign
	// attached to the digest but created on a prior day is excluded.
	ListMemberCampaignsCreatedOn(ctx context.Context, digestID string, date time.Time) ([]MemberCampaign, error)

	// MarkSent stamps the digest as sent.
	MarkSent(ctx context.Context, digestID string, at time.Time) error
}
