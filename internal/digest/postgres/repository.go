// Package postgres provides the PostgreSQL implementation of digest storage.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hemolink/donorhub/internal/digest"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements digest.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL digest repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindOrCreate returns the digest for (date, region), creating it on first
// use. The unique constraint on (digest_date, region_id) makes concurrent
// creation safe: the losing insert is a no-op and both callers read the
// same row back.
func (r *Repository) FindOrCreate(ctx context.Context, date time.Time, regionID string) (*digest.Digest, error) {
	insert := `
		INSERT INTO campaign_digests (id, digest_date, region_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (digest_date, region_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, uuid.NewString(), date, regionID); err != nil {
		return nil, fmt.Errorf("create digest: %w", err)
	}

	query := `
		SELECT d.id, d.digest_date, d.region_id, r.name, d.sent_at, d.created_at
		FROM campaign_digests d
		JOIN regions r ON r.id = d.region_id
		WHERE d.digest_date = $1 AND d.region_id = $2
	`
	var d digest.Digest
	err := r.db.QueryRow(ctx, query, date, regionID).Scan(
		&d.ID,
		&d.DigestDate,
		&d.RegionID,
		&d.RegionName,
		&d.SentAt,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find digest: %w", err)
	}
	return &d, nil
}

// AttachCampaign idempotently adds a campaign to a digest.
func (r *Repository) AttachCampaign(ctx context.Context, digestID, campaignID string) error {
	query := `
		INSERT INTO campaign_digest_campaigns (digest_id, campaign_id)
		VALUES ($1, $2)
		ON CONFLICT (digest_id, campaign_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, digestID, campaignID); err != nil {
		return fmt.Errorf("attach campaign to digest: %w", err)
	}
	return nil
}

// ListUnsent returns unsent digests for the given day.
func (r *Repository) ListUnsent(ctx context.Context, date time.Time) ([]*digest.Digest, error) {
	query := `
		SELECT d.id, d.digest_date, d.region_id, r.name, d.sent_at, d.created_at
		FROM campaign_digests d
		JOIN regions r ON r.id = d.region_id
		WHERE d.digest_date = $1 AND d.sent_at IS NULL
		ORDER BY r.name
	`
	rows, err := r.db.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("list unsent digests: %w", err)
	}
	defer rows.Close()

	digests := make([]*digest.Digest, 0)
	for rows.Next() {
		var d digest.Digest
		err := rows.Scan(&d.ID, &d.DigestDate, &d.RegionID, &d.RegionName, &d.SentAt, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		digests = append(digests, &d)
	}
	return digests, nil
}

// ListMemberCampaignsCreatedOn returns the digest's campaigns created within
// the given day.
func (r *Repository) ListMemberCampaignsCreatedOn(ctx context.Context, digestID string, date time.Time) ([]digest.MemberCampaign, error) {
	query := `
		SELECT c.id, c.title, o.name, ci.name, c.starts_at, c.ends_at, c.created_at
		FROM campaign_digest_campaigns dc
		JOIN campaigns c ON c.id = dc.campaign_id
		JOIN organizations o ON o.id = c.organization_id
		JOIN cities ci ON ci.id = c.city_id
		WHERE dc.digest_id = $1
		  AND c.created_at >= $2
		  AND c.created_at < $2 + INTERVAL '1 day'
		ORDER BY c.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, digestID, date)
	if err != nil {
		return nil, fmt.Errorf("list digest campaigns: %w", err)
	}
	defer rows.Close()

	members := make([]digest.MemberCampaign, 0)
	for rows.Next() {
		var m digest.MemberCampaign
		err := rows.Scan(&m.ID, &m.Title, &m.OrganizationName, &m.CityName, &m.StartsAt, &m.EndsAt, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan digest campaign: %w", err)
		}
		members = append(members, m)
	}
	return members, nil
}

// MarkSent stamps the digest as sent. Idempotent: re-marking an already
// sent digest overwrites the timestamp rather than failing, since the
// digest handler may re-run under at-least-once delivery.
func (r *Repository) MarkSent(ctx context.Context, digestID string, at time.Time) error {
	query := `UPDATE campaign_digests SET sent_at = $2 WHERE id = $1`
	result, err := r.db.Exec(ctx, query, digestID, at)
	if err != nil {
		return fmt.Errorf("mark digest sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return digest.ErrDigestNotFound
	}
	return nil
}
