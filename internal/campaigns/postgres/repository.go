// Package postgres provides the PostgreSQL implementation of campaign storage.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/hemolink/donorhub/internal/campaigns"
	"github.com/hemolink/donorhub/internal/digest"
	"github.com/hemolink/donorhub/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements campaigns.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL campaign repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create persists a new campaign.
func (r *Repository) Create(ctx context.Context, c *domain.Campaign) error {
	query := `
		INSERT INTO campaigns (id, title, description, organization_id, city_id, location, starts_at, ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.Title,
		c.Description,
		c.OrganizationID,
		c.CityID,
		c.Location,
		c.StartsAt,
		c.EndsAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetByID returns a single campaign.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	query := `
		SELECT id, title, description, organization_id, city_id, location, starts_at, ends_at, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`
	var c domain.Campaign
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.OrganizationID,
		&c.CityID,
		&c.Location,
		&c.StartsAt,
		&c.EndsAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, campaigns.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

// List returns campaigns matching the filter and the total count.
func (r *Repository) List(ctx context.Context, filter campaigns.ListFilter) ([]*domain.Campaign, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argn := 0

	if filter.CityID != "" {
		argn++
		where += fmt.Sprintf(" AND city_id = $%d", argn)
		args = append(args, filter.CityID)
	}
	if filter.OrganizationID != "" {
		argn++
		where += fmt.Sprintf(" AND organization_id = $%d", argn)
		args = append(args, filter.OrganizationID)
	}
	if filter.Upcoming {
		where += " AND starts_at > NOW()"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM campaigns" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	query := `
		SELECT id, title, description, organization_id, city_id, location, starts_at, ends_at, created_at, updated_at
		FROM campaigns` + where + fmt.Sprintf(" ORDER BY starts_at ASC LIMIT $%d OFFSET $%d", argn+1, argn+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	list := make([]*domain.Campaign, 0)
	for rows.Next() {
		var c domain.Campaign
		err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Description,
			&c.OrganizationID,
			&c.CityID,
			&c.Location,
			&c.StartsAt,
			&c.EndsAt,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		list = append(list, &c)
	}
	return list, total, nil
}

// Update modifies an existing campaign.
func (r *Repository) Update(ctx context.Context, c *domain.Campaign) error {
	query := `
		UPDATE campaigns
		SET title = $2, description = $3, location = $4, starts_at = $5, ends_at = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, c.ID, c.Title, c.Description, c.Location, c.StartsAt, c.EndsAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return campaigns.ErrCampaignNotFound
	}
	return nil
}

// Delete removes a campaign and its digest memberships.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return campaigns.ErrCampaignNotFound
	}
	return nil
}

// DigestInfo resolves the digest-relevant view of a campaign. The region
// comes transitively through the campaign's city.
func (r *Repository) DigestInfo(ctx context.Context, id string) (*digest.CampaignInfo, error) {
	query := `
		SELECT c.id, c.title, o.name, ci.name, c.location, re.id, re.name, c.starts_at
		FROM campaigns c
		JOIN organizations o ON o.id = c.organization_id
		JOIN cities ci ON ci.id = c.city_id
		JOIN regions re ON re.id = ci.region_id
		WHERE c.id = $1
	`
	var info digest.CampaignInfo
	err := r.db.QueryRow(ctx, query, id).Scan(
		&info.ID,
		&info.Title,
		&info.OrganizationName,
		&info.CityName,
		&info.Location,
		&info.RegionID,
		&info.RegionName,
		&info.StartsAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, campaigns.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("campaign digest info: %w", err)
	}
	return &info, nil
}
