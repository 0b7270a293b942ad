// Package postgres provides the PostgreSQL implementation of the recipient
// directory.
package postgres

import (
	"context"
	"fmt"

	"github.com/hemolink/donorhub/internal/directory"
	"github.com/hemolink/donorhub/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements directory.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL directory repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ParticipantsByRegion returns all participants in a region with an email.
func (r *Repository) ParticipantsByRegion(ctx context.Context, regionID string) ([]directory.Recipient, error) {
	query := `
		SELECT u.email, u.name, u.blood_type
		FROM users u
		JOIN cities c ON c.id = u.city_id
		WHERE c.region_id = $1
		  AND u.role = 'participant'
		  AND u.email <> ''
		ORDER BY u.email
	`
	rows, err := r.db.Query(ctx, query, regionID)
	if err != nil {
		return nil, fmt.Errorf("list participants by region: %w", err)
	}
	defer rows.Close()

	return scanRecipients(rows)
}

// ParticipantsByRegionAndBloodTypes returns participants in a region whose
// blood type matches one of the given types.
func (r *Repository) ParticipantsByRegionAndBloodTypes(ctx context.Context, regionID string, types []domain.BloodType) ([]directory.Recipient, error) {
	if len(types) == 0 {
		return []directory.Recipient{}, nil
	}

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	query := `
		SELECT u.email, u.name, u.blood_type
		FROM users u
		JOIN cities c ON c.id = u.city_id
		WHERE c.region_id = $1
		  AND u.role = 'participant'
		  AND u.email <> ''
		  AND u.blood_type = ANY($2)
		ORDER BY u.email
	`
	rows, err := r.db.Query(ctx, query, regionID, names)
	if err != nil {
		return nil, fmt.Errorf("list participants by blood types: %w", err)
	}
	defer rows.Close()

	return scanRecipients(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
}

func scanRecipients(rows rowScanner) ([]directory.Recipient, error) {
	recipients := make([]directory.Recipient, 0)
	for rows.Next() {
		var rec directory.Recipient
		if err := rows.Scan(&rec.Email, &rec.Name, &rec.BloodType); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}
	return recipients, nil
}
