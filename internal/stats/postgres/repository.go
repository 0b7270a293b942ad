// Package postgres provides the PostgreSQL implementation of activity stats.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hemolink/donorhub/internal/stats"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements stats.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL stats repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Snapshot counts campaigns, requests and users created in the window.
func (r *Repository) Snapshot(ctx context.Context, from, to time.Time) (*stats.WeeklySnapshot, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM campaigns WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM blood_requests WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2)
	`
	snapshot := &stats.WeeklySnapshot{From: from, To: to}
	err := r.db.QueryRow(ctx, query, from, to).Scan(
		&snapshot.NewCampaigns,
		&snapshot.NewRequests,
		&snapshot.NewUsers,
	)
	if err != nil {
		return nil, fmt.Errorf("activity snapshot: %w", err)
	}
	return snapshot, nil
}
