// Package postgres provides the PostgreSQL implementation of blood request
// storage.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hemolink/donorhub/internal/domain"
	"github.com/hemolink/donorhub/internal/requests"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements requests.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL blood request repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create persists a new blood request.
func (r *Repository) Create(ctx context.Context, req *domain.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (id, blood_type, city_id, hospital, contact, notes, urgency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.BloodType,
		req.CityID,
		req.Hospital,
		req.Contact,
		req.Notes,
		req.Urgency,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

// GetByID returns a single blood request.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.BloodRequest, error) {
	query := `
		SELECT id, blood_type, city_id, hospital, contact, notes, urgency, status, created_at, updated_at
		FROM blood_requests
		WHERE id = $1
	`
	var req domain.BloodRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.BloodType,
		&req.CityID,
		&req.Hospital,
		&req.Contact,
		&req.Notes,
		&req.Urgency,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, requests.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get blood request: %w", err)
	}
	return &req, nil
}

// GetDetail resolves the request together with its city and region.
func (r *Repository) GetDetail(ctx context.Context, id string) (*requests.Detail, error) {
	query := `
		SELECT br.id, br.blood_type, br.city_id, br.hospital, br.contact, br.notes, br.urgency, br.status,
		       br.created_at, br.updated_at,
		       c.name, re.id, re.name
		FROM blood_requests br
		JOIN cities c ON c.id = br.city_id
		JOIN regions re ON re.id = c.region_id
		WHERE br.id = $1
	`
	var d requests.Detail
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.BloodType,
		&d.CityID,
		&d.Hospital,
		&d.Contact,
		&d.Notes,
		&d.Urgency,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.CityName,
		&d.RegionID,
		&d.RegionName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, requests.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get blood request detail: %w", err)
	}
	return &d, nil
}

// List returns blood requests matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter requests.ListFilter) ([]*domain.BloodRequest, error) {
	where := " WHERE 1=1"
	args := []any{}
	argn := 0

	if filter.CityID != "" {
		argn++
		where += fmt.Sprintf(" AND city_id = $%d", argn)
		args = append(args, filter.CityID)
	}
	if filter.Status != "" {
		argn++
		where += fmt.Sprintf(" AND status = $%d", argn)
		args = append(args, filter.Status)
	}
	if filter.Urgency != "" {
		argn++
		where += fmt.Sprintf(" AND urgency = $%d", argn)
		args = append(args, filter.Urgency)
	}

	query := `
		SELECT id, blood_type, city_id, hospital, contact, notes, urgency, status, created_at, updated_at
		FROM blood_requests` + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argn+1, argn+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blood requests: %w", err)
	}
	defer rows.Close()

	list := make([]*domain.BloodRequest, 0)
	for rows.Next() {
		var req domain.BloodRequest
		err := rows.Scan(
			&req.ID,
			&req.BloodType,
			&req.CityID,
			&req.Hospital,
			&req.Contact,
			&req.Notes,
			&req.Urgency,
			&req.Status,
			&req.CreatedAt,
			&req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan blood request: %w", err)
		}
		list = append(list, &req)
	}
	return list, nil
}

// UpdateStatus changes a request's status.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	query := `UPDATE blood_requests SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update blood request status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return requests.ErrRequestNotFound
	}
	return nil
}
