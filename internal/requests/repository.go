// Package requests manages blood requests and their donor notifications.
package requests

import (
	"context"
	"errors"

	"github.com/hemolink/donorhub/internal/domain"
)

// ErrRequestNotFound is returned when a blood request id does not exist.
var ErrRequestNotFound = errors.New("blood request not found")

// Detail is a blood request with its city and region resolved, as needed
// by notification handlers and API responses.
type Detail struct {
	domain.BloodRequest
	CityName   string `json:"city_name"`
	RegionID   string `json:"region_id"`
	RegionName string `json:"region_name"`
}

// ListFilter narrows request listings.
type ListFilter struct {
	CityID  string
	Status  domain.RequestStatus
	Urgency domain.RequestUrgency
	Limit   int
	Offset  int
}

// Repository defines the interface for blood request persistence.
type Repository interface {
	Create(ctx context.Context, req *domain.BloodRequest) error
	GetByID(ctx context.Context, id string) (*domain.BloodRequest, error)

	// GetDetail resolves the request together with its city and region.
	// The region comes transitively through the city.
	GetDetail(ctx context.Context, id string) (*Detail, error)

	List(ctx context.Context, filter ListFilter) ([]*domain.BloodRequest, error)
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error
}
