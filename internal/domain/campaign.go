package domain

import "time"

// Campaign is a blood-donation drive organized in a single city.
type Campaign struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	OrganizationID string     `json:"organization_id"`
	CityID         string     `json:"city_id"`
	Location       string     `json:"location"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
