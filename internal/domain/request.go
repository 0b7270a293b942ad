package domain

import "time"

type RequestUrgency string

const (
	UrgencyNormal RequestUrgency = "normal"
	UrgencyUrgent RequestUrgency = "urgent"
)

type RequestStatus string

const (
	RequestStatusOpen   RequestStatus = "open"
	RequestStatusClosed RequestStatus = "closed"
)

// BloodRequest is a call for donors of a specific blood group in a city.
type BloodRequest struct {
	ID        string         `json:"id"`
	BloodType BloodType      `json:"blood_type"`
	CityID    string         `json:"city_id"`
	Hospital  string         `json:"hospital"`
	Contact   string         `json:"contact"`
	Notes     string         `json:"notes"`
	Urgency   RequestUrgency `json:"urgency"`
	Status    RequestStatus  `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
