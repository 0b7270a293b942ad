package domain

import "time"

type Role string

const (
	RoleParticipant  Role = "participant"
	RoleOrganization Role = "organization"
	RoleAdmin        Role = "admin"
)

type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	BloodType BloodType
	CityID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
