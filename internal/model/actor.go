package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Actor is the authenticated caller. ID is the doctor ID for doctors and the patient ID
// for patients.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsDoctor(id uuid.UUID) bool {
	return a.Role == RoleDoctor && a.ID == id
}

func (a Actor) IsPatient(id uuid.UUID) bool {
	return a.Role == RolePatient && a.ID == id
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
