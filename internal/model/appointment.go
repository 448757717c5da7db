package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

const (
	MinAppointmentMinutes = 15
	MaxAppointmentMinutes = 120
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// Only scheduled -> cancelled and scheduled -> completed exist.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	return s == AppointmentStatusScheduled &&
		(next == AppointmentStatusCancelled || next == AppointmentStatusCompleted)
}

type Appointment struct {
	Base
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	ScheduledTime   time.Time         `db:"scheduled_time" json:"scheduled_time"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	EndTime         time.Time         `db:"end_time" json:"end_time"`
	Status          AppointmentStatus `db:"status" json:"status"`
	CancelReason    *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// NewAppointment builds a scheduled appointment; EndTime is derived from the duration.
func NewAppointment(doctorID, patientID uuid.UUID, start time.Time, durationMinutes int) *Appointment {
	return &Appointment{
		Base:            Base{ID: uuid.New()},
		DoctorID:        doctorID,
		PatientID:       patientID,
		ScheduledTime:   start,
		DurationMinutes: durationMinutes,
		EndTime:         start.Add(time.Duration(durationMinutes) * time.Minute),
		Status:          AppointmentStatusScheduled,
	}
}

func (a *Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

func (a *Appointment) Slot() TimeSlot {
	return NewTimeSlot(a.ScheduledTime, a.Duration())
}

// ValidateDuration checks the booking duration bound in minutes.
func ValidateDuration(minutes int) error {
	if minutes < MinAppointmentMinutes || minutes > MaxAppointmentMinutes {
		return fmt.Errorf("duration must be between %d and %d minutes, got %d",
			MinAppointmentMinutes, MaxAppointmentMinutes, minutes)
	}
	return nil
}

type BookAppointmentRequest struct {
	DoctorID        string    `json:"doctor_id" validate:"required,uuid_rfc4122"`
	PatientID       string    `json:"patient_id" validate:"required,uuid_rfc4122"`
	ScheduledTime   time.Time `json:"scheduled_time" validate:"required"`
	DurationMinutes int       `json:"duration" validate:"required,min=15,max=120"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// Availability is the outcome of an availability check.
type Availability struct {
	Available bool     `json:"available"`
	Reason    string   `json:"reason"`
	Slot      TimeSlot `json:"slot"`
}

type AppointmentFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	From      time.Time
	To        time.Time
}
