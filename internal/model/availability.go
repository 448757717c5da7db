package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayOfWeek is the symbolic weekday name, e.g. "Monday".
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

// DayOfWeekOf resolves the weekday of t in t's location.
func DayOfWeekOf(t time.Time) DayOfWeek {
	return DayOfWeek(t.Weekday().String())
}

func (d DayOfWeek) IsValid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// AvailabilityWindow is a recurring weekly range in which a doctor accepts appointments.
// Windows on the same weekday are independent; they are never merged.
type AvailabilityWindow struct {
	Base
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime ClockTime `db:"start_time" json:"start_time"`
	EndTime   ClockTime `db:"end_time" json:"end_time"`
}

func (w *AvailabilityWindow) Validate() error {
	if w.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if !w.DayOfWeek.IsValid() {
		return fmt.Errorf("invalid day_of_week %q", w.DayOfWeek)
	}
	if !w.StartTime.IsValid() || !w.EndTime.IsValidEnd() {
		return fmt.Errorf("window times must fall within a single day")
	}
	if w.StartTime >= w.EndTime {
		return fmt.Errorf("start_time %s must be before end_time %s", w.StartTime, w.EndTime)
	}
	return nil
}

// On returns the window's concrete interval on the calendar date of day in loc.
func (w *AvailabilityWindow) On(day time.Time, loc *time.Location) TimeSlot {
	return TimeSlot{Start: w.StartTime.On(day, loc), End: w.EndTime.On(day, loc)}
}

type CreateAvailabilityWindowRequest struct {
	DayOfWeek DayOfWeek `json:"day_of_week" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime ClockTime `json:"start_time"`
	EndTime   ClockTime `json:"end_time"`
}

// UpdateAvailabilityWindowRequest lists the mutable fields of a window; nil means unchanged.
type UpdateAvailabilityWindowRequest struct {
	DayOfWeek *DayOfWeek `json:"day_of_week" validate:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime *ClockTime `json:"start_time"`
	EndTime   *ClockTime `json:"end_time"`
}

func (r *UpdateAvailabilityWindowRequest) Apply(w *AvailabilityWindow) {
	if r.DayOfWeek != nil {
		w.DayOfWeek = *r.DayOfWeek
	}
	if r.StartTime != nil {
		w.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		w.EndTime = *r.EndTime
	}
}
