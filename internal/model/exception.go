package model

import (
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

// Exception overrides a doctor's recurring availability for one calendar date.
type Exception struct {
	Base
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date        time.Time `db:"date" json:"date"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
}

// SameDate compares calendar dates, ignoring clock and location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly truncates t to midnight UTC of its calendar date in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type CreateExceptionRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	IsAvailable *bool  `json:"is_available" validate:"required"`
}

// UpdateExceptionRequest lists the mutable fields of an exception; nil means unchanged.
type UpdateExceptionRequest struct {
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	IsAvailable *bool   `json:"is_available"`
}

func (r *UpdateExceptionRequest) Apply(e *Exception) error {
	if r.Date != nil {
		d, err := time.Parse(DateLayout, *r.Date)
		if err != nil {
			return err
		}
		e.Date = d
	}
	if r.IsAvailable != nil {
		e.IsAvailable = *r.IsAvailable
	}
	return nil
}
