package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would double-book a doctor.
	ErrConflict = errors.New("overlapping scheduled appointment")
)

// All repository interfaces in one file
type (
	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	}

	AvailabilityRepository interface {
		Create(ctx context.Context, window *model.AvailabilityWindow) error
		Get(ctx context.Context, id uuid.UUID) (*model.AvailabilityWindow, error)
		Update(ctx context.Context, window *model.AvailabilityWindow) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error)
		ListByDay(ctx context.Context, doctorID uuid.UUID, day model.DayOfWeek) ([]*model.AvailabilityWindow, error)
	}

	ExceptionRepository interface {
		Create(ctx context.Context, exception *model.Exception) error
		Get(ctx context.Context, id uuid.UUID) (*model.Exception, error)
		Update(ctx context.Context, exception *model.Exception) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Exception, error)
		// GetForDate returns the first exception for the doctor on date, ordered by
		// creation time then id, or ErrNotFound.
		GetForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*model.Exception, error)
	}

	AppointmentRepository interface {
		// Create persists the appointment and, when event is non-nil, its outbox event in
		// the same transaction. Returns ErrConflict if storage rejects an overlap.
		Create(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// UpdateStatus moves the appointment from one status to another, failing with
		// ErrNotFound if it is no longer in the expected status.
		UpdateStatus(ctx context.Context, appointment *model.Appointment, from model.AppointmentStatus, event *model.OutboxEvent) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListScheduled returns scheduled appointments of the doctor overlapping [from, to).
		ListScheduled(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		CheckConflicts(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
