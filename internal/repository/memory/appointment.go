package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

type AppointmentRepository struct {
	s *Store
}

// Create rejects overlaps with scheduled appointments of the same doctor, mirroring the
// exclusion constraint of the SQL schema.
func (r *AppointmentRepository) Create(_ context.Context, appointment *model.Appointment, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.doctors[appointment.DoctorID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.patients[appointment.PatientID]; !ok {
		return repository.ErrNotFound
	}
	if appointment.Status == model.AppointmentStatusScheduled &&
		r.overlapsLocked(appointment.DoctorID, appointment.Slot(), nil) {
		return repository.ErrConflict
	}

	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.Touch(r.s.now())
	r.s.appointments[appointment.ID] = *appointment
	if event != nil {
		r.s.outbox[event.ID] = *event
	}
	return nil
}

func (r *AppointmentRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *AppointmentRepository) UpdateStatus(_ context.Context, appointment *model.Appointment, from model.AppointmentStatus, event *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.appointments[appointment.ID]
	if !ok || stored.Status != from {
		return repository.ErrNotFound
	}
	stored.Status = appointment.Status
	stored.CancelReason = appointment.CancelReason
	stored.UpdatedAt = r.s.now()
	appointment.UpdatedAt = stored.UpdatedAt
	r.s.appointments[stored.ID] = stored
	if event != nil {
		r.s.outbox[event.ID] = *event
	}
	return nil
}

func (r *AppointmentRepository) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	f := model.AppointmentFilters{}
	if filters != nil {
		f = *filters
	}
	window := model.TimeSlot{Start: f.From, End: f.To}
	return r.list(func(a model.Appointment) bool {
		switch {
		case f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID:
			return false
		case f.PatientID != uuid.Nil && a.PatientID != f.PatientID:
			return false
		case f.Status != "" && a.Status != f.Status:
			return false
		case !window.Start.IsZero() && !a.EndTime.After(window.Start):
			return false
		case !window.End.IsZero() && !a.ScheduledTime.Before(window.End):
			return false
		}
		return true
	}), nil
}

func (r *AppointmentRepository) ListScheduled(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	window := model.TimeSlot{Start: from, End: to}
	return r.list(func(a model.Appointment) bool {
		return a.DoctorID == doctorID &&
			a.Status == model.AppointmentStatusScheduled &&
			model.Overlaps(a.Slot(), window)
	}), nil
}

func (r *AppointmentRepository) CheckConflicts(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.overlapsLocked(doctorID, model.TimeSlot{Start: start, End: end}, excludeID), nil
}

func (r *AppointmentRepository) overlapsLocked(doctorID uuid.UUID, slot model.TimeSlot, excludeID *uuid.UUID) bool {
	for _, a := range r.s.appointments {
		if a.DoctorID != doctorID || a.Status != model.AppointmentStatusScheduled {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if model.Overlaps(a.Slot(), slot) {
			return true
		}
	}
	return false
}

func (r *AppointmentRepository) list(keep func(model.Appointment) bool) []*model.Appointment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if keep(a) {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out
}
