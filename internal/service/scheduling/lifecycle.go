package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

// BookAppointment validates the request, serialises on the doctor, re-checks availability
// and persists a scheduled appointment together with its appointment.booked event.
func (s *Service) BookAppointment(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), nil)
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid doctor_id", err)
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid patient_id", err)
	}
	if err := model.ValidateDuration(req.DurationMinutes); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), nil)
	}
	if !req.ScheduledTime.After(s.now()) {
		return nil, apperrors.NewBadRequest("appointment cannot be scheduled in the past", nil)
	}

	if _, err := s.patients.Get(ctx, patientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("patient", nil)
		}
		return nil, apperrors.NewInternal(fmt.Errorf("failed to get patient: %w", err))
	}

	unlock, err := s.lock(ctx, "doctor", doctorLockKey(doctorID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	apt := model.NewAppointment(doctorID, patientID, req.ScheduledTime, req.DurationMinutes)
	availability, err := s.checkSlot(ctx, doctorID, apt.Slot(), nil, true)
	if err != nil {
		s.metrics.Bookings.WithLabelValues("error").Inc()
		return nil, err
	}
	if !availability.Available {
		s.metrics.Bookings.WithLabelValues("rejected").Inc()
		if availability.Reason == ReasonDoctorNotFound {
			return nil, apperrors.NewNotFound("doctor", nil)
		}
		return nil, apperrors.NewConflict(availability.Reason)
	}

	now := s.now()
	apt.Touch(now)
	event, err := model.NewAppointmentEvent(model.EventAppointmentBooked, apt, now)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	if err := s.appointments.Create(ctx, apt, event); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			s.metrics.Bookings.WithLabelValues("rejected").Inc()
			return nil, apperrors.NewConflict(ReasonAlreadyBooked)
		case errors.Is(err, repository.ErrNotFound):
			s.metrics.Bookings.WithLabelValues("rejected").Inc()
			return nil, apperrors.NewNotFound("doctor", nil)
		}
		s.metrics.Bookings.WithLabelValues("error").Inc()
		return nil, apperrors.NewInternal(fmt.Errorf("failed to create appointment: %w", err))
	}

	s.metrics.Bookings.WithLabelValues("booked").Inc()
	s.logger.Info("Appointment booked",
		"appointment_id", apt.ID.String(),
		"doctor_id", doctorID.String(),
		"scheduled_time", apt.ScheduledTime.Format(time.RFC3339))
	return apt, nil
}

// CancelAppointment cancels a scheduled appointment on behalf of its patient, its doctor or
// an admin, provided the cancellation notice has not passed.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, actor model.Actor, reason string) (*model.Appointment, error) {
	unlock, err := s.lock(ctx, "appointment", appointmentLockKey(id.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.IsPatient(apt.PatientID) && !actor.IsDoctor(apt.DoctorID) {
		return nil, apperrors.NewForbidden("not allowed to cancel this appointment")
	}

	switch apt.Status {
	case model.AppointmentStatusCompleted:
		return nil, s.rejectTransition(model.AppointmentStatusCancelled, "cannot cancel completed appointment")
	case model.AppointmentStatusCancelled:
		return nil, s.rejectTransition(model.AppointmentStatusCancelled, "appointment is already cancelled")
	}

	now := s.now()
	if apt.ScheduledTime.Sub(now) < s.config.CancellationNotice {
		deadline := apt.ScheduledTime.Add(-s.config.CancellationNotice)
		return nil, s.rejectTransition(model.AppointmentStatusCancelled, fmt.Sprintf(
			"appointments must be cancelled at least %s in advance; the deadline was %s",
			formatNotice(s.config.CancellationNotice), deadline.Format(time.RFC3339)))
	}

	if reason != "" {
		apt.CancelReason = &reason
	}
	if err := s.transition(ctx, apt, model.AppointmentStatusCancelled, model.EventAppointmentCancelled, now); err != nil {
		return nil, err
	}

	s.logger.Info("Appointment cancelled",
		"appointment_id", apt.ID.String(),
		"actor_id", actor.ID.String(),
		"actor_role", string(actor.Role))
	return apt, nil
}

// CompleteAppointment marks a past scheduled appointment as completed. Only the assigned
// doctor may do so.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	unlock, err := s.lock(ctx, "appointment", appointmentLockKey(id.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor(apt.DoctorID) {
		return nil, apperrors.NewForbidden("only the assigned doctor can complete this appointment")
	}
	if apt.Status != model.AppointmentStatusScheduled {
		return nil, s.rejectTransition(model.AppointmentStatusCompleted,
			fmt.Sprintf("cannot complete a %s appointment", apt.Status))
	}

	now := s.now()
	if apt.ScheduledTime.After(now) {
		return nil, s.rejectTransition(model.AppointmentStatusCompleted, "cannot complete a future appointment")
	}

	if err := s.transition(ctx, apt, model.AppointmentStatusCompleted, model.EventAppointmentCompleted, now); err != nil {
		return nil, err
	}

	s.logger.Info("Appointment completed",
		"appointment_id", apt.ID.String(),
		"doctor_id", apt.DoctorID.String())
	return apt, nil
}

// GetAppointment returns the appointment if the actor takes part in it or is an admin.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.IsPatient(apt.PatientID) && !actor.IsDoctor(apt.DoctorID) {
		return nil, apperrors.NewForbidden("not allowed to view this appointment")
	}
	return apt, nil
}

// ListAppointments narrows filters to the actor's own appointments unless the actor is an admin.
func (s *Service) ListAppointments(ctx context.Context, filters model.AppointmentFilters, actor model.Actor) ([]*model.Appointment, error) {
	if filters.Status != "" && !filters.Status.IsValid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid status %q", filters.Status), nil)
	}
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleDoctor:
		if filters.DoctorID != uuid.Nil && filters.DoctorID != actor.ID {
			return nil, apperrors.NewForbidden("doctors may only list their own appointments")
		}
		filters.DoctorID = actor.ID
	case model.RolePatient:
		if filters.PatientID != uuid.Nil && filters.PatientID != actor.ID {
			return nil, apperrors.NewForbidden("patients may only list their own appointments")
		}
		filters.PatientID = actor.ID
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	appointments, err := s.appointments.List(ctx, &filters)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to list appointments: %w", err))
	}
	return appointments, nil
}

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("appointment", nil)
		}
		return nil, apperrors.NewInternal(fmt.Errorf("failed to get appointment: %w", err))
	}
	return apt, nil
}

// transition persists apt's move to next along with its outbox event.
func (s *Service) transition(ctx context.Context, apt *model.Appointment, next model.AppointmentStatus, eventType string, now time.Time) error {
	from := apt.Status
	if !from.CanTransitionTo(next) {
		return s.rejectTransition(next, fmt.Sprintf("invalid transition from %s to %s", from, next))
	}

	apt.Status = next
	apt.UpdatedAt = now
	event, err := model.NewAppointmentEvent(eventType, apt, now)
	if err != nil {
		return apperrors.NewInternal(err)
	}

	if err := s.appointments.UpdateStatus(ctx, apt, from, event); err != nil {
		apt.Status = from
		if errors.Is(err, repository.ErrNotFound) {
			return s.rejectTransition(next, fmt.Sprintf("appointment is no longer %s", from))
		}
		s.metrics.Transitions.WithLabelValues(string(next), "error").Inc()
		return apperrors.NewInternal(fmt.Errorf("failed to update appointment: %w", err))
	}
	s.metrics.Transitions.WithLabelValues(string(next), "ok").Inc()
	return nil
}

func (s *Service) rejectTransition(next model.AppointmentStatus, message string) error {
	s.metrics.Transitions.WithLabelValues(string(next), "rejected").Inc()
	return apperrors.NewInvalidTransition(message)
}

func (s *Service) lock(ctx context.Context, scope, key string) (func(), error) {
	timer := prometheus.NewTimer(s.metrics.LockWait.WithLabelValues(scope))
	unlock, err := s.locker.Lock(ctx, key)
	timer.ObserveDuration()
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to acquire %s lock: %w", scope, err))
	}
	return unlock, nil
}

func formatNotice(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
