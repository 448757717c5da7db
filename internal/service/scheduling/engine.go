package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

// CheckAvailability reports whether the doctor can take an appointment of durationMinutes
// starting at start. It never writes. A negative answer carries the first failing reason;
// only invalid input and storage failures are returned as errors.
func (s *Service) CheckAvailability(ctx context.Context, doctorID uuid.UUID, start time.Time, durationMinutes int) (model.Availability, error) {
	if err := model.ValidateDuration(durationMinutes); err != nil {
		return model.Availability{}, apperrors.NewBadRequest(err.Error(), nil)
	}
	slot := model.NewTimeSlot(start, time.Duration(durationMinutes)*time.Minute)

	result, err := s.checkSlot(ctx, doctorID, slot, nil, false)
	if err != nil {
		return model.Availability{}, err
	}
	s.metrics.AvailabilityChecks.WithLabelValues(result.Reason).Inc()
	return result, nil
}

// checkSlot runs the availability checks in order. fresh bypasses the window cache.
func (s *Service) checkSlot(ctx context.Context, doctorID uuid.UUID, slot model.TimeSlot, excludeID *uuid.UUID, fresh bool) (model.Availability, error) {
	result := model.Availability{Slot: slot}

	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			result.Reason = ReasonDoctorNotFound
			return result, nil
		}
		return result, apperrors.NewInternal(fmt.Errorf("failed to get doctor: %w", err))
	}

	isOpen := s.index.IsOpen
	if fresh {
		isOpen = s.index.IsOpenFresh
	}
	decision, err := isOpen(ctx, doctorID, slot)
	if err != nil {
		return result, apperrors.NewInternal(err)
	}
	if !decision.Open {
		result.Reason = decision.Reason
		return result, nil
	}

	conflict, err := s.conflicts.HasConflict(ctx, doctorID, slot, excludeID)
	if err != nil {
		return result, apperrors.NewInternal(err)
	}
	if conflict {
		result.Reason = ReasonAlreadyBooked
		return result, nil
	}

	result.Available = true
	result.Reason = ReasonAvailable
	return result, nil
}
