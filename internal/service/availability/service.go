// Package availability manages the recurring windows and date exceptions that the
// scheduling engine reads.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/validator"
)

// Invalidator drops cached availability of a doctor after a write.
type Invalidator interface {
	Invalidate(doctorID uuid.UUID)
}

type Service struct {
	doctors    repository.DoctorRepository
	windows    repository.AvailabilityRepository
	exceptions repository.ExceptionRepository
	cache      Invalidator
	validator  validator.Validator
	logger     *logger.Logger
}

func NewService(
	doctors repository.DoctorRepository,
	windows repository.AvailabilityRepository,
	exceptions repository.ExceptionRepository,
	cache Invalidator,
	logger *logger.Logger,
) *Service {
	return &Service{
		doctors:    doctors,
		windows:    windows,
		exceptions: exceptions,
		cache:      cache,
		validator:  validator.New(),
		logger:     logger,
	}
}

func (s *Service) CreateWindow(ctx context.Context, actor model.Actor, doctorID uuid.UUID, req *model.CreateAvailabilityWindowRequest) (*model.AvailabilityWindow, error) {
	if err := s.authorize(ctx, actor, doctorID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), nil)
	}

	window := &model.AvailabilityWindow{
		DoctorID:  doctorID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := window.Validate(); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), nil)
	}

	if err := s.windows.Create(ctx, window); err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to create availability window: %w", err))
	}
	s.invalidate(doctorID)
	return window, nil
}

// UpdateWindow applies only the fields set in req and re-checks the window invariant.
func (s *Service) UpdateWindow(ctx context.Context, actor model.Actor, doctorID, windowID uuid.UUID, req *model.UpdateAvailabilityWindowRequest) (*model.AvailabilityWindow, error) {
	if err := s.authorize(ctx, actor, doctorID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), nil)
	}

	window, err := s.getWindow(ctx, doctorID, windowID)
	if err != nil {
		return nil, err
	}
	req.Apply(window)
	if err := window.Validate(); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), nil)
	}

	if err := s.windows.Update(ctx, window); err != nil {
		return nil, wrapWrite("availability window", err)
	}
	s.invalidate(doctorID)
	return window, nil
}

func (s *Service) DeleteWindow(ctx context.Context, actor model.Actor, doctorID, windowID uuid.UUID) error {
	if err := s.authorize(ctx, actor, doctorID); err != nil {
		return err
	}
	if _, err := s.getWindow(ctx, doctorID, windowID); err != nil {
		return err
	}
	if err := s.windows.Delete(ctx, windowID); err != nil {
		return wrapWrite("availability window", err)
	}
	s.invalidate(doctorID)
	return nil
}

func (s *Service) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	windows, err := s.windows.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to list availability windows: %w", err))
	}
	return windows, nil
}

func (s *Service) CreateException(ctx context.Context, actor model.Actor, doctorID uuid.UUID, req *model.CreateExceptionRequest) (*model.Exception, error) {
	if err := s.authorize(ctx, actor, doctorID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), nil)
	}
	date, err := time.Parse(model.DateLayout, req.Date)
	if err != nil {
		return nil, apperrors.NewBadRequest("date must be YYYY-MM-DD", err)
	}

	exception := &model.Exception{
		DoctorID:    doctorID,
		Date:        date,
		IsAvailable: *req.IsAvailable,
	}
	if err := s.exceptions.Create(ctx, exception); err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to create exception: %w", err))
	}

	s.logger.Info("Availability exception recorded",
		"doctor_id", doctorID.String(),
		"date", req.Date,
		"is_available", exception.IsAvailable)
	return exception, nil
}

func (s *Service) UpdateException(ctx context.Context, actor model.Actor, doctorID, exceptionID uuid.UUID, req *model.UpdateExceptionRequest) (*model.Exception, error) {
	if err := s.authorize(ctx, actor, doctorID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), nil)
	}

	exception, err := s.getException(ctx, doctorID, exceptionID)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(exception); err != nil {
		return nil, apperrors.NewBadRequest("date must be YYYY-MM-DD", err)
	}

	if err := s.exceptions.Update(ctx, exception); err != nil {
		return nil, wrapWrite("exception", err)
	}
	return exception, nil
}

func (s *Service) DeleteException(ctx context.Context, actor model.Actor, doctorID, exceptionID uuid.UUID) error {
	if err := s.authorize(ctx, actor, doctorID); err != nil {
		return err
	}
	if _, err := s.getException(ctx, doctorID, exceptionID); err != nil {
		return err
	}
	if err := s.exceptions.Delete(ctx, exceptionID); err != nil {
		return wrapWrite("exception", err)
	}
	return nil
}

func (s *Service) ListExceptions(ctx context.Context, doctorID uuid.UUID) ([]*model.Exception, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	exceptions, err := s.exceptions.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to list exceptions: %w", err))
	}
	return exceptions, nil
}

// authorize lets admins and the doctor themselves change a doctor's availability.
func (s *Service) authorize(ctx context.Context, actor model.Actor, doctorID uuid.UUID) error {
	if !actor.IsAdmin() && !actor.IsDoctor(doctorID) {
		return apperrors.NewForbidden("not allowed to manage this doctor's availability")
	}
	return s.requireDoctor(ctx, doctorID)
}

func (s *Service) requireDoctor(ctx context.Context, doctorID uuid.UUID) error {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("doctor", nil)
		}
		return apperrors.NewInternal(fmt.Errorf("failed to get doctor: %w", err))
	}
	return nil
}

func (s *Service) getWindow(ctx context.Context, doctorID, windowID uuid.UUID) (*model.AvailabilityWindow, error) {
	window, err := s.windows.Get(ctx, windowID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && window.DoctorID != doctorID) {
		return nil, apperrors.NewNotFound("availability window", nil)
	}
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to get availability window: %w", err))
	}
	return window, nil
}

func (s *Service) getException(ctx context.Context, doctorID, exceptionID uuid.UUID) (*model.Exception, error) {
	exception, err := s.exceptions.Get(ctx, exceptionID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && exception.DoctorID != doctorID) {
		return nil, apperrors.NewNotFound("exception", nil)
	}
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to get exception: %w", err))
	}
	return exception, nil
}

func (s *Service) invalidate(doctorID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(doctorID)
	}
}

func wrapWrite(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.NewInternal(fmt.Errorf("failed to write %s: %w", resource, err))
}
