package scheduling

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
)

// ListFreeSlots returns the bookable fixed-size slots of the doctor on the calendar date
// of date, in ascending order. The day's windows, exception and appointments are loaded
// once; the sequence can be ranged over any number of times and reads the clock on each pass.
func (s *Service) ListFreeSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) (iter.Seq[model.TimeSlot], error) {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("doctor", nil)
		}
		return nil, apperrors.NewInternal(fmt.Errorf("failed to get doctor: %w", err))
	}

	loc := s.index.Location()
	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)

	exception, err := s.index.ExceptionFor(ctx, doctorID, dayStart)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	if exception != nil && !exception.IsAvailable {
		return func(func(model.TimeSlot) bool) {}, nil
	}

	windows, err := s.index.WindowsFor(ctx, doctorID, model.DayOfWeekOf(dayStart))
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	booked, err := s.appointments.ListScheduled(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("failed to list appointments: %w", err))
	}

	candidates := candidateSlots(windows, dayStart, loc, s.config.SlotMinutes)

	return func(yield func(model.TimeSlot) bool) {
		now := s.now()
		for _, slot := range candidates {
			if !slot.Start.After(now) || overlapsAny(slot, booked) {
				continue
			}
			if !yield(slot) {
				return
			}
		}
	}, nil
}

// FreeSlots collects ListFreeSlots.
func (s *Service) FreeSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]model.TimeSlot, error) {
	seq, err := s.ListFreeSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	slots := []model.TimeSlot{}
	for slot := range seq {
		slots = append(slots, slot)
	}
	s.metrics.SlotsListed.Observe(float64(len(slots)))
	return slots, nil
}

// candidateSlots steps through each window in slotMinutes increments, keeping slots that
// end within the window. Starts shared by several windows appear once.
func candidateSlots(windows []model.AvailabilityWindow, day time.Time, loc *time.Location, slotMinutes int) []model.TimeSlot {
	step := model.ClockTime(slotMinutes)
	seen := make(map[model.ClockTime]bool)
	var starts []model.ClockTime
	for _, w := range windows {
		for start := w.StartTime; start+step <= w.EndTime; start += step {
			if !seen[start] {
				seen[start] = true
				starts = append(starts, start)
			}
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	slots := make([]model.TimeSlot, 0, len(starts))
	for _, start := range starts {
		slots = append(slots, model.TimeSlot{
			Start: start.On(day, loc),
			End:   (start + step).On(day, loc),
		})
	}
	return slots
}

func overlapsAny(slot model.TimeSlot, appointments []*model.Appointment) bool {
	for _, a := range appointments {
		if model.Overlaps(slot, a.Slot()) {
			return true
		}
	}
	return false
}
