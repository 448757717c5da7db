package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

// Reasons reported by availability checks.
const (
	ReasonAvailable           = "available"
	ReasonDoctorNotFound      = "doctor not found"
	ReasonOutsideWorkingHours = "outside working hours"
	ReasonNotAvailable        = "not available on this day/time"
	ReasonMarkedUnavailable   = "marked unavailable"
	ReasonAlreadyBooked       = "time slot already booked"
)

var weekdays = []model.DayOfWeek{
	model.Monday, model.Tuesday, model.Wednesday, model.Thursday,
	model.Friday, model.Saturday, model.Sunday,
}

// Decision is the answer of the availability index for one candidate slot.
type Decision struct {
	Open   bool
	Reason string
}

func open() Decision                { return Decision{Open: true, Reason: ReasonAvailable} }
func closed(reason string) Decision { return Decision{Reason: reason} }

// AvailabilityIndex answers whether a doctor is theoretically open for a slot, from the
// recurring weekly windows and the date exceptions. It does not look at appointments.
type AvailabilityIndex struct {
	windows    repository.AvailabilityRepository
	exceptions repository.ExceptionRepository
	loc        *time.Location
	cache      *cache.Cache
}

// NewAvailabilityIndex builds an index resolving dates in loc. Weekday window lists are
// cached for ttl; a zero ttl disables caching.
func NewAvailabilityIndex(
	windows repository.AvailabilityRepository,
	exceptions repository.ExceptionRepository,
	loc *time.Location,
	ttl time.Duration,
) *AvailabilityIndex {
	if loc == nil {
		loc = time.UTC
	}
	x := &AvailabilityIndex{
		windows:    windows,
		exceptions: exceptions,
		loc:        loc,
	}
	if ttl > 0 {
		x.cache = cache.New(ttl, 2*ttl)
	}
	return x
}

func (x *AvailabilityIndex) Location() *time.Location {
	return x.loc
}

// IsOpen checks slot against the doctor's working hours, window coverage and the date's
// exception, in that order.
func (x *AvailabilityIndex) IsOpen(ctx context.Context, doctorID uuid.UUID, slot model.TimeSlot) (Decision, error) {
	return x.isOpen(ctx, doctorID, slot, false)
}

// IsOpenFresh is IsOpen with the windows read from storage. Other instances sharing the
// database cannot invalidate this cache, so writes must decide on fresh windows.
func (x *AvailabilityIndex) IsOpenFresh(ctx context.Context, doctorID uuid.UUID, slot model.TimeSlot) (Decision, error) {
	return x.isOpen(ctx, doctorID, slot, true)
}

func (x *AvailabilityIndex) isOpen(ctx context.Context, doctorID uuid.UUID, slot model.TimeSlot, fresh bool) (Decision, error) {
	start := slot.Start.In(x.loc)
	end := slot.End.In(x.loc)

	windows, err := x.windowsFor(ctx, doctorID, model.DayOfWeekOf(start), fresh)
	if err != nil {
		return Decision{}, err
	}
	if len(windows) == 0 {
		return closed(ReasonNotAvailable), nil
	}

	hours := workingHours(windows, start, x.loc)
	if end.After(model.EndOfDay.On(start, x.loc)) || start.Before(hours.Start) || end.After(hours.End) {
		return closed(ReasonOutsideWorkingHours), nil
	}

	covered := false
	for _, w := range windows {
		if w.On(start, x.loc).Contains(slot) {
			covered = true
			break
		}
	}
	if !covered {
		return closed(ReasonNotAvailable), nil
	}

	exception, err := x.ExceptionFor(ctx, doctorID, start)
	if err != nil {
		return Decision{}, err
	}
	if exception != nil && !exception.IsAvailable {
		return closed(ReasonMarkedUnavailable), nil
	}

	return open(), nil
}

// workingHours spans from the earliest window start to the latest window end of the day.
func workingHours(windows []model.AvailabilityWindow, day time.Time, loc *time.Location) model.TimeSlot {
	first, last := windows[0].StartTime, windows[0].EndTime
	for _, w := range windows[1:] {
		if w.StartTime < first {
			first = w.StartTime
		}
		if w.EndTime > last {
			last = w.EndTime
		}
	}
	return model.TimeSlot{Start: first.On(day, loc), End: last.On(day, loc)}
}

// WindowsFor returns the doctor's windows for a weekday, ordered by start.
func (x *AvailabilityIndex) WindowsFor(ctx context.Context, doctorID uuid.UUID, day model.DayOfWeek) ([]model.AvailabilityWindow, error) {
	return x.windowsFor(ctx, doctorID, day, false)
}

// windowsFor skips the cache lookup when fresh is set but still refreshes the entry.
func (x *AvailabilityIndex) windowsFor(ctx context.Context, doctorID uuid.UUID, day model.DayOfWeek, fresh bool) ([]model.AvailabilityWindow, error) {
	key := windowCacheKey(doctorID, day)
	if x.cache != nil && !fresh {
		if cached, ok := x.cache.Get(key); ok {
			return cached.([]model.AvailabilityWindow), nil
		}
	}

	rows, err := x.windows.ListByDay(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability windows: %w", err)
	}
	windows := make([]model.AvailabilityWindow, 0, len(rows))
	for _, w := range rows {
		windows = append(windows, *w)
	}

	if x.cache != nil {
		x.cache.SetDefault(key, windows)
	}
	return windows, nil
}

// ExceptionFor returns the exception of the calendar date of day in the clinic location,
// or nil when there is none.
func (x *AvailabilityIndex) ExceptionFor(ctx context.Context, doctorID uuid.UUID, day time.Time) (*model.Exception, error) {
	exception, err := x.exceptions.GetForDate(ctx, doctorID, model.DateOnly(day.In(x.loc)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load exception: %w", err)
	}
	return exception, nil
}

// Invalidate drops every cached weekday of the doctor.
func (x *AvailabilityIndex) Invalidate(doctorID uuid.UUID) {
	if x.cache == nil {
		return
	}
	for _, day := range weekdays {
		x.cache.Delete(windowCacheKey(doctorID, day))
	}
}

func windowCacheKey(doctorID uuid.UUID, day model.DayOfWeek) string {
	return doctorID.String() + ":" + string(day)
}
