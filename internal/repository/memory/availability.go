package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

var weekdayOrder = map[model.DayOfWeek]int{
	model.Monday: 1, model.Tuesday: 2, model.Wednesday: 3, model.Thursday: 4,
	model.Friday: 5, model.Saturday: 6, model.Sunday: 7,
}

type AvailabilityRepository struct {
	s *Store
}

func (r *AvailabilityRepository) Create(_ context.Context, window *model.AvailabilityWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.doctors[window.DoctorID]; !ok {
		return repository.ErrNotFound
	}
	if window.ID == uuid.Nil {
		window.ID = uuid.New()
	}
	window.Touch(r.s.now())
	r.s.windows[window.ID] = *window
	return nil
}

func (r *AvailabilityRepository) Get(_ context.Context, id uuid.UUID) (*model.AvailabilityWindow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.windows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r *AvailabilityRepository) Update(_ context.Context, window *model.AvailabilityWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.windows[window.ID]; !ok {
		return repository.ErrNotFound
	}
	window.UpdatedAt = r.s.now()
	r.s.windows[window.ID] = *window
	return nil
}

func (r *AvailabilityRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.windows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.windows, id)
	return nil
}

func (r *AvailabilityRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	return r.list(func(w model.AvailabilityWindow) bool { return w.DoctorID == doctorID }), nil
}

func (r *AvailabilityRepository) ListByDay(_ context.Context, doctorID uuid.UUID, day model.DayOfWeek) ([]*model.AvailabilityWindow, error) {
	return r.list(func(w model.AvailabilityWindow) bool {
		return w.DoctorID == doctorID && w.DayOfWeek == day
	}), nil
}

func (r *AvailabilityRepository) list(keep func(model.AvailabilityWindow) bool) []*model.AvailabilityWindow {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.AvailabilityWindow
	for _, w := range r.s.windows {
		if keep(w) {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return weekdayOrder[out[i].DayOfWeek] < weekdayOrder[out[j].DayOfWeek]
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

type ExceptionRepository struct {
	s *Store
}

func (r *ExceptionRepository) Create(_ context.Context, exception *model.Exception) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.doctors[exception.DoctorID]; !ok {
		return repository.ErrNotFound
	}
	if exception.ID == uuid.Nil {
		exception.ID = uuid.New()
	}
	exception.Date = model.DateOnly(exception.Date)
	exception.Touch(r.s.now())
	r.s.exceptions[exception.ID] = *exception
	return nil
}

func (r *ExceptionRepository) Get(_ context.Context, id uuid.UUID) (*model.Exception, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.exceptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *ExceptionRepository) Update(_ context.Context, exception *model.Exception) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.exceptions[exception.ID]; !ok {
		return repository.ErrNotFound
	}
	exception.Date = model.DateOnly(exception.Date)
	exception.UpdatedAt = r.s.now()
	r.s.exceptions[exception.ID] = *exception
	return nil
}

func (r *ExceptionRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.exceptions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.exceptions, id)
	return nil
}

func (r *ExceptionRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.Exception, error) {
	return r.list(func(e model.Exception) bool { return e.DoctorID == doctorID }), nil
}

func (r *ExceptionRepository) GetForDate(_ context.Context, doctorID uuid.UUID, date time.Time) (*model.Exception, error) {
	matches := r.list(func(e model.Exception) bool {
		return e.DoctorID == doctorID && model.SameDate(e.Date, date)
	})
	if len(matches) == 0 {
		return nil, repository.ErrNotFound
	}
	return matches[0], nil
}

// list orders by date, then created_at, then id, like the SQL implementation.
func (r *ExceptionRepository) list(keep func(model.Exception) bool) []*model.Exception {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Exception
	for _, e := range r.s.exceptions {
		if keep(e) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out
}
