package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

var (
	_ repository.DoctorRepository       = (*DoctorRepository)(nil)
	_ repository.PatientRepository      = (*PatientRepository)(nil)
	_ repository.AvailabilityRepository = (*AvailabilityRepository)(nil)
	_ repository.ExceptionRepository    = (*ExceptionRepository)(nil)
	_ repository.AppointmentRepository  = (*AppointmentRepository)(nil)
	_ repository.OutboxRepository       = (*OutboxRepository)(nil)
)

func seed(t *testing.T) (*Store, model.Doctor, model.Patient) {
	t.Helper()
	s := NewStore()
	d := s.AddDoctor(model.Doctor{FirstName: "Ada", LastName: "Lovelace"})
	p := s.AddPatient(model.Patient{FirstName: "Alan", LastName: "Turing"})
	return s, d, p
}

func TestAppointmentRepository_CreateRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	s, d, p := seed(t)
	repo := s.Appointments()
	start := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, model.NewAppointment(d.ID, p.ID, start, 30), nil))

	err := repo.Create(ctx, model.NewAppointment(d.ID, p.ID, start.Add(15*time.Minute), 30), nil)
	assert.ErrorIs(t, err, repository.ErrConflict)

	// back-to-back is fine
	assert.NoError(t, repo.Create(ctx, model.NewAppointment(d.ID, p.ID, start.Add(30*time.Minute), 30), nil))
}

func TestAppointmentRepository_CheckConflictsIgnoresCancelledAndExcluded(t *testing.T) {
	ctx := context.Background()
	s, d, p := seed(t)
	repo := s.Appointments()
	start := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

	apt := model.NewAppointment(d.ID, p.ID, start, 60)
	require.NoError(t, repo.Create(ctx, apt, nil))

	conflict, err := repo.CheckConflicts(ctx, d.ID, start, start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = repo.CheckConflicts(ctx, d.ID, start, start.Add(time.Hour), &apt.ID)
	require.NoError(t, err)
	assert.False(t, conflict)

	apt.Status = model.AppointmentStatusCancelled
	require.NoError(t, repo.UpdateStatus(ctx, apt, model.AppointmentStatusScheduled, nil))

	conflict, err = repo.CheckConflicts(ctx, d.ID, start, start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestAppointmentRepository_UpdateStatusRequiresExpectedStatus(t *testing.T) {
	ctx := context.Background()
	s, d, p := seed(t)
	repo := s.Appointments()

	apt := model.NewAppointment(d.ID, p.ID, time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC), 30)
	require.NoError(t, repo.Create(ctx, apt, nil))

	apt.Status = model.AppointmentStatusCompleted
	err := repo.UpdateStatus(ctx, apt, model.AppointmentStatusCancelled, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExceptionRepository_GetForDateOldestWins(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	s, d, _ := seed(t)
	s.WithClock(func() time.Time { return clock })
	repo := s.Exceptions()
	date := time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &model.Exception{DoctorID: d.ID, Date: date, IsAvailable: false}))
	clock = clock.Add(time.Minute)
	require.NoError(t, repo.Create(ctx, &model.Exception{DoctorID: d.ID, Date: date, IsAvailable: true}))

	got, err := repo.GetForDate(ctx, d.ID, date.Add(15*time.Hour))
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)

	_, err = repo.GetForDate(ctx, d.ID, date.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAvailabilityRepository_ListByDay(t *testing.T) {
	ctx := context.Background()
	s, d, _ := seed(t)
	repo := s.Availability()

	for _, w := range []model.AvailabilityWindow{
		{DoctorID: d.ID, DayOfWeek: model.Monday, StartTime: model.NewClockTime(14, 0), EndTime: model.NewClockTime(17, 0)},
		{DoctorID: d.ID, DayOfWeek: model.Monday, StartTime: model.NewClockTime(9, 0), EndTime: model.NewClockTime(12, 0)},
		{DoctorID: d.ID, DayOfWeek: model.Tuesday, StartTime: model.NewClockTime(9, 0), EndTime: model.NewClockTime(12, 0)},
	} {
		w := w
		require.NoError(t, repo.Create(ctx, &w))
	}

	windows, err := repo.ListByDay(ctx, d.ID, model.Monday)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, model.NewClockTime(9, 0), windows[0].StartTime)
	assert.Equal(t, model.NewClockTime(14, 0), windows[1].StartTime)

	err = repo.Create(ctx, &model.AvailabilityWindow{DoctorID: uuid.New(), DayOfWeek: model.Monday})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOutboxRepository_RetryBudget(t *testing.T) {
	ctx := context.Background()
	s, _, _ := seed(t)
	repo := s.Outbox()

	event := &model.OutboxEvent{EventType: model.EventAppointmentBooked, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(ctx, event))

	msg := "broker down"
	for i := 0; i < maxDeliveryAttempts; i++ {
		pending, err := repo.GetPendingEventsWithLock(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.NoError(t, repo.UpdateStatus(ctx, event.ID, model.OutboxStatusFailed, &msg))
	}

	pending, err := repo.GetPendingEventsWithLock(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
