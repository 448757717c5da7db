package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// 2026-10-19 is a Monday.
var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	index   *AvailabilityIndex
	clock   *testClock
	doctor  model.Doctor
	patient model.Patient
}

// newFixture seeds one doctor working Monday 09:00-12:00 and 14:00-17:00 and Tuesday
// 09:00-17:00, one patient, and a clock at Monday 08:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: monday.Add(8 * time.Hour)}
	store := memory.NewStore().WithClock(clock.Now)

	f := &fixture{
		store:   store,
		clock:   clock,
		doctor:  store.AddDoctor(model.Doctor{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}),
		patient: store.AddPatient(model.Patient{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"}),
	}
	f.addWindow(t, model.Monday, "09:00", "12:00")
	f.addWindow(t, model.Monday, "14:00", "17:00")
	f.addWindow(t, model.Tuesday, "09:00", "17:00")

	f.withWindowCache(0)
	return f
}

// withWindowCache rebuilds the index and service with a window cache of ttl.
func (f *fixture) withWindowCache(ttl time.Duration) {
	f.index = NewAvailabilityIndex(f.store.Availability(), f.store.Exceptions(), time.UTC, ttl)
	f.svc = NewService(
		Repositories{
			Doctors:      f.store.Doctors(),
			Patients:     f.store.Patients(),
			Appointments: f.store.Appointments(),
		},
		f.index,
		NewKeyedLocker(),
		Config{},
		metrics.NewNop(),
		logger.Nop(),
	).WithClock(f.clock.Now)
}

func (f *fixture) addWindow(t *testing.T, day model.DayOfWeek, start, end string) {
	t.Helper()
	s, err := model.ParseClockTime(start)
	require.NoError(t, err)
	e, err := model.ParseClockTime(end)
	require.NoError(t, err)
	require.NoError(t, f.store.Availability().Create(context.Background(), &model.AvailabilityWindow{
		DoctorID:  f.doctor.ID,
		DayOfWeek: day,
		StartTime: s,
		EndTime:   e,
	}))
}

func (f *fixture) addException(t *testing.T, date time.Time, available bool) {
	t.Helper()
	require.NoError(t, f.store.Exceptions().Create(context.Background(), &model.Exception{
		DoctorID:    f.doctor.ID,
		Date:        date,
		IsAvailable: available,
	}))
}

func (f *fixture) bookRequest(start time.Time, minutes int) *model.BookAppointmentRequest {
	return &model.BookAppointmentRequest{
		DoctorID:        f.doctor.ID.String(),
		PatientID:       f.patient.ID.String(),
		ScheduledTime:   start,
		DurationMinutes: minutes,
	}
}

func (f *fixture) book(t *testing.T, start time.Time, minutes int) *model.Appointment {
	t.Helper()
	apt, err := f.svc.BookAppointment(context.Background(), f.bookRequest(start, minutes))
	require.NoError(t, err)
	return apt
}

func (f *fixture) doctorActor() model.Actor {
	return model.Actor{ID: f.doctor.ID, Role: model.RoleDoctor}
}

func (f *fixture) patientActor() model.Actor {
	return model.Actor{ID: f.patient.ID, Role: model.RolePatient}
}

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code, appErr.Error())
	return appErr
}

var strangerActor = model.Actor{ID: uuid.MustParse("00000000-0000-4000-8000-000000000001"), Role: model.RolePatient}
