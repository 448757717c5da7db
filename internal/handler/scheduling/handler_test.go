package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/service/scheduling"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// 2026-10-19 is a Monday; the clock sits at 08:00 UTC.
var (
	monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	now    = monday.Add(8 * time.Hour)
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine  *gin.Engine
	store   *memory.Store
	doctor  model.Doctor
	patient model.Patient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := func() time.Time { return now }
	store := memory.NewStore().WithClock(clock)
	s := &testServer{
		store:   store,
		doctor:  store.AddDoctor(model.Doctor{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}),
		patient: store.AddPatient(model.Patient{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"}),
	}
	for _, w := range []struct {
		day        model.DayOfWeek
		start, end int
	}{
		{model.Monday, 9, 12},
		{model.Monday, 14, 17},
		{model.Tuesday, 9, 17},
	} {
		require.NoError(t, store.Availability().Create(context.Background(), &model.AvailabilityWindow{
			DoctorID:  s.doctor.ID,
			DayOfWeek: w.day,
			StartTime: model.NewClockTime(w.start, 0),
			EndTime:   model.NewClockTime(w.end, 0),
		}))
	}

	index := scheduling.NewAvailabilityIndex(store.Availability(), store.Exceptions(), time.UTC, 0)
	svc := scheduling.NewService(
		scheduling.Repositories{
			Doctors:      store.Doctors(),
			Patients:     store.Patients(),
			Appointments: store.Appointments(),
		},
		index,
		scheduling.NewKeyedLocker(),
		scheduling.Config{},
		metrics.NewNop(),
		logger.Nop(),
	).WithClock(clock)

	engine := gin.New()
	engine.Use(middleware.ErrorHandler(), actorFromHeaders())
	NewHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	s.engine = engine
	return s
}

// actorFromHeaders stands in for token authentication.
func actorFromHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader("X-Actor-ID")); err == nil {
			c.Set(middleware.ContextActor, model.Actor{ID: id, Role: model.Role(c.GetHeader("X-Actor-Role"))})
		}
		c.Next()
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, actor *model.Actor) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-Actor-ID", actor.ID.String())
		req.Header.Set("X-Actor-Role", string(actor.Role))
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) patientActor() *model.Actor {
	return &model.Actor{ID: s.patient.ID, Role: model.RolePatient}
}

func (s *testServer) book(t *testing.T, start time.Time, minutes int) model.Appointment {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", map[string]interface{}{
		"doctor_id":      s.doctor.ID,
		"patient_id":     s.patient.ID,
		"scheduled_time": start,
		"duration":       minutes,
	}, s.patientActor())
	require.Equal(t, http.StatusCreated, code, env.Message)

	var apt model.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &apt))
	return apt
}

func TestCheckAvailability(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/doctors/" + s.doctor.ID.String() + "/availability"

	cases := []struct {
		name      string
		query     string
		code      int
		available bool
		reason    string
	}{
		{"inside window", "?start=2026-10-19T10:00:00Z&duration=30", http.StatusOK, true, scheduling.ReasonAvailable},
		{"lunch gap", "?start=2026-10-19T12:30:00Z&duration=30", http.StatusOK, false, scheduling.ReasonNotAvailable},
		{"after hours", "?start=2026-10-19T17:00:00Z&duration=30", http.StatusOK, false, scheduling.ReasonOutsideWorkingHours},
		{"missing start", "?duration=30", http.StatusBadRequest, false, ""},
		{"duration not a number", "?start=2026-10-19T10:00:00Z&duration=half", http.StatusBadRequest, false, ""},
		{"duration out of bounds", "?start=2026-10-19T10:00:00Z&duration=10", http.StatusBadRequest, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodGet, base+tc.query, nil, s.patientActor())
			require.Equal(t, tc.code, code, env.Message)
			if code != http.StatusOK {
				assert.Equal(t, "error", env.Status)
				return
			}
			var got model.Availability
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, tc.available, got.Available)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestCheckAvailability_InvalidDoctorID(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/doctors/not-a-uuid/availability?start=2026-10-19T10:00:00Z&duration=30", nil, s.patientActor())

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid doctor ID", env.Message)
}

func TestListSlots(t *testing.T) {
	s := newTestServer(t)
	s.book(t, at(monday, 10, 0), 60)

	code, env := s.do(t, http.MethodGet, "/api/v1/doctors/"+s.doctor.ID.String()+"/slots?date=2026-10-19", nil, s.patientActor())
	require.Equal(t, http.StatusOK, code)

	var body struct {
		Date  string           `json:"date"`
		Slots []model.TimeSlot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "2026-10-19", body.Date)
	assert.Len(t, body.Slots, 10)
	for _, slot := range body.Slots {
		assert.False(t, slot.Start.Equal(at(monday, 10, 0)) || slot.Start.Equal(at(monday, 10, 30)), slot.Start)
	}
}

func TestListSlots_BadDate(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/doctors/"+s.doctor.ID.String()+"/slots?date=19/10/2026", nil, s.patientActor())

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBookAppointment_Conflict(t *testing.T) {
	s := newTestServer(t)
	apt := s.book(t, at(monday, 10, 0), 30)
	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", map[string]interface{}{
		"doctor_id":      s.doctor.ID,
		"patient_id":     s.patient.ID,
		"scheduled_time": at(monday, 10, 15),
		"duration":       30,
	}, s.patientActor())

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, scheduling.ReasonAlreadyBooked, env.Message)
}

func TestBookAppointment_OnlyForSelf(t *testing.T) {
	s := newTestServer(t)
	other := &model.Actor{ID: uuid.New(), Role: model.RolePatient}

	code, _ := s.do(t, http.MethodPost, "/api/v1/appointments", map[string]interface{}{
		"doctor_id":      s.doctor.ID,
		"patient_id":     s.patient.ID,
		"scheduled_time": at(monday, 10, 0),
		"duration":       30,
	}, other)

	assert.Equal(t, http.StatusForbidden, code)
}

func TestBookAppointment_SelfWithUppercaseID(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", map[string]interface{}{
		"doctor_id":      s.doctor.ID,
		"patient_id":     strings.ToUpper(s.patient.ID.String()),
		"scheduled_time": at(monday, 10, 0),
		"duration":       30,
	}, s.patientActor())

	assert.Equal(t, http.StatusCreated, code, env.Message)
}

func TestBookAppointment_DoctorCannotBook(t *testing.T) {
	s := newTestServer(t)
	doctor := &model.Actor{ID: s.doctor.ID, Role: model.RoleDoctor}

	code, _ := s.do(t, http.MethodPost, "/api/v1/appointments", map[string]interface{}{
		"doctor_id":      s.doctor.ID,
		"patient_id":     s.patient.ID,
		"scheduled_time": at(monday, 10, 0),
		"duration":       30,
	}, doctor)

	assert.Equal(t, http.StatusForbidden, code)
}

func TestBookAppointment_Unauthenticated(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", map[string]interface{}{}, nil)

	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", env.Message)
}

func TestCancelAppointment(t *testing.T) {
	s := newTestServer(t)
	tuesday := monday.AddDate(0, 0, 1)
	later := s.book(t, at(tuesday, 10, 0), 30)
	soon := s.book(t, at(monday, 10, 0), 30)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments/"+soon.ID.String()+"/cancel", nil, s.patientActor())
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Message, "2026-10-18T10:00:00Z")

	code, env = s.do(t, http.MethodPost, "/api/v1/appointments/"+later.ID.String()+"/cancel",
		map[string]string{"reason": "travel"}, s.patientActor())
	require.Equal(t, http.StatusOK, code, env.Message)

	var cancelled model.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &cancelled))
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "travel", *cancelled.CancelReason)
}

func TestCompleteAppointment_OnlyAssignedDoctor(t *testing.T) {
	s := newTestServer(t)
	apt := s.book(t, at(monday, 10, 0), 30)

	code, _ := s.do(t, http.MethodPost, "/api/v1/appointments/"+apt.ID.String()+"/complete", nil, s.patientActor())
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments/"+apt.ID.String()+"/complete", nil,
		&model.Actor{ID: s.doctor.ID, Role: model.RoleDoctor})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "cannot complete a future appointment", env.Message)
}

func TestGetAndListAppointments(t *testing.T) {
	s := newTestServer(t)
	apt := s.book(t, at(monday, 10, 0), 30)

	code, env := s.do(t, http.MethodGet, "/api/v1/appointments/"+apt.ID.String(), nil, s.patientActor())
	require.Equal(t, http.StatusOK, code)
	var got model.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, apt.ID, got.ID)

	code, env = s.do(t, http.MethodGet, "/api/v1/appointments?status=scheduled&doctor_id="+s.doctor.ID.String(), nil, s.patientActor())
	require.Equal(t, http.StatusOK, code)
	var list []model.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	stranger := &model.Actor{ID: uuid.New(), Role: model.RolePatient}
	code, env = s.do(t, http.MethodGet, "/api/v1/appointments", nil, stranger)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list)

	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments?from=yesterday", nil, s.patientActor())
	assert.Equal(t, http.StatusBadRequest, code)
}

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}
