package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type recordingSender struct {
	sent []sentMail
	err  error
}

func (r *recordingSender) Send(_ context.Context, to []string, subject, body string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fixture struct {
	svc     *Service
	sender  *recordingSender
	doctor  model.Doctor
	patient model.Patient
}

func newFixture() *fixture {
	store := memory.NewStore()
	f := &fixture{
		sender:  &recordingSender{},
		doctor:  store.AddDoctor(model.Doctor{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}),
		patient: store.AddPatient(model.Patient{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"}),
	}
	f.svc = NewService(store.Doctors(), store.Patients(), f.sender, time.UTC, logger.Nop())
	return f
}

func (f *fixture) message(t *testing.T, eventType string, reason string) messaging.Message {
	t.Helper()
	apt := model.NewAppointment(f.doctor.ID, f.patient.ID, time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC), 30)
	if reason != "" {
		apt.CancelReason = &reason
	}
	event, err := model.NewAppointmentEvent(eventType, apt, time.Now())
	require.NoError(t, err)
	return messaging.Message{ID: event.ID.String(), Type: eventType, Payload: event.Payload}
}

func TestHandle_Booked(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.Handle(context.Background(), f.message(t, model.EventAppointmentBooked, "")))

	require.Len(t, f.sender.sent, 1)
	mail := f.sender.sent[0]
	assert.Equal(t, []string{"alan@example.com", "grace@example.com"}, mail.to)
	assert.Equal(t, "Appointment confirmed", mail.subject)
	assert.Contains(t, mail.body, "Alan Turing is booked with Dr. Grace Hopper on Tuesday, 20 October 2026 at 10:00 UTC for 30 minutes.")
}

func TestHandle_CancelledIncludesReason(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.Handle(context.Background(), f.message(t, model.EventAppointmentCancelled, "travel")))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "Appointment cancelled", f.sender.sent[0].subject)
	assert.Contains(t, f.sender.sent[0].body, "Reason: travel")
}

func TestHandle_Completed(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.svc.Handle(context.Background(), f.message(t, model.EventAppointmentCompleted, "")))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "Appointment completed", f.sender.sent[0].subject)
}

func TestHandle_MissingPatientIsSkipped(t *testing.T) {
	f := newFixture()
	msg := f.message(t, model.EventAppointmentBooked, "")
	var event model.AppointmentEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	event.PatientID = uuid.New()
	msg.Payload, _ = json.Marshal(event)

	require.NoError(t, f.svc.Handle(context.Background(), msg))
	assert.Empty(t, f.sender.sent)
}

func TestHandle_Errors(t *testing.T) {
	f := newFixture()

	err := f.svc.Handle(context.Background(), messaging.Message{Type: model.EventAppointmentBooked, Payload: json.RawMessage(`"nope"`)})
	assert.Error(t, err)

	f.sender.err = errors.New("smtp down")
	err = f.svc.Handle(context.Background(), f.message(t, model.EventAppointmentBooked, ""))
	assert.ErrorContains(t, err, "smtp down")
}

func TestRegister_DispatchesAllEventTypes(t *testing.T) {
	f := newFixture()
	d := messaging.NewDispatcher(messaging.NewMemoryBroker(), logger.Nop())
	f.svc.Register(d)

	for _, eventType := range []string{model.EventAppointmentBooked, model.EventAppointmentCancelled, model.EventAppointmentCompleted} {
		raw, err := json.Marshal(f.message(t, eventType, ""))
		require.NoError(t, err)
		d.Dispatch(context.Background(), raw)
	}
	assert.Len(t, f.sender.sent, 3)
}
