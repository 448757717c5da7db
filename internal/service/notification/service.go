// Package notification emails doctors and patients about appointment lifecycle events.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/scheduling-api/internal/email"
	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
)

const timeLayout = "Monday, 2 January 2006 at 15:04 MST"

type Service struct {
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	emailSvc email.Service
	location *time.Location
	logger   *logger.Logger
}

func NewService(
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	emailSvc email.Service,
	location *time.Location,
	logger *logger.Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		doctors:  doctors,
		patients: patients,
		emailSvc: emailSvc,
		location: location,
		logger:   logger,
	}
}

// Register subscribes the service to every appointment event type.
func (s *Service) Register(d *messaging.Dispatcher) {
	for _, eventType := range []string{
		model.EventAppointmentBooked,
		model.EventAppointmentCancelled,
		model.EventAppointmentCompleted,
	} {
		d.On(eventType, s.Handle)
	}
}

// Handle sends one email to the patient and the doctor of the appointment in msg.
func (s *Service) Handle(ctx context.Context, msg messaging.Message) error {
	var event model.AppointmentEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}

	doctor, err := s.doctors.Get(ctx, event.DoctorID)
	if err != nil {
		return s.lookupErr("doctor", event.DoctorID.String(), err)
	}
	patient, err := s.patients.Get(ctx, event.PatientID)
	if err != nil {
		return s.lookupErr("patient", event.PatientID.String(), err)
	}

	subject, body, err := s.compose(msg.Type, &event, doctor, patient)
	if err != nil {
		return err
	}

	if err := s.emailSvc.Send(ctx, []string{patient.Email, doctor.Email}, subject, body); err != nil {
		return fmt.Errorf("failed to notify appointment %s: %w", event.AppointmentID, err)
	}

	s.logger.Info("Appointment notification sent",
		"event_id", msg.ID,
		"event_type", msg.Type,
		"appointment_id", event.AppointmentID.String())
	return nil
}

func (s *Service) compose(eventType string, event *model.AppointmentEvent, doctor *model.Doctor, patient *model.Patient) (string, string, error) {
	when := event.ScheduledTime.In(s.location).Format(timeLayout)

	var subject, body string
	switch eventType {
	case model.EventAppointmentBooked:
		subject = "Appointment confirmed"
		body = fmt.Sprintf("%s is booked with %s on %s for %d minutes.",
			patient.DisplayName(), doctor.DisplayName(), when, event.Duration)
	case model.EventAppointmentCancelled:
		subject = "Appointment cancelled"
		body = fmt.Sprintf("The appointment of %s with %s on %s has been cancelled.",
			patient.DisplayName(), doctor.DisplayName(), when)
		if event.Reason != "" {
			body += "\nReason: " + event.Reason
		}
	case model.EventAppointmentCompleted:
		subject = "Appointment completed"
		body = fmt.Sprintf("The appointment of %s with %s on %s is complete.",
			patient.DisplayName(), doctor.DisplayName(), when)
	default:
		return "", "", fmt.Errorf("unsupported event type: %s", eventType)
	}
	return subject, body + "\n\nReference: " + event.AppointmentID.String() + "\n", nil
}

func (s *Service) lookupErr(resource, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		// Nothing to retry; the record is gone.
		s.logger.Warn("Skipping notification, recipient not found", "resource", resource, "id", id)
		return nil
	}
	return fmt.Errorf("failed to get %s %s: %w", resource, id, err)
}
