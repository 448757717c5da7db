// Package memory implements the repository interfaces on in-process maps. It backs
// storage.driver "memory" and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

// Store holds every table behind one lock so appointment writes and their outbox events
// commit together.
type Store struct {
	mu           sync.RWMutex
	doctors      map[uuid.UUID]model.Doctor
	patients     map[uuid.UUID]model.Patient
	windows      map[uuid.UUID]model.AvailabilityWindow
	exceptions   map[uuid.UUID]model.Exception
	appointments map[uuid.UUID]model.Appointment
	outbox       map[uuid.UUID]model.OutboxEvent
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		doctors:      make(map[uuid.UUID]model.Doctor),
		patients:     make(map[uuid.UUID]model.Patient),
		windows:      make(map[uuid.UUID]model.AvailabilityWindow),
		exceptions:   make(map[uuid.UUID]model.Exception),
		appointments: make(map[uuid.UUID]model.Appointment),
		outbox:       make(map[uuid.UUID]model.OutboxEvent),
		now:          time.Now,
	}
}

// WithClock makes the store stamp records with now instead of the wall clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// AddDoctor seeds a doctor, assigning an ID when missing.
func (s *Store) AddDoctor(d model.Doctor) model.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.Touch(s.now())
	s.doctors[d.ID] = d
	return d
}

// AddPatient seeds a patient, assigning an ID when missing.
func (s *Store) AddPatient(p model.Patient) model.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Touch(s.now())
	s.patients[p.ID] = p
	return p
}

// OutboxEvents returns a snapshot of the outbox ordered by creation.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]model.OutboxEvent, 0, len(s.outbox))
	for _, e := range s.outbox {
		events = append(events, e)
	}
	sortOutbox(events)
	return events
}

func (s *Store) Doctors() *DoctorRepository            { return &DoctorRepository{s} }
func (s *Store) Patients() *PatientRepository          { return &PatientRepository{s} }
func (s *Store) Availability() *AvailabilityRepository { return &AvailabilityRepository{s} }
func (s *Store) Exceptions() *ExceptionRepository      { return &ExceptionRepository{s} }
func (s *Store) Appointments() *AppointmentRepository  { return &AppointmentRepository{s} }
func (s *Store) Outbox() *OutboxRepository             { return &OutboxRepository{s} }
