// Package scheduling decides whether a doctor can be booked for a slot, enumerates free
// slots, and drives the appointment lifecycle.
package scheduling

import (
	"time"

	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
	"github.com/jwalitptl/scheduling-api/pkg/validator"
)

const (
	DefaultSlotMinutes        = 30
	DefaultCancellationNotice = 24 * time.Hour
)

type Config struct {
	SlotMinutes        int
	CancellationNotice time.Duration
}

// Repositories are the storage collaborators of the service.
type Repositories struct {
	Doctors      repository.DoctorRepository
	Patients     repository.PatientRepository
	Appointments repository.AppointmentRepository
}

type Service struct {
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	index        *AvailabilityIndex
	conflicts    *ConflictDetector
	locker       Locker
	validator    validator.Validator
	config       Config
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	repos Repositories,
	index *AvailabilityIndex,
	locker Locker,
	config Config,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	if config.SlotMinutes <= 0 {
		config.SlotMinutes = DefaultSlotMinutes
	}
	if config.CancellationNotice <= 0 {
		config.CancellationNotice = DefaultCancellationNotice
	}
	if locker == nil {
		locker = NewKeyedLocker()
	}
	return &Service{
		doctors:      repos.Doctors,
		patients:     repos.Patients,
		appointments: repos.Appointments,
		index:        index,
		conflicts:    NewConflictDetector(repos.Appointments),
		locker:       locker,
		validator:    validator.New(),
		config:       config,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
