package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

// ConflictDetector reports overlaps with a doctor's scheduled appointments.
type ConflictDetector struct {
	appointments repository.AppointmentRepository
}

func NewConflictDetector(appointments repository.AppointmentRepository) *ConflictDetector {
	return &ConflictDetector{appointments: appointments}
}

// HasConflict is true when a scheduled appointment of the doctor, other than excludeID,
// overlaps slot. Cancelled and completed appointments never conflict.
func (d *ConflictDetector) HasConflict(ctx context.Context, doctorID uuid.UUID, slot model.TimeSlot, excludeID *uuid.UUID) (bool, error) {
	conflict, err := d.appointments.CheckConflicts(ctx, doctorID, slot.Start, slot.End, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return conflict, nil
}
