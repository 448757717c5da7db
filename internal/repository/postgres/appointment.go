package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

const appointmentColumns = `id, doctor_id, patient_id, scheduled_time, duration_minutes,
	end_time, status, cancel_reason, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, scheduled_time, duration_minutes,
			end_time, status, cancel_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.Touch(time.Now())

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, query,
			appointment.ID,
			appointment.DoctorID,
			appointment.PatientID,
			appointment.ScheduledTime,
			appointment.DurationMinutes,
			appointment.EndTime,
			appointment.Status,
			appointment.CancelReason,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		); err != nil {
			return translate(err)
		}
		if event != nil {
			if err := insertOutboxEvent(ctx, tx, event); err != nil {
				return fmt.Errorf("failed to write outbox event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", translate(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, appointment *model.Appointment, from model.AppointmentStatus, event *model.OutboxEvent) error {
	query := `
		UPDATE appointments
		SET status = $1, cancel_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	appointment.UpdatedAt = time.Now()

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			appointment.Status,
			appointment.CancelReason,
			appointment.UpdatedAt,
			appointment.ID,
			from,
		)
		if err != nil {
			return translate(err)
		}
		if err := affectedOne(result); err != nil {
			return err
		}
		if event != nil {
			if err := insertOutboxEvent(ctx, tx, event); err != nil {
				return fmt.Errorf("failed to write outbox event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filters != nil {
		if filters.DoctorID != uuid.Nil {
			add("doctor_id = $%d", filters.DoctorID)
		}
		if filters.PatientID != uuid.Nil {
			add("patient_id = $%d", filters.PatientID)
		}
		if filters.Status != "" {
			add("status = $%d", filters.Status)
		}
		if !filters.From.IsZero() {
			add("end_time > $%d", filters.From)
		}
		if !filters.To.IsZero() {
			add("scheduled_time < $%d", filters.To)
		}
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY scheduled_time ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListScheduled(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND status = 'scheduled'
		AND scheduled_time < $3
		AND end_time > $2
		ORDER BY scheduled_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list scheduled appointments: %w", err)
	}
	return appointments, nil
}

// CheckConflicts uses the same half-open overlap as model.Overlaps.
func (r *appointmentRepository) CheckConflicts(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND status = 'scheduled'
			AND scheduled_time < $3
			AND end_time > $2
			AND ($4::uuid IS NULL OR id <> $4::uuid)
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, doctorID, start, end, excludeID); err != nil {
		return false, fmt.Errorf("failed to check appointment conflicts: %w", err)
	}
	return exists, nil
}
