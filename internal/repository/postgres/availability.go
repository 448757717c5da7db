package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

const windowColumns = `id, doctor_id, day_of_week, start_time, end_time, created_at, updated_at`

func (r *availabilityRepository) Create(ctx context.Context, window *model.AvailabilityWindow) error {
	query := `
		INSERT INTO availability_windows (
			id, doctor_id, day_of_week, start_time, end_time, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if window.ID == uuid.Nil {
		window.ID = uuid.New()
	}
	window.Touch(time.Now())

	_, err := r.db.ExecContext(ctx, query,
		window.ID,
		window.DoctorID,
		window.DayOfWeek,
		window.StartTime,
		window.EndTime,
		window.CreatedAt,
		window.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability window: %w", translate(err))
	}
	return nil
}

func (r *availabilityRepository) Get(ctx context.Context, id uuid.UUID) (*model.AvailabilityWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM availability_windows WHERE id = $1`

	var window model.AvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, fmt.Errorf("failed to get availability window: %w", translate(err))
	}
	return &window, nil
}

func (r *availabilityRepository) Update(ctx context.Context, window *model.AvailabilityWindow) error {
	query := `
		UPDATE availability_windows
		SET day_of_week = $1, start_time = $2, end_time = $3, updated_at = $4
		WHERE id = $5
	`
	window.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		window.DayOfWeek,
		window.StartTime,
		window.EndTime,
		window.UpdatedAt,
		window.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update availability window: %w", err)
	}
	if err := affectedOne(result); err != nil {
		return fmt.Errorf("failed to update availability window: %w", err)
	}
	return nil
}

func (r *availabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability window: %w", err)
	}
	if err := affectedOne(result); err != nil {
		return fmt.Errorf("failed to delete availability window: %w", err)
	}
	return nil
}

func (r *availabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	query := `SELECT ` + windowColumns + `
		FROM availability_windows
		WHERE doctor_id = $1
		ORDER BY
			CASE day_of_week
				WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2 WHEN 'Wednesday' THEN 3
				WHEN 'Thursday' THEN 4 WHEN 'Friday' THEN 5 WHEN 'Saturday' THEN 6
				ELSE 7
			END,
			start_time
	`
	var windows []*model.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	return windows, nil
}

func (r *availabilityRepository) ListByDay(ctx context.Context, doctorID uuid.UUID, day model.DayOfWeek) ([]*model.AvailabilityWindow, error) {
	query := `SELECT ` + windowColumns + `
		FROM availability_windows
		WHERE doctor_id = $1 AND day_of_week = $2
		ORDER BY start_time
	`
	var windows []*model.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, doctorID, day); err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	return windows, nil
}
