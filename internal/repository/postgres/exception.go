package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

const exceptionColumns = `id, doctor_id, date, is_available, created_at, updated_at`

func (r *exceptionRepository) Create(ctx context.Context, exception *model.Exception) error {
	query := `
		INSERT INTO availability_exceptions (
			id, doctor_id, date, is_available, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	if exception.ID == uuid.Nil {
		exception.ID = uuid.New()
	}
	exception.Touch(time.Now())

	_, err := r.db.ExecContext(ctx, query,
		exception.ID,
		exception.DoctorID,
		exception.Date.Format(model.DateLayout),
		exception.IsAvailable,
		exception.CreatedAt,
		exception.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create exception: %w", translate(err))
	}
	return nil
}

func (r *exceptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Exception, error) {
	query := `SELECT ` + exceptionColumns + ` FROM availability_exceptions WHERE id = $1`

	var exception model.Exception
	if err := r.db.GetContext(ctx, &exception, query, id); err != nil {
		return nil, fmt.Errorf("failed to get exception: %w", translate(err))
	}
	return &exception, nil
}

func (r *exceptionRepository) Update(ctx context.Context, exception *model.Exception) error {
	query := `
		UPDATE availability_exceptions
		SET date = $1, is_available = $2, updated_at = $3
		WHERE id = $4
	`
	exception.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		exception.Date.Format(model.DateLayout),
		exception.IsAvailable,
		exception.UpdatedAt,
		exception.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update exception: %w", err)
	}
	if err := affectedOne(result); err != nil {
		return fmt.Errorf("failed to update exception: %w", err)
	}
	return nil
}

func (r *exceptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete exception: %w", err)
	}
	if err := affectedOne(result); err != nil {
		return fmt.Errorf("failed to delete exception: %w", err)
	}
	return nil
}

func (r *exceptionRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Exception, error) {
	query := `SELECT ` + exceptionColumns + `
		FROM availability_exceptions
		WHERE doctor_id = $1
		ORDER BY date, created_at, id
	`
	var exceptions []*model.Exception
	if err := r.db.SelectContext(ctx, &exceptions, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	return exceptions, nil
}

// GetForDate is served by the (doctor_id, date) index; duplicates resolve to the oldest row.
func (r *exceptionRepository) GetForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*model.Exception, error) {
	query := `SELECT ` + exceptionColumns + `
		FROM availability_exceptions
		WHERE doctor_id = $1 AND date = $2
		ORDER BY created_at, id
		LIMIT 1
	`
	var exception model.Exception
	if err := r.db.GetContext(ctx, &exception, query, doctorID, date.Format(model.DateLayout)); err != nil {
		return nil, fmt.Errorf("failed to get exception for date: %w", translate(err))
	}
	return &exception, nil
}
