package postgres

import (
	"context"
	"fmt"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

// AcademicYearRepository implements the repositories.AcademicYearRepository interface
type AcademicYearRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAcademicYearRepository creates a new academic year repository
func NewAcademicYearRepository(db *DB, logger *zap.Logger) repositories.AcademicYearRepository {
	return &AcademicYearRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new academic year and assigns its ID
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	query := `
		INSERT INTO academic_years (name, starts_on, ends_on, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		year.Name,
		year.StartsOn,
		year.EndsOn,
		year.Active,
		year.CreatedAt,
		year.UpdatedAt,
	).Scan(&year.ID)
	if err != nil {
		return wrapWriteError("create academic year", err)
	}

	r.logger.Debug("academic year created", zap.Int64("id", year.ID), zap.String("name", year.Name))
	return nil
}

// GetByID retrieves an academic year by ID
func (r *AcademicYearRepository) GetByID(ctx context.Context, id int64) (*models.AcademicYear, error) {
	query := `
		SELECT id, name, starts_on, ends_on, active, created_at, updated_at
		FROM academic_years
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	year := &models.AcademicYear{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&year.ID,
		&year.Name,
		&year.StartsOn,
		&year.EndsOn,
		&year.Active,
		&year.CreatedAt,
		&year.UpdatedAt,
	)
	if err != nil {
		return nil, wrapReadError("academic year", id, err)
	}
	return year, nil
}

// List retrieves academic years, newest first
func (r *AcademicYearRepository) List(ctx context.Context, limit, offset int) ([]*models.AcademicYear, error) {
	query := `
		SELECT id, name, starts_on, ends_on, active, created_at, updated_at
		FROM academic_years
		ORDER BY starts_on DESC
		LIMIT $1 OFFSET $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query academic years: %w", err)
	}
	defer rows.Close()

	years := []*models.AcademicYear{}
	for rows.Next() {
		year := &models.AcademicYear{}
		if err := rows.Scan(
			&year.ID,
			&year.Name,
			&year.StartsOn,
			&year.EndsOn,
			&year.Active,
			&year.CreatedAt,
			&year.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan academic year: %w", err)
		}
		years = append(years, year)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating academic year rows: %w", err)
	}
	return years, nil
}

// Update updates an academic year
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	query := `
		UPDATE academic_years
		SET name = $2,
		    starts_on = $3,
		    ends_on = $4,
		    active = $5,
		    updated_at = $6
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		year.ID,
		year.Name,
		year.StartsOn,
		year.EndsOn,
		year.Active,
		year.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("update academic year", err)
	}
	return checkAffected(result, "academic year", year.ID)
}

// Delete deletes an academic year. Years that still own subjects are rejected.
func (r *AcademicYearRepository) Delete(ctx context.Context, id int64) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM academic_years WHERE id = $1`, id)
	if err != nil {
		return wrapWriteError("delete academic year", err)
	}
	return checkAffected(result, "academic year", id)
}
