package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

const subjectSelect = `
	SELECT s.id, s.code, s.name, s.credits, s.created_at, s.updated_at,
	       y.id, y.name
	FROM subjects s
	LEFT JOIN academic_years y ON y.id = s.academic_year_id
`

// SubjectRepository implements the repositories.SubjectRepository interface
type SubjectRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSubjectRepository creates a new subject repository
func NewSubjectRepository(db *DB, logger *zap.Logger) repositories.SubjectRepository {
	return &SubjectRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new subject and assigns its ID
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	query := `
		INSERT INTO subjects (code, name, credits, academic_year_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		subject.Code,
		subject.Name,
		subject.Credits,
		nullableID(subject.AcademicYearID()),
		subject.CreatedAt,
		subject.UpdatedAt,
	).Scan(&subject.ID)
	if err != nil {
		return wrapWriteError("create subject", err)
	}

	r.logger.Debug("subject created", zap.Int64("id", subject.ID), zap.String("code", subject.Code))
	return nil
}

// GetByID retrieves a subject by ID
func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (*models.Subject, error) {
	executor := GetExecutor(ctx, r.db)
	subject, err := scanSubject(executor.QueryRowContext(ctx, subjectSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, wrapReadError("subject", id, err)
	}
	return subject, nil
}

// List retrieves subjects with pagination
func (r *SubjectRepository) List(ctx context.Context, limit, offset int) ([]*models.Subject, error) {
	return r.query(ctx, subjectSelect+` ORDER BY s.code, s.id LIMIT $1 OFFSET $2`, limit, offset)
}

// ListByAcademicYear retrieves the subjects of an academic year
func (r *SubjectRepository) ListByAcademicYear(ctx context.Context, academicYearID int64) ([]*models.Subject, error) {
	return r.query(ctx, subjectSelect+` WHERE s.academic_year_id = $1 ORDER BY s.code, s.id`, academicYearID)
}

// Update updates a subject
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	query := `
		UPDATE subjects
		SET code = $2,
		    name = $3,
		    credits = $4,
		    academic_year_id = $5,
		    updated_at = $6
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		subject.ID,
		subject.Code,
		subject.Name,
		subject.Credits,
		nullableID(subject.AcademicYearID()),
		subject.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("update subject", err)
	}
	return checkAffected(result, "subject", subject.ID)
}

// Delete deletes a subject. Subjects that still own quizzes are rejected.
func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return wrapWriteError("delete subject", err)
	}
	if err := checkAffected(result, "subject", id); err != nil {
		return err
	}

	r.logger.Debug("subject deleted", zap.Int64("id", id))
	return nil
}

func (r *SubjectRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Subject, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	subjects := []*models.Subject{}
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subject rows: %w", err)
	}
	return subjects, nil
}

func scanSubject(row rowScanner) (*models.Subject, error) {
	subject := &models.Subject{}
	var (
		yearID   sql.NullInt64
		yearName sql.NullString
	)
	err := row.Scan(
		&subject.ID,
		&subject.Code,
		&subject.Name,
		&subject.Credits,
		&subject.CreatedAt,
		&subject.UpdatedAt,
		&yearID,
		&yearName,
	)
	if err != nil {
		return nil, err
	}
	if yearID.Valid {
		subject.AcademicYear = &models.AcademicYear{ID: yearID.Int64, Name: yearName.String}
	}
	return subject, nil
}
