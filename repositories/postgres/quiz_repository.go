package postgres

import (
	"context"
	"fmt"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

const quizSelect = `
	SELECT q.id, q.title, q.max_score, q.published, q.published_at, q.created_at, q.updated_at,
	       s.id, s.code, s.name
	FROM quizzes q
	JOIN subjects s ON s.id = q.subject_id
`

// QuizRepository implements the repositories.QuizRepository interface.
// Questions are stored and replaced together with their quiz.
type QuizRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(db *DB, logger *zap.Logger) repositories.QuizRepository {
	return &QuizRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a quiz with its questions and assigns the IDs
func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	query := `
		INSERT INTO quizzes (title, max_score, published, published_at, subject_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		quiz.Title,
		quiz.MaxScore,
		quiz.Published,
		quiz.PublishedAt,
		nullableID(quiz.SubjectID()),
		quiz.CreatedAt,
		quiz.UpdatedAt,
	).Scan(&quiz.ID)
	if err != nil {
		return wrapWriteError("create quiz", err)
	}

	if err := r.insertQuestions(ctx, executor, quiz); err != nil {
		return err
	}

	r.logger.Debug("quiz created", zap.Int64("id", quiz.ID), zap.Int("questions", len(quiz.Questions)))
	return nil
}

// GetByID retrieves a quiz, its subject and its questions
func (r *QuizRepository) GetByID(ctx context.Context, id int64) (*models.Quiz, error) {
	executor := GetExecutor(ctx, r.db)

	quiz := &models.Quiz{Subject: &models.Subject{}}
	err := executor.QueryRowContext(ctx, quizSelect+` WHERE q.id = $1`, id).Scan(
		&quiz.ID,
		&quiz.Title,
		&quiz.MaxScore,
		&quiz.Published,
		&quiz.PublishedAt,
		&quiz.CreatedAt,
		&quiz.UpdatedAt,
		&quiz.Subject.ID,
		&quiz.Subject.Code,
		&quiz.Subject.Name,
	)
	if err != nil {
		return nil, wrapReadError("quiz", id, err)
	}

	rows, err := executor.QueryContext(ctx,
		`SELECT id, prompt, points FROM questions WHERE quiz_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Points); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating question rows: %w", err)
	}
	return quiz, nil
}

// List retrieves quizzes without their questions
func (r *QuizRepository) List(ctx context.Context, limit, offset int) ([]*models.Quiz, error) {
	return r.query(ctx, quizSelect+` ORDER BY q.id LIMIT $1 OFFSET $2`, limit, offset)
}

// ListBySubject retrieves the quizzes of a subject without their questions
func (r *QuizRepository) ListBySubject(ctx context.Context, subjectID int64) ([]*models.Quiz, error) {
	return r.query(ctx, quizSelect+` WHERE q.subject_id = $1 ORDER BY q.id`, subjectID)
}

// Update updates a quiz. A non-nil Questions slice replaces the stored questions.
func (r *QuizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	query := `
		UPDATE quizzes
		SET title = $2,
		    max_score = $3,
		    published = $4,
		    published_at = $5,
		    updated_at = $6
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		quiz.ID,
		quiz.Title,
		quiz.MaxScore,
		quiz.Published,
		quiz.PublishedAt,
		quiz.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("update quiz", err)
	}
	if err := checkAffected(result, "quiz", quiz.ID); err != nil {
		return err
	}

	if quiz.Questions != nil {
		if _, err := executor.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = $1`, quiz.ID); err != nil {
			return fmt.Errorf("failed to replace questions: %w", err)
		}
		if err := r.insertQuestions(ctx, executor, quiz); err != nil {
			return err
		}
	}
	return nil
}

// Delete deletes a quiz and, by cascade, its questions
func (r *QuizRepository) Delete(ctx context.Context, id int64) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return wrapWriteError("delete quiz", err)
	}
	if err := checkAffected(result, "quiz", id); err != nil {
		return err
	}

	r.logger.Debug("quiz deleted", zap.Int64("id", id))
	return nil
}

func (r *QuizRepository) insertQuestions(ctx context.Context, executor Executor, quiz *models.Quiz) error {
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		err := executor.QueryRowContext(ctx,
			`INSERT INTO questions (quiz_id, prompt, points) VALUES ($1, $2, $3) RETURNING id`,
			quiz.ID, q.Prompt, q.Points,
		).Scan(&q.ID)
		if err != nil {
			return wrapWriteError("create question", err)
		}
	}
	return nil
}

func (r *QuizRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Quiz, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := []*models.Quiz{}
	for rows.Next() {
		quiz := &models.Quiz{Subject: &models.Subject{}}
		if err := rows.Scan(
			&quiz.ID,
			&quiz.Title,
			&quiz.MaxScore,
			&quiz.Published,
			&quiz.PublishedAt,
			&quiz.CreatedAt,
			&quiz.UpdatedAt,
			&quiz.Subject.ID,
			&quiz.Subject.Code,
			&quiz.Subject.Name,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quiz rows: %w", err)
	}
	return quizzes, nil
}
