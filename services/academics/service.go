package academics

import (
	"context"
	"strings"
	"time"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"github.com/upb/lms-backend/services"
	"github.com/upb/lms-backend/services/audit"
	"go.uber.org/zap"
)

// LogAcademicYearCreated is the log name of the manual event written when a
// year and its initial subjects have been set up
const LogAcademicYearCreated = "academic_year_created"

// SubjectInput describes a subject to create or replace
type SubjectInput struct {
	Code           string
	Name           string
	Credits        int
	AcademicYearID *int64
}

// AcademicYearInput describes a new academic year and its initial subjects
type AcademicYearInput struct {
	Name     string
	StartsOn time.Time
	EndsOn   time.Time
	Active   bool
	Subjects []SubjectInput
}

// QuestionInput describes one quiz question
type QuestionInput struct {
	Prompt string
	Points float64
}

// QuizInput describes a new quiz
type QuizInput struct {
	Title     string
	MaxScore  float64
	Questions []QuestionInput
}

// Service manages academic years, subjects and quizzes. Every write goes
// through audited repositories.
type Service struct {
	years    *audit.Tracked[*models.AcademicYear]
	subjects *audit.Tracked[*models.Subject]
	quizzes  *audit.Tracked[*models.Quiz]

	subjectIndex repositories.SubjectRepository
	quizIndex    repositories.QuizRepository

	txMgr  repositories.TransactionManager
	audit  *audit.Service
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an academics service
func NewService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	recorder audit.Recorder,
	auditSvc *audit.Service,
	logger *zap.Logger,
) *Service {
	return &Service{
		years:        audit.NewTracked[*models.AcademicYear](repos.AcademicYears, recorder),
		subjects:     audit.NewTracked[*models.Subject](repos.Subjects, recorder),
		quizzes:      audit.NewTracked[*models.Quiz](repos.Quizzes, recorder),
		subjectIndex: repos.Subjects,
		quizIndex:    repos.Quizzes,
		txMgr:        txMgr,
		audit:        auditSvc,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateAcademicYear creates the year and its initial subjects in one
// transaction. All resulting audit events share one batch id.
func (s *Service) CreateAcademicYear(ctx context.Context, in AcademicYearInput) (*models.AcademicYear, []*models.Subject, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, nil, services.Invalid("name", "name is required")
	}
	if !in.EndsOn.After(in.StartsOn) {
		return nil, nil, services.ErrInvalidDateRange
	}
	for _, subject := range in.Subjects {
		if err := validateSubject(subject); err != nil {
			return nil, nil, err
		}
	}

	type created struct {
		year     *models.AcademicYear
		subjects []*models.Subject
	}

	result, err := audit.WithBatchResult(ctx, func(ctx context.Context) (created, error) {
		out, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (created, error) {
			now := s.now()
			year := &models.AcademicYear{
				Name:      strings.TrimSpace(in.Name),
				StartsOn:  in.StartsOn,
				EndsOn:    in.EndsOn,
				Active:    in.Active,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.years.Create(ctx, year); err != nil {
				return created{}, services.MapRepositoryError(err, nil, nil)
			}

			subjects := make([]*models.Subject, 0, len(in.Subjects))
			for _, input := range in.Subjects {
				subject := newSubject(input, now)
				subject.AcademicYear = year
				if err := s.subjects.Create(ctx, subject); err != nil {
					return created{}, services.MapRepositoryError(err, nil, services.ErrDuplicateSubjectCode)
				}
				subjects = append(subjects, subject)
			}
			return created{year: year, subjects: subjects}, nil
		})
		if err != nil {
			return created{}, err
		}

		codes := make([]string, 0, len(out.subjects))
		for _, subject := range out.subjects {
			codes = append(codes, subject.Code)
		}
		s.audit.Log(LogAcademicYearCreated).
			Description("Academic year " + out.year.Name + " created").
			Subject(out.year).
			Property("subject_codes", codes).
			Property("subject_count", len(codes)).
			Commit(ctx)

		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("academic year created",
		zap.Int64("academic_year_id", result.year.ID),
		zap.Int("subjects", len(result.subjects)))
	return result.year, result.subjects, nil
}

// GetAcademicYear retrieves an academic year
func (s *Service) GetAcademicYear(ctx context.Context, id int64) (*models.AcademicYear, error) {
	year, err := s.years.GetByID(ctx, id)
	if err != nil {
		return nil, services.MapRepositoryError(err, services.ErrAcademicYearNotFound, nil)
	}
	return year, nil
}

// ListAcademicYears lists academic years
func (s *Service) ListAcademicYears(ctx context.Context, limit, offset int) ([]*models.AcademicYear, error) {
	years, err := s.years.List(ctx, limit, offset)
	if err != nil {
		return nil, services.MapRepositoryError(err, nil, nil)
	}
	return years, nil
}

// CreateSubject creates a subject, optionally attached to an academic year
func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (*models.Subject, error) {
	if err := validateSubject(in); err != nil {
		return nil, err
	}

	subject := newSubject(in, s.now())
	if in.AcademicYearID != nil {
		year, err := s.GetAcademicYear(ctx, *in.AcademicYearID)
		if err != nil {
			return nil, err
		}
		subject.AcademicYear = year
	}

	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, services.MapRepositoryError(err, nil, services.ErrDuplicateSubjectCode)
	}
	return subject, nil
}

// GetSubject retrieves a subject and its quizzes
func (s *Service) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		return nil, services.MapRepositoryError(err, services.ErrSubjectNotFound, nil)
	}

	quizzes, err := s.quizIndex.ListBySubject(ctx, id)
	if err != nil {
		return nil, services.MapRepositoryError(err, nil, nil)
	}
	subject.Quizzes = make([]models.Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		subject.Quizzes = append(subject.Quizzes, *quiz)
	}
	return subject, nil
}

// ListSubjects lists subjects, optionally restricted to one academic year
func (s *Service) ListSubjects(ctx context.Context, academicYearID *int64, limit, offset int) ([]*models.Subject, error) {
	var (
		subjects []*models.Subject
		err      error
	)
	if academicYearID != nil {
		subjects, err = s.subjectIndex.ListByAcademicYear(ctx, *academicYearID)
	} else {
		subjects, err = s.subjects.List(ctx, limit, offset)
	}
	if err != nil {
		return nil, services.MapRepositoryError(err, nil, nil)
	}
	return subjects, nil
}

// UpdateSubject replaces a subject's editable fields
func (s *Service) UpdateSubject(ctx context.Context, id int64, in SubjectInput) (*models.Subject, error) {
	if err := validateSubject(in); err != nil {
		return nil, err
	}

	subject, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		return nil, services.MapRepositoryError(err, services.ErrSubjectNotFound, nil)
	}

	subject.Code = strings.TrimSpace(in.Code)
	subject.Name = strings.TrimSpace(in.Name)
	subject.Credits = in.Credits
	subject.AcademicYear = nil
	if in.AcademicYearID != nil {
		year, err := s.GetAcademicYear(ctx, *in.AcademicYearID)
		if err != nil {
			return nil, err
		}
		subject.AcademicYear = year
	}
	subject.UpdatedAt = s.now()

	if err := s.subjects.Update(ctx, subject); err != nil {
		return nil, services.MapRepositoryError(err, services.ErrSubjectNotFound, services.ErrDuplicateSubjectCode)
	}
	return subject, nil
}

// DeleteSubject removes a subject. Subjects that still have quizzes are rejected.
func (s *Service) DeleteSubject(ctx context.Context, id int64) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		return services.MapRepositoryError(err, services.ErrSubjectNotFound, services.ErrStillReferenced)
	}
	return nil
}

// CreateQuiz adds an unpublished quiz to a subject
func (s *Service) CreateQuiz(ctx context.Context, subjectID int64, in QuizInput) (*models.Quiz, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, services.Invalid("title", "title is required")
	}
	if in.MaxScore <= 0 {
		return nil, services.Invalid("max_score", "max score must be positive")
	}

	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, services.MapRepositoryError(err, services.ErrSubjectNotFound, nil)
	}

	now := s.now()
	quiz := &models.Quiz{
		Title:     strings.TrimSpace(in.Title),
		MaxScore:  in.MaxScore,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, q := range in.Questions {
		quiz.Questions = append(quiz.Questions, models.Question{Prompt: q.Prompt, Points: q.Points})
	}

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, services.MapRepositoryError(err, nil, nil)
	}
	return quiz, nil
}

// GetQuiz retrieves a quiz and its questions
func (s *Service) GetQuiz(ctx context.Context, id int64) (*models.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		return nil, services.MapRepositoryError(err, services.ErrQuizNotFound, nil)
	}
	return quiz, nil
}

// PublishQuiz makes a quiz visible. Publishing twice is rejected.
func (s *Service) PublishQuiz(ctx context.Context, id int64) (*models.Quiz, error) {
	quiz, err := s.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	if quiz.Published {
		return nil, services.ErrQuizPublished
	}

	quiz.Publish(s.now())
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return nil, services.MapRepositoryError(err, services.ErrQuizNotFound, nil)
	}
	return quiz, nil
}

// DeleteQuiz removes a quiz and its questions
func (s *Service) DeleteQuiz(ctx context.Context, id int64) error {
	if err := s.quizzes.Delete(ctx, id); err != nil {
		return services.MapRepositoryError(err, services.ErrQuizNotFound, services.ErrStillReferenced)
	}
	return nil
}

func validateSubject(in SubjectInput) error {
	switch {
	case strings.TrimSpace(in.Code) == "":
		return services.Invalid("code", "code is required")
	case strings.TrimSpace(in.Name) == "":
		return services.Invalid("name", "name is required")
	case in.Credits <= 0:
		return services.Invalid("credits", "credits must be positive")
	}
	return nil
}

func newSubject(in SubjectInput, now time.Time) *models.Subject {
	return &models.Subject{
		Code:      strings.TrimSpace(in.Code),
		Name:      strings.TrimSpace(in.Name),
		Credits:   in.Credits,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
