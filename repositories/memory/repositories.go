package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
)

// NewRepositories builds a complete in-memory repository set seeded with the
// built-in roles. Intended for development and tests.
func NewRepositories() *repositories.Repositories {
	roles := NewRoleRepository(
		&models.Role{ID: 1, Name: models.RoleAdmin, Description: "Platform administrator"},
		&models.Role{ID: 2, Name: models.RoleTeacher, Description: "Teaches subjects"},
		&models.Role{ID: 3, Name: models.RoleStudent, Description: "Enrolled student"},
	)
	years := NewAcademicYearRepository()
	subjects := NewSubjectRepository(years)
	quizzes := NewQuizRepository(subjects)
	subjects.quizzes = quizzes

	return &repositories.Repositories{
		Users:         NewUserRepository(),
		Roles:         roles,
		AcademicYears: years,
		Subjects:      subjects,
		Quizzes:       quizzes,
		AuditEvents:   NewAuditRepository(),
	}
}

// UserRepository stores users in memory. E-mail addresses are unique.
type UserRepository struct {
	store *entityStore[*models.User]
}

// NewUserRepository creates an empty user store
func NewUserRepository() *UserRepository {
	return &UserRepository{store: newEntityStore("user",
		func(u *models.User, id int64) { u.ID = id },
		func(u *models.User) *models.User {
			c := *u
			if u.Role != nil {
				role := *u.Role
				c.Role = &role
			}
			c.Subjects = nil
			return &c
		})}
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func uniqueEmail(u *models.User, others []*models.User) error {
	for _, other := range others {
		if strings.EqualFold(other.Email, u.Email) {
			return fmt.Errorf("email %s: %w", u.Email, repositories.ErrConflict)
		}
	}
	return nil
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	return r.store.create(user, uniqueEmail)
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	return r.store.get(id)
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	users := r.store.list(0, 0, func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, repositories.ErrNotFound)
	}
	return users[0], nil
}

func (r *UserRepository) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	return r.store.list(limit, offset, nil), nil
}

func (r *UserRepository) Update(_ context.Context, user *models.User) error {
	return r.store.update(user, uniqueEmail)
}

func (r *UserRepository) Delete(_ context.Context, id int64) error {
	return r.store.delete(id, nil)
}

// RoleRepository serves a fixed set of roles
type RoleRepository struct {
	roles []*models.Role
}

// NewRoleRepository creates a role store holding roles
func NewRoleRepository(roles ...*models.Role) *RoleRepository {
	return &RoleRepository{roles: roles}
}

var _ repositories.RoleRepository = (*RoleRepository)(nil)

func (r *RoleRepository) GetByID(_ context.Context, id int64) (*models.Role, error) {
	for _, role := range r.roles {
		if role.ID == id {
			c := *role
			return &c, nil
		}
	}
	return nil, fmt.Errorf("role %d: %w", id, repositories.ErrNotFound)
}

func (r *RoleRepository) GetByName(_ context.Context, name string) (*models.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			c := *role
			return &c, nil
		}
	}
	return nil, fmt.Errorf("role %s: %w", name, repositories.ErrNotFound)
}

// AcademicYearRepository stores academic years in memory
type AcademicYearRepository struct {
	store *entityStore[*models.AcademicYear]
}

// NewAcademicYearRepository creates an empty academic year store
func NewAcademicYearRepository() *AcademicYearRepository {
	return &AcademicYearRepository{store: newEntityStore("academic year",
		func(y *models.AcademicYear, id int64) { y.ID = id },
		func(y *models.AcademicYear) *models.AcademicYear { c := *y; return &c })}
}

var _ repositories.AcademicYearRepository = (*AcademicYearRepository)(nil)

func (r *AcademicYearRepository) Create(_ context.Context, year *models.AcademicYear) error {
	return r.store.create(year)
}

func (r *AcademicYearRepository) GetByID(_ context.Context, id int64) (*models.AcademicYear, error) {
	return r.store.get(id)
}

func (r *AcademicYearRepository) List(_ context.Context, limit, offset int) ([]*models.AcademicYear, error) {
	return r.store.list(limit, offset, nil), nil
}

func (r *AcademicYearRepository) Update(_ context.Context, year *models.AcademicYear) error {
	return r.store.update(year)
}

func (r *AcademicYearRepository) Delete(_ context.Context, id int64) error {
	return r.store.delete(id, nil)
}

// SubjectRepository stores subjects in memory. Codes are unique and subjects
// with quizzes cannot be deleted.
type SubjectRepository struct {
	store   *entityStore[*models.Subject]
	years   *AcademicYearRepository
	quizzes *QuizRepository
}

// NewSubjectRepository creates an empty subject store referencing years
func NewSubjectRepository(years *AcademicYearRepository) *SubjectRepository {
	return &SubjectRepository{
		years: years,
		store: newEntityStore("subject",
			func(s *models.Subject, id int64) { s.ID = id },
			func(s *models.Subject) *models.Subject {
				c := *s
				if s.AcademicYear != nil {
					year := *s.AcademicYear
					c.AcademicYear = &year
				}
				c.Quizzes = nil
				return &c
			}),
	}
}

var _ repositories.SubjectRepository = (*SubjectRepository)(nil)

func uniqueCode(s *models.Subject, others []*models.Subject) error {
	for _, other := range others {
		if other.Code == s.Code {
			return fmt.Errorf("subject code %s: %w", s.Code, repositories.ErrConflict)
		}
	}
	return nil
}

func (r *SubjectRepository) yearExists(s *models.Subject, _ []*models.Subject) error {
	if id := s.AcademicYearID(); id != nil && !r.years.store.exists(*id) {
		return fmt.Errorf("academic year %d: %w", *id, repositories.ErrConflict)
	}
	return nil
}

func (r *SubjectRepository) Create(_ context.Context, subject *models.Subject) error {
	return r.store.create(subject, uniqueCode, r.yearExists)
}

func (r *SubjectRepository) GetByID(_ context.Context, id int64) (*models.Subject, error) {
	return r.store.get(id)
}

func (r *SubjectRepository) List(_ context.Context, limit, offset int) ([]*models.Subject, error) {
	return r.store.list(limit, offset, nil), nil
}

func (r *SubjectRepository) ListByAcademicYear(_ context.Context, academicYearID int64) ([]*models.Subject, error) {
	return r.store.list(0, 0, func(s *models.Subject) bool {
		id := s.AcademicYearID()
		return id != nil && *id == academicYearID
	}), nil
}

func (r *SubjectRepository) Update(_ context.Context, subject *models.Subject) error {
	return r.store.update(subject, uniqueCode, r.yearExists)
}

func (r *SubjectRepository) Delete(_ context.Context, id int64) error {
	return r.store.delete(id, func(*models.Subject) error {
		if r.quizzes != nil && r.quizzes.countBySubject(id) > 0 {
			return fmt.Errorf("subject %d has quizzes: %w", id, repositories.ErrConflict)
		}
		return nil
	})
}

// QuizRepository stores quizzes and their questions in memory
type QuizRepository struct {
	store    *entityStore[*models.Quiz]
	subjects *SubjectRepository
}

// NewQuizRepository creates an empty quiz store referencing subjects
func NewQuizRepository(subjects *SubjectRepository) *QuizRepository {
	return &QuizRepository{
		subjects: subjects,
		store: newEntityStore("quiz",
			func(q *models.Quiz, id int64) { q.ID = id },
			func(q *models.Quiz) *models.Quiz {
				c := *q
				if q.Subject != nil {
					subject := *q.Subject
					subject.Quizzes = nil
					c.Subject = &subject
				}
				if q.PublishedAt != nil {
					at := *q.PublishedAt
					c.PublishedAt = &at
				}
				c.Questions = append([]models.Question(nil), q.Questions...)
				return &c
			}),
	}
}

var _ repositories.QuizRepository = (*QuizRepository)(nil)

// subjectExists runs outside the quiz lock; SubjectRepository.Delete reads
// quizzes while holding the subject lock.
func (r *QuizRepository) subjectExists(q *models.Quiz) error {
	id := q.SubjectID()
	if id == nil {
		return fmt.Errorf("quiz without subject: %w", repositories.ErrConflict)
	}
	if r.subjects != nil && !r.subjects.store.exists(*id) {
		return fmt.Errorf("subject %d: %w", *id, repositories.ErrConflict)
	}
	return nil
}

func (r *QuizRepository) Create(_ context.Context, quiz *models.Quiz) error {
	if err := r.subjectExists(quiz); err != nil {
		return err
	}
	return r.store.create(quiz)
}

func (r *QuizRepository) GetByID(_ context.Context, id int64) (*models.Quiz, error) {
	return r.store.get(id)
}

func (r *QuizRepository) List(_ context.Context, limit, offset int) ([]*models.Quiz, error) {
	return r.store.list(limit, offset, nil), nil
}

func (r *QuizRepository) ListBySubject(_ context.Context, subjectID int64) ([]*models.Quiz, error) {
	return r.store.list(0, 0, func(q *models.Quiz) bool {
		id := q.SubjectID()
		return id != nil && *id == subjectID
	}), nil
}

func (r *QuizRepository) Update(_ context.Context, quiz *models.Quiz) error {
	if err := r.subjectExists(quiz); err != nil {
		return err
	}
	return r.store.update(quiz)
}

func (r *QuizRepository) Delete(_ context.Context, id int64) error {
	return r.store.delete(id, nil)
}

func (r *QuizRepository) countBySubject(subjectID int64) int {
	quizzes, _ := r.ListBySubject(context.Background(), subjectID)
	return len(quizzes)
}
