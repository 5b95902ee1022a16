package repositories

import (
	"context"
	"errors"

	"github.com/upb/lms-backend/models"
)

// ErrNotFound is returned (wrapped) when a row does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned (wrapped) when a write violates a unique or foreign key constraint
var ErrConflict = errors.New("conflict")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Commits if the function succeeds, rolls back on error or panic.
	// The context passed to fn carries the transaction.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction and then runs the after-commit hooks
	Commit() error

	// Rollback rolls back the transaction and discards the after-commit hooks
	Rollback() error

	// Context returns the context the transaction was started with
	Context() context.Context

	// AfterCommit registers fn to run once the transaction has committed.
	// Hooks run in registration order and never run after a rollback.
	AfterCommit(fn func(ctx context.Context))
}

type transactionContextKey struct{}

// ContextWithTransaction returns a context carrying tx
func ContextWithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, tx)
}

// TransactionFromContext retrieves a transaction from the context if available
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(transactionContextKey{}).(Transaction)
	return tx, ok
}

// EntityRepository is the CRUD surface shared by every domain entity store
type EntityRepository[E models.Entity] interface {
	// Create inserts the entity and assigns its ID
	Create(ctx context.Context, entity E) error

	// GetByID retrieves an entity by ID
	GetByID(ctx context.Context, id int64) (E, error)

	// List retrieves entities with pagination
	List(ctx context.Context, limit, offset int) ([]E, error)

	// Update updates an entity
	Update(ctx context.Context, entity E) error

	// Delete deletes an entity by ID
	Delete(ctx context.Context, id int64) error
}

// UserRepository handles user data operations
type UserRepository interface {
	EntityRepository[*models.User]

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// RoleRepository handles role lookups. Roles are managed outside this service.
type RoleRepository interface {
	// GetByID retrieves a role and its permissions by ID
	GetByID(ctx context.Context, id int64) (*models.Role, error)

	// GetByName retrieves a role and its permissions by name
	GetByName(ctx context.Context, name string) (*models.Role, error)
}

// AcademicYearRepository handles academic year data operations
type AcademicYearRepository interface {
	EntityRepository[*models.AcademicYear]
}

// SubjectRepository handles subject data operations
type SubjectRepository interface {
	EntityRepository[*models.Subject]

	// ListByAcademicYear retrieves the subjects of an academic year
	ListByAcademicYear(ctx context.Context, academicYearID int64) ([]*models.Subject, error)
}

// QuizRepository handles quiz data operations
type QuizRepository interface {
	EntityRepository[*models.Quiz]

	// ListBySubject retrieves the quizzes of a subject
	ListBySubject(ctx context.Context, subjectID int64) ([]*models.Quiz, error)
}

// AuditRepository handles audit event persistence. Events are append-only.
type AuditRepository interface {
	// Insert appends an event and assigns its ID and CreatedAt.
	// Writes never join the caller's transaction.
	Insert(ctx context.Context, event *models.AuditEvent) error

	// GetByID retrieves an audit event by ID
	GetByID(ctx context.Context, id int64) (*models.AuditEvent, error)

	// Query retrieves one page of events matching the filter, oldest first
	Query(ctx context.Context, filter models.AuditFilter, page models.PageRequest) (*models.AuditPage, error)

	// Recent retrieves the newest events, newest first
	Recent(ctx context.Context, limit int) ([]*models.AuditEvent, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users         UserRepository
	Roles         RoleRepository
	AcademicYears AcademicYearRepository
	Subjects      SubjectRepository
	Quizzes       QuizRepository
	AuditEvents   AuditRepository
}
