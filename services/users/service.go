package users

import (
	"context"
	"strings"
	"time"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"github.com/upb/lms-backend/services"
	"github.com/upb/lms-backend/services/audit"
	"github.com/upb/lms-backend/utils"
	"go.uber.org/zap"
)

// CreateUserRequest describes a new account
type CreateUserRequest struct {
	Name  string
	Email string
	Role  string
}

// UpdateUserRequest carries the fields to change. Nil fields are left as is.
type UpdateUserRequest struct {
	Name   *string
	Email  *string
	Role   *string
	Active *bool
}

// Service manages user accounts. Credentials belong to the identity provider.
type Service struct {
	users  *audit.Tracked[*models.User]
	lookup repositories.UserRepository
	roles  repositories.RoleRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a user service whose writes are audited through recorder
func NewService(users repositories.UserRepository, roles repositories.RoleRepository, recorder audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		users:  audit.NewTracked[*models.User](users, recorder),
		lookup: users,
		roles:  roles,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser creates an active user with the named role
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, services.Invalid("name", "name is required")
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	role, err := s.role(ctx, req.Role)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(name, email, role)
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	if err := s.users.Create(ctx, user); err != nil {
		return nil, services.MapRepositoryError(err, nil, services.ErrDuplicateEmail)
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID))
	return user, nil
}

// GetUser retrieves a user and their role
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, services.MapRepositoryError(err, services.ErrUserNotFound, nil)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by e-mail address
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.lookup.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, services.MapRepositoryError(err, services.ErrUserNotFound, nil)
	}
	return user, nil
}

// ListUsers lists users
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, services.MapRepositoryError(err, nil, nil)
	}
	return users, nil
}

// UpdateUser applies the set fields of req
func (s *Service) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, services.Invalid("name", "name is required")
		}
		user.Name = name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if req.Role != nil {
		role, err := s.role(ctx, *req.Role)
		if err != nil {
			return nil, err
		}
		user.Role = role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, services.MapRepositoryError(err, services.ErrUserNotFound, services.ErrDuplicateEmail)
	}
	return user, nil
}

// DeleteUser removes a user. Users still referenced elsewhere are rejected.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return services.MapRepositoryError(err, services.ErrUserNotFound, services.ErrStillReferenced)
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

// role resolves a role name. An empty name means no role.
func (s *Service) role(ctx context.Context, name string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	role, err := s.roles.GetByName(ctx, name)
	if err != nil {
		mapped := services.MapRepositoryError(err, services.ErrRoleNotFound, nil)
		if services.IsNotFoundError(mapped) {
			return nil, services.Invalid("role", "unknown role "+name)
		}
		return nil, mapped
	}
	return role, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := utils.ValidateEmail(email); err != nil {
		return "", services.Invalid("email", "invalid email format")
	}
	return email, nil
}
