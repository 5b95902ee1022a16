package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

const userSelect = `
	SELECT u.id, u.name, u.email, u.password_hash, u.active, u.created_at, u.updated_at,
	       r.id, r.name, r.description
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id
`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user and assigns its ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, active, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Active,
		nullableID(user.RoleID()),
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return wrapWriteError("create user", err)
	}

	r.logger.Debug("user created", zap.Int64("id", user.ID), zap.String("email", user.Email))
	return nil
}

// GetByID retrieves a user and its role by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, userSelect+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, wrapReadError("user", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, userSelect+` WHERE u.email = $1`, email))
	if err != nil {
		return nil, wrapReadError("user", email, err)
	}
	return user, nil
}

// List retrieves users with pagination
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, userSelect+` ORDER BY u.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2,
		    email = $3,
		    active = $4,
		    role_id = $5,
		    updated_at = $6
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Active,
		nullableID(user.RoleID()),
		user.UpdatedAt,
	)
	if err != nil {
		return wrapWriteError("update user", err)
	}
	if err := checkAffected(result, "user", user.ID); err != nil {
		return err
	}

	r.logger.Debug("user updated", zap.Int64("id", user.ID))
	return nil
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrapWriteError("delete user", err)
	}
	if err := checkAffected(result, "user", id); err != nil {
		return err
	}

	r.logger.Debug("user deleted", zap.Int64("id", id))
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var (
		roleID          sql.NullInt64
		roleName        sql.NullString
		roleDescription sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
		&roleID,
		&roleName,
		&roleDescription,
	)
	if err != nil {
		return nil, err
	}
	if roleID.Valid {
		user.Role = &models.Role{ID: roleID.Int64, Name: roleName.String, Description: roleDescription.String}
	}
	return user, nil
}
