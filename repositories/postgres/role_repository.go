package postgres

import (
	"context"
	"fmt"

	"github.com/upb/lms-backend/models"
	"github.com/upb/lms-backend/repositories"
	"go.uber.org/zap"
)

// RoleRepository implements the repositories.RoleRepository interface
type RoleRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB, logger *zap.Logger) repositories.RoleRepository {
	return &RoleRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a role and its permissions by ID
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByName retrieves a role and its permissions by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return r.get(ctx, `WHERE name = $1`, name)
}

func (r *RoleRepository) get(ctx context.Context, where string, key interface{}) (*models.Role, error) {
	executor := GetExecutor(ctx, r.db)

	role := &models.Role{}
	err := executor.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM roles `+where, key,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		return nil, wrapReadError("role", key, err)
	}

	rows, err := executor.QueryContext(ctx, `
		SELECT p.id, p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`, role.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		role.Permissions = append(role.Permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permission rows: %w", err)
	}

	return role, nil
}
