package models

import "time"

// Well-known role names
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Permission is a named capability granted through roles
type Permission struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Role groups permissions. Assignment logic lives outside this service.
type Role struct {
	ID          int64        `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Role model
func (Role) TableName() string {
	return "roles"
}

// EntityID implements Entity
func (r *Role) EntityID() int64 {
	return r.ID
}

// AuditIdentifier returns the identifier used in audit events
func (r *Role) AuditIdentifier() any {
	if r.ID == 0 {
		return nil
	}
	return r.ID
}

// AuditSnapshot returns the attributes recorded in audit events.
// Snapshots hold scalars only, so permissions are reduced to a count.
func (r *Role) AuditSnapshot() map[string]any {
	return map[string]any{
		"id":               r.ID,
		"name":             r.Name,
		"description":      r.Description,
		"permission_count": len(r.Permissions),
	}
}

// HasPermission reports whether the role grants the named permission
func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}
