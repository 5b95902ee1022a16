package models

import (
	"time"
)

// Entity is implemented by every persisted domain model
type Entity interface {
	EntityID() int64
}

// User represents an account on the platform (student, teacher or staff)
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash *string   `json:"-" db:"password_hash" audit:"-"` // managed by the identity provider
	Active       bool      `json:"active" db:"active"`
	Role         *Role     `json:"role,omitempty"`
	Subjects     []Subject `json:"subjects,omitempty"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// EntityID implements Entity
func (u *User) EntityID() int64 {
	return u.ID
}

// NewUser creates a new active User instance
func NewUser(name, email string, role *Role) *User {
	now := time.Now()
	return &User{
		Name:      name,
		Email:     email,
		Active:    true,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RoleID returns the id of the assigned role, if any
func (u *User) RoleID() *int64 {
	if u.Role == nil || u.Role.ID == 0 {
		return nil
	}
	id := u.Role.ID
	return &id
}

// IsAdmin returns true if the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role != nil && u.Role.Name == RoleAdmin
}
