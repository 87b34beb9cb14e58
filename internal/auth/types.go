package auth

import (
	"slices"
	"time"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// Role groups permissions.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"is_active"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Grants reports whether the role's own set lists permID.
func (r Role) Grants(permID string) bool {
	return slices.Contains(r.Permissions, permID)
}

// Permission is a fine-grained capability.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is an officer account. PasswordHash never leaves the process.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleIDs      []string   `json:"role_ids"`
	Department   string     `json:"department,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Status       string     `json:"status"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasRole reports whether the user holds roleID.
func (u User) HasRole(roleID string) bool {
	return slices.Contains(u.RoleIDs, roleID)
}

// Active reports whether the user may sign in.
func (u User) Active() bool { return u.Status == UserStatusActive }

func (r Role) clone() Role {
	r.Permissions = slices.Clone(r.Permissions)
	return r
}

func (u User) clone() User {
	u.RoleIDs = slices.Clone(u.RoleIDs)
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}

// RoleInput carries caller-supplied role fields. An empty ID is generated.
type RoleInput struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Active      bool     `json:"is_active"`
	Permissions []string `json:"permissions"`
}

// PermissionInput carries caller-supplied permission fields. An empty ID is generated.
type PermissionInput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Active      bool   `json:"is_active"`
}

// UserInput carries caller-supplied user fields. On update an empty Password
// keeps the stored hash and a nil RoleIDs keeps the stored roles.
type UserInput struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	RoleIDs    []string `json:"role_ids"`
	Department string   `json:"department"`
	Phone      string   `json:"phone"`
	Status     string   `json:"status"`
	Notes      string   `json:"notes"`
}
