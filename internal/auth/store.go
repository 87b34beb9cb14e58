package auth

import "context"

// RoleStore manages roles together with their permission sets.
type RoleStore interface {
	CreateRole(ctx context.Context, role Role) error
	UpdateRole(ctx context.Context, role Role) error
	DeleteRole(ctx context.Context, id string) error
	FindRole(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	// CountRolesGranting counts roles whose permission set lists permID.
	CountRolesGranting(ctx context.Context, permID string) (int, error)
}

// PermissionStore manages the permission catalogue.
type PermissionStore interface {
	CreatePermission(ctx context.Context, perm Permission) error
	UpdatePermission(ctx context.Context, perm Permission) error
	DeletePermission(ctx context.Context, id string) error
	FindPermission(ctx context.Context, id string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListPermissionsByCategory(ctx context.Context, category string) ([]Permission, error)
}

// UserStore manages user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id string) error
	FindUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListUsersByRole(ctx context.Context, roleID string) ([]User, error)
	SearchUsers(ctx context.Context, keyword string) ([]User, error)
}

// Store is the identity store: roles, permissions and users.
//
// Lookups of a missing id return a domain.NotFoundError; creating a taken id
// or email returns a domain.ConflictError.
type Store interface {
	RoleStore
	PermissionStore
	UserStore
}
