package auth

import (
	"context"
	"errors"
	"strings"

	"mop.org/internal/domain"
)

const (
	DefaultAdminRoleID          = "admin"
	DefaultWildcardPermissionID = "all_modules"
)

// RoleFinder is the slice of the identity store the resolver reads.
type RoleFinder interface {
	FindRole(ctx context.Context, id string) (Role, error)
}

// CheckObserver is notified of every permission decision.
type CheckObserver interface {
	PermissionChecked(permID string, allowed bool)
}

// Resolver answers "may this role do that". It never caches roles, so every
// decision reflects the store at call time.
type Resolver struct {
	roles    RoleFinder
	adminID  string
	wildcard string
	observer CheckObserver
}

// ResolverOption configures Resolver behavior.
type ResolverOption func(*Resolver)

// WithAdminRole overrides the always-authorized role id.
func WithAdminRole(id string) ResolverOption {
	return func(r *Resolver) {
		if id = strings.TrimSpace(id); id != "" {
			r.adminID = id
		}
	}
}

// WithWildcardPermission overrides the permission id that grants everything.
func WithWildcardPermission(id string) ResolverOption {
	return func(r *Resolver) {
		if id = strings.TrimSpace(id); id != "" {
			r.wildcard = id
		}
	}
}

// WithCheckObserver registers an observer of permission decisions.
func WithCheckObserver(o CheckObserver) ResolverOption {
	return func(r *Resolver) { r.observer = o }
}

// NewResolver builds a Resolver over roles.
func NewResolver(roles RoleFinder, opts ...ResolverOption) *Resolver {
	r := &Resolver{roles: roles, adminID: DefaultAdminRoleID, wildcard: DefaultWildcardPermissionID}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AdminRoleID returns the configured admin role id.
func (r *Resolver) AdminRoleID() string { return r.adminID }

// WildcardPermissionID returns the configured wildcard permission id.
func (r *Resolver) WildcardPermissionID() string { return r.wildcard }

// HasPermission reports whether roleID grants permID. An unknown role grants
// nothing. The admin role grants everything, and so does a role holding the
// wildcard permission. An unknown permID is simply not matched.
func (r *Resolver) HasPermission(ctx context.Context, roleID, permID string) (bool, error) {
	allowed, err := r.hasPermission(ctx, roleID, permID)
	if err != nil {
		return false, err
	}
	if r.observer != nil {
		r.observer.PermissionChecked(permID, allowed)
	}
	return allowed, nil
}

func (r *Resolver) hasPermission(ctx context.Context, roleID, permID string) (bool, error) {
	role, err := r.roles.FindRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if role.ID == r.adminID {
		return true, nil
	}
	return role.Grants(permID) || role.Grants(r.wildcard), nil
}

// PrincipalHasPermission evaluates the union over roleIDs.
func (r *Resolver) PrincipalHasPermission(ctx context.Context, roleIDs []string, permID string) (bool, error) {
	for _, id := range roleIDs {
		ok, err := r.hasPermission(ctx, id, permID)
		if err != nil {
			return false, err
		}
		if ok {
			if r.observer != nil {
				r.observer.PermissionChecked(permID, true)
			}
			return true, nil
		}
	}
	if r.observer != nil {
		r.observer.PermissionChecked(permID, false)
	}
	return false, nil
}

// Permissions lists the effective permission ids of roleIDs. Admin and
// wildcard holders get the whole catalogue.
func (r *Resolver) Permissions(ctx context.Context, roleIDs []string, catalogue PermissionStore) ([]string, error) {
	set := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if _, ok := set[id]; !ok {
			set[id] = struct{}{}
			out = append(out, id)
		}
	}
	everything := false
	for _, id := range roleIDs {
		role, err := r.roles.FindRole(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if role.ID == r.adminID || role.Grants(r.wildcard) {
			everything = true
		}
		for _, p := range role.Permissions {
			add(p)
		}
	}
	if everything && catalogue != nil {
		all, err := catalogue.ListPermissions(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			add(p.ID)
		}
	}
	return out, nil
}
