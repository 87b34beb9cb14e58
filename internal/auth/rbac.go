package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"mop.org/internal/clock"
	"mop.org/internal/domain"
	"mop.org/internal/ids"
)

// RBACService manages roles and the permission catalogue.
type RBACService struct {
	store        Store
	clock        clock.Clock
	guardDeletes bool
	logger       *slog.Logger
}

// RBACOption configures RBACService behavior.
type RBACOption func(*RBACService)

// WithRBACClock overrides the time source used for timestamps and generated ids.
func WithRBACClock(c clock.Clock) RBACOption {
	return func(s *RBACService) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithGuardedDeletes refuses to delete roles held by users and permissions
// granted by roles.
func WithGuardedDeletes(on bool) RBACOption {
	return func(s *RBACService) { s.guardDeletes = on }
}

// WithRBACLogger sets the logger.
func WithRBACLogger(l *slog.Logger) RBACOption {
	return func(s *RBACService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewRBACService(store Store, opts ...RBACOption) (*RBACService, error) {
	if store == nil {
		return nil, errors.New("rbac store is required")
	}
	s := &RBACService{store: store, clock: clock.System(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RBACService) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

func (s *RBACService) ListActiveRoles(ctx context.Context) ([]Role, error) {
	all, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *RBACService) GetRole(ctx context.Context, id string) (Role, error) {
	return s.store.FindRole(ctx, strings.TrimSpace(id))
}

func (s *RBACService) CreateRole(ctx context.Context, in RoleInput) (Role, error) {
	now := s.clock.Now()
	perms, err := s.checkPermissions(ctx, in.Permissions)
	if err != nil {
		return Role{}, err
	}
	role := Role{
		ID:          strings.TrimSpace(in.ID),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Active:      in.Active,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if role.Name == "" {
		return Role{}, domain.Invalid("name", "is required")
	}
	if role.ID == "" {
		role.ID = ids.Prefixed("role", now)
	}
	if err := s.store.CreateRole(ctx, role); err != nil {
		return Role{}, err
	}
	s.logger.InfoContext(ctx, "role created", "role_id", role.ID, "permissions", len(role.Permissions))
	return role, nil
}

// UpdateRole overwrites name, description and active flag. A nil permission
// list keeps the stored set.
func (s *RBACService) UpdateRole(ctx context.Context, id string, in RoleInput) (Role, error) {
	role, err := s.store.FindRole(ctx, strings.TrimSpace(id))
	if err != nil {
		return Role{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, domain.Invalid("name", "is required")
	}
	role.Name = name
	role.Description = strings.TrimSpace(in.Description)
	role.Active = in.Active
	if in.Permissions != nil {
		perms, err := s.checkPermissions(ctx, in.Permissions)
		if err != nil {
			return Role{}, err
		}
		role.Permissions = perms
	}
	role.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateRole(ctx, role); err != nil {
		return Role{}, err
	}
	return role, nil
}

func (s *RBACService) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if _, err := s.store.FindRole(ctx, id); err != nil {
		return err
	}
	if s.guardDeletes {
		holders, err := s.store.ListUsersByRole(ctx, id)
		if err != nil {
			return err
		}
		if len(holders) > 0 {
			return domain.Conflict("role %s is held by %d user(s)", id, len(holders))
		}
	}
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "role deleted", "role_id", id)
	return nil
}

func (s *RBACService) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

func (s *RBACService) ListActivePermissions(ctx context.Context) ([]Permission, error) {
	all, err := s.store.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListPermissionsByCategory matches category exactly.
func (s *RBACService) ListPermissionsByCategory(ctx context.Context, category string) ([]Permission, error) {
	return s.store.ListPermissionsByCategory(ctx, category)
}

func (s *RBACService) GetPermission(ctx context.Context, id string) (Permission, error) {
	return s.store.FindPermission(ctx, strings.TrimSpace(id))
}

func (s *RBACService) CreatePermission(ctx context.Context, in PermissionInput) (Permission, error) {
	now := s.clock.Now()
	p := Permission{
		ID:          strings.TrimSpace(in.ID),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Active:      in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Name == "" {
		return Permission{}, domain.Invalid("name", "is required")
	}
	if p.ID == "" {
		p.ID = ids.Prefixed("perm", now)
	}
	if err := s.store.CreatePermission(ctx, p); err != nil {
		return Permission{}, err
	}
	s.logger.InfoContext(ctx, "permission created", "permission_id", p.ID, "category", p.Category)
	return p, nil
}

func (s *RBACService) UpdatePermission(ctx context.Context, id string, in PermissionInput) (Permission, error) {
	p, err := s.store.FindPermission(ctx, strings.TrimSpace(id))
	if err != nil {
		return Permission{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Permission{}, domain.Invalid("name", "is required")
	}
	p.Name = name
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.TrimSpace(in.Category)
	p.Active = in.Active
	p.UpdatedAt = s.clock.Now()
	if err := s.store.UpdatePermission(ctx, p); err != nil {
		return Permission{}, err
	}
	return p, nil
}

func (s *RBACService) DeletePermission(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if _, err := s.store.FindPermission(ctx, id); err != nil {
		return err
	}
	if s.guardDeletes {
		n, err := s.store.CountRolesGranting(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflict("permission %s is granted by %d role(s)", id, n)
		}
	}
	if err := s.store.DeletePermission(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "permission deleted", "permission_id", id)
	return nil
}

// checkPermissions dedupes ids and rejects any that are not in the catalogue.
func (s *RBACService) checkPermissions(ctx context.Context, permIDs []string) ([]string, error) {
	clean := dedupeStrings(permIDs)
	var v domain.Validator
	for _, id := range clean {
		_, err := s.store.FindPermission(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			v.Check(false, "permissions", "unknown permission "+id)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if clean == nil {
		clean = []string{}
	}
	return clean, nil
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
