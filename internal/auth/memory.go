package auth

import (
	"context"
	"sort"
	"strings"
	"sync"

	textcases "golang.org/x/text/cases"

	"mop.org/internal/domain"
)

// InMemory is a thread-safe identity Store. Listings are ordered by id.
type InMemory struct {
	mu          sync.RWMutex
	roles       map[string]Role
	permissions map[string]Permission
	users       map[string]User
}

var _ Store = (*InMemory)(nil)

// NewInMemory returns an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		roles:       make(map[string]Role),
		permissions: make(map[string]Permission),
		users:       make(map[string]User),
	}
}

func (m *InMemory) CreateRole(_ context.Context, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.ID]; ok {
		return domain.Conflict("role %s already exists", role.ID)
	}
	m.roles[role.ID] = role.clone()
	return nil
}

func (m *InMemory) UpdateRole(_ context.Context, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.ID]; !ok {
		return domain.NotFound("role", role.ID)
	}
	m.roles[role.ID] = role.clone()
	return nil
}

func (m *InMemory) DeleteRole(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return domain.NotFound("role", id)
	}
	delete(m.roles, id)
	return nil
}

func (m *InMemory) FindRole(_ context.Context, id string) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, domain.NotFound("role", id)
	}
	return r.clone(), nil
}

func (m *InMemory) ListRoles(_ context.Context) ([]Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *InMemory) CountRolesGranting(_ context.Context, permID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.roles {
		if r.Grants(permID) {
			n++
		}
	}
	return n, nil
}

func (m *InMemory) CreatePermission(_ context.Context, p Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[p.ID]; ok {
		return domain.Conflict("permission %s already exists", p.ID)
	}
	m.permissions[p.ID] = p
	return nil
}

func (m *InMemory) UpdatePermission(_ context.Context, p Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[p.ID]; !ok {
		return domain.NotFound("permission", p.ID)
	}
	m.permissions[p.ID] = p
	return nil
}

func (m *InMemory) DeletePermission(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[id]; !ok {
		return domain.NotFound("permission", id)
	}
	delete(m.permissions, id)
	return nil
}

func (m *InMemory) FindPermission(_ context.Context, id string) (Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.permissions[id]
	if !ok {
		return Permission{}, domain.NotFound("permission", id)
	}
	return p, nil
}

func (m *InMemory) ListPermissions(_ context.Context) ([]Permission, error) {
	return m.filterPermissions(func(Permission) bool { return true }), nil
}

func (m *InMemory) ListPermissionsByCategory(_ context.Context, category string) ([]Permission, error) {
	return m.filterPermissions(func(p Permission) bool { return p.Category == category }), nil
}

func (m *InMemory) filterPermissions(keep func(Permission) bool) []Permission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *InMemory) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return domain.Conflict("user %s already exists", u.ID)
	}
	if m.emailTakenLocked(u.Email, "") {
		return domain.Conflict("email %s is already registered", u.Email)
	}
	m.users[u.ID] = u.clone()
	return nil
}

func (m *InMemory) UpdateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return domain.NotFound("user", u.ID)
	}
	if m.emailTakenLocked(u.Email, u.ID) {
		return domain.Conflict("email %s is already registered", u.Email)
	}
	m.users[u.ID] = u.clone()
	return nil
}

func (m *InMemory) emailTakenLocked(email, exceptID string) bool {
	for id, other := range m.users {
		if id != exceptID && other.Email == email {
			return true
		}
	}
	return false
}

func (m *InMemory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

func (m *InMemory) FindUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, domain.NotFound("user", id)
	}
	return u.clone(), nil
}

func (m *InMemory) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u.clone(), nil
		}
	}
	return User{}, domain.NotFound("user", email)
}

func (m *InMemory) ListUsers(_ context.Context) ([]User, error) {
	return m.filterUsers(func(User) bool { return true }), nil
}

func (m *InMemory) ListUsersByRole(_ context.Context, roleID string) ([]User, error) {
	return m.filterUsers(func(u User) bool { return u.HasRole(roleID) }), nil
}

func (m *InMemory) SearchUsers(_ context.Context, keyword string) ([]User, error) {
	fold := textcases.Fold()
	needle := fold.String(keyword)
	return m.filterUsers(func(u User) bool {
		return strings.Contains(fold.String(u.Name), needle) || strings.Contains(fold.String(u.Email), needle)
	}), nil
}

func (m *InMemory) filterUsers(keep func(User) bool) []User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		if keep(u) {
			out = append(out, u.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
