package pg

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"mop.org/internal/auth"
	"mop.org/internal/domain"
)

// IdentityStore implements auth.Store: roles, permissions and users.
type IdentityStore struct {
	s *Store
}

var _ auth.Store = (*IdentityStore)(nil)

// Identity returns the identity store view.
func (s *Store) Identity() *IdentityStore { return &IdentityStore{s: s} }

// roles

func (i *IdentityStore) CreateRole(ctx context.Context, role auth.Role) error {
	return i.s.inTx(ctx, func(tx *sql.Tx) error {
		insert := psql.Insert("roles").
			Columns("id", "name", "description", "is_active", "created_at", "updated_at").
			Values(role.ID, role.Name, role.Description, role.Active, role.CreatedAt, role.UpdatedAt)
		if _, err := exec(ctx, tx, insert); err != nil {
			return mapWriteError(err, "role", role.ID)
		}
		return writeRolePermissions(ctx, tx, role.ID, role.Permissions)
	})
}

func (i *IdentityStore) UpdateRole(ctx context.Context, role auth.Role) error {
	return i.s.inTx(ctx, func(tx *sql.Tx) error {
		update := psql.Update("roles").SetMap(map[string]any{
			"name":        role.Name,
			"description": role.Description,
			"is_active":   role.Active,
			"updated_at":  role.UpdatedAt,
		}).Where(sq.Eq{"id": role.ID})
		if err := execAffecting(ctx, tx, update, "role", role.ID); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, psql.Delete("role_permissions").Where(sq.Eq{"role_id": role.ID})); err != nil {
			return err
		}
		return writeRolePermissions(ctx, tx, role.ID, role.Permissions)
	})
}

func writeRolePermissions(ctx context.Context, tx *sql.Tx, roleID string, perms []string) error {
	if len(perms) == 0 {
		return nil
	}
	insert := psql.Insert("role_permissions").Columns("role_id", "permission_id", "position")
	for pos, p := range perms {
		insert = insert.Values(roleID, p, pos)
	}
	_, err := exec(ctx, tx, insert)
	return err
}

func (i *IdentityStore) DeleteRole(ctx context.Context, id string) error {
	return execAffecting(ctx, i.s.db, psql.Delete("roles").Where(sq.Eq{"id": id}), "role", id)
}

func (i *IdentityStore) FindRole(ctx context.Context, id string) (auth.Role, error) {
	roles, err := i.loadRoles(ctx, sq.Eq{"id": id})
	if err != nil {
		return auth.Role{}, err
	}
	if len(roles) == 0 {
		return auth.Role{}, domain.NotFound("role", id)
	}
	return roles[0], nil
}

func (i *IdentityStore) ListRoles(ctx context.Context) ([]auth.Role, error) {
	return i.loadRoles(ctx, nil)
}

func (i *IdentityStore) CountRolesGranting(ctx context.Context, permID string) (int, error) {
	var n int
	err := scanOne(ctx, i.s.db, psql.Select("count(distinct role_id)").From("role_permissions").
		Where(sq.Eq{"permission_id": permID}), &n)
	return n, err
}

func (i *IdentityStore) loadRoles(ctx context.Context, where sq.Sqlizer) ([]auth.Role, error) {
	b := psql.Select("id", "name", "description", "is_active", "created_at", "updated_at").
		From("roles").OrderBy("id")
	if where != nil {
		b = b.Where(where)
	}
	rows, err := query(ctx, i.s.db, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []auth.Role
		ids   []string
		index = make(map[string]int)
	)
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Permissions = []string{}
		index[r.ID] = len(out)
		ids = append(ids, r.ID)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []auth.Role{}, nil
	}

	grants, err := query(ctx, i.s.db, psql.Select("role_id", "permission_id").From("role_permissions").
		Where(sq.Eq{"role_id": ids}).OrderBy("role_id", "position"))
	if err != nil {
		return nil, err
	}
	defer grants.Close()
	for grants.Next() {
		var roleID, permID string
		if err := grants.Scan(&roleID, &permID); err != nil {
			return nil, err
		}
		idx := index[roleID]
		out[idx].Permissions = append(out[idx].Permissions, permID)
	}
	return out, grants.Err()
}

// permissions

var permissionColumns = []string{"id", "name", "description", "category", "is_active", "created_at", "updated_at"}

func (i *IdentityStore) CreatePermission(ctx context.Context, p auth.Permission) error {
	_, err := exec(ctx, i.s.db, psql.Insert("permissions").Columns(permissionColumns...).
		Values(p.ID, p.Name, p.Description, p.Category, p.Active, p.CreatedAt, p.UpdatedAt))
	return mapWriteError(err, "permission", p.ID)
}

func (i *IdentityStore) UpdatePermission(ctx context.Context, p auth.Permission) error {
	return execAffecting(ctx, i.s.db, psql.Update("permissions").SetMap(map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"is_active":   p.Active,
		"updated_at":  p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID}), "permission", p.ID)
}

func (i *IdentityStore) DeletePermission(ctx context.Context, id string) error {
	return execAffecting(ctx, i.s.db, psql.Delete("permissions").Where(sq.Eq{"id": id}), "permission", id)
}

func (i *IdentityStore) FindPermission(ctx context.Context, id string) (auth.Permission, error) {
	perms, err := i.listPermissions(ctx, sq.Eq{"id": id})
	if err != nil {
		return auth.Permission{}, err
	}
	if len(perms) == 0 {
		return auth.Permission{}, domain.NotFound("permission", id)
	}
	return perms[0], nil
}

func (i *IdentityStore) ListPermissions(ctx context.Context) ([]auth.Permission, error) {
	return i.listPermissions(ctx, nil)
}

func (i *IdentityStore) ListPermissionsByCategory(ctx context.Context, category string) ([]auth.Permission, error) {
	return i.listPermissions(ctx, sq.Eq{"category": category})
}

func (i *IdentityStore) listPermissions(ctx context.Context, where sq.Sqlizer) ([]auth.Permission, error) {
	b := psql.Select(permissionColumns...).From("permissions").OrderBy("id")
	if where != nil {
		b = b.Where(where)
	}
	rows, err := query(ctx, i.s.db, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []auth.Permission{}
	for rows.Next() {
		var p auth.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// users

var userColumns = []string{
	"id", "name", "email", "password_hash", "department", "phone", "status",
	"last_login", "notes", "created_at", "updated_at",
}

func (i *IdentityStore) CreateUser(ctx context.Context, u auth.User) error {
	return i.s.inTx(ctx, func(tx *sql.Tx) error {
		insert := psql.Insert("users").Columns(userColumns...).Values(
			u.ID, u.Name, u.Email, u.PasswordHash, u.Department, u.Phone, u.Status,
			u.LastLogin, u.Notes, u.CreatedAt, u.UpdatedAt,
		)
		if _, err := exec(ctx, tx, insert); err != nil {
			return userWriteError(err, u)
		}
		return writeUserRoles(ctx, tx, u.ID, u.RoleIDs)
	})
}

func (i *IdentityStore) UpdateUser(ctx context.Context, u auth.User) error {
	return i.s.inTx(ctx, func(tx *sql.Tx) error {
		update := psql.Update("users").SetMap(map[string]any{
			"name":          u.Name,
			"email":         u.Email,
			"password_hash": u.PasswordHash,
			"department":    u.Department,
			"phone":         u.Phone,
			"status":        u.Status,
			"last_login":    u.LastLogin,
			"notes":         u.Notes,
			"updated_at":    u.UpdatedAt,
		}).Where(sq.Eq{"id": u.ID})
		if err := execAffecting(ctx, tx, update, "user", u.ID); err != nil {
			return userWriteError(err, u)
		}
		if _, err := exec(ctx, tx, psql.Delete("user_roles").Where(sq.Eq{"user_id": u.ID})); err != nil {
			return err
		}
		return writeUserRoles(ctx, tx, u.ID, u.RoleIDs)
	})
}

func userWriteError(err error, u auth.User) error {
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return domain.Conflict("email %s is already registered", u.Email)
		}
		return domain.Conflict("user %s already exists", u.ID)
	}
	return err
}

func writeUserRoles(ctx context.Context, tx *sql.Tx, userID string, roleIDs []string) error {
	if len(roleIDs) == 0 {
		return nil
	}
	insert := psql.Insert("user_roles").Columns("user_id", "role_id", "position")
	for pos, r := range roleIDs {
		insert = insert.Values(userID, r, pos)
	}
	_, err := exec(ctx, tx, insert)
	return err
}

func (i *IdentityStore) DeleteUser(ctx context.Context, id string) error {
	return execAffecting(ctx, i.s.db, psql.Delete("users").Where(sq.Eq{"id": id}), "user", id)
}

func (i *IdentityStore) FindUser(ctx context.Context, id string) (auth.User, error) {
	return i.findUser(ctx, sq.Eq{"id": id}, id)
}

func (i *IdentityStore) FindUserByEmail(ctx context.Context, email string) (auth.User, error) {
	return i.findUser(ctx, sq.Eq{"email": email}, email)
}

func (i *IdentityStore) findUser(ctx context.Context, where sq.Sqlizer, key string) (auth.User, error) {
	users, err := i.loadUsers(ctx, where)
	if err != nil {
		return auth.User{}, err
	}
	if len(users) == 0 {
		return auth.User{}, domain.NotFound("user", key)
	}
	return users[0], nil
}

func (i *IdentityStore) ListUsers(ctx context.Context) ([]auth.User, error) {
	return i.loadUsers(ctx, nil)
}

func (i *IdentityStore) ListUsersByRole(ctx context.Context, roleID string) ([]auth.User, error) {
	return i.loadUsers(ctx, sq.Expr("id in (select user_id from user_roles where role_id = ?)", roleID))
}

func (i *IdentityStore) SearchUsers(ctx context.Context, keyword string) ([]auth.User, error) {
	pattern := containsPattern(keyword)
	return i.loadUsers(ctx, sq.Or{sq.ILike{"name": pattern}, sq.ILike{"email": pattern}})
}

func (i *IdentityStore) loadUsers(ctx context.Context, where sq.Sqlizer) ([]auth.User, error) {
	b := psql.Select(userColumns...).From("users").OrderBy("id")
	if where != nil {
		b = b.Where(where)
	}
	rows, err := query(ctx, i.s.db, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []auth.User
		ids   []string
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			u         auth.User
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Department, &u.Phone, &u.Status,
			&lastLogin, &u.Notes, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLogin = &t
		}
		u.RoleIDs = []string{}
		index[u.ID] = len(out)
		ids = append(ids, u.ID)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []auth.User{}, nil
	}

	held, err := query(ctx, i.s.db, psql.Select("user_id", "role_id").From("user_roles").
		Where(sq.Eq{"user_id": ids}).OrderBy("user_id", "position"))
	if err != nil {
		return nil, err
	}
	defer held.Close()
	for held.Next() {
		var userID, roleID string
		if err := held.Scan(&userID, &roleID); err != nil {
			return nil, err
		}
		idx := index[userID]
		out[idx].RoleIDs = append(out[idx].RoleIDs, roleID)
	}
	return out, held.Err()
}
