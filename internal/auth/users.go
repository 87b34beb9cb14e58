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

// UserService manages officer accounts.
type UserService struct {
	store       Store
	clock       clock.Clock
	adminRoleID string
	logger      *slog.Logger
}

// UserOption configures UserService behavior.
type UserOption func(*UserService)

func WithUserClock(c clock.Clock) UserOption {
	return func(s *UserService) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithProtectedRole names the role whose active holders cannot be deactivated.
func WithProtectedRole(roleID string) UserOption {
	return func(s *UserService) {
		if roleID = strings.TrimSpace(roleID); roleID != "" {
			s.adminRoleID = roleID
		}
	}
}

func WithUserLogger(l *slog.Logger) UserOption {
	return func(s *UserService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewUserService(store Store, opts ...UserOption) (*UserService, error) {
	if store == nil {
		return nil, errors.New("user store is required")
	}
	s := &UserService{store: store, clock: clock.System(), adminRoleID: DefaultAdminRoleID, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateUser registers an account. The email is unique and stored lower-cased.
func (s *UserService) CreateUser(ctx context.Context, in UserInput) (User, error) {
	now := s.clock.Now()
	u := User{
		ID:         strings.TrimSpace(in.ID),
		Name:       strings.TrimSpace(in.Name),
		Email:      normalizeEmail(in.Email),
		Department: in.Department,
		Phone:      in.Phone,
		Status:     strings.ToLower(strings.TrimSpace(in.Status)),
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	var v domain.Validator
	v.Check(u.Email != "" && strings.Contains(u.Email, "@"), "email", "valid email is required")
	v.Check(strings.TrimSpace(in.Password) != "", "password", "is required")
	v.Check(validStatus(u.Status), "status", "must be active or inactive")
	if err := v.Err(); err != nil {
		return User{}, err
	}
	roleIDs, err := s.checkRoles(ctx, in.RoleIDs)
	if err != nil {
		return User{}, err
	}
	u.RoleIDs = roleIDs

	if _, err := s.store.FindUserByEmail(ctx, u.Email); err == nil {
		return User{}, domain.Conflict("email %s is already registered", u.Email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = hash
	if u.ID == "" {
		u.ID = "USR" + ids.At(now)
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	s.logger.InfoContext(ctx, "user created", "user_id", u.ID, "roles", strings.Join(u.RoleIDs, ","))
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (User, error) {
	return s.store.FindUser(ctx, strings.TrimSpace(id))
}

// GetUserByEmail looks a user up by case-insensitive email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.store.FindUserByEmail(ctx, normalizeEmail(email))
}

func (s *UserService) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) ListUsersByRole(ctx context.Context, roleID string) ([]User, error) {
	return s.store.ListUsersByRole(ctx, strings.TrimSpace(roleID))
}

// SearchUsers matches keyword against name and email, ignoring case.
func (s *UserService) SearchUsers(ctx context.Context, keyword string) ([]User, error) {
	return s.store.SearchUsers(ctx, strings.TrimSpace(keyword))
}

// UpdateUser overwrites profile fields. An empty password keeps the stored
// hash and nil RoleIDs keeps the stored roles.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UserInput) (User, error) {
	u, err := s.store.FindUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return User{}, err
	}
	email := normalizeEmail(in.Email)
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = u.Status
	}
	var v domain.Validator
	v.Check(email != "" && strings.Contains(email, "@"), "email", "valid email is required")
	v.Check(validStatus(status), "status", "must be active or inactive")
	if err := v.Err(); err != nil {
		return User{}, err
	}
	if in.RoleIDs != nil {
		roleIDs, err := s.checkRoles(ctx, in.RoleIDs)
		if err != nil {
			return User{}, err
		}
		u.RoleIDs = roleIDs
	}
	if pw := strings.TrimSpace(in.Password); pw != "" {
		hash, err := HashPassword(in.Password)
		if err != nil {
			return User{}, err
		}
		u.PasswordHash = hash
	}
	u.Name = strings.TrimSpace(in.Name)
	u.Email = email
	u.Department = in.Department
	u.Phone = in.Phone
	u.Status = status
	u.Notes = in.Notes
	u.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if _, err := s.store.FindUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

// ToggleStatus flips a user between active and inactive. Active admins
// cannot be deactivated.
func (s *UserService) ToggleStatus(ctx context.Context, id string) (User, error) {
	u, err := s.store.FindUser(ctx, strings.TrimSpace(id))
	if err != nil {
		return User{}, err
	}
	if u.Active() && u.HasRole(s.adminRoleID) {
		return User{}, domain.Conflict("admin users cannot be deactivated")
	}
	if u.Active() {
		u.Status = UserStatusInactive
	} else {
		u.Status = UserStatusActive
	}
	u.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	s.logger.InfoContext(ctx, "user status toggled", "user_id", u.ID, "status", u.Status)
	return u, nil
}

// RecordLogin stamps the last login time.
func (s *UserService) RecordLogin(ctx context.Context, u User) (User, error) {
	now := s.clock.Now()
	u.LastLogin = &now
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *UserService) checkRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	clean := dedupeStrings(roleIDs)
	var v domain.Validator
	for _, id := range clean {
		_, err := s.store.FindRole(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			v.Check(false, "role_ids", "unknown role "+id)
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

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validStatus(status string) bool {
	return status == UserStatusActive || status == UserStatusInactive
}
