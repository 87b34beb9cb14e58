package auth

import (
	"context"
	"errors"
	"strings"

	"mop.org/internal/domain"
)

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID  string
	Email   string
	Name    string
	RoleIDs []string
}

// AuthResult is returned by Login, Register and Refresh.
type AuthResult struct {
	Tokens      TokenPair `json:"tokens"`
	User        User      `json:"user"`
	Permissions []string  `json:"permissions"`
}

// Authenticator signs users in and resolves bearer tokens to principals.
type Authenticator struct {
	users         *UserService
	tokens        *TokenIssuer
	resolver      *Resolver
	catalogue     PermissionStore
	defaultRoleID string
}

// NewAuthenticator wires the sign-in flow. defaultRoleID is granted on Register.
func NewAuthenticator(users *UserService, tokens *TokenIssuer, resolver *Resolver, catalogue PermissionStore, defaultRoleID string) (*Authenticator, error) {
	if users == nil || tokens == nil || resolver == nil {
		return nil, errors.New("auth: users, tokens and resolver are required")
	}
	return &Authenticator{
		users:         users,
		tokens:        tokens,
		resolver:      resolver,
		catalogue:     catalogue,
		defaultRoleID: strings.TrimSpace(defaultRoleID),
	}, nil
}

// Login checks credentials, stamps the last login and issues a token pair.
func (a *Authenticator) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := a.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		return AuthResult{}, err
	}
	if !u.Active() {
		return AuthResult{}, ErrUserInactive
	}
	u, err = a.users.RecordLogin(ctx, u)
	if err != nil {
		return AuthResult{}, err
	}
	return a.result(ctx, u)
}

// Register creates an active user holding the default role and signs them in.
func (a *Authenticator) Register(ctx context.Context, in UserInput) (AuthResult, error) {
	in.ID = ""
	in.Status = UserStatusActive
	if len(in.RoleIDs) == 0 && a.defaultRoleID != "" {
		in.RoleIDs = []string{a.defaultRoleID}
	}
	u, err := a.users.CreateUser(ctx, in)
	if err != nil {
		return AuthResult{}, err
	}
	return a.result(ctx, u)
}

// Refresh exchanges a valid refresh token for a new pair.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	claims, err := a.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return AuthResult{}, err
	}
	u, err := a.activeUser(ctx, claims.Subject)
	if err != nil {
		return AuthResult{}, err
	}
	return a.result(ctx, u)
}

// Authenticate resolves an access token to the principal. Roles come from the
// store, not from the token, so revocations apply immediately.
func (a *Authenticator) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := a.tokens.Parse(accessToken, TokenTypeAccess)
	if err != nil {
		return Principal{}, err
	}
	u, err := a.activeUser(ctx, claims.Subject)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: u.ID, Email: u.Email, Name: u.Name, RoleIDs: u.RoleIDs}, nil
}

// Authorize reports whether p may use permID.
func (a *Authenticator) Authorize(ctx context.Context, p Principal, permID string) (bool, error) {
	return a.resolver.PrincipalHasPermission(ctx, p.RoleIDs, permID)
}

func (a *Authenticator) activeUser(ctx context.Context, id string) (User, error) {
	u, err := a.users.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, err
	}
	if !u.Active() {
		return User{}, ErrUserInactive
	}
	return u, nil
}

func (a *Authenticator) result(ctx context.Context, u User) (AuthResult, error) {
	pair, err := a.tokens.Issue(u)
	if err != nil {
		return AuthResult{}, err
	}
	perms, err := a.resolver.Permissions(ctx, u.RoleIDs, a.catalogue)
	if err != nil {
		return AuthResult{}, err
	}
	if perms == nil {
		perms = []string{}
	}
	return AuthResult{Tokens: pair, User: u, Permissions: perms}, nil
}
