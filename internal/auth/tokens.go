package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mop.org/internal/clock"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	defaultIssuer     = "mop"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 7
)

// Claims represents JWT claims used across the service.
type Claims struct {
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles"`
	TokenType string   `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful sign-in returns.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

// TokenOption configures TokenIssuer behavior.
type TokenOption func(*TokenIssuer)

func WithIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			t.issuer = issuer
		}
	}
}

func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.accessTTL = ttl
		}
	}
}

func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.refreshTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(c clock.Clock) TokenOption {
	return func(t *TokenIssuer) {
		if c != nil {
			t.clock = c
		}
	}
}

// NewTokenIssuer builds an issuer for secret, which must not be empty.
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth secret is not configured")
	}
	t := &TokenIssuer{
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		clock:      clock.System(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs an access and a refresh token for u.
func (t *TokenIssuer) Issue(u User) (TokenPair, error) {
	now := t.clock.Now().UTC()
	access, accessExp, err := t.sign(u, TokenTypeAccess, now, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := t.sign(u, TokenTypeRefresh, now, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (t *TokenIssuer) sign(u User, typ string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		Email:     u.Email,
		Roles:     u.RoleIDs,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature, issuer, expiry and token type.
func (t *TokenIssuer) Parse(token, wantType string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
