package auth

import (
	"fmt"

	"mop.org/internal/domain"
)

var (
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	// ErrUserInactive is returned when an inactive user signs in.
	ErrUserInactive = fmt.Errorf("%w: user is inactive", domain.ErrForbidden)
)
