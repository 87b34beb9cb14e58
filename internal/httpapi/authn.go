package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"mop.org/internal/auth"
	"mop.org/internal/domain"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/v1/auth/login",
	"/v1/auth/register",
	"/v1/auth/refresh",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserInactive):
				writeError(w, r, http.StatusForbidden, "user is inactive")
			case errors.Is(err, domain.ErrUnauthorized):
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				a.writeDomainError(w, r, err)
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensurePermission writes 401/403 and returns false unless the caller holds
// one of perms. Without authentication configured everything is allowed.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, perms ...string) bool {
	if a.auth == nil {
		return true
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	for _, perm := range perms {
		allowed, err := a.auth.Authorize(r.Context(), principal, perm)
		if err != nil {
			a.writeDomainError(w, r, err)
			return false
		}
		if allowed {
			return true
		}
	}
	writeError(w, r, http.StatusForbidden, "missing permission: "+strings.Join(perms, " or "))
	return false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
