package auth

import (
	"context"
	"slices"
)

type principalKey struct{}

// ContextWithPrincipal attaches the authenticated principal to ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	p.RoleIDs = slices.Clone(p.RoleIDs)
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by ContextWithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ActorFromContext returns the principal's user id, or "" for anonymous calls.
func ActorFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}
