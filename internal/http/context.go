package http

import (
	"context"

	"github.com/example/galera-volei/internal/application"
)

type principalKey struct{}

// ContextWithPrincipal stores the player resolved from the bearer token.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the authenticated player, if any.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(application.Principal)
	return principal, ok && principal.PlayerID != ""
}
