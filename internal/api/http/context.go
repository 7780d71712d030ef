package http

import (
	"context"

	"rentacar-backend/internal/security"
)

type contextKey struct{}

func withClaims(ctx context.Context, claims *security.CustomerClaims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// ClaimsFromContext returns the authenticated caller, nil on public routes.
func ClaimsFromContext(ctx context.Context) *security.CustomerClaims {
	claims, _ := ctx.Value(contextKey{}).(*security.CustomerClaims)
	return claims
}
