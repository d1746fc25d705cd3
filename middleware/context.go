package middleware

import (
	"context"

	"github.com/rvicquerra/portfolio-api/identity"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for verified session claims
	ClaimsKey contextKey = "claims"
)

// GetClaimsFromContext retrieves verified session claims from context
func GetClaimsFromContext(ctx context.Context) *identity.Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*identity.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds verified session claims to the context
func WithClaims(ctx context.Context, claims *identity.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
