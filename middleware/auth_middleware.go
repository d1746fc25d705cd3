package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rvicquerra/portfolio-api/identity"
	"github.com/rvicquerra/portfolio-api/utils"
	"go.uber.org/zap"
)

// TokenVerifier validates a session token and returns its claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*identity.Claims, error)
}

// sessionCookieName is the cookie set by the identity provider's frontend
// SDK; the Authorization header takes precedence.
const sessionCookieName = "__session"

// AuthMiddleware gates routes behind a verified identity-provider session.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware creates an AuthMiddleware.
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// RequireAuth rejects requests without a valid session token.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing session token", zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Unauthorized")
			return
		}

		claims, err := m.verifier.VerifyToken(ctx, token)
		if err != nil {
			m.logger.Warn("session token verification failed",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// RequireRole rejects authenticated requests whose session lacks the role.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, "Unauthorized")
				return
			}
			if !strings.EqualFold(claims.Role, role) {
				m.logger.Warn("insufficient role",
					zap.String("path", r.URL.Path),
					zap.String("subject", claims.Subject),
					zap.String("role", claims.Role),
					zap.String("required", role))
				_ = utils.WriteForbidden(w, "Forbidden - Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken pulls the session token from the Authorization header
// ("Bearer TOKEN") or the session cookie.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
