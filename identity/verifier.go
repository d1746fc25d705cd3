// Package identity verifies session tokens minted by the external
// identity provider. The OAuth/session protocol itself is delegated;
// this package only checks the token signature and extracts the subject
// and role claims the admin surface needs.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token fails signature or shape checks.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("session token expired")
)

// Claims are the session claims the application cares about.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Role    string
}

// IsAdmin reports whether the session carries the admin role.
func (c *Claims) IsAdmin() bool {
	return strings.EqualFold(c.Role, "admin")
}

// Verifier validates identity-provider session JWTs.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a Verifier for HMAC-signed session tokens. issuer
// is optional; when set, the iss claim must match.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Metadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

// VerifyToken validates the token and returns its claims. The role may
// come from a top-level claim or the provider's public metadata blob.
func (v *Verifier) VerifyToken(_ context.Context, tokenString string) (*Claims, error) {
	parsed := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && parsed.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}
	if parsed.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if parsed.ExpiresAt != nil && parsed.ExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	role := parsed.Role
	if role == "" {
		role = parsed.Metadata.Role
	}
	if role == "" {
		role = "viewer"
	}

	return &Claims{
		Subject: parsed.Subject,
		Email:   parsed.Email,
		Name:    parsed.Name,
		Role:    role,
	}, nil
}
