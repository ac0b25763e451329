package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrUnauthenticated is returned for a missing, malformed, expired or rejected credential
var ErrUnauthenticated = errors.New("unauthenticated")

// User represents an authenticated user
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verifier resolves a bearer token to a user identity
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// ExtractToken extracts the JWT token from an Authorization header value.
// Supports "Bearer <token>" format.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("empty authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty token")
	}

	return token, nil
}

type tokenContextKey struct{}

// ContextWithToken attaches the caller's bearer token so downstream reads can
// act on the user's behalf (row-level security)
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token attached by ContextWithToken
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}
