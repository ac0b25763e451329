package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier verifies Supabase access tokens locally with the project JWT secret
type JWTVerifier struct {
	secretKey []byte
}

// SupabaseClaims represents the claims of a Supabase access token
type SupabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTVerifier creates a verifier for HS256-signed tokens
func NewJWTVerifier(secretKey string) (*JWTVerifier, error) {
	if secretKey == "" {
		return nil, errors.New("JWT secret key cannot be empty")
	}
	return &JWTVerifier{secretKey: []byte(secretKey)}, nil
}

// Verify parses and validates the token and returns the user it was issued to
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SupabaseClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse token: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*SupabaseClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	return &User{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}
