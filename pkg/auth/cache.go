package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	cache "github.com/patrickmn/go-cache"
)

// CachingVerifier caches successful token resolutions for a short TTL,
// never past the token's own expiry. Rejections are never cached.
type CachingVerifier struct {
	next  Verifier
	ttl   time.Duration
	cache *cache.Cache
}

// NewCachingVerifier wraps next. A non-positive ttl returns next unchanged.
func NewCachingVerifier(next Verifier, ttl time.Duration) Verifier {
	if ttl <= 0 {
		return next
	}
	return &CachingVerifier{
		next:  next,
		ttl:   ttl,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Verify returns the cached user for token or delegates to the wrapped verifier
func (v *CachingVerifier) Verify(ctx context.Context, token string) (*User, error) {
	key := tokenKey(token)
	if cached, found := v.cache.Get(key); found {
		return cached.(*User), nil
	}

	user, err := v.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if ttl := v.entryTTL(token, time.Now()); ttl > 0 {
		v.cache.Set(key, user, ttl)
	}
	return user, nil
}

// entryTTL is the configured TTL capped at the token's exp claim.
// Tokens without a readable exp use the configured TTL.
func (v *CachingVerifier) entryTTL(token string, now time.Time) time.Duration {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return v.ttl
	}

	remaining := claims.ExpiresAt.Time.Sub(now)
	if remaining < v.ttl {
		return remaining
	}
	return v.ttl
}

// tokenKey avoids keeping raw bearer tokens in memory as map keys
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
