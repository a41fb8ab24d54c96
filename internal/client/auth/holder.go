// Package auth holds the bearer credential used for API calls. Tokens are
// issued elsewhere; this package only stores one and, when it is a JWT,
// notices that it has expired.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Holder struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

func NewHolder(token string) *Holder {
	return &Holder{token: token, now: time.Now}
}

func (h *Holder) Set(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

func (h *Holder) Clear() { h.Set("") }

// Token returns the stored token, or "" when there is none or it is a JWT
// whose exp claim has passed.
func (h *Holder) Token() string {
	h.mu.RLock()
	token := h.token
	h.mu.RUnlock()

	if token == "" {
		return ""
	}
	if exp, ok := Expiry(token); ok && !h.now().Before(exp) {
		return ""
	}
	return token
}

// Expiry reads the exp claim of a JWT without verifying its signature.
// ok is false for opaque tokens and JWTs without exp.
func Expiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
