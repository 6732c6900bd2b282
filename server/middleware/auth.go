package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/teilomillet/quill/config"
	"github.com/teilomillet/quill/errors"
)

// Authenticator checks API keys sent as "Authorization: Bearer <key>" or
// "X-API-Key: <key>". With no key configured every request passes. Keys can
// be replaced at runtime with Update.
type Authenticator struct {
	keys atomic.Pointer[[]string]
}

// NewAuthenticator creates an Authenticator for cfg.
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	a := &Authenticator{}
	a.Update(cfg)
	return a
}

// Update replaces the accepted keys.
func (a *Authenticator) Update(cfg config.AuthConfig) {
	keys := make([]string, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	a.keys.Store(&keys)
}

// Enabled reports whether any key is configured.
func (a *Authenticator) Enabled() bool {
	return len(*a.keys.Load()) > 0
}

// Handler is the middleware.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys := *a.keys.Load()
		if len(keys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := apiKey(r)
		if key == "" {
			errors.WriteError(w, errors.NewAuthError(GetRequestID(r.Context()), "Missing API key", nil))
			return
		}
		if !validKey(keys, key) {
			errors.WriteError(w, errors.NewAuthError(GetRequestID(r.Context()), "Invalid API key", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func apiKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func validKey(keys []string, key string) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(k), []byte(key))
	}
	return match == 1
}
