// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/custodia/internal/auth"
	"github.com/tomtom215/custodia/internal/logging"
	"github.com/tomtom215/custodia/internal/models"
)

// Credential headers. Both must be present on every gated request.
const (
	HeaderKeyID  = "X-API-Key-ID"
	HeaderSecret = "X-API-Key"
)

type contextKey string

const apiKeyContextKey contextKey = "custodia.apikey"

// KeyFromContext returns the authenticated API key attached by the auth
// middleware, or nil on ungated routes.
func KeyFromContext(ctx context.Context) *models.APIKey {
	key, _ := ctx.Value(apiKeyContextKey).(*models.APIKey)
	return key
}

// MiddlewareConfig holds middleware settings.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string

	// RateLimitRequests is the default per-key cap for keys without their
	// own RateLimit.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// Middleware provides the auth and rate limiting middleware for gated routes.
type Middleware struct {
	keys   *auth.Manager
	config MiddlewareConfig
	cors   func(http.Handler) http.Handler

	// limiters holds one rate limiter per key id; created lazily because
	// each key may carry its own request cap.
	mu       sync.Mutex
	limiters map[string]*httprate.RateLimiter
}

// NewMiddleware creates the middleware set.
func NewMiddleware(keys *auth.Manager, config MiddlewareConfig) *Middleware {
	if config.RateLimitRequests <= 0 {
		config.RateLimitRequests = 100
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = time.Minute
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", HeaderKeyID, HeaderSecret},
		MaxAge:         86400,
	})

	return &Middleware{
		keys:     keys,
		config:   config,
		cors:     corsHandler,
		limiters: make(map[string]*httprate.RateLimiter),
	}
}

// CORS returns the go-chi/cors middleware.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// Authenticate verifies the X-API-Key-ID and X-API-Key headers and attaches
// the resolved key to the request context. The header order of failures is
// fixed: missing credentials, unknown key id, wrong secret, expired key. An
// expired key with the correct secret always reports expiry, never an
// invalid secret.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyID := r.Header.Get(HeaderKeyID)
		secret := r.Header.Get(HeaderSecret)

		key, err := m.keys.Authenticate(r.Context(), keyID, secret)
		if err != nil {
			code, message := authFailure(err)
			if !auth.IsAuthError(err) {
				logging.Error().Err(err).Str("key_id", sanitizeLogValue(keyID)).Msg("Authentication lookup failed")
				respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Authentication unavailable", nil)
				return
			}
			logging.Warn().Str("key_id", sanitizeLogValue(keyID)).Str("reason", code).Msg("Authentication rejected")
			respondError(w, http.StatusUnauthorized, code, message, nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authFailure maps an authentication error to its response code and message.
func authFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return "AUTH_REQUIRED", "API key and key ID required"
	case errors.Is(err, auth.ErrInvalidKeyID):
		return "INVALID_CREDENTIALS", "Invalid API key ID"
	case errors.Is(err, auth.ErrInvalidSecret):
		return "INVALID_CREDENTIALS", "Invalid API key"
	case errors.Is(err, auth.ErrKeyExpired):
		return "KEY_EXPIRED", "API key expired"
	default:
		return "AUTHENTICATION_ERROR", "Authentication failed"
	}
}

// RateLimit enforces the per-key request cap using go-chi/httprate. Each key
// gets its own limiter so a key-specific RateLimit overrides the default;
// buckets are keyed by key id, so rotating client IPs share one budget.
// Must run after Authenticate.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := KeyFromContext(r.Context())
		if key == nil {
			// Gated routes always authenticate first; treat a missing
			// key as a wiring bug, not an open door.
			respondError(w, http.StatusUnauthorized, "AUTH_REQUIRED", "Authentication required", nil)
			return
		}

		if m.limiterFor(key).RespondOnLimit(w, r, key.KeyID) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterFor returns the limiter for a key, creating it with the key's own
// cap or the configured default.
func (m *Middleware) limiterFor(key *models.APIKey) *httprate.RateLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, ok := m.limiters[key.KeyID]; ok {
		return limiter
	}

	requests := m.config.RateLimitRequests
	if key.RateLimit != nil && *key.RateLimit > 0 {
		requests = *key.RateLimit
	}

	limiter := httprate.NewRateLimiter(
		requests,
		m.config.RateLimitWindow,
		httprate.WithLimitHandler(rateLimited),
	)
	m.limiters[key.KeyID] = limiter
	return limiter
}

// rateLimited is the 429 response in the standard envelope.
func rateLimited(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded", nil)
}

// RequestID attaches a request id to the context and echoes it in the
// X-Request-ID header for correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), requestID)))
	})
}
