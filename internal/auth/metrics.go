// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts API key authentication attempts.
	// Labels:
	//   - outcome: "success", "missing_credentials", "invalid_key_id",
	//     "invalid_secret", "expired", "error"
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodia_auth_attempts_total",
			Help: "Total number of API key authentication attempts",
		},
		[]string{"outcome"},
	)

	// KeysIssued counts issued API keys.
	KeysIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custodia_api_keys_issued_total",
			Help: "Total number of API keys issued",
		},
	)

	// KeysRevoked counts revoked API keys.
	KeysRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custodia_api_keys_revoked_total",
			Help: "Total number of API keys revoked",
		},
	)
)

// outcomeLabel maps an authentication error to its metric label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case err == ErrMissingCredentials:
		return "missing_credentials"
	case err == ErrInvalidKeyID:
		return "invalid_key_id"
	case err == ErrInvalidSecret:
		return "invalid_secret"
	case err == ErrKeyExpired:
		return "expired"
	default:
		return "error"
	}
}
