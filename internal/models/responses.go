// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package models

import "time"

// APIResponse is the standardized response wrapper used by all HTTP endpoints.
//
// Status is "success" or "error". Data carries the payload on success; Error
// is populated only when Status is "error".
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError represents structured error details.
//
// Common codes: VALIDATION_ERROR, AUTHENTICATION_ERROR, NOT_FOUND,
// RATE_LIMIT_EXCEEDED, STORE_ERROR.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// IssuedKey is the one-time response to key issuance. Secret is the only
// place the plaintext ever appears.
type IssuedKey struct {
	KeyID  string `json:"keyId"`
	Secret string `json:"apiKey"`
}

// PublicKey is the listing shape for API keys: everything except the hash.
type PublicKey struct {
	ID         string     `json:"id"`
	KeyID      string     `json:"keyId"`
	Scopes     []string   `json:"scopes"`
	Expiration *time.Time `json:"expiration,omitempty"`
	RateLimit  *int       `json:"rateLimit,omitempty"`
	Owner      string     `json:"owner"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// PublicView converts an APIKey to its listing shape.
func (k *APIKey) PublicView() PublicKey {
	return PublicKey{
		ID:         k.ID,
		KeyID:      k.KeyID,
		Scopes:     k.Scopes,
		Expiration: k.Expiration,
		RateLimit:  k.RateLimit,
		Owner:      k.Owner,
		CreatedAt:  k.CreatedAt,
	}
}
