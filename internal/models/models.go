// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package models defines the persisted entities and HTTP request/response
// shapes shared across Custodia components.
package models

import "time"

// AccessLogEntry is one recorded instance of an AI system accessing data.
// Entries are immutable once created: the store assigns ID and Timestamp at
// insert time and nothing mutates or deletes them afterwards.
type AccessLogEntry struct {
	ID string `json:"id"`

	// AISystem identifies the accessing system (e.g. "VisionBot").
	AISystem string `json:"aiSystem"`

	// DataAccessed lists the data items touched. Callers may submit a single
	// scalar; ingestion normalizes it into a one-element list.
	DataAccessed []string `json:"dataAccessed"`

	// Purpose lists the declared purposes of the access. Normalized like
	// DataAccessed.
	Purpose []string `json:"purpose"`

	// Kind is a free-form category for the access (e.g. "read", "inference").
	Kind string `json:"kind"`

	// Details is optional free text.
	Details string `json:"details,omitempty"`

	// UserIdentifier optionally names the data subject.
	UserIdentifier string `json:"userIdentifier,omitempty"`

	// Timestamp is server-assigned at insert. Callers cannot backdate entries.
	Timestamp time.Time `json:"timestamp"`
}

// APIKey represents one issued API credential.
//
// The plaintext secret is returned to the caller exactly once at issuance
// and never persisted; HashedKey holds a bcrypt hash of it. Keys are deleted
// on revocation, never updated in place.
type APIKey struct {
	ID string `json:"id"`

	// KeyID is the public identifier callers send alongside the secret.
	KeyID string `json:"keyId"`

	// HashedKey is the bcrypt hash of the secret (SHA-256 pre-hashed).
	HashedKey string `json:"hashedKey"`

	// Scopes are advisory permission labels. Verification does not consult
	// them; downstream handlers may.
	Scopes []string `json:"scopes"`

	// Expiration, when set, is the absolute time after which authentication
	// fails with ErrKeyExpired. Nil means the key never expires.
	Expiration *time.Time `json:"expiration,omitempty"`

	// RateLimit, when set, caps requests per window for this key. Nil falls
	// back to the server default.
	RateLimit *int `json:"rateLimit,omitempty"`

	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired reports whether the key has an expiration in the past.
func (k *APIKey) IsExpired() bool {
	return k.Expiration != nil && time.Now().After(*k.Expiration)
}

// HasScope reports whether the key carries the given scope label.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
