// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package auth

import "errors"

// Sentinel authentication errors. Handlers map all of these to HTTP 401;
// the distinct values exist for logging, metrics, and tests.
var (
	// ErrMissingCredentials indicates the key id or the secret was absent
	// from the request. Distinct from a bad credential.
	ErrMissingCredentials = errors.New("api key id and api key required")

	// ErrInvalidKeyID indicates no key record matches the presented key id.
	// Deliberately covers both never-issued and revoked keys so callers
	// cannot probe which.
	ErrInvalidKeyID = errors.New("invalid api key id")

	// ErrInvalidSecret indicates the presented secret does not match the
	// stored hash.
	ErrInvalidSecret = errors.New("invalid api key")

	// ErrKeyExpired indicates the key's expiration has passed. Reported even
	// when the secret is correct.
	ErrKeyExpired = errors.New("api key expired")
)

// IsAuthError reports whether err is one of the authentication sentinels.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrInvalidKeyID) ||
		errors.Is(err, ErrInvalidSecret) ||
		errors.Is(err, ErrKeyExpired)
}
