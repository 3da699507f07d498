// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package auth implements the API key gate: issuance, verification,
// expiration, and revocation of the credentials that protect every
// programmatic entry point.
//
// Credentials are a pair of independent values: a public key id and a
// plaintext secret. Secrets are hashed with bcrypt (cost 12, SHA-256
// pre-hash for bcrypt's 72-byte limit) before storage; the plaintext is
// returned to the caller exactly once at issuance and is never retrievable
// again.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/custodia/internal/models"
	"github.com/tomtom215/custodia/internal/store"
)

const (
	// keyIDLength is the byte length of the random public key id.
	keyIDLength = 8

	// secretLength is the byte length of the random secret.
	secretLength = 16

	// bcryptCost is the bcrypt cost factor for secret hashing.
	bcryptCost = 12
)

// KeyStore defines the store operations required by the key gate.
// Satisfied by *store.Store; the interface keeps the gate testable with a
// mock.
type KeyStore interface {
	InsertKey(ctx context.Context, key *models.APIKey) (*models.APIKey, error)
	GetKeyByKeyID(ctx context.Context, keyID string) (*models.APIKey, error)
	DeleteKey(ctx context.Context, id string) error
	ListKeys(ctx context.Context) ([]models.APIKey, error)
	CountKeys(ctx context.Context) (int, error)
}

// IssueRequest carries the caller-controlled fields of a new key.
type IssueRequest struct {
	Scopes     []string
	Expiration *time.Time
	RateLimit  *int
	Owner      string
}

// Manager handles API key operations. All methods are pure reads except
// Issue and Revoke; Authenticate performs no writes and logs nothing to the
// access log.
type Manager struct {
	store  KeyStore
	logger zerolog.Logger
}

// NewManager creates a new key gate manager.
func NewManager(keys KeyStore, logger *zerolog.Logger) *Manager {
	return &Manager{
		store:  keys,
		logger: logger.With().Str("component", "api_key_gate").Logger(),
	}
}

// Issue generates a new API key. The returned secret is shown exactly once;
// only its hash is stored.
//
// The key id and the secret are independent cryptographically random values;
// neither derives from the other or from any stored data.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (*models.APIKey, *models.IssuedKey, error) {
	keyID, err := randomHex(keyIDLength)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key id: %w", err)
	}
	secret, err := randomHex(secretLength)
	if err != nil {
		return nil, nil, fmt.Errorf("generate secret: %w", err)
	}

	hashed, err := hashSecret(secret)
	if err != nil {
		return nil, nil, fmt.Errorf("hash secret: %w", err)
	}

	scopes := req.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	key := &models.APIKey{
		KeyID:      keyID,
		HashedKey:  hashed,
		Scopes:     scopes,
		Expiration: req.Expiration,
		RateLimit:  req.RateLimit,
		Owner:      req.Owner,
		CreatedAt:  time.Now().UTC(),
	}

	key, err = m.store.InsertKey(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("store key: %w", err)
	}

	KeysIssued.Inc()
	m.logger.Info().
		Str("key_id", keyID).
		Str("owner", req.Owner).
		Int("scopes_count", len(scopes)).
		Msg("API key issued")

	return key, &models.IssuedKey{KeyID: keyID, Secret: secret}, nil
}

// Authenticate verifies a presented key id and secret pair.
//
// Checks run in a fixed order: presence, key id lookup, hash comparison,
// expiration. An expired key with a correct secret reports ErrKeyExpired,
// never ErrInvalidSecret. Authentication is a pure read with no side
// effects beyond metrics.
func (m *Manager) Authenticate(ctx context.Context, keyID, secret string) (*models.APIKey, error) {
	key, err := m.authenticate(ctx, keyID, secret)
	AuthAttempts.WithLabelValues(outcomeLabel(err)).Inc()
	return key, err
}

func (m *Manager) authenticate(ctx context.Context, keyID, secret string) (*models.APIKey, error) {
	if keyID == "" || secret == "" {
		return nil, ErrMissingCredentials
	}

	key, err := m.store.GetKeyByKeyID(ctx, keyID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidKeyID
	}
	if err != nil {
		return nil, fmt.Errorf("key lookup: %w", err)
	}

	if !verifySecret(secret, key.HashedKey) {
		return nil, ErrInvalidSecret
	}

	if key.IsExpired() {
		return nil, ErrKeyExpired
	}

	return key, nil
}

// Revoke deletes a key record by its store id. Subsequent authentications
// with the key's keyId fail as ErrInvalidKeyID.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if err := m.store.DeleteKey(ctx, id); err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}

	KeysRevoked.Inc()
	m.logger.Info().Str("id", id).Msg("API key revoked")
	return nil
}

// List returns every key record in its public shape (no hashes).
func (m *Manager) List(ctx context.Context) ([]models.PublicKey, error) {
	keys, err := m.store.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	public := make([]models.PublicKey, len(keys))
	for i := range keys {
		public[i] = keys[i].PublicView()
	}
	return public, nil
}

// Bootstrap issues a first key for owner when the key collection is empty
// and logs the plaintext once. It is a no-op when any key exists, so the
// gate never reopens an unauthenticated path on a provisioned system.
func (m *Manager) Bootstrap(ctx context.Context, owner string) error {
	count, err := m.store.CountKeys(ctx)
	if err != nil {
		return fmt.Errorf("count keys: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, issued, err := m.Issue(ctx, IssueRequest{Owner: owner})
	if err != nil {
		return fmt.Errorf("bootstrap key: %w", err)
	}

	// Shown once, like any issued secret. Operators must rotate it after
	// provisioning real keys.
	m.logger.Warn().
		Str("key_id", issued.KeyID).
		Str("api_key", issued.Secret).
		Str("owner", owner).
		Msg("Bootstrap API key issued; store it now, it will not be shown again")
	return nil
}

// randomHex returns n cryptographically random bytes hex-encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashSecret creates a bcrypt hash of a secret.
// SHA-256 first to get fixed-length input under bcrypt's 72-byte limit.
func hashSecret(plaintext string) (string, error) {
	sha := sha256.Sum256([]byte(plaintext))
	hash, err := bcrypt.GenerateFromPassword(sha[:], bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt failed: %w", err)
	}
	return string(hash), nil
}

// verifySecret checks a plaintext secret against a stored hash in constant
// time via bcrypt.
func verifySecret(plaintext, storedHash string) bool {
	sha := sha256.Sum256([]byte(plaintext))
	return bcrypt.CompareHashAndPassword([]byte(storedHash), sha[:]) == nil
}
