// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/custodia/internal/models"
)

// InsertKey persists a new API key record. The store assigns the record id.
// Key records are never updated in place: issuance inserts, revocation
// deletes.
func (s *Store) InsertKey(ctx context.Context, key *models.APIKey) (*models.APIKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key.ID = uuid.New().String()
	kidIndex := []byte(keyKIDPrefix + key.KeyID)
	if err := s.insert(s.keySeq, keyPrefix, keyIDPrefix, key.ID, key, kidIndex); err != nil {
		return nil, fmt.Errorf("insert apikey: %w", err)
	}
	return key, nil
}

// GetKeyByKeyID retrieves a key record by its public keyId. Returns
// ErrNotFound for unknown and revoked keys alike; callers must not
// distinguish the two.
func (s *Store) GetKeyByKeyID(ctx context.Context, keyID string) (*models.APIKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var key models.APIKey
	if err := s.getByIndex([]byte(keyKIDPrefix+keyID), &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// DeleteKey removes a key record and its index entries by record id.
func (s *Store) DeleteKey(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		idKey := []byte(keyIDPrefix + id)
		pk, err := resolve(txn, idKey)
		if err != nil {
			return err
		}

		// Load the record to find its keyId index.
		item, err := txn.Get(pk)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get apikey: %w", err)
		}

		var key models.APIKey
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &key)
		}); err != nil {
			return fmt.Errorf("unmarshal apikey: %w", err)
		}

		if err := txn.Delete(pk); err != nil {
			return fmt.Errorf("delete apikey: %w", err)
		}
		if err := txn.Delete(idKey); err != nil {
			return fmt.Errorf("delete id index: %w", err)
		}
		if err := txn.Delete([]byte(keyKIDPrefix + key.KeyID)); err != nil {
			return fmt.Errorf("delete keyId index: %w", err)
		}
		return nil
	})
}

// ListKeys returns every key record in insertion order.
func (s *Store) ListKeys(ctx context.Context) ([]models.APIKey, error) {
	keys := make([]models.APIKey, 0)

	err := s.scan(ctx, keyPrefix, func(val []byte) error {
		var key models.APIKey
		if err := json.Unmarshal(val, &key); err != nil {
			return fmt.Errorf("unmarshal apikey: %w", err)
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list apikeys: %w", err)
	}
	return keys, nil
}

// CountKeys returns the number of stored key records.
func (s *Store) CountKeys(ctx context.Context) (int, error) {
	count := 0
	err := s.scan(ctx, keyPrefix, func(val []byte) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count apikeys: %w", err)
	}
	return count, nil
}
