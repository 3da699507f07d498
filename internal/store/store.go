// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package store implements the Custodia document store on BadgerDB.
//
// Each collection (logs, apikeys, audits) lives under its own key prefix.
// Primary keys embed a monotonic per-collection sequence number so prefix
// iteration returns records in insertion order; a secondary index maps record
// ids to primary keys for lookup and update by id.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrNotFound indicates the referenced record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Key prefixes. Primary keys are <collection>:<seq>; index keys map ids to
// primary keys.
const (
	logPrefix      = "log:"
	logIDPrefix    = "log_id:"
	keyPrefix      = "apikey:"
	keyIDPrefix    = "apikey_id:"
	keyKIDPrefix   = "apikey_kid:"
	auditPrefix    = "audit:"
	auditIDPrefix  = "audit_id:"
	seqKeyLogs     = "seq:logs"
	seqKeyKeys     = "seq:apikeys"
	seqKeyAudits   = "seq:audits"
	seqBandwidth   = 128
)

// Store is the BadgerDB-backed document store shared by all components.
// Writes are serialized through Badger transactions; reads see a consistent
// snapshot.
type Store struct {
	db *badger.DB

	logSeq   *badger.Sequence
	keySeq   *badger.Sequence
	auditSeq *badger.Sequence
}

// Open opens (or creates) the store at path. An empty path opens an
// in-memory store, used by tests.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{db: db}
	if s.logSeq, err = db.GetSequence([]byte(seqKeyLogs), seqBandwidth); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open log sequence: %w", err)
	}
	if s.keySeq, err = db.GetSequence([]byte(seqKeyKeys), seqBandwidth); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open apikey sequence: %w", err)
	}
	if s.auditSeq, err = db.GetSequence([]byte(seqKeyAudits), seqBandwidth); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open audit sequence: %w", err)
	}

	return s, nil
}

// Close releases sequences and closes the underlying database.
func (s *Store) Close() error {
	if s.logSeq != nil {
		_ = s.logSeq.Release()
	}
	if s.keySeq != nil {
		_ = s.keySeq.Release()
	}
	if s.auditSeq != nil {
		_ = s.auditSeq.Release()
	}
	return s.db.Close()
}

// primaryKey builds an insertion-ordered primary key for a collection.
// The sequence number is fixed-width hex so lexicographic key order matches
// numeric order.
func primaryKey(prefix string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x", prefix, seq))
}

// insert writes a record under a fresh sequence-ordered primary key and an
// id index entry pointing at it.
func (s *Store) insert(seq *badger.Sequence, prefix, idPrefix, id string, doc interface{}, extraIndex ...[]byte) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	n, err := seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	pk := primaryKey(prefix, n)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(pk, data); err != nil {
			return fmt.Errorf("set record: %w", err)
		}
		if err := txn.Set([]byte(idPrefix+id), pk); err != nil {
			return fmt.Errorf("set id index: %w", err)
		}
		for _, idx := range extraIndex {
			if err := txn.Set(idx, pk); err != nil {
				return fmt.Errorf("set index: %w", err)
			}
		}
		return nil
	})
}

// resolve follows an index key to its primary key inside a transaction.
func resolve(txn *badger.Txn, indexKey []byte) ([]byte, error) {
	item, err := txn.Get(indexKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}

	var pk []byte
	if err := item.Value(func(val []byte) error {
		pk = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return pk, nil
}

// getByIndex loads the record pointed at by an index key into out.
func (s *Store) getByIndex(indexKey []byte, out interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		pk, err := resolve(txn, indexKey)
		if err != nil {
			return err
		}

		item, err := txn.Get(pk)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

// scan iterates a collection prefix in insertion order, invoking fn with each
// raw value. Iteration stops on the first error or when ctx is done.
func (s *Store) scan(ctx context.Context, prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
