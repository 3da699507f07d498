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

// InsertAudit persists a new audit record. The store assigns the record id,
// which doubles as the scheduler job key.
func (s *Store) InsertAudit(ctx context.Context, rec *models.AuditRecord) (*models.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec.ID = uuid.New().String()
	if err := s.insert(s.auditSeq, auditPrefix, auditIDPrefix, rec.ID, rec); err != nil {
		return nil, fmt.Errorf("insert audit: %w", err)
	}
	return rec, nil
}

// GetAudit retrieves an audit record by id.
func (s *Store) GetAudit(ctx context.Context, id string) (*models.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec models.AuditRecord
	if err := s.getByIndex([]byte(auditIDPrefix+id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateAudit applies mutate to the audit record with the given id inside a
// single write transaction. The read-modify-write is atomic per record;
// Badger aborts conflicting concurrent transactions, which is sufficient
// because exactly one actor ever transitions a given record out of
// scheduled.
func (s *Store) UpdateAudit(ctx context.Context, id string, mutate func(*models.AuditRecord) error) (*models.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec models.AuditRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		pk, err := resolve(txn, []byte(auditIDPrefix+id))
		if err != nil {
			return err
		}

		item, err := txn.Get(pk)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get audit: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("unmarshal audit: %w", err)
		}

		if err := mutate(&rec); err != nil {
			return err
		}

		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal audit: %w", err)
		}
		return txn.Set(pk, data)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListAudits returns every audit record in insertion order.
func (s *Store) ListAudits(ctx context.Context) ([]models.AuditRecord, error) {
	audits := make([]models.AuditRecord, 0)

	err := s.scan(ctx, auditPrefix, func(val []byte) error {
		var rec models.AuditRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return fmt.Errorf("unmarshal audit: %w", err)
		}
		audits = append(audits, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	return audits, nil
}

// ListAuditsByStatus returns audit records in the given status, in insertion
// order. The scheduler uses this at startup to re-arm pending audits.
func (s *Store) ListAuditsByStatus(ctx context.Context, status models.AuditStatus) ([]models.AuditRecord, error) {
	all, err := s.ListAudits(ctx)
	if err != nil {
		return nil, err
	}

	audits := all[:0]
	for _, rec := range all {
		if rec.Status == status {
			audits = append(audits, rec)
		}
	}
	return audits, nil
}
