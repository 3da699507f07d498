// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/custodia/internal/models"
)

// InsertLog persists a new access log entry. The store assigns the entry id;
// a caller-supplied id is replaced. Entries are immutable once written.
func (s *Store) InsertLog(ctx context.Context, entry *models.AccessLogEntry) (*models.AccessLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry.ID = uuid.New().String()
	if err := s.insert(s.logSeq, logPrefix, logIDPrefix, entry.ID, entry); err != nil {
		return nil, fmt.Errorf("insert log: %w", err)
	}
	return entry, nil
}

// GetLog retrieves a single entry by id.
func (s *Store) GetLog(ctx context.Context, id string) (*models.AccessLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry models.AccessLogEntry
	if err := s.getByIndex([]byte(logIDPrefix+id), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindLogs returns entries matching the filter, in insertion order. A zero
// filter returns every entry.
func (s *Store) FindLogs(ctx context.Context, filter models.LogFilter) ([]models.AccessLogEntry, error) {
	entries := make([]models.AccessLogEntry, 0)

	err := s.scan(ctx, logPrefix, func(val []byte) error {
		var entry models.AccessLogEntry
		if err := json.Unmarshal(val, &entry); err != nil {
			return fmt.Errorf("unmarshal log: %w", err)
		}
		if filter.Matches(&entry) {
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find logs: %w", err)
	}
	return entries, nil
}
