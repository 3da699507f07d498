// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package ingest accepts and stores access log entries, the raw material the
// audit executor filters over.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/custodia/internal/archive"
	"github.com/tomtom215/custodia/internal/models"
)

// LogStore defines the store operations required by log ingestion.
// Satisfied by *store.Store.
type LogStore interface {
	InsertLog(ctx context.Context, entry *models.AccessLogEntry) (*models.AccessLogEntry, error)
	FindLogs(ctx context.Context, filter models.LogFilter) ([]models.AccessLogEntry, error)
}

// Service records AI data accesses and answers filtered log queries.
type Service struct {
	store    LogStore
	archiver *archive.Background
	logger   zerolog.Logger
}

// NewService creates a new log ingestion service.
func NewService(logs LogStore, archiver *archive.Background, logger *zerolog.Logger) *Service {
	return &Service{
		store:    logs,
		archiver: archiver,
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

// RecordAccess normalizes and persists one access log entry.
//
// The id and timestamp are server-assigned at insert so callers cannot
// backdate entries. The stored entry is mirrored to blob storage in the
// background; archival failure never fails or delays the call.
func (s *Service) RecordAccess(ctx context.Context, req *models.SubmitLogRequest) (*models.AccessLogEntry, error) {
	entry := &models.AccessLogEntry{
		AISystem:       req.AISystem,
		DataAccessed:   normalizeList(req.DataAccessed),
		Purpose:        normalizeList(req.Purpose),
		Kind:           req.Kind,
		Details:        req.Details,
		UserIdentifier: req.UserIdentifier,
		Timestamp:      time.Now().UTC(),
	}

	entry, err := s.store.InsertLog(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("record access: %w", err)
	}

	s.logger.Debug().
		Str("id", entry.ID).
		Str("ai_system", entry.AISystem).
		Str("kind", entry.Kind).
		Msg("Access log entry recorded")

	s.archiver.StoreJSON(archive.LogsContainer, entry.ID+".json", entry)

	return entry, nil
}

// FindLogs returns entries matching the filter in insertion order.
func (s *Service) FindLogs(ctx context.Context, filter models.LogFilter) ([]models.AccessLogEntry, error) {
	return s.store.FindLogs(ctx, filter)
}

// normalizeList guarantees a non-nil ordered list. StringList decoding
// already wraps scalars; this covers callers constructing requests directly.
func normalizeList(l models.StringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}
