// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package api provides the HTTP surface of Custodia using the Chi router:
// access log submission and query, API key management, and audit lifecycle
// endpoints, all gated by the API key middleware.
package api

import (
	"context"
	"time"

	"github.com/tomtom215/custodia/internal/audit"
	"github.com/tomtom215/custodia/internal/auth"
	"github.com/tomtom215/custodia/internal/ingest"
	"github.com/tomtom215/custodia/internal/models"
)

// AuditReader defines the read-side store operations the audit endpoints
// need. Satisfied by *store.Store.
type AuditReader interface {
	GetAudit(ctx context.Context, id string) (*models.AuditRecord, error)
	ListAudits(ctx context.Context) ([]models.AuditRecord, error)
}

// Handler holds the services the HTTP endpoints dispatch to.
type Handler struct {
	keys      *auth.Manager
	ingest    *ingest.Service
	scheduler *audit.Scheduler
	audits    AuditReader

	startedAt time.Time
}

// NewHandler creates the endpoint dispatcher.
func NewHandler(keys *auth.Manager, ingestSvc *ingest.Service, scheduler *audit.Scheduler, audits AuditReader) *Handler {
	return &Handler{
		keys:      keys,
		ingest:    ingestSvc,
		scheduler: scheduler,
		audits:    audits,
		startedAt: time.Now(),
	}
}
