// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package audit implements the audit lifecycle engine: durable one-shot
// scheduling of audit requests and their exactly-once execution against the
// access log.
//
// State machine: scheduled -> completed | failed. Both outcomes are
// terminal; there is no cancellation and no retry. A failed final
// status-write is the one unrecoverable case: it leaves the record stuck in
// scheduled, which is logged loudly and covered by tests.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/custodia/internal/analysis"
	"github.com/tomtom215/custodia/internal/archive"
	"github.com/tomtom215/custodia/internal/models"
)

// ErrTerminal indicates an attempted transition out of a terminal status.
var ErrTerminal = errors.New("audit: record already in terminal status")

// ExecutorStore defines the store operations required by the executor.
// Satisfied by *store.Store.
type ExecutorStore interface {
	GetAudit(ctx context.Context, id string) (*models.AuditRecord, error)
	UpdateAudit(ctx context.Context, id string, mutate func(*models.AuditRecord) error) (*models.AuditRecord, error)
	FindLogs(ctx context.Context, filter models.LogFilter) ([]models.AccessLogEntry, error)
}

// Executor performs the work when a scheduled audit fires: select matching
// log entries, invoke the analysis service, and record the terminal state.
type Executor struct {
	store    ExecutorStore
	analyzer analysis.Analyzer
	archiver *archive.Background
	logger   zerolog.Logger

	// analysisTimeout bounds the analysis call; expiry is a normal
	// execution failure.
	analysisTimeout time.Duration
}

// NewExecutor creates a new audit executor.
func NewExecutor(store ExecutorStore, analyzer analysis.Analyzer, archiver *archive.Background, logger *zerolog.Logger, analysisTimeout time.Duration) *Executor {
	if analysisTimeout <= 0 {
		analysisTimeout = 2 * time.Minute
	}
	return &Executor{
		store:           store,
		analyzer:        analyzer,
		archiver:        archiver,
		logger:          logger.With().Str("component", "audit-executor").Logger(),
		analysisTimeout: analysisTimeout,
	}
}

// Execute runs one audit to a terminal state. Any failure along the way
// transitions the record to failed; no error is returned to the scheduler
// because a fired job has no caller left to handle it.
func (e *Executor) Execute(ctx context.Context, id string) {
	startTime := time.Now().UTC()
	logger := e.logger.With().Str("audit_id", id).Logger()

	rec, err := e.store.GetAudit(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load audit for execution")
		e.fail(ctx, id, &logger)
		ExecutionsTotal.WithLabelValues("failed").Inc()
		return
	}
	if rec.Status != models.AuditScheduled {
		// A timer fired for a record that already reached a terminal
		// state; nothing to do.
		logger.Warn().Str("status", string(rec.Status)).Msg("Audit already terminal, skipping execution")
		return
	}

	logger.Info().
		Str("ai_system", rec.Criteria.AISystem).
		Time("scheduled_at", rec.ScheduledAt).
		Msg("Executing audit")

	entries, err := e.matchingEntries(ctx, rec.Criteria)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to select log entries")
		e.fail(ctx, id, &logger)
		ExecutionsTotal.WithLabelValues("failed").Inc()
		return
	}

	analysisCtx, cancel := context.WithTimeout(ctx, e.analysisTimeout)
	result, err := e.analyzer.Analyze(analysisCtx, entries)
	cancel()
	if err != nil {
		logger.Error().Err(err).Int("matched", len(entries)).Msg("Analysis service call failed")
		e.fail(ctx, id, &logger)
		ExecutionsTotal.WithLabelValues("failed").Inc()
		return
	}

	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}

	updated, err := e.store.UpdateAudit(ctx, id, func(r *models.AuditRecord) error {
		if r.Status.Terminal() {
			return ErrTerminal
		}
		r.Logs = ids
		r.Analysis = result
		r.ExecutedAt = &startTime
		r.Status = models.AuditCompleted
		return nil
	})
	if err != nil {
		// The work is done but the outcome could not be recorded; the
		// record stays scheduled. Known failure class, do not mask it.
		logger.Error().Err(err).Msg("Failed to persist completed audit; record remains scheduled")
		ExecutionsTotal.WithLabelValues("stuck").Inc()
		return
	}

	ExecutionsTotal.WithLabelValues("completed").Inc()
	logger.Info().
		Int("matched", len(ids)).
		Dur("duration", time.Since(startTime)).
		Msg("Audit completed")

	e.archiver.StoreJSON(archive.AuditsContainer, updated.ID+".json", updated)
}

// matchingEntries selects the entries the audit's criteria cover. The store
// filter handles the aiSystem equality; date bounds apply on top.
func (e *Executor) matchingEntries(ctx context.Context, criteria models.Criteria) ([]models.AccessLogEntry, error) {
	entries, err := e.store.FindLogs(ctx, models.LogFilter{AISystem: criteria.AISystem})
	if err != nil {
		return nil, fmt.Errorf("find logs: %w", err)
	}

	if criteria.StartDate == nil && criteria.EndDate == nil {
		return entries, nil
	}

	matched := entries[:0]
	for _, entry := range entries {
		if criteria.Matches(&entry) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// fail performs the best-effort transition to failed. If this update itself
// fails the record is left in scheduled indefinitely; that is logged as an
// error rather than silently accepted.
func (e *Executor) fail(ctx context.Context, id string, logger *zerolog.Logger) {
	_, err := e.store.UpdateAudit(ctx, id, func(r *models.AuditRecord) error {
		if r.Status.Terminal() {
			return ErrTerminal
		}
		r.Status = models.AuditFailed
		return nil
	})
	if err != nil && !errors.Is(err, ErrTerminal) {
		logger.Error().Err(err).Msg("Failed to mark audit failed; record remains scheduled")
		ExecutionsTotal.WithLabelValues("stuck").Inc()
	}
}
