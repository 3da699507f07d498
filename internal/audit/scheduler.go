// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/custodia/internal/models"
)

// SchedulerStore defines the store operations required by the scheduler.
// Satisfied by *store.Store.
type SchedulerStore interface {
	InsertAudit(ctx context.Context, rec *models.AuditRecord) (*models.AuditRecord, error)
	ListAuditsByStatus(ctx context.Context, status models.AuditStatus) ([]models.AuditRecord, error)
}

// SchedulerConfig controls scheduler behavior.
type SchedulerConfig struct {
	// RearmOnStart re-arms timers for persisted scheduled audits at
	// startup. Their original scheduledAt is honored; past times fire
	// immediately.
	RearmOnStart bool

	// MaxConcurrentExecutions bounds simultaneously running executions.
	// Timers that fire while the limit is reached wait their turn.
	MaxConcurrentExecutions int
}

// Scheduler owns the in-memory one-shot timers that drive audit execution.
// Timers are process-local; durability comes from the persisted records,
// which are re-armed on startup.
type Scheduler struct {
	store    SchedulerStore
	executor *Executor
	logger   zerolog.Logger
	cfg      SchedulerConfig

	mu      sync.Mutex
	running bool
	timers  map[string]*time.Timer

	// baseCtx is the lifetime of the scheduler; cancelling it aborts
	// in-flight executions during shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewScheduler creates a new audit scheduler.
func NewScheduler(store SchedulerStore, executor *Executor, logger *zerolog.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.MaxConcurrentExecutions <= 0 {
		cfg.MaxConcurrentExecutions = 8
	}
	return &Scheduler{
		store:    store,
		executor: executor,
		logger:   logger.With().Str("component", "audit-scheduler").Logger(),
		cfg:      cfg,
		timers:   make(map[string]*time.Timer),
		sem:      make(chan struct{}, cfg.MaxConcurrentExecutions),
	}
}

// Start begins accepting submissions and, when configured, re-arms timers
// for audits persisted in the scheduled state.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("audit scheduler already started")
	}
	s.running = true
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.logger.Info().
		Bool("rearm_on_start", s.cfg.RearmOnStart).
		Int("max_concurrent", s.cfg.MaxConcurrentExecutions).
		Msg("Audit scheduler started")

	if !s.cfg.RearmOnStart {
		return nil
	}

	pending, err := s.store.ListAuditsByStatus(ctx, models.AuditScheduled)
	if err != nil {
		// Roll back so a supervised restart can call Start again.
		s.Stop()
		return fmt.Errorf("list scheduled audits: %w", err)
	}
	for i := range pending {
		s.arm(&pending[i])
	}
	if len(pending) > 0 {
		s.logger.Info().Int("count", len(pending)).Msg("Re-armed persisted scheduled audits")
	}
	return nil
}

// Stop cancels pending timers, aborts in-flight executions, and waits for
// them to drain. Records whose timers were cancelled stay scheduled and
// will be re-armed on the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
		PendingTimers.Dec()
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info().Msg("Audit scheduler stopped")
}

// Submit persists a new audit record in the scheduled state and arms its
// one-shot timer. A scheduledAt in the past is accepted and fires
// immediately. Duplicate criteria produce independent records.
func (s *Scheduler) Submit(ctx context.Context, criteria models.Criteria, scheduledAt time.Time) (*models.AuditRecord, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("audit scheduler not running")
	}
	s.mu.Unlock()

	rec := &models.AuditRecord{
		Criteria:    criteria,
		ScheduledAt: scheduledAt.UTC(),
		Status:      models.AuditScheduled,
		CreatedAt:   time.Now().UTC(),
	}
	rec, err := s.store.InsertAudit(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("insert audit: %w", err)
	}

	s.arm(rec)
	ScheduledTotal.Inc()

	s.logger.Info().
		Str("audit_id", rec.ID).
		Str("ai_system", criteria.AISystem).
		Time("scheduled_at", rec.ScheduledAt).
		Msg("Audit scheduled")

	return rec, nil
}

// arm installs the one-shot timer for a scheduled record. Safe to call only
// while running.
func (s *Scheduler) arm(rec *models.AuditRecord) {
	delay := time.Until(rec.ScheduledAt)
	if delay < 0 {
		delay = 0
	}

	id := rec.ID
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
	PendingTimers.Inc()
	s.mu.Unlock()
}

// fire runs when a timer expires. It respects the concurrency cap and the
// scheduler's lifetime context.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	if _, ok := s.timers[id]; ok {
		delete(s.timers, id)
		PendingTimers.Dec()
	}
	if !s.running {
		s.mu.Unlock()
		return
	}
	ctx := s.baseCtx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-s.sem }()

		s.executor.Execute(ctx, id)
	}()
}
