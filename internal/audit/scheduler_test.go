// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/custodia/internal/models"
)

func newTestScheduler(mock *mockAuditStore, cfg SchedulerConfig) *Scheduler {
	logger := zerolog.Nop()
	executor := newTestExecutor(mock, &mockAnalyzer{result: "ok"})
	return NewScheduler(mock, executor, &logger, cfg)
}

func TestScheduler_Submit_FutureAudit(t *testing.T) {
	mock := newMockAuditStore()
	scheduler := newTestScheduler(mock, SchedulerConfig{})

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer scheduler.Stop()

	rec, err := scheduler.Submit(context.Background(), models.Criteria{AISystem: "VisionBot"}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("no id assigned")
	}
	if rec.Status != models.AuditScheduled {
		t.Fatalf("expected scheduled, got %s", rec.Status)
	}
	if rec.Logs != nil || rec.Analysis != "" || rec.ExecutedAt != nil {
		t.Error("scheduled record must not carry execution results")
	}

	// The timer is an hour out; nothing may execute.
	select {
	case id := <-mock.updated:
		t.Fatalf("audit %s executed prematurely", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduler_Submit_PastTimestampFiresImmediately(t *testing.T) {
	mock := newMockAuditStore()
	scheduler := newTestScheduler(mock, SchedulerConfig{})

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer scheduler.Stop()

	rec, err := scheduler.Submit(context.Background(), models.Criteria{}, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := waitForUpdate(t, mock); got != rec.ID {
		t.Fatalf("expected %s to execute, got %s", rec.ID, got)
	}
	if mock.audit(rec.ID).Status != models.AuditCompleted {
		t.Fatalf("expected completed, got %s", mock.audit(rec.ID).Status)
	}
}

func TestScheduler_FailingAuditDoesNotBlockOthers(t *testing.T) {
	mock := newMockAuditStore()
	logger := zerolog.Nop()
	executor := newTestExecutor(mock, &mockAnalyzer{err: errors.New("model unavailable")})
	scheduler := NewScheduler(mock, executor, &logger, SchedulerConfig{})

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer scheduler.Stop()

	first, err := scheduler.Submit(context.Background(), models.Criteria{AISystem: "VisionBot"}, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := scheduler.Submit(context.Background(), models.Criteria{AISystem: "ChatAssist"}, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both timers fire and both executions reach a terminal state; the
	// first audit failing never stalls the second.
	executed := map[string]bool{
		waitForUpdate(t, mock): true,
		waitForUpdate(t, mock): true,
	}
	if !executed[first.ID] || !executed[second.ID] {
		t.Fatalf("expected both audits to execute, got %v", executed)
	}
	if got := mock.audit(first.ID).Status; got != models.AuditFailed {
		t.Errorf("first audit: expected failed, got %s", got)
	}
	if got := mock.audit(second.ID).Status; got != models.AuditFailed {
		t.Errorf("second audit: expected failed, got %s", got)
	}
}

func TestScheduler_Submit_DuplicateCriteria(t *testing.T) {
	mock := newMockAuditStore()
	scheduler := newTestScheduler(mock, SchedulerConfig{})

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer scheduler.Stop()

	criteria := models.Criteria{AISystem: "VisionBot"}
	at := time.Now().Add(time.Hour)

	first, err := scheduler.Submit(context.Background(), criteria, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := scheduler.Submit(context.Background(), criteria, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.ID == second.ID {
		t.Fatal("duplicate criteria must still produce independent audits")
	}
}

func TestScheduler_Submit_NotRunning(t *testing.T) {
	mock := newMockAuditStore()
	scheduler := newTestScheduler(mock, SchedulerConfig{})

	if _, err := scheduler.Submit(context.Background(), models.Criteria{}, time.Now()); err == nil {
		t.Fatal("expected error before Start")
	}

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheduler.Stop()

	if _, err := scheduler.Submit(context.Background(), models.Criteria{}, time.Now()); err == nil {
		t.Fatal("expected error after Stop")
	}
}

func TestScheduler_RearmOnStart(t *testing.T) {
	mock := newMockAuditStore()
	mock.seedAudit(&models.AuditRecord{
		ID:          "persisted-1",
		Status:      models.AuditScheduled,
		ScheduledAt: time.Now().Add(-time.Minute), // already due
	})
	mock.seedAudit(&models.AuditRecord{
		ID:          "persisted-2",
		Status:      models.AuditScheduled,
		ScheduledAt: time.Now().Add(time.Hour),
	})
	mock.seedAudit(&models.AuditRecord{
		ID:     "done-1",
		Status: models.AuditCompleted,
	})

	scheduler := newTestScheduler(mock, SchedulerConfig{RearmOnStart: true})
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer scheduler.Stop()

	// Only the overdue audit fires; the future one stays armed and the
	// completed one is never touched.
	if got := waitForUpdate(t, mock); got != "persisted-1" {
		t.Fatalf("expected persisted-1 to execute, got %s", got)
	}

	select {
	case id := <-mock.updated:
		t.Fatalf("unexpected execution of %s", id)
	case <-time.After(100 * time.Millisecond):
	}

	if mock.audit("persisted-2").Status != models.AuditScheduled {
		t.Error("future audit should remain scheduled")
	}
}

func TestScheduler_NoRearmWhenDisabled(t *testing.T) {
	mock := newMockAuditStore()
	mock.seedAudit(&models.AuditRecord{
		ID:          "persisted-1",
		Status:      models.AuditScheduled,
		ScheduledAt: time.Now().Add(-time.Minute),
	})

	scheduler := newTestScheduler(mock, SchedulerConfig{RearmOnStart: false})
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer scheduler.Stop()

	select {
	case id := <-mock.updated:
		t.Fatalf("unexpected execution of %s with rearm disabled", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduler_StopCancelsPendingTimers(t *testing.T) {
	mock := newMockAuditStore()
	scheduler := newTestScheduler(mock, SchedulerConfig{})

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := scheduler.Submit(context.Background(), models.Criteria{}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scheduler.Stop()

	// The record survives in the scheduled state for re-arming on the next
	// start.
	if mock.audit(rec.ID).Status != models.AuditScheduled {
		t.Fatalf("expected scheduled after Stop, got %s", mock.audit(rec.ID).Status)
	}
}

func TestScheduler_DoubleStart(t *testing.T) {
	mock := newMockAuditStore()
	scheduler := newTestScheduler(mock, SchedulerConfig{})

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer scheduler.Stop()

	if err := scheduler.Start(context.Background()); err == nil {
		t.Fatal("expected error on double start")
	}
}
