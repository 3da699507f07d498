// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/custodia/internal/archive"
	"github.com/tomtom215/custodia/internal/models"
	"github.com/tomtom215/custodia/internal/store"
)

// mockAuditStore is a mock implementation of ExecutorStore and
// SchedulerStore. Uses mutex for thread-safe access since executions run in
// timer goroutines.
type mockAuditStore struct {
	mu        sync.RWMutex
	audits    map[string]*models.AuditRecord
	order     []string
	logs      []models.AccessLogEntry
	insertErr error
	getErr    error
	updateErr error
	findErr   error

	// updated receives the audit id after every successful UpdateAudit.
	updated chan string
}

func newMockAuditStore() *mockAuditStore {
	return &mockAuditStore{
		audits:  make(map[string]*models.AuditRecord),
		updated: make(chan string, 16),
	}
}

func (m *mockAuditStore) InsertAudit(ctx context.Context, rec *models.AuditRecord) (*models.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	rec.ID = uuid.NewString()
	stored := *rec
	m.audits[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	result := stored
	return &result, nil
}

func (m *mockAuditStore) GetAudit(ctx context.Context, id string) (*models.AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.audits[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	recCopy := *rec
	return &recCopy, nil
}

func (m *mockAuditStore) UpdateAudit(ctx context.Context, id string, mutate func(*models.AuditRecord) error) (*models.AuditRecord, error) {
	m.mu.Lock()
	if m.updateErr != nil {
		m.mu.Unlock()
		return nil, m.updateErr
	}
	rec, ok := m.audits[id]
	if !ok {
		m.mu.Unlock()
		return nil, store.ErrNotFound
	}
	recCopy := *rec
	if err := mutate(&recCopy); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.audits[id] = &recCopy
	result := recCopy
	m.mu.Unlock()

	m.updated <- id
	return &result, nil
}

func (m *mockAuditStore) ListAuditsByStatus(ctx context.Context, status models.AuditStatus) ([]models.AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.AuditRecord
	for _, id := range m.order {
		if rec := m.audits[id]; rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *mockAuditStore) FindLogs(ctx context.Context, filter models.LogFilter) ([]models.AccessLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []models.AccessLogEntry
	for _, entry := range m.logs {
		if filter.Matches(&entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// seedAudit installs a record directly, bypassing InsertAudit.
func (m *mockAuditStore) seedAudit(rec *models.AuditRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits[rec.ID] = rec
	m.order = append(m.order, rec.ID)
}

func (m *mockAuditStore) audit(id string) models.AuditRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.audits[id]
}

// mockAnalyzer is a configurable analysis.Analyzer.
type mockAnalyzer struct {
	mu      sync.Mutex
	result  string
	err     error
	entries []models.AccessLogEntry
	calls   int
}

func (a *mockAnalyzer) Analyze(ctx context.Context, entries []models.AccessLogEntry) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = a.calls + 1
	a.entries = entries
	if a.err != nil {
		return "", a.err
	}
	return a.result, nil
}

func (a *mockAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func newTestExecutor(mock *mockAuditStore, analyzer *mockAnalyzer) *Executor {
	logger := zerolog.Nop()
	background := archive.NewBackground(archive.Noop{}, time.Second, &logger)
	return NewExecutor(mock, analyzer, background, &logger, time.Minute)
}

func waitForUpdate(t *testing.T, mock *mockAuditStore) string {
	t.Helper()
	select {
	case id := <-mock.updated:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for audit update")
		return ""
	}
}

func TestExecutor_Execute_Completes(t *testing.T) {
	mock := newMockAuditStore()
	mock.logs = []models.AccessLogEntry{
		{ID: "log-1", AISystem: "VisionBot", Timestamp: time.Now().UTC()},
		{ID: "log-2", AISystem: "ChatAssist", Timestamp: time.Now().UTC()},
		{ID: "log-3", AISystem: "VisionBot", Timestamp: time.Now().UTC()},
	}
	mock.seedAudit(&models.AuditRecord{
		ID:       "audit-1",
		Criteria: models.Criteria{AISystem: "VisionBot"},
		Status:   models.AuditScheduled,
	})

	analyzer := &mockAnalyzer{result: "access patterns look normal"}
	executor := newTestExecutor(mock, analyzer)

	executor.Execute(context.Background(), "audit-1")

	rec := mock.audit("audit-1")
	if rec.Status != models.AuditCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if len(rec.Logs) != 2 || rec.Logs[0] != "log-1" || rec.Logs[1] != "log-3" {
		t.Errorf("expected VisionBot log ids, got %v", rec.Logs)
	}
	if rec.Analysis != "access patterns look normal" {
		t.Errorf("unexpected analysis: %q", rec.Analysis)
	}
	if rec.ExecutedAt == nil {
		t.Error("executedAt not set")
	}
	if len(analyzer.entries) != 2 {
		t.Errorf("analyzer received %d entries, expected 2", len(analyzer.entries))
	}
}

func TestExecutor_Execute_AnalysisFailure(t *testing.T) {
	mock := newMockAuditStore()
	mock.logs = []models.AccessLogEntry{
		{ID: "log-1", AISystem: "VisionBot", Timestamp: time.Now().UTC()},
	}
	mock.seedAudit(&models.AuditRecord{
		ID:       "audit-1",
		Criteria: models.Criteria{AISystem: "VisionBot"},
		Status:   models.AuditScheduled,
	})

	analyzer := &mockAnalyzer{err: errors.New("model unavailable")}
	executor := newTestExecutor(mock, analyzer)

	executor.Execute(context.Background(), "audit-1")

	rec := mock.audit("audit-1")
	if rec.Status != models.AuditFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	// A failed audit carries no partial results.
	if rec.Logs != nil || rec.Analysis != "" || rec.ExecutedAt != nil {
		t.Errorf("failed audit carries execution results: %+v", rec)
	}
}

func TestExecutor_Execute_LogSelectionFailure(t *testing.T) {
	mock := newMockAuditStore()
	mock.findErr = errors.New("store unavailable")
	mock.seedAudit(&models.AuditRecord{
		ID:     "audit-1",
		Status: models.AuditScheduled,
	})

	analyzer := &mockAnalyzer{result: "unused"}
	executor := newTestExecutor(mock, analyzer)

	executor.Execute(context.Background(), "audit-1")

	rec := mock.audit("audit-1")
	if rec.Status != models.AuditFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	if analyzer.callCount() != 0 {
		t.Error("analyzer called despite selection failure")
	}
}

func TestExecutor_Execute_CompletedWriteFailure(t *testing.T) {
	mock := newMockAuditStore()
	mock.logs = []models.AccessLogEntry{
		{ID: "log-1", AISystem: "VisionBot", Timestamp: time.Now().UTC()},
	}
	mock.seedAudit(&models.AuditRecord{
		ID:       "audit-1",
		Criteria: models.Criteria{AISystem: "VisionBot"},
		Status:   models.AuditScheduled,
	})
	mock.updateErr = errors.New("store unavailable")

	analyzer := &mockAnalyzer{result: "access patterns look normal"}
	executor := newTestExecutor(mock, analyzer)

	executor.Execute(context.Background(), "audit-1")

	// The analysis ran but its outcome could not be recorded; the record
	// stays in scheduled with no partial results.
	rec := mock.audit("audit-1")
	if rec.Status != models.AuditScheduled {
		t.Fatalf("expected scheduled, got %s", rec.Status)
	}
	if rec.Logs != nil || rec.Analysis != "" || rec.ExecutedAt != nil {
		t.Errorf("stuck record carries partial results: %+v", rec)
	}
	if analyzer.callCount() != 1 {
		t.Errorf("expected 1 analyzer call, got %d", analyzer.callCount())
	}
}

func TestExecutor_Execute_FailedWriteFailure(t *testing.T) {
	mock := newMockAuditStore()
	mock.logs = []models.AccessLogEntry{
		{ID: "log-1", AISystem: "VisionBot", Timestamp: time.Now().UTC()},
	}
	mock.seedAudit(&models.AuditRecord{
		ID:       "audit-1",
		Criteria: models.Criteria{AISystem: "VisionBot"},
		Status:   models.AuditScheduled,
	})
	mock.updateErr = errors.New("store unavailable")

	analyzer := &mockAnalyzer{err: errors.New("model unavailable")}
	executor := newTestExecutor(mock, analyzer)

	executor.Execute(context.Background(), "audit-1")

	// Even the failed transition could not be written; the record stays in
	// scheduled rather than being silently lost.
	rec := mock.audit("audit-1")
	if rec.Status != models.AuditScheduled {
		t.Fatalf("expected scheduled, got %s", rec.Status)
	}
	if rec.Logs != nil || rec.Analysis != "" || rec.ExecutedAt != nil {
		t.Errorf("stuck record carries partial results: %+v", rec)
	}
}

func TestExecutor_Execute_AlreadyTerminal(t *testing.T) {
	mock := newMockAuditStore()
	mock.seedAudit(&models.AuditRecord{
		ID:       "audit-1",
		Status:   models.AuditCompleted,
		Analysis: "previous result",
	})

	analyzer := &mockAnalyzer{result: "new result"}
	executor := newTestExecutor(mock, analyzer)

	executor.Execute(context.Background(), "audit-1")

	rec := mock.audit("audit-1")
	if rec.Analysis != "previous result" {
		t.Error("execution mutated a terminal record")
	}
	if analyzer.callCount() != 0 {
		t.Error("analyzer called for a terminal record")
	}
}

func TestExecutor_Execute_DateBounds(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := newMockAuditStore()
	mock.logs = []models.AccessLogEntry{
		{ID: "before", AISystem: "VisionBot", Timestamp: base.Add(-time.Hour)},
		{ID: "at-start", AISystem: "VisionBot", Timestamp: base},
		{ID: "inside", AISystem: "VisionBot", Timestamp: base.Add(30 * time.Minute)},
		{ID: "at-end", AISystem: "VisionBot", Timestamp: base.Add(time.Hour)},
	}
	end := base.Add(time.Hour)
	mock.seedAudit(&models.AuditRecord{
		ID: "audit-1",
		Criteria: models.Criteria{
			AISystem:  "VisionBot",
			StartDate: &base,
			EndDate:   &end,
		},
		Status: models.AuditScheduled,
	})

	executor := newTestExecutor(mock, &mockAnalyzer{result: "ok"})
	executor.Execute(context.Background(), "audit-1")

	rec := mock.audit("audit-1")
	// Start is inclusive, end is exclusive.
	if len(rec.Logs) != 2 || rec.Logs[0] != "at-start" || rec.Logs[1] != "inside" {
		t.Errorf("unexpected selection: %v", rec.Logs)
	}
}

func TestExecutor_Execute_EmptySelection(t *testing.T) {
	mock := newMockAuditStore()
	mock.seedAudit(&models.AuditRecord{
		ID:       "audit-1",
		Criteria: models.Criteria{AISystem: "NoSuchSystem"},
		Status:   models.AuditScheduled,
	})

	analyzer := &mockAnalyzer{result: "nothing to report"}
	executor := newTestExecutor(mock, analyzer)

	executor.Execute(context.Background(), "audit-1")

	rec := mock.audit("audit-1")
	if rec.Status != models.AuditCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if len(rec.Logs) != 0 {
		t.Errorf("expected no matched logs, got %v", rec.Logs)
	}
	// Zero matches still go through analysis; an empty window is itself a
	// finding.
	if analyzer.callCount() != 1 {
		t.Errorf("expected 1 analyzer call, got %d", analyzer.callCount())
	}
}
