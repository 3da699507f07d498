// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package services

import (
	"context"
	"fmt"
)

// AuditSchedulerManager matches the audit scheduler's Start/Stop lifecycle.
// Satisfied by *audit.Scheduler.
type AuditSchedulerManager interface {
	Start(ctx context.Context) error
	Stop()
}

// AuditSchedulerService wraps the audit scheduler as a supervised service:
// Start arms the timer table (re-arming persisted audits when configured),
// the service then blocks until cancellation, and Stop drains in-flight
// executions. A restart by suture re-runs Start, so pending audits survive
// scheduler crashes.
type AuditSchedulerService struct {
	manager AuditSchedulerManager
	name    string
}

// NewAuditSchedulerService creates a new audit scheduler service wrapper.
func NewAuditSchedulerService(manager AuditSchedulerManager) *AuditSchedulerService {
	return &AuditSchedulerService{
		manager: manager,
		name:    "audit-scheduler",
	}
}

// Serve implements suture.Service.
func (s *AuditSchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("audit scheduler start failed: %w", err)
	}

	<-ctx.Done()

	s.manager.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *AuditSchedulerService) String() string {
	return s.name
}
