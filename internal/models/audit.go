// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package models

import "time"

// AuditStatus is the lifecycle state of an audit.
//
// Transitions: scheduled -> completed, scheduled -> failed. Completed and
// failed are terminal; nothing transitions out of them.
type AuditStatus string

const (
	AuditScheduled AuditStatus = "scheduled"
	AuditCompleted AuditStatus = "completed"
	AuditFailed    AuditStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s AuditStatus) Terminal() bool {
	return s == AuditCompleted || s == AuditFailed
}

// Valid reports whether the status is one of the known states.
func (s AuditStatus) Valid() bool {
	return s == AuditScheduled || s == AuditCompleted || s == AuditFailed
}

// Criteria is the filter specification of an audit. All fields are optional;
// the zero Criteria matches every access log entry.
type Criteria struct {
	// AISystem, when non-empty, is an equality predicate on the entry's
	// aiSystem field.
	AISystem string `json:"aiSystem,omitempty"`

	// StartDate and EndDate, when set, bound the entry timestamp (inclusive
	// start, exclusive end).
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Matches reports whether an entry satisfies every predicate in the criteria.
func (c Criteria) Matches(e *AccessLogEntry) bool {
	if c.AISystem != "" && e.AISystem != c.AISystem {
		return false
	}
	if c.StartDate != nil && e.Timestamp.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && !e.Timestamp.Before(*c.EndDate) {
		return false
	}
	return true
}

// AuditRecord represents one audit lifecycle instance.
//
// ID is assigned at creation, is stable for the record's lifetime, and doubles
// as the scheduler's job key: two audits can never share a timer slot.
//
// Logs, Analysis, and ExecutedAt are absent while Status is scheduled.
// Analysis is present only when Status is completed.
type AuditRecord struct {
	ID          string      `json:"id"`
	Criteria    Criteria    `json:"criteria"`
	ScheduledAt time.Time   `json:"scheduledAt"`
	Status      AuditStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`

	// Logs holds the ids of entries that matched the criteria at execution
	// time, in store order.
	Logs []string `json:"logs,omitempty"`

	// Analysis is the text returned by the analysis service.
	Analysis string `json:"analysis,omitempty"`

	// ExecutedAt is the wall-clock time execution began.
	ExecutedAt *time.Time `json:"executedAt,omitempty"`
}

// LogFilter is an exact-match conjunction over access log fields. A zero
// field means no constraint. Purpose matches entries whose purpose list
// contains the value.
type LogFilter struct {
	AISystem string
	Purpose  string
}

// Matches reports whether an entry satisfies the filter.
func (f LogFilter) Matches(e *AccessLogEntry) bool {
	if f.AISystem != "" && e.AISystem != f.AISystem {
		return false
	}
	if f.Purpose != "" {
		found := false
		for _, p := range e.Purpose {
			if p == f.Purpose {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
