// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package models

import (
	"testing"
	"time"
)

func TestAuditStatus(t *testing.T) {
	if AuditScheduled.Terminal() {
		t.Error("scheduled must not be terminal")
	}
	if !AuditCompleted.Terminal() || !AuditFailed.Terminal() {
		t.Error("completed and failed are terminal")
	}
	if !AuditScheduled.Valid() || !AuditCompleted.Valid() || !AuditFailed.Valid() {
		t.Error("known statuses must be valid")
	}
	if AuditStatus("cancelled").Valid() {
		t.Error("unknown status must be invalid")
	}
}

func TestCriteria_Matches(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := base.Add(time.Hour)

	entry := func(system string, ts time.Time) *AccessLogEntry {
		return &AccessLogEntry{AISystem: system, Timestamp: ts}
	}

	tests := []struct {
		name     string
		criteria Criteria
		entry    *AccessLogEntry
		want     bool
	}{
		{
			name:     "zero criteria matches everything",
			criteria: Criteria{},
			entry:    entry("VisionBot", base),
			want:     true,
		},
		{
			name:     "aiSystem mismatch",
			criteria: Criteria{AISystem: "VisionBot"},
			entry:    entry("ChatAssist", base),
			want:     false,
		},
		{
			name:     "start date inclusive",
			criteria: Criteria{StartDate: &base},
			entry:    entry("VisionBot", base),
			want:     true,
		},
		{
			name:     "before start date",
			criteria: Criteria{StartDate: &base},
			entry:    entry("VisionBot", base.Add(-time.Second)),
			want:     false,
		},
		{
			name:     "end date exclusive",
			criteria: Criteria{EndDate: &end},
			entry:    entry("VisionBot", end),
			want:     false,
		},
		{
			name:     "inside window",
			criteria: Criteria{AISystem: "VisionBot", StartDate: &base, EndDate: &end},
			entry:    entry("VisionBot", base.Add(time.Minute)),
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.criteria.Matches(tt.entry); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLogFilter_Matches(t *testing.T) {
	entry := &AccessLogEntry{
		AISystem: "VisionBot",
		Purpose:  []string{"training", "evaluation"},
	}

	if !(LogFilter{}).Matches(entry) {
		t.Error("zero filter must match")
	}
	if !(LogFilter{AISystem: "VisionBot"}).Matches(entry) {
		t.Error("aiSystem match failed")
	}
	if (LogFilter{AISystem: "ChatAssist"}).Matches(entry) {
		t.Error("aiSystem mismatch matched")
	}
	if !(LogFilter{Purpose: "evaluation"}).Matches(entry) {
		t.Error("purpose containment match failed")
	}
	if (LogFilter{Purpose: "inference"}).Matches(entry) {
		t.Error("absent purpose matched")
	}
}

func TestAPIKey_IsExpired(t *testing.T) {
	if (&APIKey{}).IsExpired() {
		t.Error("key without expiration must never expire")
	}

	past := time.Now().Add(-time.Minute)
	if !(&APIKey{Expiration: &past}).IsExpired() {
		t.Error("past expiration must report expired")
	}

	future := time.Now().Add(time.Minute)
	if (&APIKey{Expiration: &future}).IsExpired() {
		t.Error("future expiration must not report expired")
	}
}
