// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// StringList accepts either a JSON string or a JSON array of strings.
// The reference API lets callers submit "dataAccessed": "records" or
// "dataAccessed": ["records", "emails"]; both decode to a list.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*l = StringList(items)
	return nil
}

// SubmitLogRequest is the body of POST /api/v1/logs.
type SubmitLogRequest struct {
	AISystem       string     `json:"aiSystem" validate:"required,max=256"`
	DataAccessed   StringList `json:"dataAccessed" validate:"required,min=1,dive,max=1024"`
	Purpose        StringList `json:"purpose" validate:"required,min=1,dive,max=1024"`
	Kind           string     `json:"kind" validate:"required,max=128"`
	Details        string     `json:"details" validate:"omitempty,max=4096"`
	UserIdentifier string     `json:"userIdentifier" validate:"omitempty,max=256"`
}

// IssueKeyRequest is the body of POST /api/v1/keys.
type IssueKeyRequest struct {
	Scopes []string `json:"scopes" validate:"omitempty,dive,max=64"`

	// Expiration is an optional RFC3339 timestamp. Empty means never expires.
	Expiration string `json:"expiration" validate:"omitempty"`

	// RateLimit is an optional per-window request cap for the key.
	RateLimit *int `json:"rateLimit" validate:"omitempty,gt=0"`

	Owner string `json:"owner" validate:"required,max=256"`
}

// SubmitAuditRequest is the body of POST /api/v1/audits.
type SubmitAuditRequest struct {
	Criteria CriteriaRequest `json:"criteria"`

	// ScheduledAt is the RFC3339 execution time. A past timestamp fires
	// immediately.
	ScheduledAt string `json:"scheduledAt" validate:"required"`
}

// CriteriaRequest is the wire shape of audit criteria. Fields are optional;
// an empty criteria matches every log entry.
type CriteriaRequest struct {
	AISystem  string `json:"aiSystem" validate:"omitempty,max=256"`
	StartDate string `json:"startDate" validate:"omitempty"`
	EndDate   string `json:"endDate" validate:"omitempty"`
}
