// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package analysis turns a set of access log entries into a human-readable
// anomaly assessment by calling an external language-model service.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/custodia/internal/models"
)

// systemPrompt frames the model as an auditor.
const systemPrompt = "You are an expert auditor analyzing AI access logs."

// Analyzer produces an analysis text for zero or more log entries.
// Implementations must accept an empty slice without error; the audit
// executor treats any returned error as a terminal execution failure.
type Analyzer interface {
	Analyze(ctx context.Context, entries []models.AccessLogEntry) (string, error)
}

// buildPrompt renders the log entries into the analysis request text.
func buildPrompt(entries []models.AccessLogEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("Time: %s, AI System: %s, Data Accessed: %s, Purpose: %s, Details: %s",
			e.Timestamp.UTC().Format(time.RFC3339),
			e.AISystem,
			strings.Join(e.DataAccessed, ", "),
			strings.Join(e.Purpose, ", "),
			e.Details,
		)
	}

	return fmt.Sprintf(
		"Analyze the following log entries for anomalies or suspicious patterns:\n\n%s\n\nProvide a concise analysis.",
		strings.Join(lines, "\n\n"),
	)
}
