// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// Package archive mirrors records to external blob storage.
//
// Archival is strictly best-effort: the write path fires uploads in detached
// goroutines, observes errors only for logging, and never blocks or fails a
// request because the mirror is unavailable.
package archive

import "context"

// Container names used by the archival mirror.
const (
	LogsContainer   = "logs"
	AuditsContainer = "audits"
)

// Archiver stores a payload under container/name in external blob storage.
type Archiver interface {
	Store(ctx context.Context, container, name string, payload []byte) error
}

// Noop is an Archiver that discards every payload. Used when archival is
// disabled in configuration.
type Noop struct{}

// Store implements Archiver.
func (Noop) Store(context.Context, string, string, []byte) error { return nil }
