// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package archive

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Background wraps an Archiver with fire-and-forget semantics: StoreJSON
// returns immediately and runs the upload in a detached goroutine with its
// own timeout. Failures are logged on a dedicated channel, never propagated.
type Background struct {
	archiver Archiver
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewBackground creates a background archival wrapper.
func NewBackground(archiver Archiver, timeout time.Duration, logger *zerolog.Logger) *Background {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Background{
		archiver: archiver,
		timeout:  timeout,
		logger:   logger.With().Str("component", "archive").Logger(),
	}
}

// StoreJSON marshals doc and uploads it as container/name in the background.
// The upload is detached from the caller's context so request cancellation
// does not abort it.
func (b *Background) StoreJSON(container, name string, doc interface{}) {
	payload, err := json.Marshal(doc)
	if err != nil {
		b.logger.Error().Err(err).
			Str("container", container).
			Str("name", name).
			Msg("Failed to marshal record for archival")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		if err := b.archiver.Store(ctx, container, name, payload); err != nil {
			b.logger.Warn().Err(err).
				Str("container", container).
				Str("name", name).
				Msg("Blob archival failed")
		}
	}()
}
