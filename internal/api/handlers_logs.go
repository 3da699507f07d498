// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// handlers_logs.go - Access Log Endpoints
//
// Endpoints:
//   - POST /api/v1/logs - Record an AI data access event
//   - GET  /api/v1/logs - Query recorded events
//
// Timestamps are server-assigned at ingestion; callers cannot backdate or
// forward-date entries.
package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tomtom215/custodia/internal/models"
)

// LogSubmit records one AI data access event.
//
// Method: POST
// Path: /api/v1/logs
//
// Request Body: SubmitLogRequest. dataAccessed and purpose accept either a
// single string or an array of strings.
//
// Response: the stored AccessLogEntry with its assigned id and timestamp.
func (h *Handler) LogSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitLogRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	start := time.Now()

	entry, err := h.ingest.RecordAccess(r.Context(), &req)
	if err != nil {
		log.Error().Err(err).
			Str("ai_system", sanitizeLogValue(req.AISystem)).
			Msg("Failed to record access log entry")
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to record log entry", err)
		return
	}

	respondSuccess(w, http.StatusCreated, entry, start)
}

// LogQuery returns recorded access events, optionally filtered.
//
// Method: GET
// Path: /api/v1/logs
//
// Query Parameters:
//   - aiSystem: exact match on the reporting system
//   - purpose: matches entries whose purpose list contains the value
//
// Results are in insertion order.
func (h *Handler) LogQuery(w http.ResponseWriter, r *http.Request) {
	filter := models.LogFilter{
		AISystem: r.URL.Query().Get("aiSystem"),
		Purpose:  r.URL.Query().Get("purpose"),
	}

	start := time.Now()

	entries, err := h.ingest.FindLogs(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query access log")
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to query log entries", err)
		return
	}

	respondSuccess(w, http.StatusOK, entries, start)
}
