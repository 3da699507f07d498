// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// handlers_audits.go - Audit Lifecycle Endpoints
//
// Endpoints:
//   - POST /api/v1/audits      - Schedule an audit
//   - GET  /api/v1/audits      - List audits (optional status filter)
//   - GET  /api/v1/audits/{id} - Get one audit
//
// An accepted audit is persisted in the scheduled state before the response
// is written; the 201 is the durability acknowledgment. Execution happens
// when the one-shot timer fires, including immediately for past timestamps.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tomtom215/custodia/internal/models"
	"github.com/tomtom215/custodia/internal/store"
)

// AuditSubmit schedules a new audit.
//
// Method: POST
// Path: /api/v1/audits
//
// Request Body: SubmitAuditRequest. scheduledAt is RFC3339; a past time is
// accepted and executes immediately. Duplicate criteria are allowed and
// produce independent audits.
//
// Response: the persisted AuditRecord in the scheduled state.
func (h *Handler) AuditSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAuditRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	scheduledAt, err := parseRFC3339("scheduledAt", req.ScheduledAt)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	criteria := models.Criteria{AISystem: req.Criteria.AISystem}
	if req.Criteria.StartDate != "" {
		startDate, err := parseRFC3339("criteria.startDate", req.Criteria.StartDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		criteria.StartDate = &startDate
	}
	if req.Criteria.EndDate != "" {
		endDate, err := parseRFC3339("criteria.endDate", req.Criteria.EndDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		criteria.EndDate = &endDate
	}
	if criteria.StartDate != nil && criteria.EndDate != nil && criteria.EndDate.Before(*criteria.StartDate) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "criteria.endDate must not precede criteria.startDate", nil)
		return
	}

	start := time.Now()

	rec, err := h.scheduler.Submit(r.Context(), criteria, scheduledAt)
	if err != nil {
		log.Error().Err(err).
			Str("ai_system", sanitizeLogValue(criteria.AISystem)).
			Msg("Failed to schedule audit")
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to schedule audit", err)
		return
	}

	respondSuccess(w, http.StatusCreated, rec, start)
}

// AuditList returns all audits in insertion order.
//
// Method: GET
// Path: /api/v1/audits
//
// Query Parameters:
//   - status: optional filter (scheduled, completed, failed)
func (h *Handler) AuditList(w http.ResponseWriter, r *http.Request) {
	status := models.AuditStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "status must be scheduled, completed, or failed", nil)
		return
	}

	start := time.Now()

	audits, err := h.audits.ListAudits(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list audits")
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list audits", err)
		return
	}

	if status != "" {
		filtered := audits[:0]
		for _, a := range audits {
			if a.Status == status {
				filtered = append(filtered, a)
			}
		}
		audits = filtered
	}

	respondSuccess(w, http.StatusOK, audits, start)
}

// AuditGet returns one audit by id.
//
// Method: GET
// Path: /api/v1/audits/{id}
func (h *Handler) AuditGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Audit ID is required", nil)
		return
	}

	start := time.Now()

	rec, err := h.audits.GetAudit(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Audit not found", nil)
			return
		}
		log.Error().Err(err).
			Str("audit_id", sanitizeLogValue(id)).
			Msg("Failed to load audit")
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load audit", err)
		return
	}

	respondSuccess(w, http.StatusOK, rec, start)
}
