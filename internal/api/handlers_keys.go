// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

// handlers_keys.go - API Key Management Endpoints
//
// Endpoints:
//   - POST /api/v1/keys             - Issue a new API key
//   - GET  /api/v1/keys             - List keys (public shape, no hashes)
//   - POST /api/v1/keys/{id}/revoke - Revoke a key
//
// Security:
//   - The plaintext secret is returned exactly once at issuance
//   - Management endpoints require an authenticated key themselves
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tomtom215/custodia/internal/auth"
	"github.com/tomtom215/custodia/internal/models"
	"github.com/tomtom215/custodia/internal/store"
)

// KeyIssue creates a new API key.
//
// Method: POST
// Path: /api/v1/keys
//
// Request Body: IssueKeyRequest. expiration is optional RFC3339; rateLimit
// is an optional per-window cap overriding the server default.
//
// Response: IssuedKey with the plaintext secret.
// IMPORTANT: the plaintext is only shown once; only its hash is stored.
func (h *Handler) KeyIssue(w http.ResponseWriter, r *http.Request) {
	var req models.IssueKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	issueReq := auth.IssueRequest{
		Scopes:    req.Scopes,
		RateLimit: req.RateLimit,
		Owner:     req.Owner,
	}
	if req.Expiration != "" {
		expiration, err := parseRFC3339("expiration", req.Expiration)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		issueReq.Expiration = &expiration
	}

	start := time.Now()

	_, issued, err := h.keys.Issue(r.Context(), issueReq)
	if err != nil {
		log.Error().Err(err).
			Str("owner", sanitizeLogValue(req.Owner)).
			Msg("Failed to issue API key")
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to issue key", err)
		return
	}

	respondSuccess(w, http.StatusCreated, issued, start)
}

// KeyList returns every key in its public shape. Hashes and secrets never
// appear in the response.
//
// Method: GET
// Path: /api/v1/keys
func (h *Handler) KeyList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	keys, err := h.keys.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list API keys")
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list keys", err)
		return
	}

	respondSuccess(w, http.StatusOK, keys, start)
}

// KeyRevoke deletes a key record. Subsequent requests presenting the key are
// rejected as invalid credentials.
//
// Method: POST
// Path: /api/v1/keys/{id}/revoke
//
// URL Parameters:
//   - id: the key record id (not the public keyId)
func (h *Handler) KeyRevoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Key ID is required", nil)
		return
	}

	start := time.Now()

	if err := h.keys.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Key not found", nil)
			return
		}
		log.Error().Err(err).
			Str("id", sanitizeLogValue(id)).
			Msg("Failed to revoke API key")
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to revoke key", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "Key revoked"}, start)
}
