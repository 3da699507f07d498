// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware into the Chi route tree.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates the route tree builder.
func NewRouter(handler *Handler, middleware *Middleware) *Router {
	return &Router{handler: handler, middleware: middleware}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())
	r.Use(Instrument)

	// Ungated: probes and scrapes carry no credentials.
	r.Get("/api/v1/health", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Everything else sits behind the API key gate with per-key rate
	// limiting.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.Authenticate)
		r.Use(router.middleware.RateLimit)

		r.Post("/logs", router.handler.LogSubmit)
		r.Get("/logs", router.handler.LogQuery)

		r.Post("/keys", router.handler.KeyIssue)
		r.Get("/keys", router.handler.KeyList)
		r.Post("/keys/{id}/revoke", router.handler.KeyRevoke)

		r.Post("/audits", router.handler.AuditSubmit)
		r.Get("/audits", router.handler.AuditList)
		r.Get("/audits/{id}", router.handler.AuditGet)
	})

	return r
}
