// Package api provides the HTTP surface of deploybot: webhook intake,
// health checks and the delivery log.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/artpar/deploybot/internal/core/domain"
	"github.com/artpar/deploybot/internal/shell/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Submitter accepts decoded events for asynchronous handling.
type Submitter interface {
	Submit(ev domain.Event)
}

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	store         store.Store
	events        Submitter
	webhookSecret []byte
	logger        *slog.Logger
}

// NewHandler creates a new API handler. An empty webhookSecret disables
// signature verification.
func NewHandler(s store.Store, events Submitter, webhookSecret string, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	var secret []byte
	if webhookSecret != "" {
		secret = []byte(webhookSecret)
	}
	return &Handler{
		store:         s,
		events:        events,
		webhookSecret: secret,
		logger:        l.With("component", "api"),
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	r.Post("/webhooks/github", h.handleGitHubWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/deliveries", h.handleListDeliveries)
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "check", "database", "error", err)
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Delivery Handlers
// =============================================================================

func (h *Handler) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}

	deliveries, err := h.store.ListDeliveries(r.Context(), opts)
	if err != nil {
		h.logger.Error("failed to list deliveries", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list deliveries", "internal_error")
		return
	}

	if deliveries == nil {
		deliveries = []store.Delivery{}
	}
	h.writeJSON(w, http.StatusOK, ListDeliveriesResponse{
		Deliveries: deliveries,
		Count:      len(deliveries),
	})
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
