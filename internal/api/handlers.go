package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mls_syncer/internal/domain"
	"mls_syncer/internal/service"
)

// Triggers is the scheduler-side contract the handlers call into.
type Triggers interface {
	TriggerNow(ctx context.Context, sourceID string) (*domain.SyncStats, error)
	HandleWebhook(ctx context.Context, sourceID string, records []domain.RemoteListing) (*domain.SyncStats, error)
}

// StatusReader is the read-only projection for one source.
type StatusReader interface {
	Status(ctx context.Context) (*service.SourceStatus, error)
}

// Source is one configured feed's HTTP-facing state.
type Source struct {
	WebhookToken string
	Status       StatusReader
}

type Handler struct {
	triggers Triggers
	sources  map[string]Source
	adminKey string
	logger   *slog.Logger
}

func NewHandler(triggers Triggers, sources map[string]Source, adminKey string, logger *slog.Logger) *Handler {
	return &Handler{
		triggers: triggers,
		sources:  sources,
		adminKey: adminKey,
		logger:   logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type webhookPayload struct {
	Listings []domain.RemoteListing `json:"listings"`
}

type webhookResponse struct {
	Status  string   `json:"status"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  int      `json:"errors"`
	Failed  []string `json:"failed,omitempty"`
}

// Webhook is the push entry point. Authorization is decided before any
// record is touched; per-record failures are reported in the body, not in
// the HTTP status.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	sourceID, src, ok := h.resolveSource(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}

	token := r.Header.Get("X-MLS-Token")
	if src.WebhookToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(src.WebhookToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "unparseable body")
		return
	}

	stats, err := h.triggers.HandleWebhook(r.Context(), sourceID, payload.Listings)
	if err != nil {
		if errors.Is(err, domain.ErrSyncRunning) {
			writeError(w, http.StatusConflict, "sync already running")
			return
		}
		h.logger.Error("webhook sync failed", "source", sourceID, "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Status:  "ok",
		Created: stats.Created,
		Updated: stats.Updated,
		Errors:  stats.Errors,
		Failed:  stats.FailedKeys,
	})
}

type triggerResponse struct {
	Success         bool    `json:"success"`
	Created         int     `json:"created"`
	Updated         int     `json:"updated"`
	Errors          int     `json:"errors"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// TriggerSync runs a synchronous manual sync and returns its summary.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	sourceID, _, ok := h.resolveSource(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}

	stats, err := h.triggers.TriggerNow(r.Context(), sourceID)
	switch {
	case errors.Is(err, domain.ErrSyncRunning):
		writeError(w, http.StatusConflict, "sync already running")
		return
	case err != nil:
		// Administrators get counts and a short message, never raw
		// internals.
		h.logger.Error("manual sync failed", "source", sourceID, "error", err)
		resp := triggerResponse{Success: false}
		if stats != nil {
			resp.Created = stats.Created
			resp.Updated = stats.Updated
			resp.Errors = stats.Errors
			resp.DurationSeconds = stats.Duration.Seconds()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, triggerResponse{
		Success:         true,
		Created:         stats.Created,
		Updated:         stats.Updated,
		Errors:          stats.Errors,
		DurationSeconds: stats.Duration.Seconds(),
	})
}

// Status exposes the ledger projection for dashboards.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	_, src, ok := h.resolveSource(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown source")
		return
	}

	status, err := src.Status.Status(r.Context())
	if err != nil {
		h.logger.Error("status read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// RequireAdmin guards the manual-trigger and status endpoints with the
// pre-shared admin key.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Admin-Key")
		if h.adminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.adminKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "admin key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resolveSource finds the addressed source. A bare /mls-webhook URL (no
// source segment) resolves when exactly one source is configured.
func (h *Handler) resolveSource(r *http.Request) (string, Source, bool) {
	id := chi.URLParam(r, "source")
	if id == "" && len(h.sources) == 1 {
		for only := range h.sources {
			id = only
		}
	}
	src, ok := h.sources[id]
	return id, src, ok
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
