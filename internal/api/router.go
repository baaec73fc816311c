package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter wires the trigger surface: the public webhook, the health
// check, and the admin-only manual trigger and status endpoints.
func NewRouter(h *Handler, allowedOrigins []string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(Recovery(logger))
	r.Use(RequestID)
	r.Use(Logging(logger))

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "X-Admin-Key", "X-MLS-Token"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.Health)

	r.Post("/mls-webhook", h.Webhook)
	r.Post("/mls-webhook/{source}", h.Webhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Post("/sync/{source}", h.TriggerSync)
		r.Get("/sync/{source}/status", h.Status)
	})

	return r
}
