// Package api assembles the chi router for the send pipeline's external
// HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/cannasend/internal/api/handlers"
	apimiddleware "github.com/wolfman30/cannasend/internal/api/middleware"
	"github.com/wolfman30/cannasend/pkg/logging"
)

// Config holds the handlers and tunables New wires into a router.
type Config struct {
	Logger          *logging.Logger
	SendHandler     *handlers.SendHandler
	CampaignHandler *handlers.CampaignSendHandler
	WebhookHandler  http.Handler
	MetricsHandler  http.Handler
	RateLimitWindowMS int
	RateLimitMax      int
}

// New builds the chi router: RequestID/RealIP/Logger/Recoverer ambient
// middleware, a per-tenant rate limiter over the authenticated API routes,
// and the carrier webhook mounted separately since it authenticates via
// signature rather than X-Tenant-Id.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.WebhookHandler != nil {
		r.Post("/webhooks/telnyx", cfg.WebhookHandler.ServeHTTP)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(apimiddleware.RateLimit(cfg.RateLimitWindowMS, cfg.RateLimitMax))
		if cfg.SendHandler != nil {
			api.Post("/sms/send", cfg.SendHandler.ServeHTTP)
		}
		if cfg.CampaignHandler != nil {
			api.Post("/campaigns/{id}/send", cfg.CampaignHandler.ServeHTTP)
		}
	})

	return r
}
