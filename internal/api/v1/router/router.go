package router

import (
	"net/http"

	"relay/internal/api/v1/handler"
	"relay/internal/config"
	"relay/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New builds the push-mode HTTP handler: the Pub/Sub push endpoint under /v1,
// plus health and metrics endpoints.
func New(cfg *config.Config, f handler.EventForwarder, metricsHandler http.Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoggerMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	pubsubAuthMiddleware := middleware.PubSubAuthMiddleware(
		cfg.IsLocalDev(),
		cfg.PubSubPushAudience,
		cfg.PubSubPushServiceAccountEmail,
		logger,
	)
	if cfg.IsLocalDev() {
		logger.Info().Msg("Pub/Sub emulator detected, push authentication disabled")
	}

	eventHandler := handler.NewEventHandler(f, logger)
	r.Route("/v1", func(r chi.Router) {
		eventHandler.RegisterRoutes(r, pubsubAuthMiddleware)
	})

	logger.Info().Msg("Router initialized")
	return r
}
