// Package http wires the chi router: auth middleware, the API surface, and
// operational endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig collects everything the router needs.
type RouterConfig struct {
	SigningKey   []byte
	Participant  *ParticipantHandler
	Credential   *CredentialHandler
	Presentation *PresentationHandler
	Logger       *slog.Logger
}

// NewRouter assembles the HTTP surface. The whole /api/v1 tree requires a
// bearer token; participant onboarding additionally requires the admin role.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireAuth(cfg.SigningKey, cfg.Logger))
		cfg.Participant.Register(r, RequireAdmin(cfg.Logger))
		cfg.Credential.Register(r)
		cfg.Presentation.Register(r)
	})

	return r
}
