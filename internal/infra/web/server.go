package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"study-plan-assistant/internal/infra/metrics"
	"study-plan-assistant/internal/usecase"
)

// Server exposes the job API: start a generation job, poll it, the
// synchronous chat convenience path, and the diagnostics summary.
type Server struct {
	dispatcher *usecase.JobDispatcher
	poller     *usecase.StatusPoller
	journal    *metrics.Journal
	auth       *AuthManager
	log        *zerolog.Logger
}

func NewServer(
	dispatcher *usecase.JobDispatcher,
	poller *usecase.StatusPoller,
	journal *metrics.Journal,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	sl := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		dispatcher: dispatcher,
		poller:     poller,
		journal:    journal,
		auth:       auth,
		log:        &sl,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Post("/sessions/{sessionID}/jobs", s.startJob)
		r.Get("/sessions/{sessionID}/jobs/{jobID}", s.jobStatus)
		r.Post("/sessions/{sessionID}/chat", s.chatSync)
		r.Get("/metrics/summary", s.metricsSummary)
	})

	return r
}
