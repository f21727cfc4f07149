package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"CryptoDashboard/internal/model"
)

// Reporter produces portfolio reports.
type Reporter interface {
	Run(ctx context.Context) (*model.Report, error)
	Refresh(ctx context.Context) (*model.Report, error)
	Last() (*model.Report, bool)
}

// Server exposes the portfolio as a JSON API.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	reporter Reporter
	started  time.Time
}

// New creates a new HTTP server listening on addr.
func New(addr string, reporter Reporter, log zerolog.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      log.With().Str("component", "server").Logger(),
		reporter: reporter,
		started:  time.Now(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", s.handlePortfolio)
		r.Get("/holdings", s.handleHoldings)
		r.Get("/alerts", s.handleAlerts)
		r.Post("/refresh", s.handleRefresh)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

type portfolioResponse struct {
	Summary           model.PortfolioSummary `json:"summary"`
	PricesUnavailable bool                   `json:"prices_unavailable"`
	DegradedProviders []string               `json:"degraded_providers,omitempty"`
	GeneratedAt       time.Time              `json:"generated_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if last, ok := s.reporter.Last(); ok {
		resp["last_cycle"] = last.GeneratedAt
		resp["prices_unavailable"] = last.PricesUnavailable
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	report, ok := s.report(w, r, s.reporter.Run)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, portfolioResponse{
		Summary:           report.Summary,
		PricesUnavailable: report.PricesUnavailable,
		DegradedProviders: report.DegradedProviders,
		GeneratedAt:       report.GeneratedAt,
	})
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	report, ok := s.report(w, r, s.reporter.Run)
	if !ok {
		return
	}
	rows := report.Rows
	if rows == nil {
		rows = []model.ValuationRow{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	report, ok := s.report(w, r, s.reporter.Run)
	if !ok {
		return
	}
	alerts := report.Alerts
	if alerts == nil {
		alerts = []model.AlertEvent{}
	}
	s.writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report, ok := s.report(w, r, s.reporter.Refresh)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request, run func(context.Context) (*model.Report, error)) (*model.Report, bool) {
	report, err := run(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, model.ErrSchema):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, model.ErrUpstreamUnavailable):
			status = http.StatusBadGateway
		case errors.Is(err, model.ErrConfigMissing):
			status = http.StatusServiceUnavailable
		}
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("evaluation failed")
		s.writeJSON(w, status, map[string]string{"error": err.Error()})
		return nil, false
	}
	return report, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
