// Package server exposes an appraisal session over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"vin_appraisal/internal/jobs"
	"vin_appraisal/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Server is the HTTP front of one session.
type Server struct {
	session  *session.Session
	defaults jobs.Credentials
	now      func() time.Time
	router   *chi.Mux
	server   *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithDefaultCredentials fills credentials a process request leaves out.
func WithDefaultCredentials(creds jobs.Credentials) Option {
	return func(s *Server) {
		s.defaults = creds
	}
}

// WithClock replaces the clock used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		session: sess,
		now:     time.Now,
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://*", "https://*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Get("/columns", s.handleGetColumns)
		r.Put("/columns", s.handleSetColumns)

		r.Post("/sheet", s.handleLoadSheet)

		r.Put("/prefixes", s.handleSetPrefixes)
		r.Post("/prefixes/{prefix}/toggle", s.handleTogglePrefix)

		r.Post("/process", s.handleProcess)
		r.Post("/stop", s.handleStop)
		r.Post("/clear", s.handleClear)

		r.Get("/export.json", s.handleExport(s.session.ExportJSON))
		r.Get("/export.csv", s.handleExport(s.session.ExportCSV))
		r.Get("/export.xlsx", s.handleExport(s.session.ExportXLSX))
	})
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Handled request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
