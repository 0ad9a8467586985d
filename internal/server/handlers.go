package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"vin_appraisal/internal/jobs"
	"vin_appraisal/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type loadSheetRequest struct {
	URL string `json:"url" validate:"required"`
}

type prefixesRequest struct {
	Prefixes []string `json:"prefixes"`
}

type processRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Headless *bool  `json:"headless"`
}

type toggleResponse struct {
	Prefix   string   `json:"prefix"`
	Active   bool     `json:"active"`
	Prefixes []string `json:"prefixes"`
}

type processResponse struct {
	RunID string `json:"run_id"`
	Rows  int    `json:"rows"`
}

type stopResponse struct {
	Status  string `json:"status"`
	Stopped bool   `json:"stopped"`
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleGetColumns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot().Columns)
}

func (s *Server) handleSetColumns(w http.ResponseWriter, r *http.Request) {
	var columns jobs.ColumnMap
	if err := decode(r, &columns); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	s.session.SetColumns(columns)
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleLoadSheet(w http.ResponseWriter, r *http.Request) {
	var req loadSheetRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.session.Load(r.Context(), req.URL); err != nil {
		respondError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetPrefixes(w http.ResponseWriter, r *http.Request) {
	var req prefixesRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	s.session.SetPrefixes(req.Prefixes)
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleTogglePrefix(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "prefix")
	active := s.session.TogglePrefix(prefix)
	writeJSON(w, http.StatusOK, toggleResponse{
		Prefix:   prefix,
		Active:   active,
		Prefixes: s.session.Snapshot().Prefixes,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	cfg := session.RunConfig{
		Credentials: jobs.Credentials{Email: req.Email, Password: req.Password},
		Options:     jobs.Options{Headless: true},
	}
	if cfg.Credentials.Email == "" {
		cfg.Credentials.Email = s.defaults.Email
	}
	if cfg.Credentials.Password == "" {
		cfg.Credentials.Password = s.defaults.Password
	}
	if req.Headless != nil {
		cfg.Options.Headless = *req.Headless
	}
	if !cfg.Credentials.Complete() {
		log.Warn().Msg("Submitting without valuation credentials; the worker must supply its own")
	}

	run, err := s.session.Start(r.Context(), cfg)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, processResponse{
		RunID: run.ID.String(),
		Rows:  len(s.session.Snapshot().Eligible),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	stopped := s.session.Stop(r.Context())
	status := "idle"
	if stopped {
		status = "stopping"
	}
	writeJSON(w, http.StatusOK, stopResponse{Status: status, Stopped: stopped})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session.Clear(r.Context())
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleExport(render func(time.Time) (session.File, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := render(s.now())
		if err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", file.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(file.Data)
	}
}
