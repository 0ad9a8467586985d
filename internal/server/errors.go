package server

import (
	"errors"
	"net/http"

	"vin_appraisal/internal/session"
	"vin_appraisal/internal/sheets"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorCodes maps known failures to a status and a stable machine code.
var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{session.ErrBusy, http.StatusConflict, "busy"},
	{session.ErrNoEligibleRows, http.StatusUnprocessableEntity, "no_eligible_rows"},
	{session.ErrNoRows, http.StatusUnprocessableEntity, "no_rows"},
	{session.ErrNoResults, http.StatusNotFound, "no_results"},
	{sheets.ErrInvalidReference, http.StatusBadRequest, "invalid_reference"},
	{sheets.ErrEmptySheet, http.StatusUnprocessableEntity, "empty_sheet"},
}

// respondError logs err and writes it as an ErrorResponse. Known errors pick
// their own status; fallback is used for everything else.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status, code := fallback, http.StatusText(fallback)
	for _, known := range errorCodes {
		if errors.Is(err, known.err) {
			status, code = known.status, known.code
			break
		}
	}

	log.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Int("status", status).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("Request failed")

	writeJSON(w, status, ErrorResponse{Error: code, Message: err.Error()})
}
