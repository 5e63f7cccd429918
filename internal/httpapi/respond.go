// Package httpapi wires the Ledger Store and both execution engines to
// HTTP handlers, grouped by resource the way the teacher groups handlers
// per module (one struct + constructor + HandleX methods per concern).
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tconn93/Day-trader/internal/apperr"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps an apperr.Code to the status codes of SPEC_FULL §6/§7 and
// writes the error body. Unrecognized errors fall through as 500.
func respondErr(log zerolog.Logger, w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Msg("unhandled error")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	switch appErr.Code {
	case apperr.CodeValidation:
		respondError(w, http.StatusBadRequest, appErr.Error())
	case apperr.CodeInsufficientFunds, apperr.CodeInsufficientShares:
		respondError(w, http.StatusBadRequest, appErr.Error())
	case apperr.CodeNotFound, apperr.CodeNotActive:
		respondError(w, http.StatusNotFound, appErr.Error())
	case apperr.CodeAlreadyRunning:
		respondError(w, http.StatusBadRequest, appErr.Error())
	case apperr.CodeNoRules:
		respondError(w, http.StatusBadRequest, appErr.Error())
	case apperr.CodeUpstreamUnavailable:
		respondError(w, http.StatusBadGateway, appErr.Error())
	default:
		log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
