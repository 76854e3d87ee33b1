package app

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/schrico/PM-SAP-sub001/internal/ports"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps a use-case error onto a status code. Not-found wins over
// upstream so a 404 from SAP stays a 404.
func fail(w http.ResponseWriter, log *zerolog.Logger, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, ports.ErrUpstream):
		log.Warn().Err(err).Msg("upstream failure")
		writeError(w, http.StatusBadGateway, "upstream_error")
	default:
		log.Error().Stack().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
