package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shardfall/journey-engine/pkg/engine"
)

type ErrorResponse struct {
	Error string `json:"error"`

	Kind       engine.RejectKind `json:"kind,omitempty"`
	Stat       string            `json:"stat,omitempty"`
	Need       int               `json:"need,omitempty"`
	Have       int               `json:"have,omitempty"`
	Flag       string            `json:"flag,omitempty"`
	RetryAfter int               `json:"retry_after_seconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeRejection maps an engine rejection to an HTTP status and body.
func writeRejection(w http.ResponseWriter, logger *slog.Logger, rej *engine.Rejection) {
	resp := ErrorResponse{
		Error: rej.Message,
		Kind:  rej.Kind,
		Stat:  rej.Stat,
		Need:  rej.Need,
		Have:  rej.Have,
		Flag:  rej.Flag,
	}
	var status int
	switch rej.Kind {
	case engine.RejectNotFound:
		status = http.StatusNotFound
	case engine.RejectRequirementNotMet:
		status = http.StatusUnprocessableEntity
	case engine.RejectCooldownActive:
		status = http.StatusTooManyRequests
		secs := int(rej.RetryAfter / time.Second)
		resp.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	default:
		status = http.StatusBadRequest
	}
	writeJSON(w, logger, status, resp)
}
