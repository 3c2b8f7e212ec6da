package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shardfall/journey-engine/pkg/engine"
)

// JourneyHandler serves story progression for a single user.
type JourneyHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewJourneyHandler(logger *slog.Logger, eng *engine.Engine) *JourneyHandler {
	return &JourneyHandler{
		engine: eng,
		logger: logger,
	}
}

// ChoiceRequest identifies one choice on one part.
type ChoiceRequest struct {
	PartID string `json:"part_id"`
	Choice int    `json:"choice"`
}

// ServeHTTP handles HTTP requests for journey operations
// Routes:
// POST /v1/journey/{user}/start    - Begin or resume a journey
// POST /v1/journey/{user}/continue - Serve the current part
// POST /v1/journey/{user}/choice   - Take a choice on the current part
func (h *JourneyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for journey endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/journey/")
	userID, action, ok := strings.Cut(path, "/")
	if !ok || userID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "User ID and action are required")
		return
	}

	switch action {
	case "start":
		h.handleStart(w, r, userID)
	case "continue":
		h.handleContinue(w, r, userID)
	case "choice":
		h.handleChoice(w, r, userID)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown journey action: "+action)
	}
}

func (h *JourneyHandler) handleStart(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := h.engine.StartJourney(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to start journey", "user_id", userID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to start journey")
		return
	}
	if result.Rejection != nil {
		writeRejection(w, h.logger, result.Rejection)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *JourneyHandler) handleContinue(w http.ResponseWriter, r *http.Request, userID string) {
	result, err := h.engine.ContinueJourney(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to continue journey", "user_id", userID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to continue journey")
		return
	}
	if result.Rejection != nil {
		writeRejection(w, h.logger, result.Rejection)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *JourneyHandler) handleChoice(w http.ResponseWriter, r *http.Request, userID string) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid choice request body", "user_id", userID, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PartID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "part_id is required")
		return
	}

	result, err := h.engine.TakeChoice(r.Context(), userID, req.PartID, req.Choice)
	if err != nil {
		h.logger.Error("Failed to take choice", "user_id", userID,
			"part_id", req.PartID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to take choice")
		return
	}
	if result.Rejection != nil {
		writeRejection(w, h.logger, result.Rejection)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}
