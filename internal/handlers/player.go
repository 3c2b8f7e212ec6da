package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shardfall/journey-engine/pkg/engine"
	"github.com/shardfall/journey-engine/pkg/player"
)

// PlayerHandler serves player state: profile, inventory, achievements,
// history, the world map, daily claims, item use, and full resets.
type PlayerHandler struct {
	engine       *engine.Engine
	logger       *slog.Logger
	historyLimit int
}

func NewPlayerHandler(logger *slog.Logger, eng *engine.Engine, historyLimit int) *PlayerHandler {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &PlayerHandler{
		engine:       eng,
		logger:       logger,
		historyLimit: historyLimit,
	}
}

// UseItemRequest names the inventory item to consume.
type UseItemRequest struct {
	ItemID string `json:"item_id"`
}

// ServeHTTP handles HTTP requests for player operations
// Routes:
// GET    /v1/player/{user}              - Profile with achievements
// GET    /v1/player/{user}/inventory    - Inventory listing
// GET    /v1/player/{user}/achievements - All achievements with unlock state
// GET    /v1/player/{user}/history      - Recent turns, newest first
// GET    /v1/player/{user}/map          - World location ladder
// POST   /v1/player/{user}/daily        - Claim the daily reward
// POST   /v1/player/{user}/items/use    - Consume an inventory item
// DELETE /v1/player/{user}              - Wipe all progress
func (h *PlayerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/v1/player/")
	userID, action, _ := strings.Cut(path, "/")
	if userID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "User ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, userID, action)
	case http.MethodPost:
		h.handlePost(w, r, userID, action)
	case http.MethodDelete:
		if action != "" {
			writeError(w, h.logger, http.StatusNotFound, "Unknown player action: "+action)
			return
		}
		h.handleReset(w, r, userID)
	default:
		h.logger.Warn("Method not allowed for player endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, POST, DELETE")
	}
}

func (h *PlayerHandler) handleGet(w http.ResponseWriter, r *http.Request, userID, action string) {
	ctx := r.Context()
	switch action {
	case "":
		result, err := h.engine.Profile(ctx, userID)
		if err != nil {
			h.logger.Error("Failed to load profile", "user_id", userID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load profile")
			return
		}
		if result.Rejection != nil {
			writeRejection(w, h.logger, result.Rejection)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, result)

	case "inventory":
		items, rej, err := h.engine.Inventory(ctx, userID)
		if err != nil {
			h.logger.Error("Failed to load inventory", "user_id", userID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load inventory")
			return
		}
		if rej != nil {
			writeRejection(w, h.logger, rej)
			return
		}
		if items == nil {
			items = []player.Item{}
		}
		writeJSON(w, h.logger, http.StatusOK, map[string][]player.Item{"items": items})

	case "achievements":
		statuses, rej, err := h.engine.Achievements(ctx, userID)
		if err != nil {
			h.logger.Error("Failed to load achievements", "user_id", userID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load achievements")
			return
		}
		if rej != nil {
			writeRejection(w, h.logger, rej)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, map[string][]engine.AchievementStatus{"achievements": statuses})

	case "history":
		entries, rej, err := h.engine.History(ctx, userID, h.historyLimit)
		if err != nil {
			h.logger.Error("Failed to load history", "user_id", userID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load history")
			return
		}
		if rej != nil {
			writeRejection(w, h.logger, rej)
			return
		}
		if entries == nil {
			entries = []player.HistoryEntry{}
		}
		writeJSON(w, h.logger, http.StatusOK, map[string][]player.HistoryEntry{"history": entries})

	case "map":
		result, err := h.engine.WorldMap(ctx, userID)
		if err != nil {
			h.logger.Error("Failed to load map", "user_id", userID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load map")
			return
		}
		if result.Rejection != nil {
			writeRejection(w, h.logger, result.Rejection)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, result)

	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown player action: "+action)
	}
}

func (h *PlayerHandler) handlePost(w http.ResponseWriter, r *http.Request, userID, action string) {
	switch action {
	case "daily":
		result, err := h.engine.ClaimDaily(r.Context(), userID)
		if err != nil {
			h.logger.Error("Failed to claim daily", "user_id", userID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to claim daily reward")
			return
		}
		if result.Rejection != nil {
			writeRejection(w, h.logger, result.Rejection)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, result)

	case "items/use":
		var req UseItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Invalid use-item request body", "user_id", userID, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.ItemID == "" {
			writeError(w, h.logger, http.StatusBadRequest, "item_id is required")
			return
		}
		result, err := h.engine.UseItem(r.Context(), userID, req.ItemID)
		if err != nil {
			h.logger.Error("Failed to use item", "user_id", userID,
				"item_id", req.ItemID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to use item")
			return
		}
		if result.Rejection != nil {
			writeRejection(w, h.logger, result.Rejection)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, result)

	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown player action: "+action)
	}
}

func (h *PlayerHandler) handleReset(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.engine.ResetProgress(r.Context(), userID); err != nil {
		h.logger.Error("Failed to reset progress", "user_id", userID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to reset progress")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "reset"})
}
