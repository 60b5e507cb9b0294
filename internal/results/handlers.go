package results

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers serves the read-side REST API of the results store.
type Handlers struct {
	app *App
}

// NewHandlers creates REST handlers backed by the results app.
func NewHandlers(app *App) *Handlers {
	return &Handlers{app: app}
}

// RegisterRoutes registers the results endpoints on the mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/results/", h.handleGameSummary)
	mux.HandleFunc("/healthz", h.handleHealth)
}

// handleLeaderboard serves GET /api/leaderboard?limit=N.
func (h *Handlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.app.GetLeaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load leaderboard")
		http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []LeaderboardEntry{}
	}

	writeJSON(w, map[string]any{
		"leaderboard": entries,
		"count":       len(entries),
	})
}

// handleGameSummary serves GET /api/results/{game_id}.
func (h *Handlers) handleGameSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/results/")
	if idStr == "" || strings.Contains(idStr, "/") {
		http.Error(w, "Game ID required", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid game ID", http.StatusBadRequest)
		return
	}

	summary, err := h.app.GetGameSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("game_id", id.String()).Msg("failed to load game summary")
		http.Error(w, "Failed to load game summary", http.StatusInternalServerError)
		return
	}

	writeJSON(w, summary)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
