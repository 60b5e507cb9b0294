package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mkor14/veracity/internal/game"
)

// Handlers serves the gateway's REST endpoints: game creation and listing,
// cached state reads, join-code resolution and the join QR code.
type Handlers struct {
	games   GameService
	state   *CachedStateProvider
	baseURL string
}

// NewHandlers builds the REST handlers. baseURL is the externally reachable
// address encoded into join QR codes.
func NewHandlers(games GameService, state *CachedStateProvider, baseURL string) *Handlers {
	return &Handlers{
		games:   games,
		state:   state,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// HandleGames handles POST /api/games (create) and GET /api/games (list).
func (h *Handlers) HandleGames(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createGame(w, r)
	case http.MethodGet:
		h.listGames(w)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) createGame(w http.ResponseWriter, r *http.Request) {
	var req game.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.games.CreateGame(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) listGames(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, h.games.Games())
}

// HandleGameState handles GET /api/games/{id}/state.
func (h *Handlers) HandleGameState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := extractGameID(r.URL.Path, "/state")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.state.State(id)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("game_id", id.String()).Msg("failed to get game state")
		http.Error(w, "failed to get game state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleJoin handles GET /api/join?code=XYZ and resolves a join code to its
// game ID.
func (h *Handlers) HandleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	id, err := h.games.ResolveCode(code)
	if err != nil {
		http.Error(w, "unknown join code", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"game_id": id.String()})
}

// HandleJoinQR handles GET /api/games/{id}/qr and returns a PNG QR code
// pointing phones at the game's join URL.
func (h *Handlers) HandleJoinQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := extractGameID(r.URL.Path, "/qr")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.games.Snapshot(id)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("game_id", id.String()).Msg("failed to get game for QR")
		http.Error(w, "failed to get game", http.StatusInternalServerError)
		return
	}

	joinURL := fmt.Sprintf("%s/join?code=%s", h.baseURL, snap.Game.JoinCode)

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("game_id", id.String()).Msg("failed to generate QR code")
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterRoutes registers the REST routes on the mux. Paths under
// /api/games/{id}/ dispatch on their suffix.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/games", h.HandleGames)
	mux.HandleFunc("/api/join", h.HandleJoin)
	mux.HandleFunc("/healthz", h.HandleHealth)

	mux.HandleFunc("/api/games/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/state"):
			h.HandleGameState(w, r)
		case strings.HasSuffix(r.URL.Path, "/qr"):
			h.HandleJoinQR(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// extractGameID pulls the game ID out of a path like /api/games/{id}{suffix}.
func extractGameID(path, suffix string) (uuid.UUID, error) {
	const prefix = "/api/games/"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return uuid.Nil, fmt.Errorf("game id is required")
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid game id format")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
