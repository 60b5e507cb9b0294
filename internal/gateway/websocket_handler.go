package gateway

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles websocket upgrade requests for game connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	games             GameService
}

// NewWebSocketHandler creates the upgrade handler. The game service is
// consulted so sockets only open for games that exist.
func NewWebSocketHandler(cm *ConnectionManager, games GameService) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		games:             games,
	}
}

// HandleGameConnection handles websocket connections for a specific game.
// Clients pass game_id (or a join code) and client_id as query parameters.
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	gameID, ok := h.resolveGame(w, r)
	if !ok {
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	if err := h.connectionManager.UpgradeConnection(w, r, clientID, gameID); err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID.String()).
			Str("client_id", clientID).
			Msg("failed to upgrade websocket connection")
		return
	}
}

func (h *WebSocketHandler) resolveGame(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if code := r.URL.Query().Get("code"); code != "" {
		gameID, err := h.games.ResolveCode(code)
		if err != nil {
			http.Error(w, "unknown join code", http.StatusNotFound)
			return uuid.Nil, false
		}
		return gameID, true
	}

	raw := r.URL.Query().Get("game_id")
	if raw == "" {
		http.Error(w, "game_id or code is required", http.StatusBadRequest)
		return uuid.Nil, false
	}
	gameID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid game_id format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	if _, err := h.games.Snapshot(gameID); err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return uuid.Nil, false
	}
	return gameID, true
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.Stats())
}

// RegisterRoutes registers the websocket routes on the mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/game", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
