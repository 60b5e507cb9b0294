package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns the websocket connections, pooled by game ID, and
// fans broadcast payloads out to them.
type ConnectionManager struct {
	gameConnections map[uuid.UUID]map[*Connection]bool
	mu              sync.RWMutex

	upgrader   websocket.Upgrader
	config     ConnectionConfig
	dispatcher *Dispatcher

	broadcastCh chan BroadcastMessage
}

// Connection is one websocket client following a game. The send channel is
// never closed; unregistering closes done instead, because the dispatcher
// replies on the read goroutine and a send racing a close would panic.
type Connection struct {
	ID       string
	ClientID string
	GameID   uuid.UUID

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	manager   *ConnectionManager

	connectedAt time.Time
}

// ConnectionConfig holds websocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a marshaled event bound for every socket of one game.
type BroadcastMessage struct {
	GameID uuid.UUID
	Data   []byte
}

// DefaultConnectionConfig returns the websocket defaults.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates the manager. Client commands read off sockets
// go to the dispatcher.
func NewConnectionManager(config ConnectionConfig, dispatcher *Dispatcher) *ConnectionManager {
	return &ConnectionManager{
		gameConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		dispatcher:  dispatcher,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcast messages until the context is canceled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket and registers it
// under the given game.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, clientID string, gameID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		GameID:      gameID,
		conn:        conn,
		send:        make(chan []byte, 256),
		done:        make(chan struct{}),
		manager:     cm,
		connectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("client_id", clientID).
		Str("game_id", gameID.String()).
		Msg("websocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.gameConnections[conn.GameID] == nil {
		cm.gameConnections[conn.GameID] = make(map[*Connection]bool)
	}
	cm.gameConnections[conn.GameID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_id", conn.GameID.String()).
		Int("total_connections", len(cm.gameConnections[conn.GameID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.gameConnections[conn.GameID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			conn.closeOnce.Do(func() { close(conn.done) })

			if len(connections) == 0 {
				delete(cm.gameConnections, conn.GameID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("client_id", conn.ClientID).
				Str("game_id", conn.GameID.String()).
				Msg("connection unregistered")
		}
	}
}

// BroadcastToGame queues a payload for every socket following the game.
func (cm *ConnectionManager) BroadcastToGame(gameID uuid.UUID, data []byte) {
	select {
	case cm.broadcastCh <- BroadcastMessage{GameID: gameID, Data: data}:
	default:
		log.Warn().Str("game_id", gameID.String()).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.gameConnections[message.GameID]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.send <- message.Data:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Str("client_id", conn.ClientID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.conn.Close()
		}
	}

	log.Debug().
		Str("game_id", message.GameID.String()).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// Stats returns active connection counts.
func (cm *ConnectionManager) Stats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	perGame := make(map[string]int)
	for gameID, connections := range cm.gameConnections {
		total += len(connections)
		perGame[gameID.String()] = len(connections)
	}

	return map[string]interface{}{
		"total_connections": total,
		"active_games":      len(cm.gameConnections),
		"game_connections":  perGame,
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.manager.unregisterConnection(c)
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.manager.unregisterConnection(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			break
		}

		c.manager.dispatcher.Handle(c, message)
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}

// reply queues a command result for this client only, dropping it if the
// client is too far behind.
func (c *Connection) reply(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Msg("connection send buffer full, dropping reply")
	}
}
