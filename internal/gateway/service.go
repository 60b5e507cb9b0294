package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/events"
)

// Service composes the gateway: websocket fanout, command dispatch, REST
// endpoints and, when NATS is configured, the JetStream event consumer.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	handlers          *Handlers
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	EnableJetStream  bool
	BaseURL          string
	StateCacheTTL    time.Duration
	CommandsPerSec   float64
	CommandBurst     int
}

// DefaultConfig returns the gateway defaults. JetStream is off until the
// caller points it at a NATS server.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
		BaseURL:          "http://localhost:8080",
		StateCacheTTL:    time.Second,
		CommandsPerSec:   5,
		CommandBurst:     10,
	}
}

// NewService wires up the gateway over the game service.
func NewService(config Config, games GameService) (*Service, error) {
	state := NewCachedStateProvider(games, config.StateCacheTTL)
	limiter := NewCommandLimiter(config.CommandsPerSec, config.CommandBurst)
	dispatcher := NewDispatcher(games, limiter, state)
	connectionManager := NewConnectionManager(config.ConnectionConfig, dispatcher)

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, games),
		handlers:          NewHandlers(games, state, config.BaseURL),
	}

	if config.EnableJetStream {
		consumer, err := NewEventConsumer(connectionManager, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}

	return s, nil
}

// Start runs the gateway until the context is canceled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service.
func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("gateway service stopped")
	return nil
}

// RegisterRoutes registers all gateway routes on the mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.handlers.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// Publish lets the gateway double as an events.Publisher: events go straight
// to the game's sockets without a broker in between. Single-process
// deployments use this instead of JetStream.
func (s *Service) Publish(_ context.Context, event events.GameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	s.connectionManager.BroadcastToGame(event.GameID, data)
	return nil
}
