package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/catalog"
	"github.com/mkor14/veracity/internal/events"
	"github.com/mkor14/veracity/internal/game"
	"github.com/mkor14/veracity/internal/gateway"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Load configuration
	cfgPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("failed to load config")
	}
	cfg.applyEnvOverrides()

	engineCfg, err := cfg.engineConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid game configuration")
	}

	// Load claim packs
	cat, err := catalog.Load(cfg.Catalog.PacksDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Catalog.PacksDir).Msg("failed to load claim catalog")
	}
	log.Info().
		Int("claims", cat.Len()).
		Str("dir", cfg.Catalog.PacksDir).
		Msg("loaded claim catalog")

	// The event bridge connects the game app to whichever publisher the
	// deployment uses. It is bound after the services exist.
	bridge := events.NewSwitch()

	app := game.NewApp(engineCfg, cat, bridge, nil)
	defer app.Close()

	gwCfg := gateway.DefaultConfig()
	gwCfg.BaseURL = cfg.Server.BaseURL

	var jsPublisher *events.JetStreamPublisher
	switch cfg.Events.Mode {
	case "jetstream":
		jsCfg := events.DefaultJetStreamConfig()
		if cfg.Events.NATSURL != "" {
			jsCfg.URL = cfg.Events.NATSURL
		}
		jsPublisher, err = events.NewJetStreamPublisher(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create JetStream publisher")
		}
		defer func() {
			if err := jsPublisher.Close(); err != nil {
				log.Error().Err(err).Msg("close publisher")
			}
		}()
		bridge.Bind(jsPublisher)

		gwCfg.EnableJetStream = true
		if cfg.Events.NATSURL != "" {
			gwCfg.JetStreamConfig.URL = cfg.Events.NATSURL
		}
	case "local":
		// Bound to the gateway below once it exists.
	default:
		log.Fatal().Str("mode", cfg.Events.Mode).Msg("unknown events mode, want local or jetstream")
	}

	gatewayService, err := gateway.NewService(gwCfg, app)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}
	if cfg.Events.Mode == "local" {
		// Single-process deployment: game events fan out straight to the
		// websocket hub without a broker in between.
		bridge.Bind(gatewayService)
	}

	server := setupServer(gatewayService, cfg.Server.Port)

	log.Info().
		Str("port", cfg.Server.Port).
		Str("events_mode", cfg.Events.Mode).
		Str("base_url", cfg.Server.BaseURL).
		Msg("starting veracity server")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start gateway service (event consumer and connection manager)
	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop the gateway service and give the pumps time to drain
	cancel()
	time.Sleep(1 * time.Second)

	log.Info().Msg("veracity server shutdown complete")
}
