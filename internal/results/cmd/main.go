package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/dbconfig"
	"github.com/mkor14/veracity/internal/results"
)

func main() {
	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// configure zerolog console output and level
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	port := getEnv("RESULTS_PORT", "8090")

	// DB config
	dbCfg := dbconfig.NewConfigFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("parse database config")
	}
	if dbCfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(dbCfg.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("connected to database")

	repo := results.NewRepository(pool)
	app := results.NewApp(repo)

	// JetStream worker
	workerCfg := results.DefaultWorkerConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		workerCfg.URL = url
	}
	worker, err := results.NewWorker(app, workerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create results worker")
	}
	defer func() {
		if err := worker.Stop(); err != nil {
			log.Error().Err(err).Msg("stop worker")
		}
	}()

	// Read-side REST API
	mux := http.NewServeMux()
	results.NewHandlers(app).RegisterRoutes(mux)
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info().Msg("starting results worker")
		errCh <- worker.Start(ctx)
	}()
	go func() {
		log.Info().Str("addr", server.Addr).Msg("results API starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("service exited unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("results service shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
