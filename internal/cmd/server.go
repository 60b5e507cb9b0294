package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mkor14/veracity/internal/gateway"
)

func setupServer(gw *gateway.Service, port string) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Register gateway routes (WebSocket and REST)
	gw.RegisterRoutes(mux)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Plain HTTP/1.1 still works for websocket upgrades; h2c serves
	// HTTP/2 clients on the same port.
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
