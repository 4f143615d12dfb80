// Package api exposes the HTTP status surface: current flights, poll loop
// health, and the snapshot WebSocket stream.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl-enjoyer/flight-display/internal/websocket"
	"github.com/rl-enjoyer/flight-display/pkg/logger"
)

// Router builds the HTTP route tree.
type Router struct {
	handler  *Handler
	wsServer *websocket.Server
	logger   *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(handler *Handler, wsServer *websocket.Server, log *logger.Logger) *Router {
	return &Router{
		handler:  handler,
		wsServer: wsServer,
		logger:   log.Named("api-router"),
	}
}

// Routes returns the assembled chi router.
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/health", r.handler.GetHealth)

	router.Route("/api/v1", func(api chi.Router) {
		api.Get("/flights", r.handler.GetFlights)
		api.Get("/status", r.handler.GetStatus)
	})

	if r.wsServer != nil {
		router.Get("/ws", r.wsServer.HandleConnection)
	}

	return router
}
