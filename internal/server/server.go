// Package server provides the optional status server: health, the current
// slideshow state, an MJPEG view of the annotated camera and a websocket
// feed of per-frame results.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/podium/internal/gesture"
	"github.com/ayusman/podium/internal/plugin"
	"github.com/ayusman/podium/internal/server/api"
	"github.com/gorilla/mux"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 3 * time.Second

// Config holds the server configuration.
type Config struct {
	Hub      *Hub
	Bindings map[gesture.Label]plugin.Binding
	Plugins  *plugin.Manager
	// Slides enables /api/slides/{n} when set.
	Slides api.SlideSource
}

// Server represents the HTTP status server.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Hub == nil {
		config.Hub = NewHub()
	}
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// Hub returns the hub the server reads from.
func (s *Server) Hub() *Hub {
	return s.config.Hub
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/api/state", api.NewStateHandler(s.config.Hub)).Methods(http.MethodGet)
	s.router.Handle("/api/stream", NewStreamHandler(s.config.Hub)).Methods(http.MethodGet)
	s.router.Handle("/api/events", NewEventsHandler(s.config.Hub)).Methods(http.MethodGet)

	if s.config.Bindings != nil {
		s.router.Handle("/api/bindings", api.NewBindingsHandler(s.config.Bindings, s.config.Plugins)).Methods(http.MethodGet)
	}
	if s.config.Slides != nil {
		s.router.Handle("/api/slides/{n:[0-9]+}", api.NewSlideHandler(s.config.Slides)).Methods(http.MethodGet)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":      "ok",
		"uptime":      time.Since(s.start).String(),
		"subscribers": s.config.Hub.Subscribers(),
	}
	if result, ok := s.config.Hub.Latest(); ok {
		response["session_id"] = result.SessionID
		response["frames"] = result.Frame
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Status server listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
