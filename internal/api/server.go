// Package api exposes the engine's HTTP surface: scheduler control,
// tracking endpoints, and promotion selection.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cymasphere/campaign-engine/internal/config"
	"github.com/cymasphere/campaign-engine/internal/engagement"
	"github.com/cymasphere/campaign-engine/internal/pkg/logger"
	"github.com/cymasphere/campaign-engine/internal/promo"
	"github.com/cymasphere/campaign-engine/internal/scheduler"
)

// Server wraps the HTTP listener and its handlers.
type Server struct {
	cfg      config.ServerConfig
	handlers *Handlers
	server   *http.Server
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, sched *scheduler.Scheduler, ingestor *engagement.Ingestor, promos *promo.Selector, controlSecret string) *Server {
	handlers := NewHandlers(sched, ingestor, promos, controlSecret)
	return &Server{
		cfg:      cfg,
		handlers: handlers,
		server: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      SetupRoutes(handlers),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins serving. Blocks until the listener closes.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.cfg.Addr())
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
