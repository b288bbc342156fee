package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dexflow/internal/domain"
	"dexflow/internal/infra"
	"dexflow/internal/ws"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Server exposes the order intake API and the per-order status stream.
type Server struct {
	cfg    *infra.Config
	store  domain.OrderStore
	cache  domain.ActiveCache
	queue  domain.JobQueue
	hub    *ws.Broadcaster
	router *mux.Router
	http   *http.Server
}

// NewServer wires the HTTP layer over the core collaborators.
func NewServer(cfg *infra.Config, store domain.OrderStore, cache domain.ActiveCache, queue domain.JobQueue, hub *ws.Broadcaster) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		queue:  queue,
		hub:    hub,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/orders/execute", s.handleExecuteOrder).Methods("POST")
	api.HandleFunc("/orders/{orderId}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{orderId}/ws", s.handleOrderSocket).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the fully wrapped HTTP handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("http server starting", slog.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", slog.Any("error", err))
	}
}
