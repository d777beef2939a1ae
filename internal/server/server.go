// Package server provides the HTTP server for shelfscan.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/docstore"
	"github.com/ayusman/shelfscan/internal/inventory"
	"github.com/ayusman/shelfscan/internal/logging"
	"github.com/ayusman/shelfscan/internal/metrics"
	"github.com/ayusman/shelfscan/internal/server/api"
)

// Config holds the server configuration. Every collaborator is optional;
// routes for missing ones are not registered.
type Config struct {
	StaticDir string
	// TokenHash is a bcrypt hash. When set, mutating routes require a
	// matching bearer token.
	TokenHash string

	App       *app.App
	Inventory *inventory.Store
	Documents docstore.Store
	Scans     api.ScanHistory
	Metrics   *metrics.Recorder
	Hub       *Hub
	Logger    *slog.Logger

	// InventoryDocument names the document backing the inventory, when the
	// inventory persists to the document store.
	InventoryDocument string
}

// Server represents the HTTP server for the shelfscan application.
type Server struct {
	config Config
	router *mux.Router
	logger *slog.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		logger: logging.NewComponentLogger(config.Logger, "server"),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	// Both routers share the path space; write carries the token check.
	read := s.router.NewRoute().Subrouter()
	write := s.router.NewRoute().Subrouter()
	write.Use(requireToken(s.config.TokenHash, s.logger))

	inv := s.config.Inventory
	if inv == nil && s.config.App != nil {
		inv = s.config.App.Inventory()
	}

	if s.config.Documents != nil {
		docs := api.NewDocumentHandler(s.config.Documents, s.config.Logger)
		if s.config.InventoryDocument != "" && inv != nil {
			docs.BindInventory(s.config.InventoryDocument, inv)
		}
		docs.Register(read, write)
	}
	if inv != nil {
		var pending api.PendingBarcode
		if s.config.App != nil {
			pending = s.config.App
		}
		api.NewItemHandler(inv, pending).Register(read, write)
	}

	if s.config.App != nil {
		api.NewScanHandler(s.config.App, s.config.Scans).Register(read, write)
		read.Handle("/api/stream", NewStreamHandler(s.config.App.Sink)).Methods(http.MethodGet)
	}

	if s.config.Hub != nil {
		read.Handle("/api/events", s.config.Hub).Methods(http.MethodGet)
	}

	if s.config.Metrics != nil {
		read.Handle("/metrics", s.config.Metrics.Handler()).Methods(http.MethodGet)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.App != nil {
		response["scanning"] = s.config.App.Scanning()
	}
	if s.config.Documents != nil {
		response["documents"] = string(s.config.Documents.Driver())
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
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
