package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/elektroapp/elektrodash/pkg/common"
	"github.com/elektroapp/elektrodash/pkg/dashboard"
	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/elektroapp/elektrodash/pkg/storage"
	"github.com/levenlabs/go-lflag"
)

// Server exposes the dashboard state to a presentational surface over HTTP
// and a WebSocket stream.
type Server struct {
	dash  *dashboard.Coordinator
	prefs *storage.Preferences
	hub   *Hub

	listenAddr string
	httpServer *http.Server
	serverName string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(dash *dashboard.Coordinator, prefs *storage.Preferences) *Server {
	srv := New(dash, prefs)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}
	listenAddr := lflag.String("http-listen", "127.0.0.1:"+port, "HTTP server listen address")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
	})
	return srv
}

// New returns a Server without registering flags.
func New(dash *dashboard.Coordinator, prefs *storage.Preferences) *Server {
	return &Server{
		dash:       dash,
		prefs:      prefs,
		hub:        NewHub(),
		serverName: "elektrodash/" + common.Version(),
	}
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	apiMux.HandleFunc("GET /api/kpis", s.handleKPIs)
	apiMux.HandleFunc("GET /api/params", s.handleGetParams)
	apiMux.HandleFunc("POST /api/params", s.handleUpdateParams)
	apiMux.HandleFunc("POST /api/battery/refresh", s.handleRefreshBattery)
	apiMux.HandleFunc("POST /api/prices/refresh", s.handleRefreshPrices)
	apiMux.HandleFunc("POST /api/planner", s.handlePlanner)
	apiMux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	apiMux.HandleFunc("PUT /api/preferences", s.handleUpdatePreferences)
	apiMux.HandleFunc("GET /api/fees-history", s.handleFeesState)
	apiMux.HandleFunc("POST /api/fees-history/add", s.handleFeesAdd)
	apiMux.HandleFunc("POST /api/fees-history/cancel", s.handleFeesCancel)
	apiMux.HandleFunc("PUT /api/fees-history/{id}", s.handleFeesUpdate)
	apiMux.HandleFunc("POST /api/fees-history/{id}/edit", s.handleFeesEdit)
	apiMux.HandleFunc("POST /api/fees-history/{id}/save", s.handleFeesSave)
	apiMux.HandleFunc("POST /api/fees-history/{id}/delete", s.handleFeesDelete)
	apiMux.HandleFunc("POST /api/fees-history/{id}/cancel-delete", s.handleFeesCancelDelete)
	apiMux.HandleFunc("/healthz", s.handleHealthz)

	mux := http.NewServeMux()
	// the stream needs the raw connection, so it bypasses compression
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("/", gziphandler.GzipHandler(apiMux))
	return s.revisionMiddleware(s.securityHeadersMiddleware(mux))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        s.listenAddr,
		Handler:     s.setupHandler(),
		ReadTimeout: 15 * time.Second,
		// prices refresh waits for the backend and every follow-up load
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx, s.dash)

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.CloseAll()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
