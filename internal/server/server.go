// Package server provides the HTTP server for the PoseBeat game.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/posebeat/internal/app"
	"github.com/ayusman/posebeat/internal/server/api"
	"github.com/ayusman/posebeat/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	// SnapshotInterval is how often game state is pushed to websocket clients.
	SnapshotInterval time.Duration
	// StreamInterval is the delay between MJPEG preview frames.
	StreamInterval time.Duration
}

// Server represents the HTTP server for the PoseBeat application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *Hub
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Game control, live websocket and preview need a running app
	if s.config.App != nil {
		gameHandler := api.NewGameHandler(s.config.App.Engine(), s.config.Store)
		gameHandler.SetClock(s.config.App.Now)
		s.mux.Handle("/api/game", gameHandler)
		s.mux.Handle("/api/game/", gameHandler)

		// Game notifications reach the hub through the engine listener,
		// which the caller composes; session callbacks are additive.
		s.hub = NewHub(s.config.App.Engine(), s.config.App.Session(), s.config.SnapshotInterval)
		s.config.App.Session().OnGesture(s.hub.OnGesture)
		s.config.App.Session().OnCalibrated(s.hub.OnCalibrated)
		s.mux.Handle("/api/ws", s.hub)

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App.Preview, s.config.StreamInterval))
	}

	// Register persistence handlers if Store is configured
	if s.config.Store != nil {
		var calibrator api.Calibrator
		if s.config.App != nil {
			calibrator = s.config.App
		}
		calibrationHandler := api.NewCalibrationHandler(s.config.Store, calibrator)
		s.mux.Handle("/api/calibration", calibrationHandler)
		s.mux.Handle("/api/calibrations", calibrationHandler)
		s.mux.Handle("/api/calibrations/", calibrationHandler)

		settingsHandler := api.NewSettingsHandler(s.config.Store)
		s.mux.Handle("/api/settings", settingsHandler)
		s.mux.Handle("/api/settings/", settingsHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// Hub returns the websocket hub, nil when no app is configured.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.App != nil {
		response["game"] = s.config.App.Engine().Status()
		response["running"] = s.config.App.Running()
	}
	if s.hub != nil {
		response["clients"] = s.hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Close disconnects websocket clients and stops background broadcasts.
func (s *Server) Close() {
	if s.hub != nil {
		s.hub.Close()
	}
}
