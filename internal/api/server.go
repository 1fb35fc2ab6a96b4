// Package api provides the HTTP API for observing and steering the galaxy.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/talgya/galaxy-sim/internal/config"
	"github.com/talgya/galaxy-sim/internal/engine"
	"github.com/talgya/galaxy-sim/internal/galaxy"
	"github.com/talgya/galaxy-sim/internal/persistence"
)

const defaultCleanupInterval = 10 * time.Minute

// Server serves the galaxy state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	Gatherer prometheus.Gatherer // Nil disables /metrics
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RunID    string
	Started  time.Time

	CORSOrigins     []string
	Limiter         *RateLimiter  // Nil disables rate limiting
	CleanupInterval time.Duration // Idle limiter sweep period. Zero = 10 minutes.

	History *persistence.DB // Nil disables stored history endpoints

	srv         *http.Server
	stopCleanup context.CancelFunc
}

// Handler builds the routed, CORS-wrapped and rate-limited handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stars", s.handleStars)
	mux.HandleFunc("GET /api/v1/star/{id}", s.handleStarDetail)
	mux.HandleFunc("GET /api/v1/civilizations", s.handleCivilizations)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	if s.History != nil {
		mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
		mux.HandleFunc("GET /api/v1/runs/{id}/snapshots", s.handleRunSnapshots)
		mux.HandleFunc("GET /api/v1/meta/{key}", s.handleMeta)
	}
	if s.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("POST /api/v1/pause", s.adminOnly(s.handlePause))
	mux.HandleFunc("POST /api/v1/reset", s.adminOnly(s.handleReset))

	var h http.Handler = mux
	if s.Limiter != nil {
		h = s.Limiter.Middleware(h)
	}
	origins := s.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(h)
}

// Start begins serving the HTTP API in a goroutine, along with the rate
// limiter's idle-client sweep.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "metrics", s.Gatherer != nil)

	if s.Limiter != nil {
		interval := s.CleanupInterval
		if interval <= 0 {
			interval = defaultCleanupInterval
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.stopCleanup = cancel
		go s.Limiter.RunCleanup(ctx, interval)
	}

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops a started server and its limiter sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopCleanup != nil {
		s.stopCleanup()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no GALAXY_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	report := s.Sim.PlacementReport()

	status := map[string]any{
		"name":          "galaxy-sim",
		"run_id":        s.RunID,
		"tick":          snap.Tick,
		"stars":         len(snap.Stars),
		"planets":       snap.PlanetCount(),
		"civilizations": len(snap.Civilizations),
		"stats":         snap.Stats,
		"placement":     report,
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
		status["paused"] = s.Eng.Paused()
		status["frame"] = s.Eng.Frame()
	}
	if !s.Started.IsZero() {
		status["started"] = humanize.Time(s.Started)
	}
	writeJSON(w, status)
}

func (s *Server) handleStars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot().Stars)
}

func (s *Server) handleStarDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid star id", http.StatusBadRequest)
		return
	}
	star, ok := s.Sim.StarSnapshot(galaxy.StarID(id))
	if !ok {
		http.Error(w, "star not found", http.StatusNotFound)
		return
	}
	writeJSON(w, star)
}

func (s *Server) handleCivilizations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Civilizations())
}

// handleEvents serves the newest events, oldest first. The in-memory log keeps
// the last 1000; when it cannot satisfy the request and a database is attached,
// the stored log is used instead.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	maxLimit := 500
	if s.History != nil {
		maxLimit = 5000
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxLimit {
			limit = n
		}
	}
	cat := r.URL.Query().Get("category")

	events := s.Sim.RecentEvents(0)

	// Optional category filter, e.g. ?category=conquest.
	if cat != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == cat {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	if len(events) < limit && s.History != nil {
		stored, err := s.History.RecentEvents(limit, cat)
		if err != nil {
			slog.Error("reading stored events", "error", err)
		} else if len(stored) > len(events) {
			events = make([]engine.Event, len(stored))
			for i, e := range stored {
				// Stored rows come newest first.
				events[len(stored)-1-i] = engine.Event{Tick: e.Tick, Description: e.Description, Category: e.Category}
			}
		}
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.History.Runs()
	if err != nil {
		slog.Error("listing runs", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.Run{}
	}
	writeJSON(w, runs)
}

// handleRunSnapshots serves one recorded tick of a run, e.g.
// /api/v1/runs/{id}/snapshots?tick=300.
func (s *Server) handleRunSnapshots(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}
	tick, err := strconv.ParseUint(r.URL.Query().Get("tick"), 10, 64)
	if err != nil {
		http.Error(w, "tick query parameter required", http.StatusBadRequest)
		return
	}
	rows, err := s.History.Snapshots(runID, tick)
	if err != nil {
		slog.Error("reading snapshots", "run_id", runID, "tick", tick, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "no snapshot at that tick", http.StatusNotFound)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := s.History.GetMeta(key)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "unknown key", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("reading run metadata", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"key": key, "value": value})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed int `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.Eng.SetSpeed(req.Speed); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]int{"speed": s.Eng.Speed()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused *bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	paused := !s.Eng.Paused()
	if req.Paused != nil {
		paused = *req.Paused
	}
	s.Eng.SetPaused(paused)
	writeJSON(w, map[string]bool{"paused": paused})
}

// handleReset rebuilds the galaxy, optionally with new star and planet counts.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stars      *int `json:"stars"`
		MinPlanets *int `json:"min_planets"`
		MaxPlanets *int `json:"max_planets"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	params := s.Sim.PlacementParams()
	if req.Stars != nil {
		params.StarCount = *req.Stars
	}
	if req.MinPlanets != nil {
		params.MinPlanets = *req.MinPlanets
	}
	if req.MaxPlanets != nil {
		params.MaxPlanets = *req.MaxPlanets
	}
	if params.StarCount < config.MinStars || params.StarCount > config.MaxStars {
		http.Error(w, fmt.Sprintf("stars must be %d-%d", config.MinStars, config.MaxStars), http.StatusBadRequest)
		return
	}
	if params.MinPlanets < config.MinPlanetsCap || params.MaxPlanets > config.MaxPlanetsCap || params.MinPlanets > params.MaxPlanets {
		http.Error(w, fmt.Sprintf("planets must satisfy %d <= min <= max <= %d", config.MinPlanetsCap, config.MaxPlanetsCap), http.StatusBadRequest)
		return
	}

	s.Sim.Reset(params)
	report := s.Sim.PlacementReport()
	slog.Info("galaxy reset via API", "stars", params.StarCount, "placed", report.Placed)

	writeJSON(w, map[string]any{
		"tick":      s.Sim.CurrentTick(),
		"placement": report,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
