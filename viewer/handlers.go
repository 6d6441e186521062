package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Server holds shared state for HTTP handlers.
type Server struct {
	roots   []string
	dbCache *DBCache
	logger  *slog.Logger
}

func NewServer(roots []string, refresh time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		roots:   roots,
		dbCache: NewDBCache(roots, refresh, logger),
		logger:  logger,
	}
}

// RegisterRoutes sets up all routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/episodes", s.handleEpisodes)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/chart", s.handleChart)
}

func (s *Server) Close() error {
	return s.dbCache.Close()
}

// preflight handles CORS and rejects anything but GET. It reports whether
// the handler should continue.
func preflight(w http.ResponseWriter, r *http.Request) bool {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// resolveRun returns the db and the requested run, defaulting to the
// latest one.
func (s *Server) resolveRun(r *http.Request) (*sql.DB, string, error) {
	db, err := s.dbCache.Get()
	if err != nil {
		return nil, "", err
	}
	if run := strings.TrimSpace(r.URL.Query().Get("run")); run != "" {
		return db, run, nil
	}
	runID, err := latestRunID(r.Context(), db)
	return db, runID, err
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to open db: %v", err), http.StatusInternalServerError)
		return
	}
	runs, err := queryRuns(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []RunSummary{}
	}
	writeJSON(w, RunsResponse{Runs: runs})
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	db, runID, err := s.resolveRun(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	limit := parseIntQuery(r, "limit", 1000)
	offset := parseIntQuery(r, "offset", 0)
	eps, total, err := queryEpisodes(r.Context(), db, runID, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, EpisodesResponse{Total: total, Episodes: eps})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	db, runID, err := s.resolveRun(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	window := parseIntQuery(r, "last", 100)
	if window == 0 {
		window = 100
	}
	eps, err := queryLastEpisodes(r.Context(), db, runID, window)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, Summarize(runID, window, eps))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r) {
		return
	}
	db, runID, err := s.resolveRun(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	eps, _, err := queryEpisodes(r.Context(), db, runID, parseIntQuery(r, "limit", 100000), 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	window := parseIntQuery(r, "window", 50)
	if window == 0 {
		window = 1
	}

	// Render fully before writing so a failure can still become a 500.
	var buf bytes.Buffer
	if err := renderLearningCurve(&buf, runID, eps, window); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
