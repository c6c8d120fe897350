// Package api provides the REST trigger surface for the ingestion
// pipeline: manual and scheduled runs, run log viewing, health, and the
// placeholder cover images.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pulsewire/ingest/internal/covergen"
	"github.com/pulsewire/ingest/internal/ingest"
	"github.com/pulsewire/ingest/internal/store"
)

// Runner triggers ingestion runs.
type Runner interface {
	RunAll(ctx context.Context) ingest.Summary
	RunCategory(ctx context.Context, p ingest.Params) (int, error)
}

// RunStore is the read side of the run log.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	ArticleCount(ctx context.Context) (int, error)
	RunCount(ctx context.Context) (int, error)
}

// Server holds the dependencies for the API.
type Server struct {
	runner       Runner
	runs         RunStore
	covers       *covergen.Generator
	jwtSecret    []byte
	passwordHash []byte
	logger       *slog.Logger
}

// NewServer creates a new API Server instance. passwordHash is the
// bcrypt hash of the admin password.
func NewServer(runner Runner, runs RunStore, covers *covergen.Generator, jwtSecret, passwordHash string) *Server {
	return &Server{
		runner:       runner,
		runs:         runs,
		covers:       covers,
		jwtSecret:    []byte(jwtSecret),
		passwordHash: []byte(passwordHash),
		logger:       slog.Default(),
	}
}

// Routes returns the configured http.Handler (ServeMux) for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("POST /api/auth/login", s.handleLogin())
	mux.HandleFunc("GET /health", s.handleHealth())
	mux.HandleFunc("GET /covers/{name}", s.handleCover())

	// Protected (require JWT)
	mux.Handle("POST /api/ingest/run", s.requireAuth(http.HandlerFunc(s.handleRun())))
	mux.Handle("POST /api/ingest/schedule", s.requireAuth(http.HandlerFunc(s.handleSchedule())))
	mux.Handle("GET /api/ingest/runs", s.requireAuth(http.HandlerFunc(s.handleListRuns())))

	return mux
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
