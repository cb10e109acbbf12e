package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/tend/internal/engine"
	"github.com/lazypower/tend/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the tend HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over the given database and engine.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", s.handleListActivities)
			r.Post("/", s.handleCreateActivity)
			r.Get("/lookup", s.handleLookup)
			r.Get("/search", s.handleSearch)
			r.Get("/overdue", s.handleOverdue)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetActivity)
				r.Patch("/", s.handleUpdateActivity)
				r.Delete("/", s.handleDeleteActivity)
				r.Post("/complete", s.handleComplete)
				r.Get("/days-since", s.handleDaysSince)
			})
		})

		r.Get("/reminders", s.handleReminders)
		r.Post("/reconcile", s.handleReconcile)
	})

	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.PingContext(r.Context()); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"uptime":    time.Since(s.started).Seconds(),
		"db":        dbOK,
		"db_path":   s.db.Path,
		"reminders": len(s.engine.Scheduler.Pending()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
