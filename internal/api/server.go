// Package api serves a read-only HTTP view of the lead stores: health, store
// statistics, master leads and the latest validation reports.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/internal/monitoring"
	"github.com/sells-group/lead-harvest/internal/store"
	"github.com/sells-group/lead-harvest/internal/validate"
)

// SnapshotCollector produces store statistics.
type SnapshotCollector interface {
	Collect(ctx context.Context) (*monitoring.Snapshot, error)
}

// Config locates the data the server reads.
type Config struct {
	MasterPath     string
	ReportsDir     string
	AllowedOrigins []string
}

// Server holds the handlers' dependencies.
type Server struct {
	cfg       Config
	collector SnapshotCollector
	log       *zap.Logger
}

// NewServer creates a Server.
func NewServer(cfg Config, collector SnapshotCollector, log *zap.Logger) *Server {
	return &Server{cfg: cfg, collector: collector, log: log.With(zap.String("component", "api"))}
}

// Router builds the chi router for every endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/leads", s.handleLeads)
	r.Get("/reports/{phase}", s.handleReport)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	db, err := store.OpenReadOnly(r.Context(), s.cfg.MasterPath, s.log)
	if errors.Is(err, store.ErrStoreMissing) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "master store not found"})
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusServiceUnavailable, err)
		return
	}
	defer db.Close() //nolint:errcheck

	leads, err := db.ListMaster(r.Context())
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if leads == nil {
		leads = []model.MasterRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(leads), "leads": leads})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	phase, err := validate.ParsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rep, err := validate.ReadReport(s.cfg.ReportsDir, phase)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report for " + phase.String()})
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
