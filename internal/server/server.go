package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/caselaw-ingest/constants"
	"github.com/joseph-ayodele/caselaw-ingest/internal/async"
	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
	"github.com/joseph-ayodele/caselaw-ingest/internal/entity"
	"github.com/joseph-ayodele/caselaw-ingest/internal/pipeline"
)

type GazetteImporter interface {
	Import(ctx context.Context, file io.Reader, filename string, t constants.GazetteType) (pipeline.GazetteImportResult, error)
}

type CauseListImporter interface {
	Import(ctx context.Context, pdfPath string) (pipeline.ImportSummary, error)
}

type Exporter interface {
	ExportCauseListXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
}

type RunLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.ImportRun, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps are the collaborators behind the routes. Queue is optional; without it cause-list
// uploads are always imported synchronously.
type Deps struct {
	Gazettes   GazetteImporter
	CauseLists CauseListImporter
	Exporter   Exporter
	Runs       RunLookup
	Health     HealthChecker
	Queue      async.Queue
}

// Server is the HTTP import service.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    common.ServerConfig
	log    *slog.Logger
}

func NewServer(deps Deps, cfg common.ServerConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{deps: deps, cfg: cfg, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey))
		}
		r.Post("/api/imports/gazettes", s.handleGazetteImport)
		r.Post("/api/imports/cause-lists", s.handleCauseListImport)
		r.Get("/api/imports/{runID}", s.handleImportRun)
		r.Get("/api/cause-lists/export", s.handleExport)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.HealthCheck(r.Context(), 2*time.Second); err != nil {
			s.log.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeError answers with the status the error's sentinel maps to.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := common.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		jsonError(w, "internal error", code)
		return
	}
	jsonError(w, err.Error(), code)
}
