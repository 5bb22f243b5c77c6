// Package web serves the pipeline dashboard and the masterfile API: KPIs
// and tables for the team, plus upload, inline team-field edit, and the
// spreadsheet/CSV exports.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"solpipe/internal/config"
	"solpipe/internal/pipeline"
	"solpipe/internal/storage"
)

type Server struct {
	db     *storage.DB
	cfg    config.Config
	svc    *pipeline.ProcessingService
	router *chi.Mux

	// now is swappable so report output is deterministic under test.
	now func() time.Time
}

func NewServer(db *storage.DB, cfg config.Config) *Server {
	s := &Server{
		db:     db,
		cfg:    cfg,
		svc:    pipeline.NewProcessingService(db, cfg),
		router: chi.NewRouter(),
		now:    time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleDashboard)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/masterfile", s.handleMasterfile)
		r.Get("/runs", s.handleMergeRuns)

		r.Post("/upload", s.handleUpload)
		r.Post("/edit", s.handleEdit)

		r.Get("/export.xlsx", s.handleExportXLSX)
		r.Get("/export.csv", s.handleExportCSV)
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
