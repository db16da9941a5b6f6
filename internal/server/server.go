// Package server is the HTTP boundary: routing, request decoding, and
// mapping pipeline errors onto the wire contract.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"invitegen/internal/audit"
	"invitegen/internal/batch"
	"invitegen/internal/metrics"
	"invitegen/internal/publish"
)

// Options wires a Server. Store may be nil in attachment mode, Audit
// may be nil when the trail is disabled, and a nil Metrics gets a
// private registry.
type Options struct {
	Pipeline  *batch.Pipeline
	Store     *publish.Store
	Mode      string // config.ModeAttachment or config.ModeLink
	Metrics   *metrics.Metrics
	Audit     *audit.Recorder
	Logger    *slog.Logger
	MaxUpload int64
}

type Server struct {
	pipeline  *batch.Pipeline
	store     *publish.Store
	mode      string
	metrics   *metrics.Metrics
	audit     *audit.Recorder
	logger    *slog.Logger
	maxUpload int64
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return &Server{
		pipeline:  opts.Pipeline,
		store:     opts.Store,
		mode:      opts.Mode,
		metrics:   opts.Metrics,
		audit:     opts.Audit,
		logger:    logger,
		maxUpload: opts.MaxUpload,
	}
}

// Routes builds the router. The /files subtree only exists in link
// mode, where the publish store serves its directory.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/api/generate-xlsx", s.handleGenerateBatch)
	r.Post("/api/generate", s.handleGenerateOne)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	if s.store != nil {
		fs := http.StripPrefix("/files/", http.FileServer(http.Dir(s.store.Dir())))
		r.Get("/files/*", fs.ServeHTTP)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
