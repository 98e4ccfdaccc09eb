// Package api serves the import pipeline over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /metrics                                         (when configured)
//	GET    /v1/projects
//	DELETE /v1/projects/{project}
//	GET    /v1/projects/{project}/activities
//	POST   /v1/projects/{project}/imports?format=&activity=&container=&call_behavior=&render=
//	GET    /v1/projects/{project}/activities/{activity}
//	GET    /v1/projects/{project}/activities/{activity}/render?format=
//
// An import body is the raw file, or a multipart form with a "file" part.
// Errors are JSON objects carrying the error code; the HTTP status is
// derived from it.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/lanegrid/pkg/pipeline"
)

// DefaultMaxUploadBytes limits import bodies when Options leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

// Options configures a Server.
type Options struct {
	// Defaults supplies the parse and layout constants of every import.
	Defaults pipeline.Options

	// MaxUploadBytes caps import bodies. Zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Logger *log.Logger
}

// Server routes API requests to a pipeline.Runner.
type Server struct {
	runner *pipeline.Runner
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New creates a server around runner.
func New(runner *pipeline.Runner, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Logger == nil {
		opts.Logger = runner.Logger
	}
	s := &Server{runner: runner, opts: opts, logger: opts.Logger}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/v1/projects", func(r chi.Router) {
		r.Get("/", s.listProjects)
		r.Route("/{project}", func(r chi.Router) {
			r.Delete("/", s.deleteProject)
			r.Post("/imports", s.importFile)
			r.Get("/activities", s.listActivities)
			r.Get("/activities/{activity}", s.getActivity)
			r.Get("/activities/{activity}/render", s.renderActivity)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
