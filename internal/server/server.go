// Package server exposes seekd over HTTP: search, source management, and
// agent orchestration. Handlers translate between JSON shapes and the
// internal components; they hold no state of their own.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seekspace/seekd/internal/config"
	"github.com/seekspace/seekd/internal/index"
	"github.com/seekspace/seekd/internal/llm"
	"github.com/seekspace/seekd/internal/search"
	"github.com/seekspace/seekd/internal/skill"
	"github.com/seekspace/seekd/internal/source"
	"github.com/seekspace/seekd/internal/store"
	"github.com/seekspace/seekd/internal/workflow"
)

// Server wires the HTTP surface over the internal components.
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	meta        store.MetadataStore
	sources     *source.Registry
	coordinator *index.Coordinator
	engine      *search.Engine
	skills      *skill.Registry
	templates   *workflow.TemplateRegistry
	workflows   *workflow.Engine
	session     *llm.Session

	httpServer *http.Server
}

// Options carries the components the server serves.
type Options struct {
	Config      *config.Config
	Logger      *slog.Logger
	Meta        store.MetadataStore
	Sources     *source.Registry
	Coordinator *index.Coordinator
	Engine      *search.Engine
	Skills      *skill.Registry
	Templates   *workflow.TemplateRegistry
	Workflows   *workflow.Engine
	Session     *llm.Session
}

// New creates a server. All components are required except Session, which
// may be nil when no LLM is configured.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:         opts.Config,
		logger:      logger,
		meta:        opts.Meta,
		sources:     opts.Sources,
		coordinator: opts.Coordinator,
		engine:      opts.Engine,
		skills:      opts.Skills,
		templates:   opts.Templates,
		workflows:   opts.Workflows,
		session:     opts.Session,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.cfg != nil && s.cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	r.Post("/search/{mode}", s.handleSearch)

	r.Route("/sources", s.sourceRoutes)
	// Compatibility alias for clients that predate the unified source model.
	r.Route("/directories", s.sourceRoutes)

	r.Route("/agent", func(r chi.Router) {
		r.Post("/execute", s.handleExecuteTemplate)
		r.Post("/execute-workflow", s.handleExecuteWorkflow)
		r.Get("/templates", s.handleListTemplates)
		r.Post("/templates", s.handleRegisterTemplate)
		r.Get("/templates/{name}", s.handleGetTemplate)
		r.Get("/skills", s.handleListSkills)
		r.Get("/skills/{name}", s.handleGetSkill)
		r.Post("/skills/{name}/execute", s.handleExecuteSkill)
		r.Get("/info", s.handleAgentInfo)
		r.Get("/health", s.handleAgentHealth)
	})

	return r
}

func (s *Server) sourceRoutes(r chi.Router) {
	r.Get("/", s.handleListSources)
	r.Post("/", s.handleAddSource)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSource)
		r.Patch("/", s.handleUpdateSource)
		r.Delete("/", s.handleRemoveSource)
		r.Post("/reindex", s.handleReindexSource)
		r.Get("/discover", s.handleDiscoverSource)
	})
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// within the configured grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownGrace)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
