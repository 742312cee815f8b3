// Package server serves the builder page and its JSON and event stream API.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/go-chi/chi/v5"
	"github.com/killallgit/webbuilder/pkg/chat"
	"github.com/killallgit/webbuilder/pkg/logger"
	"github.com/killallgit/webbuilder/pkg/workspace"
)

//go:embed templates
var templatesFS embed.FS

// ModelLister reports the models an endpoint serves.
type ModelLister interface {
	ListModels(ctx context.Context) ([]chat.RemoteModel, error)
}

// Options configure a Server.
type Options struct {
	Title string
	// Lister is optional; when set GET /api/models also reports what the
	// endpoint serves.
	Lister ModelLister
	// KeepAlive is the comment interval on event streams.
	KeepAlive time.Duration
}

// Server is the host side of the builder.
type Server struct {
	ws   *workspace.Workspace
	opts Options
	tmpl *template.Template
	log  *logger.ComponentLogger

	// ctx bounds generations started over HTTP. It outlives the request
	// that started them.
	ctx context.Context
}

// New parses the page templates.
func New(ws *workspace.Workspace, opts Options) (*Server, error) {
	if opts.Title == "" {
		opts.Title = "AI Web Builder"
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = 15 * time.Second
	}

	tmpl, err := template.New("").Funcs(sprig.HtmlFuncMap()).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	return &Server{
		ws:   ws,
		opts: opts,
		tmpl: tmpl,
		log:  logger.WithComponent("server"),
		ctx:  context.Background(),
	}, nil
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(s.log))
	r.Use(Recovery(s.log))

	r.Get("/", s.handleIndex)
	r.Get("/preview", s.handlePreview)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		r.Get("/models", s.handleModels)
		r.Post("/messages", s.handleSubmit)
		r.Post("/cancel", s.handleCancel)
		r.Post("/selection-mode", s.handleSelectionMode)
		r.Post("/model", s.handleSelectModel)
		r.Post("/sandbox", s.handleSandbox)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// and cancels any running generation.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.ctx = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.ws.Cancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
