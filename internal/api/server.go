// Package api serves the protocol catalog over HTTP.
//
// The surface is read-only: GET /rituals (alias /protocols) returns the
// catalog in the representation negotiated from the request's Accept and
// User-Agent headers, and GET /healthz reports the record count. Nothing
// reachable over HTTP writes to the store.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/roach88/culturekernel/internal/render"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Source renders the catalog in a given mode. *render.Memo satisfies it.
type Source interface {
	Render(mode render.Mode) (render.Output, error)
	Len() int
}

// Server is the HTTP front end over a rendered catalog.
type Server struct {
	addr    string
	source  Source
	logger  *slog.Logger
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and lifecycle logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a server for addr that renders through src.
func New(addr string, src Source, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		source: src,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverer)
	r.Use(middleware.GetHead)

	r.Get("/rituals", s.handleCatalog)
	r.Get("/protocols", s.handleCatalog)
	r.Get("/healthz", s.handleHealth)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no such resource")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	return gzipWrapper(r)
}

// gzipWrapper compresses responses and suffixes the ETag of compressed
// bodies so each encoding has its own validator.
var gzipWrapper = func() func(http.Handler) http.HandlerFunc {
	wrap, err := gzhttp.NewWrapper(gzhttp.SuffixETag(gzipETagSuffix))
	if err != nil {
		panic(fmt.Sprintf("api: gzip wrapper: %v", err))
	}
	return wrap
}()

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen(ctx)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Listen binds the configured address. Pass the listener to Serve.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return ln, nil
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully,
// letting in-flight requests finish. It takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("serving catalog", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
