package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/rpn/internal/session"
)

// Defaults reported by the health endpoint.
const (
	DefaultName    = "RPN Calculator API"
	DefaultVersion = "1.0.0"
)

// DefaultAllowedOrigins is the CORS allow-list used when none is configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173"}

const shutdownTimeout = 5 * time.Second

// Server serves one backend. Mutations are serialized so watchers observe
// snapshots in the order they were produced.
type Server struct {
	backend  session.Backend
	logger   *slog.Logger
	origins  []string
	name     string
	version  string
	hub      *hub
	upgrader websocket.Upgrader

	mu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAllowedOrigins sets the CORS allow-list. "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = append([]string(nil), origins...)
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// New creates a server for backend. The caller keeps ownership of backend.
func New(backend session.Backend, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		origins: DefaultAllowedOrigins,
		name:    DefaultName,
		version: DefaultVersion,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.hub = newHub(s.logger)
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Handler returns the HTTP handler with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET "+session.StackPath, s.handleState)
	mux.HandleFunc("POST "+session.StackPath, s.handlePush)
	mux.HandleFunc("DELETE "+session.StackPath, s.handleClear)
	mux.HandleFunc("POST "+session.OpPath+"/{name}", s.handleApply)
	mux.HandleFunc("GET "+session.APIPrefix+"/operations", s.handleOperations)
	mux.HandleFunc("GET "+session.StackPath+"/watch", s.handleWatch)
	return s.logRequests(s.cors(mux))
}

// Serve listens on addr and serves until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully and closes every watcher.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originAllowed(origin)
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
