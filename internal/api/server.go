package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/callclock/internal/config"
)

// ServerConfig holds the listener settings
type ServerConfig struct {
	Host            string
	Port            int // zero picks a free port
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // zero for event streams that stay open with the page
	ShutdownTimeout time.Duration
}

// ServerConfigFrom builds the listener settings from the server configuration
func ServerConfigFrom(cfg *config.Config) ServerConfig {
	return ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.ReadTimeout(),
		WriteTimeout:    cfg.WriteTimeout(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
	}
}

// Server serves the API and the site on one listener.
// Shutdown runs the hooks, then cancels every request context so open
// event streams end instead of holding the drain open.
type Server struct {
	server         *http.Server
	logger         *slog.Logger
	config         ServerConfig
	cancelRequests context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	hooks    []func()
}

// NewServer creates a new server
func NewServer(handler http.Handler, cfg ServerConfig, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	baseCtx, cancelRequests := context.WithCancel(context.Background())

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return &Server{
		server:         srv,
		logger:         logger,
		config:         cfg,
		cancelRequests: cancelRequests,
	}
}

// OnShutdown registers f to run, in registration order, when shutdown begins
func (s *Server) OnShutdown(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, f)
}

// Listen binds the listen address. It is safe to call more than once.
func (s *Server) Listen() (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener, nil
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	return ln, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	s.logger.Info("starting HTTP server", slog.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})
	return g.Wait()
}

// Shutdown stops accepting connections and waits up to the shutdown timeout for the rest to drain
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()
	for _, f := range hooks {
		f()
	}
	s.cancelRequests()

	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the bound address once listening, else the configured one
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}
