// Package server runs the HTTP server and the background components that
// share its lifetime, and shuts them down in order on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function that shuts down a component gracefully.
type ShutdownFunc func(ctx context.Context) error

// Server wraps http.Server with graceful shutdown.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu            sync.Mutex
	shutdownFuncs []ShutdownFunc
	background    []func(ctx context.Context) error
	wg            sync.WaitGroup
}

// New creates a new Server instance.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger.With("component", "server"),
	}
}

// OnShutdown registers a component shutdown. Components stop in reverse
// registration order after the HTTP server has drained, so stores
// registered first are closed last.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFuncs = append(s.shutdownFuncs, func(ctx context.Context) error {
		s.logger.Info("shutting down component", "name", name)
		if err := fn(ctx); err != nil {
			s.logger.Error("component shutdown error", "name", name, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		}
		s.logger.Info("component stopped", "name", name)
		return nil
	})
}

// OnHTTPShutdown registers fn to run as soon as HTTP shutdown begins.
// http.Server.Shutdown does not wait for hijacked connections, so websocket
// handlers use this to close their streams.
func (s *Server) OnHTTPShutdown(fn func()) {
	s.httpServer.RegisterOnShutdown(fn)
}

// Go runs fn in the background once the server starts. fn receives a
// context that is cancelled when shutdown begins; it is not restarted if
// it returns early.
func (s *Server) Go(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = append(s.background, func(ctx context.Context) error {
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("background component stopped", "name", name, "error", err)
			return err
		}
		return nil
	})
}

// Run listens on the configured address and blocks until SIGINT/SIGTERM
// or a server error, then shuts everything down.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.serve(ctx, ln)
}

// serve runs until ctx is done or the server fails. Registered
// components are shut down in both cases.
func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	s.mu.Lock()
	for _, fn := range s.background {
		fn := fn
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = fn(bgCtx)
		}()
	}
	s.mu.Unlock()

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case err := <-serverErr:
		runErr = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	cancelBackground()
	return errors.Join(runErr, s.gracefulShutdown())
}

// gracefulShutdown stops the HTTP server, waits for background
// components and then runs the registered shutdown functions.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("stopping HTTP server", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		errs = append(errs, fmt.Errorf("http: %w", err))
	}

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		s.logger.Warn("background components did not stop in time")
	}

	s.mu.Lock()
	funcs := s.shutdownFuncs
	s.mu.Unlock()

	s.logger.Info("stopping registered components", "count", len(funcs))
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("shutdown completed with errors", "error_count", len(errs))
		return err
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
