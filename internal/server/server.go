// Package server exposes problems over HTTP.
//
// Handlers never touch the graph themselves. Every graph access is a job on
// one worker goroutine, so the graph sees a single thread of control no
// matter how many requests are in flight.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"opgraph/internal/graph"
	"opgraph/internal/store"
)

// ErrStopped is returned for requests that arrive after the worker stopped.
var ErrStopped = errors.New("server stopped")

type job struct {
	fn   func() error
	done chan error
}

// Server serves the problems of one store against one environment.
type Server struct {
	env   *graph.Env
	store store.Store
	log   hclog.Logger

	echo *echo.Echo
	jobs chan job
	quit chan struct{}

	// Touched only by the worker.
	problems map[string]*graph.Problem
}

func New(env *graph.Env, st store.Store, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		env:      env,
		store:    st,
		log:      logger,
		echo:     echo.New(),
		jobs:     make(chan job),
		quit:     make(chan struct{}),
		problems: map[string]*graph.Problem{},
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(middleware.Recover())
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler. Requests are only answered while Run is
// active.
func (s *Server) Handler() http.Handler { return s.echo }

// Run consumes jobs until ctx is done.
func (s *Server) Run(ctx context.Context) {
	defer close(s.quit)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.jobs:
			j.done <- j.fn()
		}
	}
}

// ListenAndServe runs the worker and serves addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	go s.Run(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- s.echo.Start(addr) }()
	s.log.Info("listening", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// do runs fn on the worker and waits for it.
func (s *Server) do(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case s.jobs <- j:
	case <-s.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.done:
		return err
	case <-s.quit:
		return ErrStopped
	}
}

// problem returns the loaded problem, reading it from the store on first
// use. Worker only.
func (s *Server) problem(name string) (*graph.Problem, error) {
	if p, ok := s.problems[name]; ok {
		return p, nil
	}
	p, err := store.LoadProblem(s.store, s.env, name)
	if err != nil {
		if p == nil {
			return nil, err
		}
		s.log.Warn("problem loaded with errors", "problem", name, "error", err)
	}
	s.problems[name] = p
	return p, nil
}
