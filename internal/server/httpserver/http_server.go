// Package httpserver wires the admin HTTP endpoints.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/journal"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/metrics"
	handlers "git.home.luguber.info/inful/snapbridge/internal/server/handlers"
	smw "git.home.luguber.info/inful/snapbridge/internal/server/middleware"
)

// Options are the collaborators behind the admin endpoints.
type Options struct {
	Addr       string
	PageOrigin string
	Snaps      handlers.SnapSource
	Dialogs    handlers.DialogSource
	Journal    journal.Journal
	// Registry backs /metrics. Nil disables the endpoint.
	Registry *prom.Registry
}

// Server is the admin HTTP server.
type Server struct {
	opts         Options
	adminServer  *http.Server
	addr         net.Addr
	errorAdapter *foundationerrors.HTTPErrorAdapter
	startTime    time.Time

	monitoringHandlers *handlers.MonitoringHandlers
	apiHandlers        *handlers.APIHandlers

	mchain func(http.Handler) http.Handler
}

// New constructs the admin server.
func New(opts Options) *Server {
	s := &Server{
		opts:         opts,
		errorAdapter: foundationerrors.NewHTTPErrorAdapter(slog.Default()),
		startTime:    time.Now(),
	}
	s.monitoringHandlers = handlers.NewMonitoringHandlers(opts.Snaps, s.startTime)
	s.apiHandlers = handlers.NewAPIHandlers(opts.Snaps, opts.Dialogs, opts.Journal, opts.PageOrigin)
	s.mchain = smw.Chain(slog.Default(), s.errorAdapter)
	return s
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.monitoringHandlers.HandleHealthCheck)
	mux.HandleFunc("/api/snaps", s.apiHandlers.HandleSnaps)
	mux.HandleFunc("/api/dialogs", s.apiHandlers.HandleDialogs)
	mux.HandleFunc("/api/journal", s.apiHandlers.HandleJournal)
	if s.opts.Registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	return s.mchain(mux)
}

// Start binds the admin address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return foundationerrors.NetworkError(fmt.Sprintf("admin listen on %s", s.opts.Addr)).WithCause(err).Build()
	}
	return s.serve(ln)
}

func (s *Server) serve(ln net.Listener) error {
	s.addr = ln.Addr()
	s.adminServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("Admin server listening", logfields.Addr(ln.Addr().String()))
	go func() {
		if err := s.adminServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin server failed", logfields.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr { return s.addr }

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.adminServer == nil {
		return nil
	}
	if err := s.adminServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	return nil
}
