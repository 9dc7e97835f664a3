package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"golang.org/x/net/netutil"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/host"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// Server serves the provider methods for one host runtime.
type Server struct {
	rt       *host.Runtime
	origin   string
	maxConns int

	mu     sync.Mutex
	ln     net.Listener
	conns  map[*jsonrpc2.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithOrigin sets the origin every session acts for.
func WithOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.origin = origin
		}
	}
}

// WithMaxConnections caps concurrent connections. Zero means unlimited.
func WithMaxConnections(n int) Option {
	return func(s *Server) { s.maxConns = n }
}

// NewServer creates a server for rt.
func NewServer(rt *host.Runtime, opts ...Option) *Server {
	s := &Server{
		rt:     rt,
		origin: "http://localhost:8000",
		conns:  make(map[*jsonrpc2.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe binds addr and serves until ctx is canceled or Close is called.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return foundationerrors.NetworkError(fmt.Sprintf("gateway listen on %s", addr)).WithCause(err).Build()
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	slog.Info("Gateway listening", logfields.Addr(ln.Addr().String()), slog.String("page_origin", s.origin))
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("gateway accept: %w", err)
		}
		s.serveConn(ctx, c)
	}
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) serveConn(ctx context.Context, c net.Conn) {
	remote := c.RemoteAddr().String()
	h := &handler{session: s.rt.NewSession(s.origin)}
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(c, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(h.handle)))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()
	slog.Debug("Gateway connection opened", logfields.RemoteAddr(remote))

	go func() {
		defer s.wg.Done()
		<-conn.DisconnectNotify()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		slog.Debug("Gateway connection closed", logfields.RemoteAddr(remote))
	}()
}

// Close stops accepting and closes every open connection.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	conns := make([]*jsonrpc2.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var errs []error
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	for _, c := range conns {
		if err := c.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type handler struct {
	session *host.Session
}

func (h *handler) handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	result, err := h.dispatch(ctx, req.Method, rawParams(req))
	if err != nil {
		slog.DebugContext(ctx, "Gateway call failed",
			logfields.Method(req.Method),
			logfields.Origin(h.session.Origin()),
			logfields.Error(err))
		return nil, toWire(err)
	}
	return result, nil
}

func (h *handler) dispatch(ctx context.Context, method string, raw json.RawMessage) (any, error) {
	switch method {
	case MethodClientVersion:
		return h.session.ClientVersion(ctx)
	case MethodGetSnaps:
		return h.session.GetSnaps(ctx)
	case MethodRequestSnaps:
		var req map[string]snap.InstallParams
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return h.session.RequestSnaps(ctx, req)
	case MethodInvokeSnap:
		var p InvokeParams
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.SnapID == "" || p.Request.Method == "" {
			return nil, foundationerrors.InvalidParamsError("wallet_invokeSnap requires snapId and request.method").Build()
		}
		return h.session.InvokeSnap(ctx, p.SnapID, p.Request)
	default:
		return nil, foundationerrors.MethodNotFoundError(fmt.Sprintf("The method %q does not exist / is not available.", method)).
			WithContext("method", method).
			Build()
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return foundationerrors.InvalidParamsError("missing params").Build()
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return foundationerrors.InvalidParamsError("malformed params").WithCause(err).Build()
	}
	return nil
}
