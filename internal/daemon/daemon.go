// Package daemon assembles a snapbridge host from configuration: the snap
// registry, state store, call journal, dialog presenter, metrics, the
// JSON-RPC gateway and the admin server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/snapbridge/internal/config"
	"git.home.luguber.info/inful/snapbridge/internal/gateway"
	"git.home.luguber.info/inful/snapbridge/internal/host"
	"git.home.luguber.info/inful/snapbridge/internal/journal"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/metrics"
	"git.home.luguber.info/inful/snapbridge/internal/server/handlers"
	"git.home.luguber.info/inful/snapbridge/internal/server/httpserver"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
	"git.home.luguber.info/inful/snapbridge/internal/snaps/encryptsnap"
	"git.home.luguber.info/inful/snapbridge/internal/snaps/statesnap"
	"git.home.luguber.info/inful/snapbridge/internal/storage"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// Daemon is a running snapbridge host.
type Daemon struct {
	cfg    *config.Config
	status atomic.Value // Status

	registry  *prom.Registry
	store     storage.Store
	journal   journal.Journal
	presenter ui.Presenter
	runtime   *host.Runtime
	gateway   *gateway.Server
	admin     *httpserver.Server

	gatewayErr chan error
	stopOnce   sync.Once
}

// Packages returns the snaps a host built from cfg can install.
func Packages(cfg *config.Config) []host.Package {
	return []host.Package{
		statesnap.Package(cfg.Origins.State),
		encryptsnap.Package(cfg.Origins.Encrypt, cfg.Origins.State),
	}
}

// New builds a daemon from cfg. Nothing listens until Start.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	d := &Daemon{cfg: cfg, registry: prom.NewRegistry(), gatewayErr: make(chan error, 1)}
	d.status.Store(StatusStopped)

	packages := host.NewRegistry()
	for _, p := range Packages(cfg) {
		if err := packages.Register(p); err != nil {
			return nil, fmt.Errorf("register %s: %w", p.ID, err)
		}
	}

	store, err := storage.Open(ctx, cfg.Host.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Host.Storage.Backend, err)
	}
	d.store = store

	j, err := journal.Open(cfg.Host.Journal.Path)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	d.journal = j

	var dialogs handlers.DialogSource
	switch cfg.Host.Dialogs.Mode {
	case config.DialogReject:
		d.presenter = ui.RejectingPresenter{}
	default:
		auto := ui.NewAutoPresenter(cfg.Host.Dialogs.History, nil, slog.Default())
		d.presenter, dialogs = auto, auto
	}

	d.runtime = host.NewRuntime(packages, store, d.presenter,
		host.WithRecorder(metrics.NewPrometheusRecorder(d.registry)),
		host.WithJournal(j),
		host.WithInterPluginTimeout(cfg.Host.InterPluginTimeout))

	d.gateway = gateway.NewServer(d.runtime,
		gateway.WithOrigin(cfg.Host.PageOrigin),
		gateway.WithMaxConnections(cfg.Host.MaxConnections))

	d.admin = httpserver.New(httpserver.Options{
		Addr:       cfg.Host.AdminAddr,
		PageOrigin: cfg.Host.PageOrigin,
		Snaps:      d.runtime,
		Dialogs:    dialogs,
		Journal:    j,
		Registry:   d.registry,
	})
	return d, nil
}

// Runtime returns the host runtime.
func (d *Daemon) Runtime() *host.Runtime { return d.runtime }

// Status returns the daemon's lifecycle state.
func (d *Daemon) Status() Status { return d.status.Load().(Status) }

// Start binds the admin and gateway listeners and serves in the background.
func (d *Daemon) Start(ctx context.Context) error {
	d.status.Store(StatusStarting)

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", d.cfg.Host.GatewayAddr)
	if err != nil {
		d.status.Store(StatusStopped)
		return fmt.Errorf("gateway listen on %s: %w", d.cfg.Host.GatewayAddr, err)
	}
	if err := d.admin.Start(ctx); err != nil {
		_ = ln.Close()
		d.status.Store(StatusStopped)
		return err
	}

	go func() { d.gatewayErr <- d.gateway.Serve(ctx, ln) }()

	d.status.Store(StatusRunning)
	slog.Info("Snap host started",
		slog.String("gateway", ln.Addr().String()),
		slog.String("admin", d.admin.Addr().String()),
		logfields.Backend(string(d.cfg.Host.Storage.Backend)),
		logfields.Origin(d.cfg.Host.PageOrigin))
	return nil
}

// GatewayAddr returns the gateway's bound address, or nil before Start.
func (d *Daemon) GatewayAddr() net.Addr { return d.gateway.Addr() }

// AdminAddr returns the admin server's bound address, or nil before Start.
func (d *Daemon) AdminAddr() net.Addr { return d.admin.Addr() }

// Done delivers the gateway's exit error once it stops serving.
func (d *Daemon) Done() <-chan error { return d.gatewayErr }

// Stop shuts every component down. It is safe to call more than once.
func (d *Daemon) Stop(ctx context.Context) error {
	var errs []error
	d.stopOnce.Do(func() {
		d.status.Store(StatusStopping)
		if err := d.gateway.Close(); err != nil {
			errs = append(errs, fmt.Errorf("gateway: %w", err))
		}
		if err := d.admin.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := d.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
		if err := d.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
		d.status.Store(StatusStopped)
		slog.Info("Snap host stopped")
	})
	return errors.Join(errs...)
}

// Run starts the daemon and blocks until ctx is canceled or the gateway
// fails, then stops it within stopTimeout.
func (d *Daemon) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := d.Start(ctx); err != nil {
		return err
	}

	var runErr error
	select {
	case err := <-d.gatewayErr:
		if err != nil {
			runErr = fmt.Errorf("gateway error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping host...")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return errors.Join(runErr, d.Stop(stopCtx))
}
