package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/snapbridge/internal/config"
	"git.home.luguber.info/inful/snapbridge/internal/connection"
	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/retry"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Interval         time.Duration `help:"Resync interval (overrides page.resync_interval)"`
	ReconnectRetries int           `name:"reconnect-retries" help:"Re-dial attempts after the gateway drops the connection" default:"5"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return w.run(ctx, root)
}

func (w *WatchCmd) run(ctx context.Context, root *CLI) error {
	cfg, err := root.LoadedConfig()
	if err != nil {
		return err
	}

	client, err := root.dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	clock := clockwork.NewRealClock()

	ctl := newController(client, cfg)
	defer ctl.Close()

	out := root.out()
	var (
		mu   sync.Mutex
		last string
	)
	unsubscribe := ctl.Subscribe(func(s connection.State) {
		page := connection.View(s).String()
		mu.Lock()
		defer mu.Unlock()
		if page == last {
			return
		}
		last = page
		fmt.Fprintln(out, page)
	})
	defer unsubscribe()

	interval := w.Interval
	if interval <= 0 {
		interval = cfg.Page.ResyncInterval
	}
	resync, err := connection.NewResyncer(ctl, interval, clock)
	if err != nil {
		return err
	}
	ctl.Sync(ctx)
	if err := resync.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = resync.Stop() }()

	stopWatch := root.watchConfig(ctx, func(ctx context.Context, next *config.Config) {
		root.applyLogging(next.Logging)
		if o := originsOf(next); o != ctl.Origins() {
			slog.Info("Snap origins changed", slog.String("state", o.State), slog.String("encrypt", o.Encrypt))
			ctl.SetOrigins(ctx, o)
		}
	})
	defer stopWatch()

	policy := retry.NewPolicy(retry.ModeExponential, 0, 0, w.ReconnectRetries)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
		}

		slog.Warn("Host gateway disconnected, reconnecting", logfields.Addr(root.gatewayAddr(cfg)))
		ctl.SetProvider(ctx, nil)
		err := retry.Do(ctx, clock, policy, func(ctx context.Context) error {
			next, err := root.dial(ctx, cfg)
			if err != nil {
				return err
			}
			client = next
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return foundationerrors.NetworkError("host gateway is gone").
				WithCause(err).
				WithContext("addr", root.gatewayAddr(cfg)).
				Build()
		}
		ctl.SetProvider(ctx, client)
	}
}

// watchConfig reloads the configuration file on change until ctx ends.
// Nothing is watched when the file does not exist.
func (c *CLI) watchConfig(ctx context.Context, onReload config.ReloadFunc) func() {
	if _, err := os.Stat(c.Config); err != nil {
		return func() {}
	}
	w, err := config.NewWatcher(c.Config, onReload)
	if err != nil {
		slog.Warn("Config watching disabled", logfields.Path(c.Config), logfields.Error(err))
		return func() {}
	}
	if err := w.Start(ctx); err != nil {
		slog.Warn("Config watching disabled", logfields.Path(c.Config), logfields.Error(err))
		_ = w.Stop()
		return func() {}
	}
	return func() { _ = w.Stop() }
}
