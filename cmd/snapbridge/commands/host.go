package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/snapbridge/internal/config"
	"git.home.luguber.info/inful/snapbridge/internal/daemon"
)

// HostCmd implements the 'host' command.
type HostCmd struct {
	GatewayAddr string        `name:"gateway-addr" help:"Gateway listen address (overrides host.gateway_addr)"`
	AdminAddr   string        `name:"admin-addr" help:"Admin listen address (overrides host.admin_addr)"`
	StopTimeout time.Duration `name:"stop-timeout" help:"Graceful shutdown timeout" default:"30s"`
}

func (h *HostCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadedConfig()
	if err != nil {
		return err
	}
	if h.GatewayAddr != "" {
		cfg.Host.GatewayAddr = h.GatewayAddr
	}
	if h.AdminAddr != "" {
		cfg.Host.AdminAddr = h.AdminAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create host: %w", err)
	}

	stopWatch := root.watchConfig(ctx, func(_ context.Context, next *config.Config) {
		root.applyLogging(next.Logging)
		slog.Info("Configuration reloaded; listener and storage changes apply on restart")
	})
	defer stopWatch()

	return d.Run(ctx, h.StopTimeout)
}
