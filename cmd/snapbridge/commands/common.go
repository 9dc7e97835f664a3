package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/snapbridge/internal/config"
	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/gateway"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"snapbridge.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Gateway string           `short:"g" help:"Host gateway address (overrides page.gateway)"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Host          HostCmd          `cmd:"" help:"Run the snap host: runtime, JSON-RPC gateway and admin server"`
	Status        StatusCmd        `cmd:"" help:"Synchronize once with the host and print the page"`
	Watch         WatchCmd         `cmd:"" help:"Keep the page synchronized and print every state change"`
	Connect       ConnectCmd       `cmd:"" help:"Install one of the snaps"`
	SetState      SetStateCmd      `cmd:"" name:"set-state" help:"Merge a JSON document into the state snap"`
	GetState      GetStateCmd      `cmd:"" name:"get-state" help:"Print the state snap document"`
	ClearState    ClearStateCmd    `cmd:"" name:"clear-state" help:"Clear the state snap document"`
	InvokeEncrypt InvokeEncryptCmd `cmd:"" name:"invoke-encrypt" help:"Run the encrypt snap, which relays to the state snap"`
	Init          InitCmd          `cmd:"" help:"Initialize a new configuration file"`

	Out io.Writer `kong:"-"`

	cfg      *config.Config `kong:"-"`
	cfgErr   error          `kong:"-"`
	logLevel *slog.LevelVar `kong:"-"`
}

// AfterApply runs after flag parsing; load configuration and set up logging once.
func (c *CLI) AfterApply() error {
	c.cfg, c.cfgErr = config.LoadOrDefault(c.Config)

	c.logLevel = new(slog.LevelVar)
	var logging config.LoggingConfig
	if c.cfg != nil {
		logging = c.cfg.Logging
	}
	c.applyLogging(logging)

	opts := &slog.HandlerOptions{Level: c.logLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func (c *CLI) applyLogging(l config.LoggingConfig) {
	if c.logLevel == nil {
		c.logLevel = new(slog.LevelVar)
	}
	if c.Verbose {
		c.logLevel.Set(slog.LevelDebug)
		return
	}
	c.logLevel.Set(l.SlogLevel())
}

// LoadedConfig returns the configuration read during AfterApply.
func (c *CLI) LoadedConfig() (*config.Config, error) {
	if c.cfg == nil && c.cfgErr == nil {
		c.cfg, c.cfgErr = config.LoadOrDefault(c.Config)
	}
	if c.cfgErr != nil {
		return nil, foundationerrors.ConfigError("load configuration").
			WithCause(c.cfgErr).
			WithContext("path", c.Config).
			Build()
	}
	return c.cfg, nil
}

func (c *CLI) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *CLI) gatewayAddr(cfg *config.Config) string {
	if c.Gateway != "" {
		return c.Gateway
	}
	return cfg.Page.Gateway
}

// dial connects to the host gateway named by the flags or configuration.
func (c *CLI) dial(ctx context.Context, cfg *config.Config) (*gateway.Client, error) {
	addr := c.gatewayAddr(cfg)
	client, err := gateway.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	slog.Debug("Connected to host gateway", logfields.Addr(addr))
	return client, nil
}
