package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/snapbridge/internal/config"
	"git.home.luguber.info/inful/snapbridge/internal/connection"
	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/gateway"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snaps/statesnap"
)

// requestTimeout bounds every one-shot page command.
const requestTimeout = time.Minute

// defaultStateParams is what the page sends when "Generate Some State" is pressed.
var defaultStateParams = []string{"item-1", "item-2", "item-3"}

func originsOf(cfg *config.Config) connection.Origins {
	return connection.Origins{State: cfg.Origins.State, Encrypt: cfg.Origins.Encrypt}
}

func newController(p connection.Provider, cfg *config.Config) *connection.Controller {
	return connection.NewController(p, originsOf(cfg), connection.WithErrorTimeout(cfg.Page.ErrorTimeout))
}

// page is a connected, synchronized controller for a single command.
type page struct {
	ctl    *connection.Controller
	client *gateway.Client
}

func (p *page) Close() {
	p.ctl.Close()
	if p.client != nil {
		_ = p.client.Close()
	}
}

func (c *CLI) openPage(ctx context.Context) (*page, error) {
	cfg, err := c.LoadedConfig()
	if err != nil {
		return nil, err
	}
	client, err := c.dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := &page{ctl: newController(client, cfg), client: client}
	p.ctl.Sync(ctx)
	return p, nil
}

func (c *CLI) printResult(v any) error {
	s, err := snap.PrettyJSON(v)
	if err != nil {
		return foundationerrors.InternalError("render result").WithCause(err).Build()
	}
	_, err = fmt.Fprintln(c.out(), s)
	return err
}

// StatusCmd implements the 'status' command.
type StatusCmd struct{}

func (s *StatusCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadedConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	// An unreachable host renders like a browser without a wallet.
	var provider connection.Provider
	client, err := root.dial(ctx, cfg)
	if err != nil {
		slog.Warn("Host gateway unreachable", logfields.Addr(root.gatewayAddr(cfg)), logfields.Error(err))
	} else {
		defer func() { _ = client.Close() }()
		provider = client
	}

	ctl := newController(provider, cfg)
	defer ctl.Close()
	_, err = fmt.Fprint(root.out(), connection.View(ctl.Sync(ctx)).String())
	return err
}

// ConnectCmd groups the 'connect' subcommands.
type ConnectCmd struct {
	State   ConnectStateCmd   `cmd:"" help:"Install the state snap"`
	Encrypt ConnectEncryptCmd `cmd:"" help:"Install the encrypt snap"`
}

// ConnectStateCmd implements 'connect state'.
type ConnectStateCmd struct{}

func (c *ConnectStateCmd) Run(_ *Global, root *CLI) error {
	return root.connect(func(ctx context.Context, ctl *connection.Controller) error { return ctl.ConnectState(ctx) })
}

// ConnectEncryptCmd implements 'connect encrypt'.
type ConnectEncryptCmd struct{}

func (c *ConnectEncryptCmd) Run(_ *Global, root *CLI) error {
	return root.connect(func(ctx context.Context, ctl *connection.Controller) error { return ctl.ConnectEncrypt(ctx) })
}

func (c *CLI) connect(fn func(context.Context, *connection.Controller) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	p, err := c.openPage(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := fn(ctx, p.ctl); err != nil {
		return err
	}
	_, err = fmt.Fprint(c.out(), connection.View(p.ctl.State()).String())
	return err
}

// SetStateCmd implements the 'set-state' command.
type SetStateCmd struct {
	Params string `arg:"" optional:"" help:"JSON object or array to merge; defaults to the three sample items"`
}

func (s *SetStateCmd) Run(_ *Global, root *CLI) error {
	var params any
	if s.Params == "" {
		params = defaultStateParams
	} else if err := json.Unmarshal([]byte(s.Params), &params); err != nil {
		return foundationerrors.ValidationError("state params are not valid JSON").WithCause(err).Build()
	}
	return root.invoke(func(ctx context.Context, ctl *connection.Controller) (any, error) {
		return ctl.GenerateState(ctx, params)
	})
}

// GetStateCmd implements the 'get-state' command.
type GetStateCmd struct{}

func (g *GetStateCmd) Run(_ *Global, root *CLI) error {
	return root.invoke(func(ctx context.Context, ctl *connection.Controller) (any, error) {
		return ctl.Invoke(ctx, ctl.Origins().State, snap.Request{Method: statesnap.MethodGetState})
	})
}

// ClearStateCmd implements the 'clear-state' command.
type ClearStateCmd struct{}

func (c *ClearStateCmd) Run(_ *Global, root *CLI) error {
	return root.invoke(func(ctx context.Context, ctl *connection.Controller) (any, error) {
		return ctl.Invoke(ctx, ctl.Origins().State, snap.Request{Method: statesnap.MethodClearState})
	})
}

// InvokeEncryptCmd implements the 'invoke-encrypt' command.
type InvokeEncryptCmd struct{}

func (i *InvokeEncryptCmd) Run(_ *Global, root *CLI) error {
	return root.invoke(func(ctx context.Context, ctl *connection.Controller) (any, error) {
		return ctl.InvokeEncrypt(ctx)
	})
}

func (c *CLI) invoke(fn func(context.Context, *connection.Controller) (any, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	p, err := c.openPage(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := fn(ctx, p.ctl)
	if err != nil {
		return err
	}
	return c.printResult(result)
}
