package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snaps/encryptsnap"
	"git.home.luguber.info/inful/snapbridge/internal/snaps/statesnap"
)

// DefaultErrorTimeout is how long an error stays in State before it is cleared.
const DefaultErrorTimeout = 10 * time.Second

// FlaskMarker is the client version substring that signals snap support.
const FlaskMarker = "flask"

// Controller owns a page's State. All writes go through Dispatch.
type Controller struct {
	origins      Origins
	clock        clockwork.Clock
	errorTimeout time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	provider Provider
	state    State
	errTimer clockwork.Timer
	errGen   uint64
	subs     map[int]func(State)
	nextSub  int
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithClock replaces the clock driving the error timer.
func WithClock(c clockwork.Clock) ControllerOption {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithErrorTimeout overrides DefaultErrorTimeout.
func WithErrorTimeout(d time.Duration) ControllerOption {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.errorTimeout = d
		}
	}
}

// WithLogger sets the logger used for swallowed discovery failures.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

// NewController creates a controller in the initial state.
func NewController(p Provider, origins Origins, opts ...ControllerOption) *Controller {
	c := &Controller{
		origins:      origins,
		clock:        clockwork.NewRealClock(),
		errorTimeout: DefaultErrorTimeout,
		logger:       slog.Default(),
		provider:     p,
		subs:         make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Origins returns the snap IDs the controller drives.
func (c *Controller) Origins() Origins {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.origins
}

// SetOrigins retargets the controller at other snaps, forgets what was
// installed and re-runs Sync.
func (c *Controller) SetOrigins(ctx context.Context, o Origins) State {
	c.mu.Lock()
	c.origins = o
	c.mu.Unlock()
	c.Dispatch(SetInstalledState{})
	c.Dispatch(SetInstalledEncrypt{})
	return c.Sync(ctx)
}

// Subscribe registers fn to receive every new state. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Dispatch applies a and notifies subscribers. A non-nil SetError arms the
// clear timer, replacing any pending one; SetError{nil} cancels it.
func (c *Controller) Dispatch(a Action) {
	c.mu.Lock()
	c.state = Reduce(c.state, a)
	if e, ok := a.(SetError); ok {
		c.rearmLocked(e.Err != nil)
	}
	state := c.state
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

func (c *Controller) rearmLocked(arm bool) {
	c.errGen++
	if c.errTimer != nil {
		c.errTimer.Stop()
		c.errTimer = nil
	}
	if !arm {
		return
	}
	gen := c.errGen
	c.errTimer = c.clock.AfterFunc(c.errorTimeout, func() { c.expireError(gen) })
}

// expireError clears the error only if no newer SetError happened since the
// timer for gen was armed.
func (c *Controller) expireError(gen uint64) {
	c.mu.Lock()
	stale := gen != c.errGen
	c.mu.Unlock()
	if stale {
		return
	}
	c.Dispatch(SetError{})
}

// Close cancels the pending error timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errGen++
	if c.errTimer != nil {
		c.errTimer.Stop()
		c.errTimer = nil
	}
}

// SetProvider swaps the host capability and re-runs Sync against it.
func (c *Controller) SetProvider(ctx context.Context, p Provider) State {
	c.mu.Lock()
	c.provider = p
	c.mu.Unlock()
	return c.Sync(ctx)
}

func (c *Controller) currentProvider() Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

// Sync detects snap support and, when present, discovers both snaps.
// Detection and discovery failures never set Err.
func (c *Controller) Sync(ctx context.Context) State {
	detected := c.detect(ctx)
	c.Dispatch(SetFlaskDetected{Detected: detected})
	if detected {
		o := c.Origins()
		c.Dispatch(SetInstalledEncrypt{Snap: c.discover(ctx, o.Encrypt)})
		c.Dispatch(SetInstalledState{Snap: c.discover(ctx, o.State)})
	}
	return c.State()
}

func (c *Controller) detect(ctx context.Context) bool {
	p := c.currentProvider()
	if p == nil {
		return false
	}
	v, err := p.ClientVersion(ctx)
	if err != nil {
		c.logger.DebugContext(ctx, "Host detection failed", logfields.Error(err))
		return false
	}
	return strings.Contains(strings.ToLower(v), FlaskMarker)
}

// discover looks snapID up in the host's installed snaps. Any failure means absent.
func (c *Controller) discover(ctx context.Context, snapID string) *snap.Descriptor {
	p := c.currentProvider()
	if p == nil {
		return nil
	}
	snaps, err := p.GetSnaps(ctx)
	if err != nil {
		derr := foundationerrors.DiscoveryError("failed to obtain installed snap").
			WithCause(err).
			WithContext("snap_id", snapID).
			Build()
		c.logger.WarnContext(ctx, "Snap discovery failed", logfields.SnapID(snapID), logfields.Error(derr))
		return nil
	}
	for _, d := range snaps {
		if d.ID == snapID {
			return &d
		}
	}
	return nil
}

// ConnectState asks the host to install the state snap and re-discovers it.
func (c *Controller) ConnectState(ctx context.Context) error {
	return c.connect(ctx, c.Origins().State, func(d *snap.Descriptor) Action { return SetInstalledState{Snap: d} })
}

// ConnectEncrypt asks the host to install the encrypt snap and re-discovers it.
func (c *Controller) ConnectEncrypt(ctx context.Context) error {
	return c.connect(ctx, c.Origins().Encrypt, func(d *snap.Descriptor) Action { return SetInstalledEncrypt{Snap: d} })
}

func (c *Controller) connect(ctx context.Context, snapID string, found func(*snap.Descriptor) Action) error {
	p := c.currentProvider()
	if p == nil {
		return c.fail(foundationerrors.ConnectError("no wallet provider available").WithContext("snap_id", snapID).Build())
	}
	if _, err := p.RequestSnaps(ctx, map[string]snap.InstallParams{snapID: {}}); err != nil {
		return c.fail(foundationerrors.ConnectError(fmt.Sprintf("connect %s", snapID)).
			WithCause(err).
			WithContext("snap_id", snapID).
			Build())
	}
	c.Dispatch(found(c.discover(ctx, snapID)))
	return nil
}

// GenerateState calls setState on the state snap with params.
func (c *Controller) GenerateState(ctx context.Context, params any) (any, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, c.fail(foundationerrors.InvalidParamsError("encode state params").WithCause(err).Build())
	}
	return c.invoke(ctx, c.Origins().State, snap.Request{Method: statesnap.MethodSetState, Params: raw})
}

// InvokeEncrypt calls invoke_snap on the encrypt snap.
func (c *Controller) InvokeEncrypt(ctx context.Context) (any, error) {
	return c.invoke(ctx, c.Origins().Encrypt, snap.Request{Method: encryptsnap.MethodInvokeSnap})
}

// Invoke sends an arbitrary request to snapID. Failures set Err.
func (c *Controller) Invoke(ctx context.Context, snapID string, req snap.Request) (any, error) {
	return c.invoke(ctx, snapID, req)
}

func (c *Controller) invoke(ctx context.Context, snapID string, req snap.Request) (any, error) {
	p := c.currentProvider()
	if p == nil {
		return nil, c.fail(foundationerrors.ConnectError("no wallet provider available").Build())
	}
	result, err := p.InvokeSnap(ctx, snapID, req)
	if err != nil {
		return nil, c.fail(err)
	}
	return result, nil
}

func (c *Controller) fail(err error) error {
	c.logger.Warn("Page action failed", logfields.Error(err))
	c.Dispatch(SetError{Err: err})
	return err
}
