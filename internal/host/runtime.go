package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/journal"
	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/metrics"
	"git.home.luguber.info/inful/snapbridge/internal/observability"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
	"git.home.luguber.info/inful/snapbridge/internal/storage"
)

// DefaultInterPluginTimeout bounds a snap-to-snap call when no option overrides it.
const DefaultInterPluginTimeout = 30 * time.Second

// Runtime installs snaps and dispatches calls to them.
type Runtime struct {
	registry           *Registry
	store              storage.Store
	presenter          ui.Presenter
	recorder           metrics.Recorder
	journal            journal.Journal
	approver           Approver
	clock              clockwork.Clock
	interPluginTimeout time.Duration

	mu          sync.RWMutex
	installed   map[string]*installedSnap
	permissions map[string]map[string]bool // origin -> snap IDs it may invoke
}

type installedSnap struct {
	desc    snap.Descriptor
	handler snap.Handler
	// sem serializes RPC handling for the snap; it survives reinstalls.
	sem chan struct{}
}

// Option customizes a Runtime.
type Option func(*Runtime)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(rt *Runtime) {
		if r != nil {
			rt.recorder = r
		}
	}
}

// WithJournal sets the call journal.
func WithJournal(j journal.Journal) Option {
	return func(rt *Runtime) {
		if j != nil {
			rt.journal = j
		}
	}
}

// WithApprover sets the install approver.
func WithApprover(a Approver) Option {
	return func(rt *Runtime) {
		if a != nil {
			rt.approver = a
		}
	}
}

// WithClock replaces the clock used for call timing.
func WithClock(c clockwork.Clock) Option {
	return func(rt *Runtime) {
		if c != nil {
			rt.clock = c
		}
	}
}

// WithInterPluginTimeout bounds snap-to-snap calls.
func WithInterPluginTimeout(d time.Duration) Option {
	return func(rt *Runtime) {
		if d > 0 {
			rt.interPluginTimeout = d
		}
	}
}

// NewRuntime creates a runtime installing packages from registry and
// persisting snap state in store.
func NewRuntime(registry *Registry, store storage.Store, presenter ui.Presenter, opts ...Option) *Runtime {
	rt := &Runtime{
		registry:           registry,
		store:              store,
		presenter:          presenter,
		recorder:           metrics.NoopRecorder{},
		journal:            journal.Noop{},
		approver:           AutoApprover{},
		clock:              clockwork.NewRealClock(),
		interPluginTimeout: DefaultInterPluginTimeout,
		installed:          make(map[string]*installedSnap),
		permissions:        make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Install installs or re-installs a snap on behalf of origin and grants
// origin permission to invoke it. Local snaps are always re-instantiated so
// a developer picks up a rebuilt handler; their persisted state is kept.
func (rt *Runtime) Install(ctx context.Context, origin, snapID string, params snap.InstallParams) (snap.Descriptor, error) {
	pkg, err := rt.registry.Resolve(snapID, params.Version)
	if err != nil {
		return snap.Descriptor{}, err
	}

	rt.mu.RLock()
	existing, alreadyInstalled := rt.installed[snapID]
	var current snap.Descriptor
	if alreadyInstalled {
		current = existing.desc
	}
	permitted := rt.permissions[origin][snapID]
	rt.mu.RUnlock()

	reinstall := !alreadyInstalled || current.Version != pkg.Version || snap.IsLocal(snapID)
	if permitted && !reinstall {
		return current, nil
	}

	if !permitted {
		ok, err := rt.approver.ApproveInstall(ctx, origin, snapID, pkg.Version)
		if err != nil {
			return snap.Descriptor{}, err
		}
		if !ok {
			return snap.Descriptor{}, foundationerrors.UserRejectedError("User rejected the request.").
				WithContext("snap_id", snapID).
				WithContext("origin", origin).
				Build()
		}
	}

	desc := current
	var handler snap.Handler
	if reinstall {
		desc = snap.Descriptor{ID: snapID, Version: pkg.Version, Enabled: true}
		handler = pkg.Factory(&snapHost{rt: rt, snapID: snapID})
	}

	rt.mu.Lock()
	if entry, ok := rt.installed[snapID]; ok {
		if reinstall {
			entry.desc = desc
			entry.handler = handler
		}
	} else {
		rt.installed[snapID] = &installedSnap{desc: desc, handler: handler, sem: make(chan struct{}, 1)}
	}
	if rt.permissions[origin] == nil {
		rt.permissions[origin] = make(map[string]bool)
	}
	rt.permissions[origin][snapID] = true
	count := len(rt.installed)
	rt.mu.Unlock()

	rt.recorder.SetInstalledSnaps(count)
	slog.InfoContext(ctx, "Snap installed",
		logfields.SnapID(snapID),
		logfields.Version(pkg.Version),
		logfields.Origin(origin),
		slog.Bool("reinstall", alreadyInstalled && reinstall))
	return desc, nil
}

// RequestSnaps installs every requested snap, in ID order, failing on the first error.
func (rt *Runtime) RequestSnaps(ctx context.Context, origin string, req map[string]snap.InstallParams) (map[string]snap.Descriptor, error) {
	ids := make([]string, 0, len(req))
	for id := range req {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]snap.Descriptor, len(ids))
	for _, id := range ids {
		desc, err := rt.Install(ctx, origin, id, req[id])
		if err != nil {
			return nil, err
		}
		out[id] = desc
	}
	return out, nil
}

// GetSnaps lists the snaps origin is permitted to invoke.
func (rt *Runtime) GetSnaps(origin string) map[string]snap.Descriptor {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make(map[string]snap.Descriptor)
	for id := range rt.permissions[origin] {
		if entry, ok := rt.installed[id]; ok {
			out[id] = entry.desc
		}
	}
	return out
}

// Installed lists every installed snap, ordered by ID.
func (rt *Runtime) Installed() []snap.Descriptor {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]snap.Descriptor, 0, len(rt.installed))
	for _, entry := range rt.installed {
		out = append(out, entry.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Permitted reports whether origin may invoke snapID.
func (rt *Runtime) Permitted(origin, snapID string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.permissions[origin][snapID]
}

// Invoke dispatches req to snapID on behalf of origin. Calls to the same snap
// are handled one at a time; waiting for the snap honors ctx.
func (rt *Runtime) Invoke(ctx context.Context, origin, snapID string, req snap.Request) (any, error) {
	requestID := uuid.NewString()
	ctx = observability.WithRequestID(ctx, requestID)
	ctx = observability.WithSnapID(ctx, snapID)
	ctx = observability.WithOrigin(ctx, origin)
	ctx = observability.WithMethod(ctx, req.Method)

	start := rt.clock.Now()
	result, err := rt.dispatch(ctx, origin, snapID, req)
	elapsed := rt.clock.Since(start)

	rt.record(ctx, journal.Entry{
		RequestID: requestID,
		Origin:    origin,
		SnapID:    snapID,
		Method:    req.Method,
		Duration:  elapsed,
		Timestamp: start,
	}, err)
	return result, err
}

func (rt *Runtime) dispatch(ctx context.Context, origin, snapID string, req snap.Request) (any, error) {
	rt.mu.RLock()
	entry, ok := rt.installed[snapID]
	rt.mu.RUnlock()
	if !ok {
		return nil, foundationerrors.NotFoundError(fmt.Sprintf("Snap %q is not installed.", snapID)).
			WithContext("snap_id", snapID).
			Build()
	}

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-entry.sem }()

	rt.mu.RLock()
	handler := entry.handler
	rt.mu.RUnlock()

	observability.DebugContext(ctx, "Dispatching snap request")
	return handler.OnRPCRequest(ctx, origin, req)
}

func (rt *Runtime) record(ctx context.Context, e journal.Entry, err error) {
	result := resultLabel(err)
	rt.recorder.ObserveRPCDuration(e.SnapID, e.Method, e.Duration)
	rt.recorder.IncRPCResult(e.SnapID, e.Method, result)

	e.Outcome = journal.OutcomeOK
	if err != nil {
		e.Outcome = journal.OutcomeError
		e.Error = foundationerrors.Describe(err)
		observability.WarnContext(ctx, "Snap request failed",
			logfields.Outcome(string(result)),
			logfields.DurationMS(float64(e.Duration.Microseconds())/1000),
			logfields.Error(err))
	} else {
		observability.InfoContext(ctx, "Snap request handled",
			logfields.Outcome(string(result)),
			logfields.DurationMS(float64(e.Duration.Microseconds())/1000))
	}

	// The journal outlives the request; a canceled caller must not drop the entry.
	if jerr := rt.journal.Append(context.WithoutCancel(ctx), e); jerr != nil {
		observability.WarnContext(ctx, "Failed to journal snap request", logfields.Error(jerr))
	}
}

func resultLabel(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultTimeout
	case foundationerrors.HasCategory(err, foundationerrors.CategoryMethodNotFound):
		return metrics.ResultMethodNotFound
	case foundationerrors.HasCategory(err, foundationerrors.CategoryUserRejected),
		foundationerrors.HasCategory(err, foundationerrors.CategoryPermission):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}

// invokeFromSnap performs an inter-plugin call with the runtime's timeout.
// The result crosses the boundary as JSON, as it would between sandboxes.
func (rt *Runtime) invokeFromSnap(ctx context.Context, caller, target string, req snap.Request) (json.RawMessage, error) {
	if caller == target {
		return nil, foundationerrors.InterPluginError("a snap cannot invoke itself").
			WithContext("snap_id", caller).
			Build()
	}

	callCtx, cancel := context.WithTimeout(ctx, rt.interPluginTimeout)
	defer cancel()

	result, err := rt.Invoke(callCtx, caller, target, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			rt.recorder.IncInterPluginCall(target, metrics.ResultTimeout)
			return nil, foundationerrors.InterPluginError(fmt.Sprintf("call to %s timed out after %s", target, rt.interPluginTimeout)).
				WithCause(err).
				WithContext("target", target).
				Build()
		}
		rt.recorder.IncInterPluginCall(target, resultLabel(err))
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		rt.recorder.IncInterPluginCall(target, metrics.ResultError)
		return nil, foundationerrors.InterPluginError("encode inter-plugin result").WithCause(err).Build()
	}
	rt.recorder.IncInterPluginCall(target, metrics.ResultSuccess)
	return raw, nil
}
