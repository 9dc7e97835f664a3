package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

const (
	stateID   = "local:http://localhost:9090"
	encryptID = "local:http://localhost:8080"
)

var origins = Origins{State: stateID, Encrypt: encryptID}

type fakeProvider struct {
	mu         sync.Mutex
	version    string
	versionErr error
	snaps      map[string]snap.Descriptor
	getErr     error
	requestErr error
	invokeErr  error
	getCalls   int
	invoked    []snap.Request
}

func (f *fakeProvider) ClientVersion(context.Context) (string, error) {
	return f.version, f.versionErr
}

func (f *fakeProvider) GetSnaps(context.Context) (map[string]snap.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(map[string]snap.Descriptor, len(f.snaps))
	for k, v := range f.snaps {
		out[k] = v
	}
	return out, nil
}

func (f *fakeProvider) RequestSnaps(_ context.Context, req map[string]snap.InstallParams) (map[string]snap.Descriptor, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snaps == nil {
		f.snaps = make(map[string]snap.Descriptor)
	}
	for id := range req {
		f.snaps[id] = snap.Descriptor{ID: id, Version: "0.1.0", Enabled: true}
	}
	return f.snaps, nil
}

func (f *fakeProvider) InvokeSnap(_ context.Context, snapID string, req snap.Request) (any, error) {
	f.mu.Lock()
	f.invoked = append(f.invoked, req)
	f.mu.Unlock()
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return snapID, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

type unknownAction struct{}

func (unknownAction) action() {}

func TestReduce(t *testing.T) {
	d := &snap.Descriptor{ID: stateID, Version: "0.1.0"}
	boom := errors.New("boom")

	tests := []struct {
		name   string
		start  State
		action Action
		want   State
	}{
		{"flask detected", State{}, SetFlaskDetected{Detected: true}, State{FlaskDetected: true}},
		{"flask lost", State{FlaskDetected: true}, SetFlaskDetected{}, State{}},
		{"state installed", State{}, SetInstalledState{Snap: d}, State{InstalledState: d}},
		{"encrypt installed", State{}, SetInstalledEncrypt{Snap: d}, State{InstalledEncrypt: d}},
		{"encrypt removed", State{InstalledEncrypt: d}, SetInstalledEncrypt{}, State{}},
		{"error set", State{}, SetError{Err: boom}, State{Err: boom}},
		{"error cleared", State{Err: boom}, SetError{}, State{}},
		{"unknown is a no-op", State{FlaskDetected: true, Err: boom}, unknownAction{}, State{FlaskDetected: true, Err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Reduce(tt.start, tt.action))
		})
	}
}

func TestSyncWithoutFlaskSkipsDiscovery(t *testing.T) {
	p := &fakeProvider{version: "MetaMask/v11.0.0"}
	ctl := NewController(p, origins)

	s := ctl.Sync(context.Background())
	require.False(t, s.FlaskDetected)
	require.Zero(t, p.calls())
}

func TestSyncDetectionFailureMeansNoFlask(t *testing.T) {
	p := &fakeProvider{versionErr: errors.New("no provider")}
	ctl := NewController(p, origins)

	s := ctl.Sync(context.Background())
	require.False(t, s.FlaskDetected)
	require.NoError(t, s.Err)
}

func TestSyncDiscoversInstalledSnaps(t *testing.T) {
	p := &fakeProvider{
		version: "MetaMask/v11.0.0-flask.1",
		snaps: map[string]snap.Descriptor{
			stateID:     {ID: stateID, Version: "0.1.0", Enabled: true},
			"npm:other": {ID: "npm:other", Version: "1.0.0"},
		},
	}
	ctl := NewController(p, origins)

	s := ctl.Sync(context.Background())
	require.True(t, s.FlaskDetected)
	require.NotNil(t, s.InstalledState)
	require.Equal(t, stateID, s.InstalledState.ID)
	require.Nil(t, s.InstalledEncrypt)
}

func TestDiscoveryFailureNeverSetsError(t *testing.T) {
	p := &fakeProvider{version: "flask", getErr: errors.New("registry unavailable")}
	ctl := NewController(p, origins)

	s := ctl.Sync(context.Background())
	require.True(t, s.FlaskDetected)
	require.Nil(t, s.InstalledState)
	require.Nil(t, s.InstalledEncrypt)
	require.NoError(t, s.Err)
}

func TestConnectInstallsAndRediscovers(t *testing.T) {
	p := &fakeProvider{version: "flask"}
	ctl := NewController(p, origins)
	ctx := context.Background()

	require.NoError(t, ctl.ConnectState(ctx))
	require.NotNil(t, ctl.State().InstalledState)
	require.Nil(t, ctl.State().InstalledEncrypt)

	require.NoError(t, ctl.ConnectEncrypt(ctx))
	require.Equal(t, encryptID, ctl.State().InstalledEncrypt.ID)
}

func TestConnectFailureSetsError(t *testing.T) {
	rejected := foundationerrors.UserRejectedError("User rejected the request.").Build()
	p := &fakeProvider{version: "flask", requestErr: rejected}
	ctl := NewController(p, origins, WithClock(clockwork.NewFakeClock()))
	defer ctl.Close()

	err := ctl.ConnectEncrypt(context.Background())
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConnect))
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryUserRejected))

	s := ctl.State()
	require.Equal(t, err, s.Err)
	require.Nil(t, s.InstalledEncrypt)
	require.Contains(t, View(s).Banner, "User rejected the request.")
}

func TestActionsSurfaceFailures(t *testing.T) {
	p := &fakeProvider{version: "flask", invokeErr: foundationerrors.InterPluginError("state snap call failed").Build()}
	ctl := NewController(p, origins, WithClock(clockwork.NewFakeClock()))
	defer ctl.Close()
	ctx := context.Background()

	_, err := ctl.InvokeEncrypt(ctx)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryInterPlugin))
	require.Equal(t, err, ctl.State().Err)

	_, err = ctl.GenerateState(ctx, []string{"item-1"})
	require.Error(t, err)
	require.Len(t, p.invoked, 2)
	require.Equal(t, "invoke_snap", p.invoked[0].Method)
	require.Equal(t, "setState", p.invoked[1].Method)
	require.JSONEq(t, `["item-1"]`, string(p.invoked[1].Params))
}

func TestErrorClearsAfterTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctl := NewController(&fakeProvider{}, origins, WithClock(clock))
	defer ctl.Close()

	ctl.Dispatch(SetError{Err: errors.New("boom")})
	clock.Advance(DefaultErrorTimeout - time.Second)
	require.Error(t, ctl.State().Err)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return ctl.State().Err == nil }, time.Second, 5*time.Millisecond)
}

func TestNewErrorRearmsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctl := NewController(&fakeProvider{}, origins, WithClock(clock))
	defer ctl.Close()

	var clears atomic.Int32
	unsubscribe := ctl.Subscribe(func(s State) {
		if s.Err == nil {
			clears.Add(1)
		}
	})
	defer unsubscribe()

	first := errors.New("first")
	second := errors.New("second")
	ctl.Dispatch(SetError{Err: first})
	clock.Advance(5 * time.Second)
	ctl.Dispatch(SetError{Err: second})

	// The first timer would have fired here.
	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, second, ctl.State().Err)
	require.Zero(t, clears.Load())

	clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return ctl.State().Err == nil }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if got := clears.Load(); got != 1 {
		t.Errorf("expected exactly one clear, got %d", got)
	}
}

func TestClearingErrorCancelsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctl := NewController(&fakeProvider{}, origins, WithClock(clock))
	defer ctl.Close()

	var notifications atomic.Int32
	ctl.Subscribe(func(State) { notifications.Add(1) })

	ctl.Dispatch(SetError{Err: errors.New("boom")})
	ctl.Dispatch(SetError{})
	clock.Advance(DefaultErrorTimeout)
	time.Sleep(20 * time.Millisecond)

	require.Equal(t, int32(2), notifications.Load(), "the canceled timer must not dispatch")
}

func TestSetProviderResyncs(t *testing.T) {
	ctl := NewController(nil, origins)
	require.False(t, ctl.Sync(context.Background()).FlaskDetected)

	p := &fakeProvider{version: "flask", snaps: map[string]snap.Descriptor{encryptID: {ID: encryptID, Version: "0.1.0"}}}
	s := ctl.SetProvider(context.Background(), p)
	require.True(t, s.FlaskDetected)
	require.NotNil(t, s.InstalledEncrypt)
}

func TestSetOriginsRetargets(t *testing.T) {
	p := &fakeProvider{version: "flask", snaps: map[string]snap.Descriptor{
		stateID:      {ID: stateID, Version: "0.1.0"},
		"npm:state2": {ID: "npm:state2", Version: "2.0.0"},
	}}
	ctl := NewController(p, origins)
	require.Equal(t, stateID, ctl.Sync(context.Background()).InstalledState.ID)

	s := ctl.SetOrigins(context.Background(), Origins{State: "npm:state2", Encrypt: encryptID})
	require.NotNil(t, s.InstalledState)
	require.Equal(t, "npm:state2", s.InstalledState.ID)
	require.Nil(t, s.InstalledEncrypt)
	require.Equal(t, "npm:state2", ctl.Origins().State)
}

func TestNoProviderFailsActions(t *testing.T) {
	ctl := NewController(nil, origins, WithClock(clockwork.NewFakeClock()))
	defer ctl.Close()

	err := ctl.ConnectState(context.Background())
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConnect))
	require.Error(t, ctl.State().Err)
}

func TestResyncerRunsPeriodically(t *testing.T) {
	p := &fakeProvider{version: "flask"}
	ctl := NewController(p, origins)

	r, err := NewResyncer(ctl, 20*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))

	require.Eventually(t, func() bool { return p.calls() >= 4 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop())
}

func TestNewResyncerRejectsBadInterval(t *testing.T) {
	_, err := NewResyncer(NewController(nil, origins), 0, nil)
	require.Error(t, err)
}
