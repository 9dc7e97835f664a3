package host

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/journal"
	"git.home.luguber.info/inful/snapbridge/internal/metrics"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
	"git.home.luguber.info/inful/snapbridge/internal/storage"
)

const (
	counterID = "local:http://localhost:9090"
	callerID  = "npm:@acme/caller"
	page      = "http://localhost:8000"
)

// counterPackage stores an incrementing counter and counts its own instances.
func counterPackage(version string, instances *atomic.Int32) Package {
	return Package{
		ID:      counterID,
		Version: version,
		Factory: func(h snap.Host) snap.Handler {
			instances.Add(1)
			return snap.NewRouter().
				Handle("inc", func(ctx context.Context, _ string, _ json.RawMessage) (any, error) {
					doc, err := h.GetState(ctx)
					if err != nil {
						return nil, err
					}
					n, _ := doc["n"].(float64)
					time.Sleep(time.Millisecond)
					if err := h.UpdateState(ctx, snap.Document{"n": n + 1}); err != nil {
						return nil, err
					}
					return n + 1, nil
				}).
				Handle("get", func(ctx context.Context, _ string, _ json.RawMessage) (any, error) {
					return h.GetState(ctx)
				}).
				Handle("origin", func(_ context.Context, origin string, _ json.RawMessage) (any, error) {
					return origin, nil
				})
		},
	}
}

func callerPackage() Package {
	return Package{
		ID:      callerID,
		Version: "1.0.0",
		Factory: func(h snap.Host) snap.Handler {
			return snap.NewRouter().
				Handle("relay", func(ctx context.Context, _ string, params json.RawMessage) (any, error) {
					var method string
					if err := json.Unmarshal(params, &method); err != nil {
						return nil, err
					}
					raw, err := h.InvokeSnap(ctx, counterID, snap.Request{Method: method})
					if err != nil {
						return nil, err
					}
					return raw, nil
				}).
				Handle("self", func(ctx context.Context, _ string, _ json.RawMessage) (any, error) {
					return h.InvokeSnap(ctx, callerID, snap.Request{Method: "self"})
				})
		},
	}
}

func newTestRuntime(t *testing.T, opts ...Option) (*Runtime, *atomic.Int32) {
	t.Helper()
	var instances atomic.Int32
	reg := NewRegistry()
	require.NoError(t, reg.Register(counterPackage("1.0.0", &instances)))
	require.NoError(t, reg.Register(callerPackage()))
	return NewRuntime(reg, storage.NewMemoryStore(), ui.NewAutoPresenter(10, nil, nil), opts...), &instances
}

func TestClientVersionAdvertisesFlask(t *testing.T) {
	require.Contains(t, ClientVersion(), "flask")
	require.Regexp(t, `^MetaMask/v.+-flask$`, ClientVersion())
}

func TestSessionRequiresConnection(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := rt.NewSession(page)
	ctx := context.Background()

	snaps, err := s.GetSnaps(ctx)
	require.NoError(t, err)
	require.Empty(t, snaps)

	_, err = s.InvokeSnap(ctx, counterID, snap.Request{Method: "inc"})
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryPermission))

	got, err := s.RequestSnaps(ctx, map[string]snap.InstallParams{counterID: {}})
	require.NoError(t, err)
	require.Equal(t, snap.Descriptor{ID: counterID, Version: "1.0.0", Enabled: true}, got[counterID])

	snaps, err = s.GetSnaps(ctx)
	require.NoError(t, err)
	require.Contains(t, snaps, counterID)

	res, err := s.InvokeSnap(ctx, counterID, snap.Request{Method: "origin"})
	require.NoError(t, err)
	require.Equal(t, page, res)

	other := rt.NewSession("http://elsewhere")
	snaps, err = other.GetSnaps(ctx)
	require.NoError(t, err)
	require.Empty(t, snaps, "permissions are per origin")
}

func TestRequestSnapsEmpty(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, err := rt.NewSession(page).RequestSnaps(context.Background(), nil)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryInvalidParams))
}

func TestInstallUnknownSnap(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, err := rt.NewSession(page).RequestSnaps(context.Background(), map[string]snap.InstallParams{"npm:missing": {}})
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
}

func TestInstallRejected(t *testing.T) {
	rt, _ := newTestRuntime(t, WithApprover(RejectingApprover{}))
	_, err := rt.NewSession(page).RequestSnaps(context.Background(), map[string]snap.InstallParams{counterID: {}})
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryUserRejected))
	require.Empty(t, rt.Installed())
}

func TestLocalReinstallKeepsState(t *testing.T) {
	rt, instances := newTestRuntime(t)
	s := rt.NewSession(page)
	ctx := context.Background()

	_, err := s.RequestSnaps(ctx, map[string]snap.InstallParams{counterID: {}})
	require.NoError(t, err)
	_, err = s.InvokeSnap(ctx, counterID, snap.Request{Method: "inc"})
	require.NoError(t, err)

	_, err = s.RequestSnaps(ctx, map[string]snap.InstallParams{counterID: {}})
	require.NoError(t, err)
	require.Equal(t, int32(2), instances.Load(), "local snaps are re-instantiated")

	res, err := s.InvokeSnap(ctx, counterID, snap.Request{Method: "get"})
	require.NoError(t, err)
	require.Equal(t, snap.Document{"n": 1.0}, res)
}

func TestPublishedSnapIsNotReinstalled(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := rt.NewSession(page)
	ctx := context.Background()

	first, err := s.RequestSnaps(ctx, map[string]snap.InstallParams{callerID: {Version: "^1.0.0"}})
	require.NoError(t, err)
	second, err := s.RequestSnaps(ctx, map[string]snap.InstallParams{callerID: {}})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, rt.Installed(), 1)
}

func TestCallsToOneSnapAreSerialized(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := rt.NewSession(page)
	ctx := context.Background()
	_, err := s.RequestSnaps(ctx, map[string]snap.InstallParams{counterID: {}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.InvokeSnap(ctx, counterID, snap.Request{Method: "inc"})
			if err != nil {
				t.Errorf("inc: %v", err)
			}
		}()
	}
	wg.Wait()

	res, err := s.InvokeSnap(ctx, counterID, snap.Request{Method: "get"})
	require.NoError(t, err)
	require.Equal(t, snap.Document{"n": 25.0}, res, "no lost updates")
}

func TestInterPluginCall(t *testing.T) {
	rt, _ := newTestRuntime(t)
	s := rt.NewSession(page)
	ctx := context.Background()
	_, err := s.RequestSnaps(ctx, map[string]snap.InstallParams{counterID: {}, callerID: {}})
	require.NoError(t, err)

	res, err := s.InvokeSnap(ctx, callerID, snap.Request{Method: "relay", Params: json.RawMessage(`"origin"`)})
	require.NoError(t, err)
	require.JSONEq(t, `"`+callerID+`"`, string(res.(json.RawMessage)), "the callee sees the calling snap as origin")

	_, err = s.InvokeSnap(ctx, callerID, snap.Request{Method: "relay", Params: json.RawMessage(`"nope"`)})
	require.ErrorIs(t, err, snap.ErrMethodNotFound)

	_, err = s.InvokeSnap(ctx, callerID, snap.Request{Method: "self"})
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryInterPlugin))
}

func TestInvokeRecordsMetricsAndJournal(t *testing.T) {
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	j, err := journal.NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	clock := clockwork.NewFakeClock()
	rt, _ := newTestRuntime(t, WithRecorder(recorder), WithJournal(j), WithClock(clock))
	s := rt.NewSession(page)
	ctx := context.Background()
	_, err = s.RequestSnaps(ctx, map[string]snap.InstallParams{counterID: {}})
	require.NoError(t, err)

	_, err = s.InvokeSnap(ctx, counterID, snap.Request{Method: "inc"})
	require.NoError(t, err)
	_, err = s.InvokeSnap(ctx, counterID, snap.Request{Method: "badMethod"})
	require.Error(t, err)

	entries, err := j.BySnap(ctx, counterID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "inc", entries[0].Method)
	require.Equal(t, journal.OutcomeOK, entries[0].Outcome)
	require.Equal(t, page, entries[0].Origin)
	require.NotEmpty(t, entries[0].RequestID)
	require.Equal(t, journal.OutcomeError, entries[1].Outcome)
	require.Equal(t, snap.MethodNotFoundMessage, entries[1].Error)

	n, err := testutil.GatherAndCount(reg, "snapbridge_rpc_results_total")
	require.NoError(t, err)
	require.Equal(t, 2, n, "one series per method and result")
}

func TestInvokeHonorsContextWhileWaiting(t *testing.T) {
	block := make(chan struct{})
	reg := NewRegistry()
	require.NoError(t, reg.Register(Package{
		ID: counterID, Version: "1.0.0",
		Factory: func(snap.Host) snap.Handler {
			return snap.HandlerFunc(func(context.Context, string, snap.Request) (any, error) {
				<-block
				return nil, nil
			})
		},
	}))
	rt := NewRuntime(reg, storage.NewMemoryStore(), ui.RejectingPresenter{})
	s := rt.NewSession(page)
	_, err := s.RequestSnaps(context.Background(), map[string]snap.InstallParams{counterID: {}})
	require.NoError(t, err)

	go func() { _, _ = s.InvokeSnap(context.Background(), counterID, snap.Request{Method: "x"}) }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.InvokeSnap(ctx, counterID, snap.Request{Method: "x"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}
