package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/snapbridge/internal/connection"
	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/host"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
	"git.home.luguber.info/inful/snapbridge/internal/snap/ui"
	"git.home.luguber.info/inful/snapbridge/internal/snaps/encryptsnap"
	"git.home.luguber.info/inful/snapbridge/internal/snaps/statesnap"
	"git.home.luguber.info/inful/snapbridge/internal/storage"
)

const (
	stateID   = "local:http://localhost:9090"
	encryptID = "local:http://localhost:8080"
)

func startGateway(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()
	reg := host.NewRegistry()
	require.NoError(t, reg.Register(statesnap.Package(stateID)))
	require.NoError(t, reg.Register(encryptsnap.Package(encryptID, stateID)))
	rt := host.NewRuntime(reg, storage.NewMemoryStore(), ui.NewAutoPresenter(10, clockwork.NewFakeClock(), nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(rt, opts...)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("gateway did not shut down")
		}
	})
	return srv, ln.Addr().String()
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientVersion(t *testing.T) {
	_, addr := startGateway(t)
	c := dial(t, addr)

	v, err := c.ClientVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, host.ClientVersion(), v)
}

func TestStateRoundTrip(t *testing.T) {
	_, addr := startGateway(t)
	c := dial(t, addr)
	ctx := context.Background()

	installed, err := c.RequestSnaps(ctx, map[string]snap.InstallParams{stateID: {}})
	require.NoError(t, err)
	require.Equal(t, "0.1.0", installed[stateID].Version)

	snaps, err := c.GetSnaps(ctx)
	require.NoError(t, err)
	require.Contains(t, snaps, stateID)

	_, err = c.InvokeSnap(ctx, stateID, snap.Request{Method: "setState", Params: json.RawMessage(`{"a":1}`)})
	require.NoError(t, err)
	merged, err := c.InvokeSnap(ctx, stateID, snap.Request{Method: "setState", Params: json.RawMessage(`{"b":2}`)})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, merged)

	cleared, err := c.InvokeSnap(ctx, stateID, snap.Request{Method: "clearState"})
	require.NoError(t, err)
	require.Equal(t, true, cleared)

	got, err := c.InvokeSnap(ctx, stateID, snap.Request{Method: "getState"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{}, got)
}

func TestPermissionsOutliveConnections(t *testing.T) {
	_, addr := startGateway(t)
	ctx := context.Background()

	first := dial(t, addr)
	_, err := first.RequestSnaps(ctx, map[string]snap.InstallParams{stateID: {}})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := dial(t, addr)
	snaps, err := second.GetSnaps(ctx)
	require.NoError(t, err)
	require.Contains(t, snaps, stateID)
}

func TestErrorsKeepTheirClassification(t *testing.T) {
	_, addr := startGateway(t)
	c := dial(t, addr)
	ctx := context.Background()

	_, err := c.InvokeSnap(ctx, stateID, snap.Request{Method: "getState"})
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryPermission), "not connected yet: %v", err)

	_, err = c.RequestSnaps(ctx, map[string]snap.InstallParams{stateID: {}})
	require.NoError(t, err)

	_, err = c.InvokeSnap(ctx, stateID, snap.Request{Method: "badMethod"})
	require.ErrorIs(t, err, snap.ErrMethodNotFound)

	_, err = c.InvokeSnap(ctx, "", snap.Request{Method: "getState"})
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryInvalidParams))

	_, err = c.RequestSnaps(ctx, map[string]snap.InstallParams{"npm:unknown": {}})
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNotFound))
}

func TestInterPluginFailureCrossesTheWire(t *testing.T) {
	_, addr := startGateway(t)
	c := dial(t, addr)
	ctx := context.Background()

	_, err := c.RequestSnaps(ctx, map[string]snap.InstallParams{encryptID: {}})
	require.NoError(t, err)

	_, err = c.InvokeSnap(ctx, encryptID, snap.Request{Method: encryptsnap.MethodInvokeSnap})
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryInterPlugin), "got %v", err)
	require.Contains(t, foundationerrors.Describe(err), "state snap call failed")
}

func TestUnknownGatewayMethod(t *testing.T) {
	_, addr := startGateway(t)
	c := dial(t, addr)

	err := c.conn.Call(context.Background(), "eth_accounts", nil, nil)
	var wire *jsonrpc2.Error
	require.True(t, errors.As(err, &wire))
	require.Equal(t, int64(jsonrpc2.CodeMethodNotFound), wire.Code)
}

func TestControllerOverGateway(t *testing.T) {
	_, addr := startGateway(t)
	c := dial(t, addr)
	ctx := context.Background()

	ctl := connection.NewController(c, connection.Origins{State: stateID, Encrypt: encryptID},
		connection.WithClock(clockwork.NewFakeClock()))
	defer ctl.Close()

	s := ctl.Sync(ctx)
	require.True(t, s.FlaskDetected)
	require.Nil(t, s.InstalledState)

	require.NoError(t, ctl.ConnectState(ctx))
	require.NoError(t, ctl.ConnectEncrypt(ctx))

	merged, err := ctl.GenerateState(ctx, []string{"item-1", "item-2", "item-3"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"0": "item-1", "1": "item-2", "2": "item-3"}, merged)

	res, err := ctl.InvokeEncrypt(ctx)
	require.NoError(t, err)
	require.Equal(t, true, res)
	require.NoError(t, ctl.State().Err)
}

func TestCloseDisconnectsClients(t *testing.T) {
	srv, addr := startGateway(t)
	c := dial(t, addr)
	_, err := c.ClientVersion(context.Background())
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client was not disconnected")
	}

	_, err = c.ClientVersion(context.Background())
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNetwork), "got %v", err)
}

func TestMaxConnections(t *testing.T) {
	_, addr := startGateway(t, WithMaxConnections(1))
	first := dial(t, addr)
	_, err := first.ClientVersion(context.Background())
	require.NoError(t, err)

	second := dial(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = second.ClientVersion(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryNetwork))
}
