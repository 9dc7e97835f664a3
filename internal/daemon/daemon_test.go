package daemon

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/snapbridge/internal/config"
	"git.home.luguber.info/inful/snapbridge/internal/connection"
	"git.home.luguber.info/inful/snapbridge/internal/gateway"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Host.GatewayAddr = "127.0.0.1:0"
	cfg.Host.AdminAddr = "127.0.0.1:0"
	cfg.Host.Storage = config.StorageConfig{Backend: config.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "state.db")}
	cfg.Host.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	return cfg
}

func TestDaemonServesPageAndAdmin(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	d, err := New(ctx, cfg)
	require.NoError(t, err)
	require.Equal(t, StatusStopped, d.Status())
	require.NoError(t, d.Start(ctx))
	defer func() { require.NoError(t, d.Stop(context.Background())) }()
	require.Equal(t, StatusRunning, d.Status())

	require.Eventually(t, func() bool { return d.GatewayAddr() != nil }, 5*time.Second, 10*time.Millisecond)
	client, err := gateway.Dial(ctx, d.GatewayAddr().String())
	require.NoError(t, err)
	defer client.Close()

	ctl := connection.NewController(client, connection.Origins{State: cfg.Origins.State, Encrypt: cfg.Origins.Encrypt})
	defer ctl.Close()
	require.True(t, ctl.Sync(ctx).FlaskDetected)
	require.NoError(t, ctl.ConnectState(ctx))
	_, err = ctl.GenerateState(ctx, map[string]any{"a": 1})
	require.NoError(t, err)

	resp, err := http.Get("http://" + d.AdminAddr().String() + "/api/journal?snap=" + url.QueryEscape(cfg.Origins.State))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"method":"setState"`)
}

func TestStatePersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	run := func(fn func(*connection.Controller)) {
		d, err := New(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, d.Start(ctx))
		defer func() { require.NoError(t, d.Stop(context.Background())) }()

		require.Eventually(t, func() bool { return d.GatewayAddr() != nil }, 5*time.Second, 10*time.Millisecond)
		client, err := gateway.Dial(ctx, d.GatewayAddr().String())
		require.NoError(t, err)
		defer client.Close()
		ctl := connection.NewController(client, connection.Origins{State: cfg.Origins.State, Encrypt: cfg.Origins.Encrypt})
		defer ctl.Close()
		require.NoError(t, ctl.ConnectState(ctx))
		fn(ctl)
	}

	run(func(ctl *connection.Controller) {
		_, err := ctl.GenerateState(ctx, map[string]any{"a": 1})
		require.NoError(t, err)
	})
	run(func(ctl *connection.Controller) {
		got, err := ctl.Invoke(ctx, cfg.Origins.State, snapRequest("getState"))
		require.NoError(t, err)
		require.Equal(t, map[string]any{"a": 1.0}, got)
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	d, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, 5*time.Second) }()

	require.Eventually(t, func() bool { return d.Status() == StatusRunning }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
	}
	require.Equal(t, StatusStopped, d.Status())
}

func TestNewRejectsBadStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Host.Storage.Backend = "etcd"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func snapRequest(method string) snap.Request { return snap.Request{Method: method} }
