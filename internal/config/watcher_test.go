package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Setenv(EnvStateOrigin, "")
	t.Setenv(EnvEncryptOrigin, "")
	path := filepath.Join(t.TempDir(), "snapbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("origins:\n  state: local:http://localhost:1\n"), 0o600))

	var got atomic.Value
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(path, func(_ context.Context, cfg *Config) {
		got.Store(cfg.Origins.State)
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("origins:\n  state: local:http://localhost:2\n"), 0o600))

	require.Eventually(t, func() bool {
		v, _ := got.Load().(string)
		return v == "local:http://localhost:2"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	var calls atomic.Int32
	w, err := NewWatcher(path, func(context.Context, *Config) { calls.Add(1) }, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stop is idempotent")

	if calls.Load() != 0 {
		t.Errorf("expected no reloads, got %d", calls.Load())
	}
}
