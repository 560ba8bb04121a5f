package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "routes.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(target, []byte("routes: []\n"), 0o644))

	var calls atomic.Int32
	w, err := New([]string{target}, 150*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("routes: []\n# edit\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcherCallbackErrorIsNotFatal(t *testing.T) {
	target := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(target, nil, 0o644))

	var calls atomic.Int32
	w, err := New([]string{target}, 20*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(target, []byte("b"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestRunWaitsForRunningCallback(t *testing.T) {
	target := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(target, nil, 0o644))

	started := make(chan struct{})
	var calls atomic.Int32
	var finished atomic.Bool
	w, err := New([]string{target}, 20*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			close(started)
		}
		time.Sleep(300 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not start")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.True(t, finished.Load(), "Run returned while the callback was still running")
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewFailsForMissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing", "routes.yaml")}, 0, func(context.Context) error { return nil })
	assert.Error(t, err)
}
