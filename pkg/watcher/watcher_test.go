package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDebouncedCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume.json")
	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	fw, err := NewFileWatcher(200*time.Millisecond, quietLogger())
	require.NoError(t, err)
	defer fw.Close()

	calls := make(chan string, 10)
	require.NoError(t, fw.Watch([]string{path}, func(p string) { calls <- p }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[[[1]]]"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[[[2]]]"), 0o644))

	select {
	case p := <-calls:
		want, err := filepath.Abs(path)
		require.NoError(t, err)
		assert.Equal(t, want, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no callback after writing the watched file")
	}

	select {
	case p := <-calls:
		t.Fatalf("burst of writes should trigger once, got a second call for %s", p)
	case <-time.After(600 * time.Millisecond):
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRemoveAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume.binvox")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	fw, err := NewFileWatcher(time.Millisecond, quietLogger())
	require.NoError(t, err)
	defer fw.Close()

	require.NoError(t, fw.Watch([]string{path, path}, func(string) {}))
	assert.Len(t, fw.callbacks, 1)
	assert.Equal(t, 1, fw.dirs[dir])

	require.NoError(t, fw.RemoveAll())
	assert.Empty(t, fw.callbacks)
	assert.Empty(t, fw.dirs)
}

func TestWatchMissingDirectory(t *testing.T) {
	fw, err := NewFileWatcher(time.Millisecond, quietLogger())
	require.NoError(t, err)
	defer fw.Close()

	err = fw.Watch([]string{filepath.Join(t.TempDir(), "missing", "volume.json")}, func(string) {})
	assert.Error(t, err)
}

func TestRunStopsWhenClosed(t *testing.T) {
	fw, err := NewFileWatcher(time.Millisecond, quietLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- fw.Run(context.Background()) }()
	require.NoError(t, fw.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
