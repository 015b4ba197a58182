package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string, debounce time.Duration) (*Watcher, chan []string) {
	t.Helper()
	w, err := New([]string{dir}, debounce)
	if err != nil {
		t.Skip("filesystem notifications unavailable:", err)
	}
	t.Cleanup(func() { w.Close() })

	batches := make(chan []string, 4)
	go func() { _ = w.Run(func(paths []string) { batches <- paths }) }()
	// Give the loop a beat to reach its select.
	time.Sleep(50 * time.Millisecond)
	return w, batches
}

func TestRunCoalescesBurstsAndFiltersNoise(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, dir, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.trb"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.trb"), []byte("y = 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	select {
	case paths := <-batches:
		assert.Contains(t, paths, filepath.Join(dir, "a.trb"))
		assert.Contains(t, paths, filepath.Join(dir, "b.trb"))
		assert.NotContains(t, paths, filepath.Join(dir, "notes.txt"))
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change batch")
	}
}

func TestRunPicksUpConfigEdits(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, dir, 50*time.Millisecond)

	cfgPath := filepath.Join(dir, "truby.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("out: build\n"), 0o644))

	select {
	case paths := <-batches:
		assert.Contains(t, paths, cfgPath)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for config change")
	}
}

func TestRunSeesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	_, batches := startWatcher(t, dir, 50*time.Millisecond)

	sub := filepath.Join(dir, "lib")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Let the watcher register the new directory first.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "deep.trb"), []byte("z = 3\n"), 0o644))

	select {
	case paths := <-batches:
		assert.Contains(t, paths, filepath.Join(sub, "deep.trb"))
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for nested change")
	}
}

func TestCloseStopsRun(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir}, 50*time.Millisecond)
	if err != nil {
		t.Skip("filesystem notifications unavailable:", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(func([]string) {}) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, w.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
