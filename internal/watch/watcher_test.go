package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/memristor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T) (*Watcher, <-chan string) {
	t.Helper()
	w, err := New(testutil.NewTestLogger(t))
	require.NoError(t, err)
	w.settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan string, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(path string) { changes <- path })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w, changes
}

func TestWatcher_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "main.typ", "a")
	other := testutil.WriteFile(t, dir, "other.typ", "a")

	w, changes := startWatcher(t)
	require.NoError(t, w.Follow(path))

	require.NoError(t, os.WriteFile(other, []byte("b"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("b"), 0o600))

	select {
	case got := <-changes:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_ReportsRenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "main.typ", "a")

	w, changes := startWatcher(t)
	require.NoError(t, w.Follow(path))

	tmp := testutil.WriteFile(t, dir, ".main.typ.swp", "b")
	require.NoError(t, os.Rename(tmp, path))

	select {
	case got := <-changes:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_FollowSwitchesFile(t *testing.T) {
	first := testutil.WriteFile(t, t.TempDir(), "a.typ", "a")
	second := testutil.WriteFile(t, t.TempDir(), "b.typ", "b")

	w, changes := startWatcher(t)
	require.NoError(t, w.Follow(first))
	require.NoError(t, w.Follow(second))

	require.NoError(t, os.WriteFile(first, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("y"), 0o600))

	select {
	case got := <-changes:
		assert.Equal(t, second, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_FollowMissingDirectory(t *testing.T) {
	w, _ := startWatcher(t)

	err := w.Follow(filepath.Join(t.TempDir(), "missing", "main.typ"))
	require.Error(t, err)
	assert.Empty(t, w.following())

	assert.NoError(t, w.Follow(""))
}
