// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/memristor/internal/artifact"
	"github.com/leapstack-labs/memristor/internal/project"
	"github.com/leapstack-labs/memristor/internal/render"
	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/testutil"
	"github.com/leapstack-labs/memristor/internal/ui/features/common"
	"github.com/leapstack-labs/memristor/internal/ui/notifier"
	"github.com/leapstack-labs/memristor/internal/workspace"
)

// FakeWorkspace is a workspace that serves a fixed snapshot and records
// submitted events.
type FakeWorkspace struct {
	mu     sync.Mutex
	snap   workspace.Snapshot
	files  map[string]bool
	events []workspace.Event
	err    error
}

// Submit records ev, or returns the configured error.
func (f *FakeWorkspace) Submit(_ context.Context, ev workspace.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

// Snapshot returns the configured snapshot.
func (f *FakeWorkspace) Snapshot() workspace.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

// HasFile reports whether path was registered with SetSnapshot.
func (f *FakeWorkspace) HasFile(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[path]
}

// SetSnapshot replaces the snapshot. Every file row becomes openable.
func (f *FakeWorkspace) SetSnapshot(snap workspace.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
	f.files = make(map[string]bool)
	for _, r := range snap.Rows {
		if r.Kind == project.RowFile {
			f.files[r.Path] = true
		}
	}
}

// FailWith makes every later Submit return err.
func (f *FakeWorkspace) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Events returns the submitted events in order.
func (f *FakeWorkspace) Events() []workspace.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]workspace.Event(nil), f.events...)
}

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Workspace  *FakeWorkspace
	Store      *state.SQLiteStore
	Notifier   *notifier.Notifier
	ProjectDir string
}

// SetupTestFixture creates a project on disk, a migrated in-memory store and
// a fake workspace whose snapshot shows the project with nothing open.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	dir := testutil.NewProject(t)

	tree, err := project.Open(dir)
	require.NoError(t, err)

	store, err := state.OpenAndMigrate(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ws := &FakeWorkspace{}
	ws.SetSnapshot(workspace.Snapshot{
		Version:    1,
		ProjectDir: dir,
		Rows:       tree.Rows(),
		UpdatedAt:  time.Now(),
	})

	return &TestFixture{
		Workspace:  ws,
		Store:      store,
		Notifier:   notifier.New(),
		ProjectDir: dir,
	}
}

// Deps returns the feature dependencies backed by the fixture.
func (f *TestFixture) Deps(t *testing.T) common.Deps {
	t.Helper()
	return common.Deps{
		Workspace: f.Workspace,
		Store:     f.Store,
		Notifier:  f.Notifier,
		Logger:    testutil.NewTestLogger(t),
		IsDev:     true,
	}
}

// ShowPages makes the snapshot display the given page files for cycle.
func (f *TestFixture) ShowPages(t *testing.T, openFile string, cycle uint64, paths ...string) {
	t.Helper()

	snap := f.Workspace.Snapshot()
	snap.Version++
	snap.OpenFile = openFile
	snap.Cycle = cycle
	snap.LastResult = render.OutcomeCompleted
	snap.Artifacts = nil
	for i, p := range paths {
		snap.Artifacts = append(snap.Artifacts, artifact.Artifact{
			Path: p,
			Name: filepath.Base(p),
			Page: i + 1,
		})
	}
	f.Workspace.SetSnapshot(snap)
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, params ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithCancel wraps a request with a cancellable context.
func RequestWithCancel(r *http.Request) (*http.Request, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	return r.WithContext(ctx), cancel
}
