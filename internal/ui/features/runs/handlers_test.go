package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/ui/features"
)

func setupTestHandlers(t *testing.T) (*Handlers, *features.TestFixture) {
	t.Helper()
	fixture := features.SetupTestFixture(t)
	return NewHandlers(fixture.Deps(t)), fixture
}

func seedRuns(t *testing.T, store state.Store, n int) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		run, err := store.CreateRun(ctx, state.RunStart{
			ID:         fmt.Sprintf("run-%d", i),
			Cycle:      uint64(i),
			SourcePath: "/project/typst/top_level.typ",
			StartedAt:  base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		status, pages, msg := state.RunStatusCompleted, 2, ""
		if i%2 == 0 {
			status, pages, msg = state.RunStatusFailed, 0, "error: unexpected end of document"
		}
		require.NoError(t, store.CompleteRun(ctx, run.ID, status, pages, msg))
	}
}

func TestRunsPage(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	seedRuns(t, fixture.Store, 2)

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()

	h.RunsPage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Compile history - memristor</title>")
	assert.Contains(t, body, "/runs/updates")
	assert.Contains(t, body, `id="run-run-1"`)
	assert.Contains(t, body, `id="run-run-2"`)
	assert.Contains(t, body, "top_level.typ")
	assert.Contains(t, body, "failed")
	assert.Contains(t, body, "unexpected end of document")
	// Newest first.
	assert.Less(t, strings.Index(body, `id="run-run-2"`), strings.Index(body, `id="run-run-1"`))
}

func TestRunsPage_Empty(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()

	h.RunsPage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No compiles recorded.")
}

func TestRunsPageUpdates_SendsUpdateOnBroadcast(t *testing.T) {
	h, fixture := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/updates", nil)
	req, cancel := features.RequestWithCancel(req)
	defer cancel()
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.RunsPageUpdates(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return fixture.Notifier.Len() == 1 }, time.Second, 5*time.Millisecond)
	seedRuns(t, fixture.Store, 1)
	fixture.Notifier.Broadcast()

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "run-run-1")
}

func TestListRuns(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		seed    int
		wantLen int
	}{
		{name: "empty store", seed: 0, wantLen: 0},
		{name: "default limit", seed: 3, wantLen: 3},
		{name: "explicit limit", query: "?limit=2", seed: 3, wantLen: 2},
		{name: "invalid limit falls back", query: "?limit=abc", seed: 3, wantLen: 3},
		{name: "negative limit falls back", query: "?limit=-1", seed: 3, wantLen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t)
			seedRuns(t, fixture.Store, tt.seed)

			req := httptest.NewRequest(http.MethodGet, "/api/runs"+tt.query, nil)
			rec := httptest.NewRecorder()

			h.ListRuns(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var runs []state.Run
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
			assert.Len(t, runs, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, uint64(tt.seed), runs[0].Cycle, "newest run first")
			}
		})
	}
}

func TestListRuns_NoStore(t *testing.T) {
	fixture := features.SetupTestFixture(t)
	deps := fixture.Deps(t)
	deps.Store = nil
	h := NewHandlers(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()

	h.ListRuns(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
