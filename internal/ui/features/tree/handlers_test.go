package tree

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/memristor/internal/project"
	"github.com/leapstack-labs/memristor/internal/ui/features"
	"github.com/leapstack-labs/memristor/internal/workspace"
)

func setupTestHandlers(t *testing.T) (*Handlers, *features.TestFixture) {
	t.Helper()
	fixture := features.SetupTestFixture(t)
	return NewHandlers(fixture.Deps(t)), fixture
}

func TestToggle(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "first subdirectory", id: "_0_0"},
		{name: "second subdirectory", id: "_0_1"},
		{name: "unknown id is forwarded", id: "_9_9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t)

			req := httptest.NewRequest(http.MethodPost, "/api/tree/x/toggle", nil)
			req = features.RequestWithPathParam(req, "id", tt.id)
			rec := httptest.NewRecorder()

			h.Toggle(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, []workspace.Event{workspace.ToggleExpand{ID: tt.id}}, fixture.Workspace.Events())
		})
	}
}

func TestOpen(t *testing.T) {
	h, fixture := setupTestHandlers(t)
	path := filepath.Join(fixture.ProjectDir, "typst", "top_level.typ")

	req := httptest.NewRequest(http.MethodPost, "/api/open?"+url.Values{"path": {path}}.Encode(), nil)
	rec := httptest.NewRecorder()

	h.Open(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []workspace.Event{workspace.FileOpened{Path: path}}, fixture.Workspace.Events())
}

func TestOpen_Rejected(t *testing.T) {
	tests := []struct {
		name string
		path func(dir string) string
	}{
		{name: "missing path", path: func(string) string { return "" }},
		{name: "outside project", path: func(string) string { return "/etc/passwd" }},
		{name: "directory", path: func(dir string) string { return filepath.Join(dir, "typst", "dir1") }},
		{name: "output directory", path: func(dir string) string { return filepath.Join(dir, "pdf") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture := setupTestHandlers(t)

			target := "/api/open"
			if p := tt.path(fixture.ProjectDir); p != "" {
				target += "?" + url.Values{"path": {p}}.Encode()
			}
			req := httptest.NewRequest(http.MethodPost, target, nil)
			rec := httptest.NewRecorder()

			h.Open(rec, req)

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), ErrNotInProject.Error())
			assert.Empty(t, fixture.Workspace.Events())
		})
	}
}

func TestRows(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tree", nil)
	rec := httptest.NewRecorder()

	h.Rows(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rows []project.Row
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)

	assert.Equal(t, project.RowDir, rows[0].Kind)
	assert.Equal(t, "_0_0", rows[0].ID)
	assert.Equal(t, "dir1", rows[0].Name)
	assert.Equal(t, "_0_1", rows[1].ID)
	assert.Equal(t, project.RowFile, rows[2].Kind)
	assert.Equal(t, "top_level.typ", rows[2].Name)
}
