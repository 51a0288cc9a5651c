// Package tree provides the project tree actions for the UI.
package tree

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/memristor/internal/ui/features/common"
	"github.com/leapstack-labs/memristor/internal/workspace"
)

// ErrNotInProject is reported when asked to open a file outside the project tree.
var ErrNotInProject = errors.New("file is not part of the open project")

// Handlers provides HTTP handlers for the tree feature.
type Handlers struct {
	deps common.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps common.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Toggle expands or collapses the directory with the id in the path.
// Unknown ids are accepted and ignored by the workspace.
func (h *Handlers) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sse := datastar.NewSSE(w, r)
	if err := h.deps.Workspace.Submit(r.Context(), workspace.ToggleExpand{ID: id}); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Open opens the file named by the path query parameter. Only files that
// belong to the loaded project can be opened.
func (h *Handlers) Open(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" || !h.deps.Workspace.HasFile(path) {
		http.Error(w, ErrNotInProject.Error(), http.StatusNotFound)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := h.deps.Workspace.Submit(r.Context(), workspace.FileOpened{Path: path}); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Rows returns the visible tree rows as JSON.
func (h *Handlers) Rows(w http.ResponseWriter, _ *http.Request) {
	snap := h.deps.Workspace.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap.Rows); err != nil {
		h.deps.Logger.Error("failed to encode tree", "error", err)
	}
}
