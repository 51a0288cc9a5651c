// Package preview serves the live preview page and the rendered pages.
package preview

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/memristor/internal/ui/features/common"
	"github.com/leapstack-labs/memristor/internal/ui/features/common/components"
	"github.com/leapstack-labs/memristor/internal/workspace"
)

// Handlers provides HTTP handlers for the preview feature.
type Handlers struct {
	deps common.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps common.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// PreviewPage renders the full page with the current state already in place.
func (h *Handlers) PreviewPage(w http.ResponseWriter, r *http.Request) {
	data := common.BuildAppData("/", h.deps.Workspace.Snapshot())

	if err := components.Page("Preview", h.deps.IsDev, "/updates", data).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// PreviewUpdates is the long-lived SSE endpoint for the preview page. It
// re-renders the app container whenever the workspace changes.
func (h *Handlers) PreviewUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.deps.Notifier.Subscribe()
	defer h.deps.Notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			data := common.BuildAppData("/", h.deps.Workspace.Snapshot())
			if err := sse.PatchElementTempl(components.AppContainer(data)); err != nil {
				_ = sse.ConsoleError(err)
				return
			}
		}
	}
}

// RequestPreview asks the workspace for a compile.
func (h *Handlers) RequestPreview(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)
	if err := h.deps.Workspace.Submit(r.Context(), workspace.PreviewRequested{}); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// ServePage serves one rendered page. Only pages of the currently displayed
// cycle are served; anything else is a 404.
func (h *Handlers) ServePage(w http.ResponseWriter, r *http.Request) {
	cycle, err := strconv.ParseUint(chi.URLParam(r, "cycle"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	name := chi.URLParam(r, "name")

	snap := h.deps.Workspace.Snapshot()
	if cycle != snap.Cycle {
		http.NotFound(w, r)
		return
	}

	for _, a := range snap.Artifacts {
		if a.Name != name || filepath.Base(a.Path) != name {
			continue
		}
		if filepath.Ext(name) == ".svg" {
			w.Header().Set("Content-Type", "image/svg+xml")
		}
		// The cycle is part of the URL, so a page never changes under it.
		w.Header().Set("Cache-Control", "private, max-age=3600")
		http.ServeFile(w, r, a.Path)
		return
	}
	http.NotFound(w, r)
}
