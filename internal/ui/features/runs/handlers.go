// Package runs provides compile history handlers for the UI.
package runs

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/ui/features/common"
	"github.com/leapstack-labs/memristor/internal/ui/features/common/components"
)

const defaultLimit = 50

// Handlers provides HTTP handlers for the compile history feature.
type Handlers struct {
	deps common.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps common.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// RunsPage renders the history page with full content.
func (h *Handlers) RunsPage(w http.ResponseWriter, r *http.Request) {
	appData, err := h.buildRunsAppData(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := components.Page("Compile history", h.deps.IsDev, "/runs/updates", appData).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RunsPageUpdates is the long-lived SSE endpoint for the history page.
func (h *Handlers) RunsPageUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.deps.Notifier.Subscribe()
	defer h.deps.Notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			appData, err := h.buildRunsAppData(r)
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElementTempl(components.AppContainer(appData)); err != nil {
				return
			}
		}
	}
}

// ListRuns returns recent runs as JSON. The limit query parameter caps the count.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.listRuns(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*state.Run{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		h.deps.Logger.Error("failed to encode runs", "error", err)
	}
}

func (h *Handlers) listRuns(r *http.Request) ([]*state.Run, error) {
	if h.deps.Store == nil {
		return nil, nil
	}
	limit := defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	return h.deps.Store.ListRuns(r.Context(), limit)
}

func (h *Handlers) buildRunsAppData(r *http.Request) (components.AppData, error) {
	data := common.BuildAppData("/runs", h.deps.Workspace.Snapshot())

	runs, err := h.listRuns(r)
	if err != nil {
		return data, err
	}
	data.Runs = common.ConvertRuns(runs)
	return data, nil
}
