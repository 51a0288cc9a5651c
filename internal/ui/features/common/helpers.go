// Package common provides shared utilities for UI features.
package common

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/memristor/internal/project"
	"github.com/leapstack-labs/memristor/internal/render"
	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/ui/features/common/components"
	"github.com/leapstack-labs/memristor/internal/ui/notifier"
	"github.com/leapstack-labs/memristor/internal/workspace"
)

// Workspace is what the UI needs from the coordinator.
type Workspace interface {
	Submit(ctx context.Context, ev workspace.Event) error
	Snapshot() workspace.Snapshot
	HasFile(path string) bool
}

// Deps are the collaborators shared by every feature.
type Deps struct {
	Workspace Workspace
	Store     state.Store
	Notifier  *notifier.Notifier
	Logger    *slog.Logger
	IsDev     bool
}

const indentStep = 14

// PageURL is the URL a rendered page is served from.
func PageURL(cycle uint64, name string) string {
	return fmt.Sprintf("/pages/%d/%s", cycle, url.PathEscape(name))
}

// ToggleURL is the action URL for expanding or collapsing a directory.
func ToggleURL(id string) string {
	return "/api/tree/" + url.PathEscape(id) + "/toggle"
}

// OpenURL is the action URL for opening a file.
func OpenURL(path string) string {
	return "/api/open?" + url.Values{"path": {path}}.Encode()
}

// BuildTreeRows converts tree rows into view rows.
func BuildTreeRows(rows []project.Row, openFile string) []components.TreeRow {
	out := make([]components.TreeRow, 0, len(rows))
	for _, r := range rows {
		row := components.TreeRow{
			Kind:     string(r.Kind),
			Name:     r.Name,
			Indent:   12 + r.Depth*indentStep,
			Expanded: r.Expanded,
		}
		if r.Kind == project.RowDir {
			row.ActionURL = ToggleURL(r.ID)
		} else {
			row.ActionURL = OpenURL(r.Path)
			row.Active = r.Path == openFile
		}
		out = append(out, row)
	}
	return out
}

// BuildAppData assembles the view for a snapshot.
func BuildAppData(currentPath string, snap workspace.Snapshot) components.AppData {
	data := components.AppData{
		CurrentPath: currentPath,
		ProjectDir:  snap.ProjectDir,
		OpenFile:    snap.OpenFile,
		Rows:        BuildTreeRows(snap.Rows, snap.OpenFile),
		Compiling:   snap.Compiling,
		Error:       snap.LastError,
		Status:      StatusText(snap),
	}
	if snap.ProjectDir != "" && snap.OpenFile != "" {
		if rel, err := filepath.Rel(snap.ProjectDir, snap.OpenFile); err == nil {
			data.OpenFile = rel
		}
	}
	for _, a := range snap.Artifacts {
		data.Pages = append(data.Pages, components.PageImage{
			Page: a.Page,
			URL:  PageURL(snap.Cycle, a.Name),
		})
	}
	return data
}

// StatusText summarizes the last compile for the status bar.
func StatusText(snap workspace.Snapshot) string {
	switch snap.LastResult {
	case render.OutcomeCompleted:
		return fmt.Sprintf("%d page(s), cycle %d", len(snap.Artifacts), snap.Cycle)
	case render.OutcomeFailed:
		return "compile failed"
	case render.OutcomePending:
		return "compiling"
	default:
		return "idle"
	}
}

// ConvertRuns converts stored runs into view rows.
func ConvertRuns(runs []*state.Run) []components.RunItem {
	items := make([]components.RunItem, len(runs))
	for i, run := range runs {
		items[i] = components.RunItem{
			ID:      run.ID,
			Cycle:   run.Cycle,
			File:    filepath.Base(run.SourcePath),
			Status:  string(run.Status),
			Pages:   run.PageCount,
			Started: run.StartedAt.Local().Format(time.TimeOnly),
			Error:   run.Error,
		}
		if d := run.Duration(); d > 0 {
			items[i].Duration = d.Round(time.Millisecond).String()
		}
	}
	return items
}
