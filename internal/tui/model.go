// Package tui is a terminal browser for a memristor workspace.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/memristor/internal/project"
	"github.com/leapstack-labs/memristor/internal/render"
	"github.com/leapstack-labs/memristor/internal/ui/notifier"
	"github.com/leapstack-labs/memristor/internal/workspace"
)

// Workspace is what the browser needs from the coordinator.
type Workspace interface {
	Submit(ctx context.Context, ev workspace.Event) error
	Snapshot() workspace.Snapshot
}

// updatedMsg reports that the workspace published a new snapshot.
type updatedMsg struct{}

// submitErrMsg reports a failed Submit.
type submitErrMsg struct{ err error }

// editorFinishedMsg reports the end of an editor session.
type editorFinishedMsg struct{ err error }

// Model is the browser's bubbletea model.
type Model struct {
	ctx     context.Context
	ws      Workspace
	updates chan struct{}

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	snap   workspace.Snapshot
	cursor int
	err    error

	width  int
	height int
}

// New creates a browser over ws. updates is a notifier subscription; it may be
// nil, in which case the view only refreshes after the browser's own actions.
func New(ctx context.Context, ws Workspace, updates chan struct{}) *Model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(okStyle),
	)
	return &Model{
		ctx:     ctx,
		ws:      ws,
		updates: updates,
		keys:    DefaultKeys,
		help:    help.New(),
		spinner: sp,
		snap:    ws.Snapshot(),
	}
}

// Run opens the browser on the terminal and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, ws Workspace, n *notifier.Notifier) error {
	var updates chan struct{}
	if n != nil {
		updates = n.Subscribe()
		defer n.Unsubscribe(updates)
	}

	p := tea.NewProgram(New(ctx, ws, updates), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the spinner and the update listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

func (m *Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	ch, ctx := m.updates, m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return updatedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) submit(ev workspace.Event) tea.Cmd {
	ws, ctx := m.ws, m.ctx
	return func() tea.Msg {
		if err := ws.Submit(ctx, ev); err != nil {
			return submitErrMsg{err}
		}
		return nil
	}
}

// Update handles messages for the browser.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case updatedMsg:
		m.refresh()
		return m, m.waitForUpdate()

	case submitErrMsg:
		m.err = msg.err
		return m, nil

	case editorFinishedMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Enter):
		row, ok := m.selected()
		if !ok {
			return nil
		}
		m.err = nil
		if row.Kind == project.RowDir {
			return m.submit(workspace.ToggleExpand{ID: row.ID})
		}
		return m.submit(workspace.FileOpened{Path: row.Path})

	case key.Matches(msg, m.keys.Preview):
		m.err = nil
		return m.submit(workspace.PreviewRequested{})

	case key.Matches(msg, m.keys.Edit):
		row, ok := m.selected()
		if !ok || row.Kind != project.RowFile {
			return nil
		}
		cmd, err := editorCommand(row.Path)
		if err != nil {
			m.err = err
			return nil
		}
		return tea.ExecProcess(cmd, func(err error) tea.Msg {
			return editorFinishedMsg{err: err}
		})

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

// refresh takes a new snapshot and keeps the cursor on the same row when it
// is still visible.
func (m *Model) refresh() {
	prev, hadPrev := m.selected()
	m.snap = m.ws.Snapshot()

	if hadPrev {
		for i, r := range m.snap.Rows {
			if r.Path == prev.Path {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(m.snap.Rows) {
		m.cursor = max(len(m.snap.Rows)-1, 0)
	}
}

func (m *Model) selected() (project.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Rows) {
		return project.Row{}, false
	}
	return m.snap.Rows[m.cursor], true
}

// View renders the browser.
func (m *Model) View() string {
	var b strings.Builder

	title := "memristor"
	if m.snap.ProjectDir != "" {
		title += "  " + m.snap.ProjectDir
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if len(m.snap.Rows) == 0 {
		b.WriteString(mutedStyle.Render("No project open."))
		b.WriteString("\n")
	}
	for i, r := range m.snap.Rows {
		b.WriteString(m.renderRow(r, i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.statusLine()))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))

	return appStyle.Render(b.String())
}

func (m *Model) renderRow(r project.Row, selected bool) string {
	indent := strings.Repeat("  ", r.Depth)

	var line string
	switch r.Kind {
	case project.RowDir:
		marker := treeCollapsed
		if r.Expanded {
			marker = treeExpanded
		}
		line = indent + marker + dirStyle.Render(r.Name+"/")
	default:
		name := fileStyle.Render(r.Name)
		if r.Path == m.snap.OpenFile {
			name = openFileStyle.Render(r.Name)
		}
		line = indent + treeLeaf + name
	}

	if selected {
		return selectedStyle.Render(line)
	}
	return line
}

func (m *Model) statusLine() string {
	file := "no file open"
	if m.snap.OpenFile != "" {
		file = m.snap.OpenFile
		if rel, err := filepath.Rel(m.snap.ProjectDir, m.snap.OpenFile); err == nil && m.snap.ProjectDir != "" {
			file = rel
		}
	}

	var state string
	switch {
	case m.snap.Compiling:
		state = m.spinner.View() + " compiling"
	case m.snap.LastError != "":
		state = errorStyle.Render(firstLine(m.snap.LastError))
	case m.snap.LastResult == render.OutcomeCompleted:
		state = okStyle.Render(fmt.Sprintf("%d page(s), cycle %d", len(m.snap.Artifacts), m.snap.Cycle))
	default:
		state = "idle"
	}
	return file + "  " + state
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
