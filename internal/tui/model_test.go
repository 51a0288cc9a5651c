package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/memristor/internal/project"
	"github.com/leapstack-labs/memristor/internal/render"
	"github.com/leapstack-labs/memristor/internal/workspace"
)

type fakeWorkspace struct {
	mu     sync.Mutex
	snap   workspace.Snapshot
	events []workspace.Event
	err    error
}

func (f *fakeWorkspace) Submit(_ context.Context, ev workspace.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeWorkspace) Snapshot() workspace.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeWorkspace) set(snap workspace.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func testRows() []project.Row {
	return []project.Row{
		{Kind: project.RowDir, ID: "_0_0", Name: "dir1", Path: "/p/typst/dir1"},
		{Kind: project.RowDir, ID: "_0_1", Name: "dir2", Path: "/p/typst/dir2"},
		{Kind: project.RowFile, Name: "top_level.typ", Path: "/p/typst/top_level.typ"},
	}
}

func newTestModel(t *testing.T) (*Model, *fakeWorkspace) {
	t.Helper()
	ws := &fakeWorkspace{snap: workspace.Snapshot{ProjectDir: "/p", Rows: testRows()}}
	return New(context.Background(), ws, nil), ws
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, msg tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

func TestModel_CursorMovement(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want int
	}{
		{name: "starts at top", want: 0},
		{name: "down", keys: []tea.KeyMsg{{Type: tea.KeyDown}}, want: 1},
		{name: "j", keys: []tea.KeyMsg{keyRunes("j"), keyRunes("j")}, want: 2},
		{name: "stops at bottom", keys: []tea.KeyMsg{keyRunes("j"), keyRunes("j"), keyRunes("j"), keyRunes("j")}, want: 2},
		{name: "up stops at top", keys: []tea.KeyMsg{{Type: tea.KeyUp}, keyRunes("k")}, want: 0},
		{name: "down then up", keys: []tea.KeyMsg{keyRunes("j"), keyRunes("j"), keyRunes("k")}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(t)
			for _, k := range tt.keys {
				press(t, m, k)
			}
			assert.Equal(t, tt.want, m.cursor)
		})
	}
}

func TestModel_EnterTogglesDirectory(t *testing.T) {
	m, ws := newTestModel(t)

	cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())

	assert.Equal(t, []workspace.Event{workspace.ToggleExpand{ID: "_0_0"}}, ws.events)
}

func TestModel_EnterOpensFile(t *testing.T) {
	m, ws := newTestModel(t)
	press(t, m, keyRunes("j"))
	press(t, m, keyRunes("j"))

	cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []workspace.Event{workspace.FileOpened{Path: "/p/typst/top_level.typ"}}, ws.events)
}

func TestModel_EnterOnEmptyTree(t *testing.T) {
	ws := &fakeWorkspace{}
	m := New(context.Background(), ws, nil)

	assert.Nil(t, press(t, m, tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Contains(t, m.View(), "No project open.")
}

func TestModel_PreviewKey(t *testing.T) {
	m, ws := newTestModel(t)

	cmd := press(t, m, keyRunes("p"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []workspace.Event{workspace.PreviewRequested{}}, ws.events)
}

func TestModel_SubmitErrorIsShown(t *testing.T) {
	m, ws := newTestModel(t)
	ws.err = workspace.ErrStopped

	msg := press(t, m, keyRunes("p"))()
	require.IsType(t, submitErrMsg{}, msg)

	m.Update(msg)
	assert.ErrorIs(t, m.err, workspace.ErrStopped)
	assert.Contains(t, m.View(), "workspace stopped")
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []tea.KeyMsg{keyRunes("q"), {Type: tea.KeyCtrlC}} {
		m, _ := newTestModel(t)
		cmd := press(t, m, k)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestModel_UpdateKeepsSelection(t *testing.T) {
	m, ws := newTestModel(t)
	press(t, m, keyRunes("j"))
	press(t, m, keyRunes("j"))
	require.Equal(t, "top_level.typ", m.snap.Rows[m.cursor].Name)

	// dir1 expands above the selected file.
	rows := testRows()
	rows[0].Expanded = true
	expanded := append([]project.Row{rows[0]},
		project.Row{Kind: project.RowFile, Name: "in_dir1.typ", Path: "/p/typst/dir1/in_dir1.typ", Depth: 1})
	expanded = append(expanded, rows[1:]...)
	ws.set(workspace.Snapshot{ProjectDir: "/p", Rows: expanded})

	m.Update(updatedMsg{})

	assert.Equal(t, 3, m.cursor)
	assert.Equal(t, "top_level.typ", m.snap.Rows[m.cursor].Name)
}

func TestModel_UpdateClampsCursor(t *testing.T) {
	m, ws := newTestModel(t)
	press(t, m, keyRunes("j"))
	press(t, m, keyRunes("j"))

	ws.set(workspace.Snapshot{ProjectDir: "/p", Rows: testRows()[:1]})
	m.Update(updatedMsg{})

	assert.Equal(t, 0, m.cursor)
}

func TestModel_WaitsForNotifier(t *testing.T) {
	ws := &fakeWorkspace{snap: workspace.Snapshot{Rows: testRows()}}
	updates := make(chan struct{}, 1)
	m := New(context.Background(), ws, updates)

	updates <- struct{}{}
	cmd := m.waitForUpdate()
	require.NotNil(t, cmd)
	assert.Equal(t, updatedMsg{}, cmd())
}

func TestModel_WaitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := New(ctx, &fakeWorkspace{}, make(chan struct{}))

	cancel()
	assert.Nil(t, m.waitForUpdate()())
}

func TestModel_View(t *testing.T) {
	tests := []struct {
		name string
		snap workspace.Snapshot
		want []string
	}{
		{
			name: "idle",
			snap: workspace.Snapshot{ProjectDir: "/p", Rows: testRows()},
			want: []string{"dir1/", "dir2/", "top_level.typ", "no file open", "idle"},
		},
		{
			name: "compiled",
			snap: workspace.Snapshot{
				ProjectDir: "/p",
				Rows:       testRows(),
				OpenFile:   "/p/typst/top_level.typ",
				Cycle:      4,
				LastResult: render.OutcomeCompleted,
			},
			want: []string{"typst/top_level.typ", "0 page(s), cycle 4"},
		},
		{
			name: "failed",
			snap: workspace.Snapshot{
				ProjectDir: "/p",
				Rows:       testRows(),
				OpenFile:   "/p/typst/top_level.typ",
				LastResult: render.OutcomeFailed,
				LastError:  "error: unexpected end of document\n  ┌─ main.typ",
			},
			want: []string{"error: unexpected end of document"},
		},
		{
			name: "compiling",
			snap: workspace.Snapshot{ProjectDir: "/p", Rows: testRows(), Compiling: true},
			want: []string{"compiling"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := &fakeWorkspace{snap: tt.snap}
			m := New(context.Background(), ws, nil)

			view := m.View()
			for _, want := range tt.want {
				assert.Contains(t, view, want)
			}
		})
	}
}

func TestModel_EditWithoutEditor(t *testing.T) {
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")
	t.Setenv("PATH", t.TempDir())

	m, _ := newTestModel(t)
	press(t, m, keyRunes("j"))
	press(t, m, keyRunes("j"))

	assert.Nil(t, press(t, m, keyRunes("e")))
	assert.True(t, errors.Is(m.err, ErrNoEditor))
}

func TestModel_HelpToggle(t *testing.T) {
	m, _ := newTestModel(t)
	assert.False(t, m.help.ShowAll)
	press(t, m, keyRunes("?"))
	assert.True(t, m.help.ShowAll)
}
