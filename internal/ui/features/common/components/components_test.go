package components

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestPage(t *testing.T) {
	tests := []struct {
		name    string
		isDev   bool
		wantDev bool
	}{
		{name: "production", isDev: false},
		{name: "dev reloads", isDev: true, wantDev: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := render(t, Page("Preview", tt.isDev, "/updates", AppData{}))

			assert.Contains(t, html, "<!doctype html>")
			assert.Contains(t, html, "<title>Preview - memristor</title>")
			assert.Contains(t, html, `href="/static/app.css"`)
			assert.Contains(t, html, `data-init="@get(&#39;/updates&#39;)"`)
			assert.Contains(t, html, `id="app-container"`)
			if tt.wantDev {
				assert.Contains(t, html, "/reload")
			} else {
				assert.NotContains(t, html, "/reload")
			}
		})
	}
}

func TestAppContainer_TreeRows(t *testing.T) {
	html := render(t, AppContainer(AppData{
		ProjectDir: "/notes",
		Rows: []TreeRow{
			{Kind: "dir", Name: "chapters", Indent: 12, Expanded: true, ActionURL: "/api/tree/_0_0/toggle"},
			{Kind: "file", Name: "<intro>.typ", Indent: 24, Active: true, ActionURL: "/api/open?path=%2Fnotes%2Fintro.typ"},
		},
	}))

	assert.Contains(t, html, "<h2>/notes</h2>")
	assert.Contains(t, html, `class="tree-row" style="padding-left: 12px;"`)
	assert.Contains(t, html, `class="tree-row active" style="padding-left: 24px;"`)
	assert.Contains(t, html, `data-on:click="@post(&#39;/api/tree/_0_0/toggle&#39;)"`)
	assert.Contains(t, html, "▾</span>chapters")
	assert.Contains(t, html, "&lt;intro&gt;.typ", "names are escaped")
	assert.NotContains(t, html, "<intro>")
}

func TestAppContainer_Content(t *testing.T) {
	tests := []struct {
		name string
		data AppData
		want []string
	}{
		{
			name: "no file",
			data: AppData{},
			want: []string{"No project", "Open a .typ file to preview it.", "no file open", `class="ok"`},
		},
		{
			name: "file without pages",
			data: AppData{OpenFile: "typst/main.typ", Compiling: true},
			want: []string{"No pages yet.", "typst/main.typ", "compiling…"},
		},
		{
			name: "pages",
			data: AppData{
				OpenFile: "typst/main.typ",
				Status:   "2 page(s), cycle 3",
				Pages:    []PageImage{{Page: 1, URL: "/pages/3/page1.svg"}, {Page: 2, URL: "/pages/3/page2.svg"}},
			},
			want: []string{`<img id="page-1" src="/pages/3/page1.svg" alt="page 1">`, `id="page-2"`, "2 page(s), cycle 3"},
		},
		{
			name: "error",
			data: AppData{OpenFile: "typst/main.typ", Error: `error: unknown variable "x"`},
			want: []string{`class="error"`, "error: unknown variable &#34;x&#34;"},
		},
		{
			name: "empty history",
			data: AppData{CurrentPath: "/runs"},
			want: []string{`<table class="runs">`, "No compiles recorded."},
		},
		{
			name: "history",
			data: AppData{CurrentPath: "/runs", Runs: []RunItem{
				{ID: "r1", Cycle: 4, File: "main.typ", Status: "failed", Pages: 0, Error: "boom"},
			}},
			want: []string{`<tr id="run-r1" title="boom"><td>4</td><td>main.typ</td><td>failed</td><td>0</td>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := render(t, AppContainer(tt.data))
			for _, want := range tt.want {
				assert.Contains(t, html, want)
			}
		})
	}
}
