// Package components holds the templ components shared by the UI features.
package components

import (
	"fmt"

	"github.com/a-h/templ"
)

// TreeRow is one visible row of the project tree.
type TreeRow struct {
	Kind      string
	Name      string
	Indent    int
	Expanded  bool
	Active    bool
	ActionURL string
}

// PageImage is one rendered page.
type PageImage struct {
	Page int
	URL  string
}

// RunItem is one row of the compile history.
type RunItem struct {
	ID       string
	Cycle    uint64
	File     string
	Status   string
	Pages    int
	Started  string
	Duration string
	Error    string
}

// AppData is everything the app container renders.
type AppData struct {
	CurrentPath string
	ProjectDir  string
	OpenFile    string
	Rows        []TreeRow
	Pages       []PageImage
	Compiling   bool
	Status      string
	Error       string
	Runs        []RunItem
}

func indentStyle(px int) templ.SafeCSS {
	return templ.SafeCSS(fmt.Sprintf("padding-left: %dpx", px))
}

func postAction(url string) string {
	return "@post('" + url + "')"
}

func getAction(url string) string {
	return "@get('" + url + "')"
}
