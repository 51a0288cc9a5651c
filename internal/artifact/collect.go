// Package artifact collects the page files a compile cycle leaves in a scratch directory.
package artifact

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultTemplate is the output path template handed to the compiler.
// {0p} expands to the zero-padded page number.
const DefaultTemplate = "page{0p}.svg"

// Artifact is one rendered page.
type Artifact struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Page    int       `json:"page"`
	ModTime time.Time `json:"mod_time"`
}

// Layout describes how page files are named.
type Layout struct {
	Template string
	Prefix   string
	Ext      string
}

// ParseLayout derives a Layout from a compiler output template such as "page{0p}.svg".
func ParseLayout(template string) (Layout, error) {
	idx := strings.Index(template, "{")
	if idx < 0 || (!strings.Contains(template, "{p}") && !strings.Contains(template, "{0p}")) {
		return Layout{}, ErrInvalidTemplate
	}
	if strings.ContainsRune(template, filepath.Separator) {
		return Layout{}, ErrInvalidTemplate
	}

	return Layout{
		Template: template,
		Prefix:   template[:idx],
		Ext:      filepath.Ext(template),
	}, nil
}

// MustLayout is ParseLayout for known-good templates.
func MustLayout(template string) Layout {
	l, err := ParseLayout(template)
	if err != nil {
		panic(err)
	}
	return l
}

// page returns the page number encoded in name, or false when name does not follow the layout.
func (l Layout) page(name string) (int, bool) {
	stem := strings.TrimSuffix(name, l.Ext)
	digits, ok := strings.CutPrefix(stem, l.Prefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

type candidate struct {
	entry fs.DirEntry
	page  int
	paged bool
}

// Collect returns the pages of the most recent compilation found in dir, in page order.
//
// Files are sorted by page number; names that do not follow the layout sort
// after every numbered page. The modification time of the first file is the
// epoch, and only the leading run of files at or after the epoch is returned.
// A file whose metadata cannot be read ends the run. Only a failure to list
// dir itself is an error; an empty directory yields an empty list.
func Collect(dir string, layout Layout) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &FilesystemError{Op: "list", Path: dir, Err: err}
	}
	return collect(dir, entries, layout), nil
}

func collect(dir string, entries []fs.DirEntry, layout Layout) []Artifact {
	var candidates []candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) != layout.Ext {
			continue
		}
		page, ok := layout.page(entry.Name())
		candidates = append(candidates, candidate{entry: entry, page: page, paged: ok})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.paged != b.paged {
			return a.paged
		}
		if a.paged && a.page != b.page {
			return a.page < b.page
		}
		return a.entry.Name() < b.entry.Name()
	})

	artifacts := make([]Artifact, 0, len(candidates))
	var epoch time.Time
	for i, c := range candidates {
		info, err := c.entry.Info()
		if err != nil {
			// The compiler may still be replacing files; keep what we have.
			break
		}
		mod := info.ModTime()
		if i == 0 {
			epoch = mod
		} else if mod.Before(epoch) {
			break
		}
		artifacts = append(artifacts, Artifact{
			Path:    filepath.Join(dir, c.entry.Name()),
			Name:    c.entry.Name(),
			Page:    c.page,
			ModTime: mod,
		})
	}

	return artifacts
}
