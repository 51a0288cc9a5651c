// Package project reads a memristor project directory into an addressable tree.
//
// A project directory contains a typst/ source tree and a pdf/ output
// directory. The tree is rooted at typst/ and every directory node carries an
// id derived from its position: the root is "_0" and the n-th subdirectory of
// a node with id P gets "P_n". Ids never depend on names, so they stay valid
// across redraws for as long as the tree itself is kept.
package project

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	// SourceDir is the directory the tree is rooted at.
	SourceDir = "typst"
	// OutputDir is reserved for exported documents. Only its presence is checked.
	OutputDir = "pdf"

	rootID = "_0"
)

// Node is one directory in the project tree.
type Node struct {
	ID       string
	Name     string
	Path     string
	Files    []string
	Dirs     []*Node
	Expanded bool
}

// Tree is a validated project tree. It is not safe for concurrent mutation;
// callers serialize Toggle with reads.
type Tree struct {
	Dir    string
	Root   *Node
	logger *slog.Logger
}

// Option configures Open.
type Option func(*Tree)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Open validates dir as a project directory and reads its typst/ subtree.
// Any read error aborts the whole call; partial trees are never returned.
// Entries are ordered by name.
func Open(dir string, opts ...Option) (*Tree, error) {
	t := &Tree{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &ReadDirError{Path: dir, Err: err}
	}

	if err := Validate(abs); err != nil {
		return nil, err
	}

	root, err := readNode(filepath.Join(abs, SourceDir), rootID)
	if err != nil {
		return nil, err
	}

	t.Dir = abs
	t.Root = root
	t.logger.Debug("project tree loaded",
		slog.String("dir", abs),
		slog.Int("directories", countDirs(root)))

	return t, nil
}

// Validate checks that dir has both typst/ and pdf/ subdirectories.
func Validate(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &ReadDirError{Path: dir, Err: err}
	}

	var hasSource, hasOutput bool
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		switch entry.Name() {
		case SourceDir:
			hasSource = true
		case OutputDir:
			hasOutput = true
		}
	}

	if !hasSource || !hasOutput {
		return ErrNotProjectDirectory
	}
	return nil
}

func readNode(path, id string) (*Node, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, &ReadDirError{Path: path, Err: err}
	}

	node := &Node{
		ID:    id,
		Name:  filepath.Base(path),
		Path:  path,
		Files: []string{},
		Dirs:  []*Node{},
	}

	// Symlinks are listed as files and never followed, so a link back to an
	// ancestor cannot make the walk recurse.
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		if !entry.IsDir() {
			node.Files = append(node.Files, child)
			continue
		}

		sub, err := readNode(child, id+"_"+strconv.Itoa(len(node.Dirs)))
		if err != nil {
			return nil, err
		}
		node.Dirs = append(node.Dirs, sub)
	}

	return node, nil
}

// Find returns the node with the given id, or nil.
func (t *Tree) Find(id string) *Node {
	if t == nil || t.Root == nil {
		return nil
	}

	stack := []*Node{t.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.ID == id {
			return n
		}
		// Ids encode their ancestors, so only descend into a matching prefix.
		if !strings.HasPrefix(id, n.ID+"_") {
			continue
		}
		stack = append(stack, n.Dirs...)
	}
	return nil
}

// Toggle flips the expansion flag of the node with the given id.
// An unknown id is logged and ignored; it usually means the tree was
// replaced between a redraw and the click that produced the id.
func (t *Tree) Toggle(id string) bool {
	n := t.Find(id)
	if n == nil {
		if t != nil {
			t.logger.Debug("toggle ignored, no such node", slog.String("id", id))
		}
		return false
	}
	n.Expanded = !n.Expanded
	return true
}

// Contains reports whether path is one of the files in the tree.
func (t *Tree) Contains(path string) bool {
	return slices.Contains(t.Files(), path)
}

// Files returns every file in the tree, depth first.
func (t *Tree) Files() []string {
	if t == nil || t.Root == nil {
		return nil
	}
	var files []string
	var walk func(n *Node)
	walk = func(n *Node) {
		files = append(files, n.Files...)
		for _, d := range n.Dirs {
			walk(d)
		}
	}
	walk(t.Root)
	return files
}

func countDirs(n *Node) int {
	count := 1
	for _, d := range n.Dirs {
		count += countDirs(d)
	}
	return count
}
