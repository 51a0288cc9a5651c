package project

import "path/filepath"

// RowKind distinguishes directory rows from file rows.
type RowKind string

// Row kinds.
const (
	RowDir  RowKind = "dir"
	RowFile RowKind = "file"
)

// Row is one visible line of the tree, flattened for display.
type Row struct {
	Kind     RowKind `json:"kind"`
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Depth    int     `json:"depth"`
	Expanded bool    `json:"expanded,omitempty"`
}

// Rows flattens the visible part of the tree. The root's contents are always
// listed; a subdirectory's contents are listed only while it is expanded.
// Within a directory, subdirectories come before files.
func (t *Tree) Rows() []Row {
	if t == nil || t.Root == nil {
		return nil
	}
	var rows []Row
	appendRows(&rows, t.Root, 0)
	return rows
}

func appendRows(rows *[]Row, n *Node, depth int) {
	for _, d := range n.Dirs {
		*rows = append(*rows, Row{
			Kind:     RowDir,
			ID:       d.ID,
			Name:     d.Name,
			Path:     d.Path,
			Depth:    depth,
			Expanded: d.Expanded,
		})
		if d.Expanded {
			appendRows(rows, d, depth+1)
		}
	}
	for _, f := range n.Files {
		*rows = append(*rows, Row{
			Kind:  RowFile,
			Name:  filepath.Base(f),
			Path:  f,
			Depth: depth,
		})
	}
}
