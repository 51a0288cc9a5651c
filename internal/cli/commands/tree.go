package commands

import (
	"strings"

	"github.com/leapstack-labs/memristor/internal/cli/output"
	"github.com/leapstack-labs/memristor/internal/project"
	"github.com/spf13/cobra"
)

// TreeOptions holds options for the tree command.
type TreeOptions struct {
	Expand bool
}

// TreeOutput is the JSON output for the tree command.
type TreeOutput struct {
	Dir   string        `json:"dir"`
	Rows  []project.Row `json:"rows"`
	Files []string      `json:"files"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	opts := &TreeOptions{}

	cmd := &cobra.Command{
		Use:   "tree [directory]",
		Short: "Validate and print the project tree",
		Long: `Check that a directory is a memristor project (typst/ and pdf/ present)
and print its typst/ tree with the ids the preview uses for expanding directories.

By default only the top level is listed, as the preview shows it on open.
Use --expand to list every directory.`,
		Example: `  # Print the tree of the current project
  memristor tree

  # Everything, as JSON
  memristor tree --expand -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Expand, "expand", false, "Expand every directory")

	return cmd
}

func runTree(cmd *cobra.Command, args []string, opts *TreeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	dir, err := projectDir(cmdCtx.Cfg, args)
	if err != nil {
		return err
	}

	tree, err := project.Open(dir, project.WithLogger(cmdCtx.Logger))
	if err != nil {
		return err
	}
	if opts.Expand {
		expandAll(tree.Root)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(TreeOutput{Dir: tree.Dir, Rows: tree.Rows(), Files: tree.Files()})
	case output.ModeMarkdown:
		r.Header(1, tree.Dir)
	default:
		r.Println(r.Styles().Header1.Render(tree.Dir))
	}

	r.List(treeItems(tree.Rows()))
	return nil
}

func expandAll(n *project.Node) {
	for _, d := range n.Dirs {
		d.Expanded = true
		expandAll(d)
	}
}

// treeItems nests the flattened rows back into a list by depth.
func treeItems(rows []project.Row) []output.ListItem {
	items, _ := nestRows(rows, 0, 0)
	return items
}

func nestRows(rows []project.Row, i, depth int) ([]output.ListItem, int) {
	var items []output.ListItem
	for i < len(rows) {
		row := rows[i]
		if row.Depth < depth {
			break
		}
		item := output.ListItem{Text: rowLabel(row)}
		i++
		if row.Kind == project.RowDir && i < len(rows) && rows[i].Depth > row.Depth {
			item.Children, i = nestRows(rows, i, row.Depth+1)
		}
		items = append(items, item)
	}
	return items, i
}

func rowLabel(row project.Row) string {
	if row.Kind != project.RowDir {
		return row.Name
	}
	var b strings.Builder
	b.WriteString(row.Name)
	b.WriteString("/ (")
	b.WriteString(row.ID)
	b.WriteString(")")
	return b.String()
}
