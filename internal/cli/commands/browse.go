package commands

import (
	"context"

	"github.com/leapstack-labs/memristor/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "browse [directory]",
		Short: "Browse a project in the terminal",
		Long: `Open a project in a terminal browser.

Move with the arrow keys or j/k, press enter to expand a directory or open a
file, p to recompile, e to edit the selected file and q to quit. Compiles keep
running in the background, so a preview server started elsewhere is not needed.`,
		Example: `  # Browse the current project
  memristor browse

  # Start with a file open
  memristor browse --file typst/main.typ`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)

			dir, err := projectDir(cmdCtx.Cfg, args)
			if err != nil {
				return err
			}
			path, err := resolveFile(dir, file)
			if err != nil {
				return err
			}

			sess, err := newSession(cmdCtx, dir, path)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)
			if err := sess.Start(ctx, g); err != nil {
				return err
			}

			// Quitting the browser stops the workspace and the watcher.
			g.Go(func() error {
				defer cancel()
				return tui.Run(ctx, sess.Workspace, sess.Notifier)
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File to open on start")

	return cmd
}
