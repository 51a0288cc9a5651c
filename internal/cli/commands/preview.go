package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/leapstack-labs/memristor/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// PreviewOptions holds options for the preview command.
type PreviewOptions struct {
	File      string
	Port      int
	NoBrowser bool
	Dev       bool
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	opts := &PreviewOptions{}

	cmd := &cobra.Command{
		Use:   "preview [directory]",
		Short: "Start the live preview server",
		Long: `Open a project and serve a live preview in the browser.

The preview shows the project tree next to the rendered pages of the open file.
Saving the file recompiles it, at most once per debounce interval.`,
		Example: `  # Preview the current project
  memristor preview

  # Open a file straight away
  memristor preview --file typst/main.typ

  # Custom port, no browser
  memristor preview --port 3000 --no-browser`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "File to open on start")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default from ui.port)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Enable hot reload of the UI assets")
	_ = cmd.Flags().MarkHidden("dev")

	return cmd
}

func runPreview(cmd *cobra.Command, args []string, opts *PreviewOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

	dir, err := projectDir(cfg, args)
	if err != nil {
		return err
	}
	file, err := resolveFile(dir, opts.File)
	if err != nil {
		return err
	}

	port := cfg.UI.Port
	if cmd.Flags().Changed("port") {
		port = opts.Port
	}
	autoOpen := cfg.UI.AutoOpen && !opts.NoBrowser

	sess, err := newSession(cmdCtx, dir, file)
	if err != nil {
		return err
	}
	defer sess.Close()

	var store state.Store
	if sess.Store != nil {
		store = sess.Store
	}

	out := cmd.OutOrStdout()
	server := ui.NewServer(ui.Config{
		Workspace: sess.Workspace,
		Store:     store,
		Notifier:  sess.Notifier,
		Host:      cfg.UI.Host,
		Port:      port,
		Dev:       opts.Dev,
		Logger:    logger,
		OnListen: func(url string) {
			_, _ = fmt.Fprintf(out, "Serving preview of %s on %s\n", dir, url)
			_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")
			if autoOpen {
				go openBrowser(url)
			}
		},
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	if err := sess.Start(ctx, g); err != nil {
		return err
	}
	g.Go(func() error {
		return server.Serve(ctx)
	})

	return g.Wait()
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
