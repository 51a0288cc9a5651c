package commands

import (
	"time"

	"github.com/leapstack-labs/memristor/internal/cli/output"
	"github.com/leapstack-labs/memristor/internal/state"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the compile history",
		Long: `List recent compile runs recorded by preview, browse and compile,
newest first.`,
		Example: `  # Last 20 runs
  memristor runs

  # As JSON
  memristor runs --limit 100 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			r := cmdCtx.Renderer

			store, err := openStore(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []*state.Run{}
			}

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(runs)
			}
			if len(runs) == 0 {
				r.Println("No compile runs recorded yet")
				return nil
			}

			rows := make([][]any, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []any{
					run.Cycle,
					run.StartedAt.Local().Format(time.DateTime),
					output.StatusLabel(string(run.Status)),
					run.PageCount,
					runDuration(run),
					run.SourcePath,
				})
			}
			r.Table([]string{"Cycle", "Started", "Status", "Pages", "Duration", "Source"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")

	return cmd
}

func runDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Millisecond).String()
}
