package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/memristor/internal/cli/config"
	"github.com/leapstack-labs/memristor/internal/cli/output"
	clitest "github.com/leapstack-labs/memristor/internal/cli/testutil"
	"github.com/leapstack-labs/memristor/internal/state"
)

func seedHistory(t *testing.T, cfg *config.Config, n int) {
	t.Helper()

	store, err := state.OpenAndMigrate(cfg.StatePath, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		run, err := store.CreateRun(ctx, state.RunStart{
			Cycle:      uint64(i),
			SourcePath: fmt.Sprintf("/notes/typst/doc%d.typ", i),
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)

		status, msg := state.RunStatusCompleted, ""
		if i%2 == 0 {
			status, msg = state.RunStatusFailed, "error: unexpected end of document"
		}
		require.NoError(t, store.CompleteRun(ctx, run.ID, status, i, msg))
	}
}

func TestRunsCommand(t *testing.T) {
	cfg := clitest.TestConfig(t, t.TempDir(), "")
	seedHistory(t, cfg, 3)

	out, err := execute(t, NewRunsCommand(), cfg)
	require.NoError(t, err)

	clitest.AssertNoANSI(t, out)
	assert.Contains(t, out, "| Cycle")
	assert.Contains(t, out, "Completed")
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "/notes/typst/doc3.typ")
}

func TestRunsCommand_Empty(t *testing.T) {
	cfg := clitest.TestConfig(t, t.TempDir(), "")

	out, err := execute(t, NewRunsCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No compile runs recorded yet")
}

func TestRunsCommand_JSON(t *testing.T) {
	tests := []struct {
		name      string
		seeded    int
		args      []string
		wantCount int
	}{
		{name: "default limit", seeded: 3, wantCount: 3},
		{name: "limited", seeded: 5, args: []string{"--limit", "2"}, wantCount: 2},
		{name: "empty is an array", seeded: 0, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := clitest.TestConfig(t, t.TempDir(), "")
			cfg.OutputFormat = string(output.ModeJSON)
			seedHistory(t, cfg, tt.seeded)

			out, err := execute(t, NewRunsCommand(), cfg, tt.args...)
			require.NoError(t, err)

			var runs []state.Run
			require.NoError(t, json.Unmarshal([]byte(out), &runs))
			require.NotNil(t, runs)
			assert.Len(t, runs, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, uint64(tt.seeded), runs[0].Cycle, "newest first")
			}
		})
	}
}
