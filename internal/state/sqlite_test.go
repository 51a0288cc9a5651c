package state

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/memristor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenAndMigrate(":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Migrating again is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".memristor", "state.db")

	store, err := OpenAndMigrate(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	_, err = store.CreateRun(context.Background(), RunStart{Cycle: 1, SourcePath: "/p/main.typ"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenAndMigrate(path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  RunStatus
		pages   int
		errMsg  string
		wantErr string
	}{
		{name: "completed", status: RunStatusCompleted, pages: 3},
		{name: "failed", status: RunStatusFailed, errMsg: "error: unclosed delimiter", wantErr: "error: unclosed delimiter"},
		{name: "discarded", status: RunStatusDiscarded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()

			run, err := store.CreateRun(ctx, RunStart{
				ID:         "run-" + tt.name,
				Cycle:      7,
				SourcePath: "/p/typst/main.typ",
				StartedAt:  started,
			})
			require.NoError(t, err)
			assert.Equal(t, RunStatusRunning, run.Status)

			got, err := store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, RunStatusRunning, got.Status)
			assert.Nil(t, got.CompletedAt)
			assert.Zero(t, got.Duration())

			require.NoError(t, store.CompleteRun(ctx, run.ID, tt.status, tt.pages, tt.errMsg))

			got, err = store.GetRun(ctx, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, uint64(7), got.Cycle)
			assert.Equal(t, "/p/typst/main.typ", got.SourcePath)
			assert.Equal(t, tt.pages, got.PageCount)
			assert.Equal(t, tt.wantErr, got.Error)
			assert.True(t, got.StartedAt.Equal(started))
			require.NotNil(t, got.CompletedAt)
		})
	}
}

func TestSQLiteStore_GeneratesID(t *testing.T) {
	store := setupTestStore(t)

	run, err := store.CreateRun(context.Background(), RunStart{Cycle: 1, SourcePath: "a.typ"})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.False(t, run.StartedAt.IsZero())
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = store.CompleteRun(ctx, "missing", RunStatusCompleted, 1, "")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		_, err := store.CreateRun(ctx, RunStart{
			Cycle:      uint64(i),
			SourcePath: "main.typ",
			StartedAt:  base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []uint64{5, 4, 3}, []uint64{runs[0].Cycle, runs[1].Cycle, runs[2].Cycle})

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, RunStart{})
	assert.Error(t, err)
	_, err = store.GetRun(ctx, "x")
	assert.Error(t, err)
	_, err = store.ListRuns(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, store.CompleteRun(ctx, "x", RunStatusCompleted, 0, ""))
	assert.Error(t, store.Migrate())
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := &SQLiteStore{db: db, logger: testutil.NewTestLogger(t)}
	ctx := context.Background()
	diskFull := errors.New("disk I/O error")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO compile_runs")).WillReturnError(diskFull)
	_, err = store.CreateRun(ctx, RunStart{Cycle: 1, SourcePath: "a.typ"})
	assert.ErrorIs(t, err, diskFull)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE compile_runs")).WillReturnError(diskFull)
	err = store.CompleteRun(ctx, "id", RunStatusFailed, 0, "boom")
	assert.ErrorIs(t, err, diskFull)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, cycle")).WillReturnError(diskFull)
	_, err = store.ListRuns(ctx, 10)
	assert.ErrorIs(t, err, diskFull)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, cycle")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("only-one-column"))
	_, err = store.GetRun(ctx, "id")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
