package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/benchmarks/internal/benchmark"
	"github.com/born-ml/benchmarks/internal/record"
)

var _ benchmark.Datastore = (*Store)(nil)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Type: "sqlite", ConnectionString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Type: "mysql"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Type: "postgres"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bench.db")
	s, err := Open(ctx, Config{ConnectionString: path})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Migrations are idempotent.
	s, err = Open(ctx, Config{Type: "sqlite3", ConnectionString: path})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSQLite_Dedup(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	env := record.EnvironmentInfo{Type: "native", OS: "linux", NumCPU: 8}
	id1, err := s.AddEnvironmentInfo(ctx, env)
	require.NoError(t, err)
	id2, err := s.AddEnvironmentInfo(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	env.NumCPU = 4
	id3, err := s.AddEnvironmentInfo(ctx, env)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	vs := record.VersionSet{FrameworkVersion: "0.7.0", HarnessVersion: "dev", GoVersion: "go1.25"}
	v1, err := s.AddVersionSet(ctx, vs)
	require.NoError(t, err)
	v2, err := s.AddVersionSet(ctx, vs)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	t1, err := s.GetOrCreateTaskID(ctx, record.DefaultTaskType, "mnist", "predict")
	require.NoError(t, err)
	t2, err := s.GetOrCreateTaskID(ctx, record.DefaultTaskType, "mnist", "fit")
	require.NoError(t, err)
	t3, err := s.GetOrCreateTaskID(ctx, record.DefaultTaskType, "mnist", "predict")
	require.NoError(t, err)
	assert.Equal(t, t1, t3)
	assert.NotEqual(t, t1, t2)

	tasks, err := s.Tasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestSQLite_Runs(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	envID, err := s.AddEnvironmentInfo(ctx, record.EnvironmentInfo{Type: "native"})
	require.NoError(t, err)
	vsID, err := s.AddVersionSet(ctx, record.VersionSet{HarnessVersion: "dev"})
	require.NoError(t, err)
	predictID, err := s.GetOrCreateTaskID(ctx, "model", "mnist", "predict")
	require.NoError(t, err)
	fitID, err := s.GetOrCreateTaskID(ctx, "model", "mnist", "fit")
	require.NoError(t, err)

	var runs []record.BenchmarkRun
	for i := 0; i < maxRowsPerInsert+3; i++ {
		runs = append(runs, record.BenchmarkRun{
			ID: fmt.Sprintf("run-%04d", i), TaskID: predictID, VersionSetID: vsID, EnvironmentInfoID: envID,
			BatchSize: 32, NumWarmUpIterations: 2, NumBenchmarkedIterations: 2,
			AverageTimeMs: 1.5, TimesMs: []float64{1, 2}, TotalTimeMs: 3,
			StartTs: int64(i), EndingTimestampMs: int64(i + 1), ReferenceAverageTimeMs: 10.2,
		})
	}
	runs = append(runs, record.BenchmarkRun{
		ID: "fit-1", TaskID: fitID, VersionSetID: vsID, EnvironmentInfoID: envID,
		BatchSize: 32, NumBenchmarkedIterations: 3, AverageTimeMs: 4, TotalTimeMs: 12,
		EndingTimestampMs: 10_000,
	})
	require.NoError(t, s.AddBenchmarkRuns(ctx, runs))

	got, err := s.ListRuns(ctx, RunFilter{ModelName: "mnist", FunctionName: "predict", Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, fmt.Sprintf("run-%04d", maxRowsPerInsert+2), got[0].ID)
	assert.Equal(t, []float64{1, 2}, got[0].TimesMs)
	assert.Equal(t, "predict", got[0].FunctionName)
	assert.Equal(t, 10.2, got[0].ReferenceAverageTimeMs)

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(runs))
	assert.Equal(t, "fit-1", all[0].ID)
	assert.Nil(t, all[0].TimesMs)

	// Duplicate primary keys fail the whole batch.
	err = s.AddBenchmarkRuns(ctx, runs[len(runs)-1:])
	assert.Error(t, err)
}

func TestAddBenchmarkRuns_Unreferenced(t *testing.T) {
	s := openMemory(t)
	err := s.AddBenchmarkRuns(context.Background(), []record.BenchmarkRun{{ID: "x", ModelName: "mnist"}})
	assert.ErrorIs(t, err, ErrUnreferenced)
	assert.NoError(t, s.AddBenchmarkRuns(context.Background(), nil))
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM tasks WHERE a = ? AND b = ?"
	assert.Equal(t, q, sqlite.rebind(q))
	assert.Equal(t, "SELECT id FROM tasks WHERE a = $1 AND b = $2", postgres.rebind(q))
}
