package benchmark

import (
	"context"

	"github.com/born-ml/benchmarks/internal/record"
)

// Datastore persists benchmark results.
//
// AddEnvironmentInfo and AddVersionSet return the id of an existing row when
// an identical one was stored before. GetOrCreateTaskID is idempotent for a
// (taskType, modelName, functionName) triple.
type Datastore interface {
	AddEnvironmentInfo(ctx context.Context, info record.EnvironmentInfo) (int64, error)
	AddVersionSet(ctx context.Context, vs record.VersionSet) (int64, error)
	GetOrCreateTaskID(ctx context.Context, taskType, modelName, functionName string) (int64, error)
	AddBenchmarkRuns(ctx context.Context, runs []record.BenchmarkRun) error
}

// Observer receives measurements as they are taken. Implementations must be
// cheap; they are called inside the benchmark loop but outside timed windows.
type Observer interface {
	ObserveIteration(model string, fn Function, ms float64)
	ObserveRun(run record.BenchmarkRun)
}

type nopObserver struct{}

func (nopObserver) ObserveIteration(string, Function, float64) {}
func (nopObserver) ObserveRun(record.BenchmarkRun)             {}
