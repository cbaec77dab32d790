package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/nn"
	"github.com/born-ml/benchmarks/internal/record"
	"github.com/born-ml/benchmarks/internal/suitelog"
)

// Runner replays a suite log: it orders the models, measures every
// (model, function) pair one at a time and persists the records.
type Runner struct {
	engine   *engine.Engine
	store    Datastore
	models   ModelSource
	logger   *slog.Logger
	inputs   Inputs
	observer Observer
	taskType string
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithInputs sets the input generator.
func WithInputs(in Inputs) Option {
	return func(r *Runner) { r.inputs = in }
}

// WithObserver registers an Observer for iteration timings and records.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithTaskType overrides record.DefaultTaskType.
func WithTaskType(t string) Option {
	return func(r *Runner) { r.taskType = t }
}

// WithClock overrides the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner.
func NewRunner(e *engine.Engine, store Datastore, models ModelSource, opts ...Option) *Runner {
	r := &Runner{
		engine:   e,
		store:    store,
		models:   models,
		logger:   slog.Default(),
		observer: nopObserver{},
		taskType: record.DefaultTaskType,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of a Run.
type Result struct {
	Context *RunContext
	Runs    []record.BenchmarkRun

	// Environment and Versions are the rows persisted for this run.
	Environment record.EnvironmentInfo
	Versions    record.VersionSet
}

// Run executes the whole pipeline. The first failure aborts the run; records
// measured so far are not persisted. Writes made before the failure
// (environment, version set, task ids) are not rolled back.
func (r *Runner) Run(ctx context.Context, log *suitelog.Log, env record.EnvironmentInfo, vs record.VersionSet) (*Result, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}
	if err := validateEntries(log); err != nil {
		return nil, err
	}

	rc := newRunContext(r.engine, r.logger, r.now())
	order := suitelog.Order(log)
	rc.Logger.Info("benchmark run started", "models", len(order), "backend", r.engine.Backend())

	var err error
	if rc.EnvironmentInfoID, err = r.store.AddEnvironmentInfo(ctx, env); err != nil {
		return nil, fmt.Errorf("add environment info: %w", err)
	}
	if rc.VersionSetID, err = r.store.AddVersionSet(ctx, vs); err != nil {
		return nil, fmt.Errorf("add version set: %w", err)
	}

	ms := &Measurer{Engine: r.engine, Inputs: r.inputs, Observer: r.observer, Now: r.now}
	var runs []record.BenchmarkRun
	for _, name := range order {
		fns, _ := log.Functions(name)
		modelRuns, err := r.runModel(ctx, rc, ms, name, fns)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		runs = append(runs, modelRuns...)
		rc.ModelsDone++
	}

	if len(runs) > 0 {
		if err := r.store.AddBenchmarkRuns(ctx, runs); err != nil {
			return nil, fmt.Errorf("add benchmark runs: %w", err)
		}
	}
	for _, run := range runs {
		r.observer.ObserveRun(run)
	}

	rc.Logger.Info("benchmark run finished",
		"models", rc.ModelsDone,
		"pairs", rc.PairsRun,
		"skipped", rc.PairsSkipped,
		"elapsed", r.now().Sub(rc.Start).String())
	return &Result{Context: rc, Runs: runs, Environment: env, Versions: vs}, nil
}

func (r *Runner) runModel(ctx context.Context, rc *RunContext, ms *Measurer, name string, fns *suitelog.Functions) ([]record.BenchmarkRun, error) {
	var model *nn.Sequential
	defer func() {
		if model != nil {
			model.Dispose(r.engine)
		}
	}()

	var runs []record.BenchmarkRun
	for p := fns.Oldest(); p != nil; p = p.Next() {
		fn := ParseFunction(p.Key)
		if fn == Unknown {
			rc.Logger.Warn("skipping unknown function", "model", name, "function", p.Key)
			rc.PairsSkipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if model == nil {
			var err error
			if model, err = r.models.LoadModel(ctx, r.engine, name); err != nil {
				return nil, fmt.Errorf("load: %w", err)
			}
			rc.Logger.Debug("model loaded", "model", name, "params", model.CountParams(),
				"input", model.InputShape(), "output", model.OutputShape())
		}

		taskID, err := r.store.GetOrCreateTaskID(ctx, r.taskType, name, fn.String())
		if err != nil {
			return nil, fmt.Errorf("task id for %s: %w", fn, err)
		}

		before := r.engine.Memory().NumTensors
		m, err := ms.Measure(ctx, model, fn, p.Value)
		if after := r.engine.Memory().NumTensors; after != before {
			rc.Logger.Warn("tensor count changed across benchmark", "model", name, "function", fn.String(),
				"before", before, "after", after)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		rc.PairsRun++

		run := assemble(rc, taskID, name, fn, p.Value, m)
		rc.Logger.Info("benchmarked",
			"model", name,
			"function", fn.String(),
			"batch", m.BatchSize,
			"averageMs", run.AverageTimeMs,
			"referenceMs", run.ReferenceAverageTimeMs)
		runs = append(runs, run)
	}
	return runs, nil
}

// assemble merges a measurement with metadata carried over from the reference entry.
func assemble(rc *RunContext, taskID int64, model string, fn Function, ref suitelog.Entry, m Measurement) record.BenchmarkRun {
	id := ""
	if u, err := uuid.NewV7(); err == nil {
		id = u.String()
	} else {
		id = uuid.NewString()
	}
	return record.BenchmarkRun{
		ID:                       id,
		TaskID:                   taskID,
		VersionSetID:             rc.VersionSetID,
		EnvironmentInfoID:        rc.EnvironmentInfoID,
		ModelName:                model,
		FunctionName:             fn.String(),
		BatchSize:                m.BatchSize,
		NumWarmUpIterations:      ref.NumWarmUpIterations,
		NumBenchmarkedIterations: ref.NumBenchmarkedIterations,
		AverageTimeMs:            m.AverageMs,
		TimesMs:                  m.TimesMs,
		TotalTimeMs:              m.TotalTimeMs,
		StartTs:                  record.Millis(m.Start),
		EndingTimestampMs:        record.Millis(m.End),
		ReferenceAverageTimeMs:   ref.AverageTimeMs,
	}
}

// validateEntries checks every known (model, function) entry up front so a
// bad reference aborts the run before anything is written.
func validateEntries(log *suitelog.Log) error {
	var errs []error
	for mp := log.Models.Oldest(); mp != nil; mp = mp.Next() {
		for fp := mp.Value.Oldest(); fp != nil; fp = fp.Next() {
			if ParseFunction(fp.Key) == Unknown {
				continue
			}
			if _, err := ValidateBatchSize(fp.Value.BatchSize); err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", mp.Key, fp.Key, err))
			}
			if err := ValidateIterations(fp.Value.NumWarmUpIterations, fp.Value.NumBenchmarkedIterations); err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", mp.Key, fp.Key, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ToSuiteLog converts measured runs into a suite log so a native run can
// serve as a reference for later runs.
func ToSuiteLog(runs []record.BenchmarkRun, env record.EnvironmentInfo, vs record.VersionSet) *suitelog.Log {
	l := suitelog.New()
	l.EnvironmentInfo = env
	l.VersionSet = &vs
	for _, run := range runs {
		l.Add(run.ModelName, run.FunctionName, suitelog.FromRun(run))
	}
	return l
}
