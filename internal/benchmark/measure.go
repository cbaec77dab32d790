package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/nn"
	"github.com/born-ml/benchmarks/internal/record"
	"github.com/born-ml/benchmarks/internal/suitelog"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// datasetBatches is the number of batches in the FitDataset dataset.
const datasetBatches = 2

// Measurement is the timing of one (model, function) pair.
type Measurement struct {
	BatchSize   int
	TimesMs     []float64
	TotalTimeMs float64
	AverageMs   float64
	// TimedCalls counts calls made inside timed windows.
	TimedCalls int
	Start      time.Time
	End        time.Time
}

// Measurer times model functions on one engine.
type Measurer struct {
	Engine   *engine.Engine
	Inputs   Inputs
	Observer Observer
	Now      func() time.Time
}

func (ms *Measurer) now() time.Time {
	if ms.Now != nil {
		return ms.Now()
	}
	return time.Now()
}

func (ms *Measurer) observer() Observer {
	if ms.Observer != nil {
		return ms.Observer
	}
	return nopObserver{}
}

// Measure validates the reference entry, builds random inputs and times fn.
// Every tensor it allocates is released before it returns, on success and on
// failure. Unknown functions are rejected; callers skip them first.
func (ms *Measurer) Measure(ctx context.Context, m *nn.Sequential, fn Function, ref suitelog.Entry) (Measurement, error) {
	batch, err := ValidateBatchSize(ref.BatchSize)
	if err != nil {
		return Measurement{}, err
	}
	if err := ValidateIterations(ref.NumWarmUpIterations, ref.NumBenchmarkedIterations); err != nil {
		return Measurement{}, err
	}

	switch fn {
	case Predict:
		return ms.predict(ctx, m, batch, ref)
	case Fit:
		return ms.fit(ctx, m, batch, ref)
	case FitDataset:
		return ms.fitDataset(ctx, m, batch, ref)
	case Unknown:
		return Measurement{}, fmt.Errorf("cannot measure function %s", fn)
	default:
		return Measurement{}, fmt.Errorf("cannot measure function %d", int(fn))
	}
}

func (ms *Measurer) predict(ctx context.Context, m *nn.Sequential, batch int, ref suitelog.Entry) (Measurement, error) {
	e := ms.Engine
	x, err := ms.Inputs.Input(e, m, batch)
	if err != nil {
		return Measurement{}, err
	}
	defer e.Dispose(x)

	for i := 0; i < ref.NumWarmUpIterations; i++ {
		if err := ctx.Err(); err != nil {
			return Measurement{}, err
		}
		if err := predictOnce(e, m, x); err != nil {
			return Measurement{}, fmt.Errorf("warm-up %d: %w", i, err)
		}
	}

	res := Measurement{BatchSize: batch, TimesMs: make([]float64, 0, ref.NumBenchmarkedIterations)}
	res.Start = ms.now()
	for i := 0; i < ref.NumBenchmarkedIterations; i++ {
		if err := ctx.Err(); err != nil {
			return Measurement{}, err
		}
		start := time.Now()
		err := predictOnce(e, m, x)
		elapsed := record.DurationMs(time.Since(start))
		res.TimedCalls++
		if err != nil {
			return Measurement{}, fmt.Errorf("iteration %d: %w", i, err)
		}
		res.TimesMs = append(res.TimesMs, elapsed)
		res.TotalTimeMs += elapsed
		ms.observer().ObserveIteration(m.Name(), Predict, elapsed)
	}
	res.End = ms.now()
	res.AverageMs = res.TotalTimeMs / float64(len(res.TimesMs))
	return res, nil
}

// predictOnce runs one inference and reads the result back so the timing
// includes the data sync. The output is released before returning.
func predictOnce(e *engine.Engine, m *nn.Sequential, x *tensor.Tensor) error {
	out, err := m.Predict(e, x)
	if err != nil {
		return err
	}
	defer e.Dispose(out)
	_, err = e.Data(out)
	return err
}

func (ms *Measurer) fit(ctx context.Context, m *nn.Sequential, batch int, ref suitelog.Entry) (Measurement, error) {
	e := ms.Engine
	x, y, err := ms.pair(m, batch)
	if err != nil {
		return Measurement{}, err
	}
	defer e.Dispose(x, y)

	if ref.NumWarmUpIterations > 0 {
		cfg := nn.FitConfig{Epochs: ref.NumWarmUpIterations, BatchSize: batch}
		if _, err := m.Fit(ctx, e, x, y, cfg); err != nil {
			return Measurement{}, fmt.Errorf("warm-up fit: %w", err)
		}
	}

	return ms.timeOnce(m.Name(), Fit, batch, ref.NumBenchmarkedIterations, func() error {
		_, err := m.Fit(ctx, e, x, y, nn.FitConfig{Epochs: ref.NumBenchmarkedIterations, BatchSize: batch})
		return err
	})
}

func (ms *Measurer) fitDataset(ctx context.Context, m *nn.Sequential, batch int, ref suitelog.Entry) (Measurement, error) {
	e := ms.Engine
	xs := make([]*tensor.Tensor, 0, datasetBatches)
	ys := make([]*tensor.Tensor, 0, datasetBatches)
	defer func() {
		e.Dispose(xs...)
		e.Dispose(ys...)
	}()
	for i := 0; i < datasetBatches; i++ {
		x, y, err := ms.pair(m, batch)
		if err != nil {
			return Measurement{}, err
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	ds, err := nn.NewTensorDataset(xs, ys)
	if err != nil {
		return Measurement{}, err
	}

	if ref.NumWarmUpIterations > 0 {
		if _, err := m.FitDataset(ctx, e, ds, ref.NumWarmUpIterations); err != nil {
			return Measurement{}, fmt.Errorf("warm-up fitDataset: %w", err)
		}
	}

	return ms.timeOnce(m.Name(), FitDataset, batch, ref.NumBenchmarkedIterations, func() error {
		_, err := m.FitDataset(ctx, e, ds, ref.NumBenchmarkedIterations)
		return err
	})
}

// timeOnce times a single training call covering epochs epochs.
func (ms *Measurer) timeOnce(model string, fn Function, batch, epochs int, call func() error) (Measurement, error) {
	res := Measurement{BatchSize: batch}
	res.Start = ms.now()
	start := time.Now()
	err := call()
	res.TotalTimeMs = record.DurationMs(time.Since(start))
	res.TimedCalls = 1
	if err != nil {
		return Measurement{}, fmt.Errorf("timed %s: %w", fn, err)
	}
	res.End = ms.now()
	res.AverageMs = res.TotalTimeMs / float64(epochs)
	ms.observer().ObserveIteration(model, fn, res.TotalTimeMs)
	return res, nil
}

// pair allocates an input and a target batch. On failure nothing stays allocated.
func (ms *Measurer) pair(m *nn.Sequential, batch int) (*tensor.Tensor, *tensor.Tensor, error) {
	x, err := ms.Inputs.Input(ms.Engine, m, batch)
	if err != nil {
		return nil, nil, err
	}
	y, err := ms.Inputs.Target(ms.Engine, m, batch)
	if err != nil {
		ms.Engine.Dispose(x)
		return nil, nil, err
	}
	return x, y, nil
}
