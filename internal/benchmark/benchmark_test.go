package benchmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/loader"
	"github.com/born-ml/benchmarks/internal/nn"
	"github.com/born-ml/benchmarks/internal/record"
	"github.com/born-ml/benchmarks/internal/suitelog"
	"github.com/born-ml/benchmarks/internal/tokenizer"
)

const mnistTopology = `{
  "format": "layers-model",
  "modelTopology": {
    "class_name": "Sequential",
    "config": {
      "name": "mnist",
      "layers": [
        {"class_name": "Flatten", "config": {"name": "flatten", "batch_input_shape": [null, 28, 28, 1], "dtype": "float32"}},
        {"class_name": "Dense", "config": {"name": "dense1", "units": 16, "activation": "relu"}},
        {"class_name": "Dense", "config": {"name": "dense2", "units": 10, "activation": "softmax"}}
      ]
    }
  },
  "trainingConfig": {
    "loss": "categoricalCrossentropy",
    "optimizer_config": {"class_name": "Adam", "config": {"learning_rate": 0.001}}
  }
}`

const textTopology = `{
  "modelTopology": {
    "class_name": "Sequential",
    "config": {
      "name": "text",
      "layers": [
        {"class_name": "Embedding", "config": {"name": "embedding", "input_dim": 50, "output_dim": 4, "input_length": 6}},
        {"class_name": "Flatten", "config": {"name": "flatten"}},
        {"class_name": "Dense", "config": {"name": "out", "units": 1, "activation": "sigmoid"}}
      ]
    }
  }
}`

const tokensTopology = `{
  "modelTopology": {
    "class_name": "Sequential",
    "config": {
      "name": "tokens",
      "layers": [
        {"class_name": "InputLayer", "config": {"name": "ids", "batch_input_shape": [null, 8], "dtype": "float32"}},
        {"class_name": "Embedding", "config": {"name": "embedding", "input_dim": 30, "output_dim": 4}},
        {"class_name": "Flatten", "config": {"name": "flatten"}},
        {"class_name": "Dense", "config": {"name": "out", "units": 3, "activation": "softmax"}}
      ]
    }
  },
  "trainingConfig": {"loss": "categoricalCrossentropy", "optimizer_config": {"class_name": "SGD", "config": {"learning_rate": 0.01}}}
}`

type call struct {
	method string
	args   string
}

type fakeStore struct {
	calls   []call
	env     record.EnvironmentInfo
	vs      record.VersionSet
	runs    []record.BenchmarkRun
	tasks   map[string]int64
	failRun error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[string]int64{}}
}

func (s *fakeStore) AddEnvironmentInfo(_ context.Context, info record.EnvironmentInfo) (int64, error) {
	s.calls = append(s.calls, call{"AddEnvironmentInfo", info.Type})
	s.env = info
	return 7, nil
}

func (s *fakeStore) AddVersionSet(_ context.Context, vs record.VersionSet) (int64, error) {
	s.calls = append(s.calls, call{"AddVersionSet", vs.FrameworkVersion})
	s.vs = vs
	return 3, nil
}

func (s *fakeStore) GetOrCreateTaskID(_ context.Context, taskType, model, fn string) (int64, error) {
	key := taskType + "/" + model + "/" + fn
	s.calls = append(s.calls, call{"GetOrCreateTaskID", key})
	id, ok := s.tasks[key]
	if !ok {
		id = int64(len(s.tasks) + 100)
		s.tasks[key] = id
	}
	return id, nil
}

func (s *fakeStore) AddBenchmarkRuns(_ context.Context, runs []record.BenchmarkRun) error {
	s.calls = append(s.calls, call{"AddBenchmarkRuns", fmt.Sprint(len(runs))})
	if s.failRun != nil {
		return s.failRun
	}
	s.runs = append(s.runs, runs...)
	return nil
}

func (s *fakeStore) methods() []string {
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.method
	}
	return out
}

type memModels map[string]string

func (m memModels) LoadModel(_ context.Context, e *engine.Engine, name string) (*nn.Sequential, error) {
	doc, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("no topology for %s", name)
	}
	a, err := loader.Parse([]byte(doc))
	if err != nil {
		return nil, err
	}
	return loader.Build(e, a)
}

var testModels = memModels{"mnist": mnistTopology, "text": textTopology, "tokens": tokensTopology}

type countingObserver struct {
	iterations int
	runs       int
}

func (o *countingObserver) ObserveIteration(string, Function, float64) { o.iterations++ }
func (o *countingObserver) ObserveRun(record.BenchmarkRun)             { o.runs++ }

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.NewCPU(1, engine.WithSeed(42))
	require.NoError(t, err)
	return e
}

func parseLog(t *testing.T, doc string) *suitelog.Log {
	t.Helper()
	l, err := suitelog.Parse([]byte(doc))
	require.NoError(t, err)
	return l
}

func loadModel(t *testing.T, e *engine.Engine, name string) *nn.Sequential {
	t.Helper()
	m, err := testModels.LoadModel(context.Background(), e, name)
	require.NoError(t, err)
	t.Cleanup(func() { m.Dispose(e) })
	return m
}

func entry(batch string, warmUp, iters int) suitelog.Entry {
	return suitelog.Entry{
		BatchSize:                json.Number(batch),
		NumWarmUpIterations:      warmUp,
		NumBenchmarkedIterations: iters,
	}
}

func TestParseFunction(t *testing.T) {
	for _, fn := range []Function{Predict, Fit, FitDataset} {
		assert.Equal(t, fn, ParseFunction(fn.String()))
	}
	assert.Equal(t, Unknown, ParseFunction("evaluate"))
	assert.Equal(t, Unknown, ParseFunction("Predict"))
	assert.Equal(t, "unknown", Unknown.String())
}

func TestValidateBatchSize(t *testing.T) {
	for in, want := range map[json.Number]int{"32": 32, "32.0": 32, "1e3": 1000, "1048576": MaxBatchSize} {
		n, err := ValidateBatchSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, n, in)
	}

	for _, bad := range []json.Number{"0", "-4", "1.5", "0.0", "1048577", "2e6", "1e400", "", "abc"} {
		t.Run(string(bad), func(t *testing.T) {
			_, err := ValidateBatchSize(bad)
			assert.ErrorIs(t, err, ErrInvalidBatchSize)
		})
	}
}

func TestValidateIterations(t *testing.T) {
	assert.NoError(t, ValidateIterations(0, 1))
	assert.ErrorIs(t, ValidateIterations(-1, 1), ErrInvalidIterations)
	assert.ErrorIs(t, ValidateIterations(2, 0), ErrInvalidIterations)
}

func TestMeasure_Predict(t *testing.T) {
	e := newEngine(t)
	m := loadModel(t, e, "mnist")
	obs := &countingObserver{}
	ms := &Measurer{Engine: e, Observer: obs}

	before := e.Memory().NumTensors
	got, err := ms.Measure(context.Background(), m, Predict, entry("8", 2, 4))
	require.NoError(t, err)

	assert.Equal(t, before, e.Memory().NumTensors)
	assert.Len(t, got.TimesMs, 4)
	assert.Equal(t, 4, got.TimedCalls)
	assert.Equal(t, 4, obs.iterations)
	assert.Equal(t, 8, got.BatchSize)

	var sum float64
	for _, v := range got.TimesMs {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, sum, got.TotalTimeMs, 1e-9)
	assert.InDelta(t, sum/4, got.AverageMs, 1e-9)
	assert.False(t, got.End.Before(got.Start))
}

func TestMeasure_FitTimesOneCall(t *testing.T) {
	e := newEngine(t)
	m := loadModel(t, e, "mnist")

	for _, fn := range []Function{Fit, FitDataset} {
		t.Run(fn.String(), func(t *testing.T) {
			ms := &Measurer{Engine: e}
			before := e.Memory().NumTensors
			got, err := ms.Measure(context.Background(), m, fn, entry("4", 1, 3))
			require.NoError(t, err)

			assert.Equal(t, before, e.Memory().NumTensors)
			assert.Equal(t, 1, got.TimedCalls)
			assert.Nil(t, got.TimesMs)
			assert.InDelta(t, got.TotalTimeMs/3, got.AverageMs, 1e-9)
		})
	}
}

func TestMeasure_InvalidBatchSizeAllocatesNothing(t *testing.T) {
	e := newEngine(t)
	m := loadModel(t, e, "mnist")
	ms := &Measurer{Engine: e}

	before := e.Memory()
	for _, fn := range []Function{Predict, Fit, FitDataset} {
		_, err := ms.Measure(context.Background(), m, fn, entry("0", 1, 1))
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
	}
	_, err := ms.Measure(context.Background(), m, Predict, entry("2.5", 1, 1))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
	assert.Equal(t, before, e.Memory())
}

func TestMeasure_ReleasesOnFailure(t *testing.T) {
	e := newEngine(t)
	m := loadModel(t, e, "mnist")
	ms := &Measurer{Engine: e}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, fn := range []Function{Predict, Fit, FitDataset} {
		t.Run(fn.String(), func(t *testing.T) {
			before := e.Memory().NumTensors
			_, err := ms.Measure(ctx, m, fn, entry("4", 1, 2))
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, before, e.Memory().NumTensors)
		})
	}
}

func TestMeasure_Unknown(t *testing.T) {
	e := newEngine(t)
	m := loadModel(t, e, "mnist")
	ms := &Measurer{Engine: e}
	_, err := ms.Measure(context.Background(), m, Unknown, entry("4", 0, 1))
	assert.Error(t, err)
}

func TestInputs_TokenIDs(t *testing.T) {
	e := newEngine(t)
	m := loadModel(t, e, "text")

	src, err := tokenizer.NewTokenSource(byteEncoder{}, []string{"hello benchmark"})
	require.NoError(t, err)

	for _, in := range []Inputs{{}, {Tokens: src}} {
		x, err := in.Input(e, m, 3)
		require.NoError(t, err)
		ids, err := e.DataInt32(x)
		require.NoError(t, err)
		assert.Len(t, ids, 3*6)
		for _, id := range ids {
			assert.GreaterOrEqual(t, id, int32(0))
			assert.Less(t, id, int32(50))
		}
		e.Dispose(x)
	}
}

type byteEncoder struct{}

func (byteEncoder) Encode(text string) ([]int32, error) {
	out := make([]int32, len(text))
	for i := range text {
		out[i] = int32(text[i])
	}
	return out, nil
}

const mnistPredictLog = `{
  "environmentInfo": {"type": "browser"},
  "models": {
    "mnist": {"predict": {"batchSize": 32, "numWarmUpIterations": 2, "numBenchmarkedIterations": 5, "averageTimeMs": 10.2, "endingTimestampMs": 1000}}
  }
}`

func TestRun_MnistPredict(t *testing.T) {
	e := newEngine(t)
	store := newFakeStore()
	obs := &countingObserver{}
	r := NewRunner(e, store, testModels, WithObserver(obs))

	env := record.EnvironmentInfo{Type: "native", Hostname: "bench-1"}
	vs := record.VersionSet{FrameworkVersion: "dev"}
	res, err := r.Run(context.Background(), parseLog(t, mnistPredictLog), env, vs)
	require.NoError(t, err)
	assert.Equal(t, env, res.Environment)
	assert.Equal(t, vs, res.Versions)
	assert.Equal(t, store.env, res.Environment)
	assert.Equal(t, store.vs, res.Versions)

	require.Len(t, res.Runs, 1)
	run := res.Runs[0]
	assert.Len(t, run.TimesMs, 5)
	assert.Greater(t, run.AverageTimeMs, 0.0)
	assert.Equal(t, 10.2, run.ReferenceAverageTimeMs)
	assert.Equal(t, 32, run.BatchSize)
	assert.Equal(t, 2, run.NumWarmUpIterations)
	assert.Equal(t, 5, run.NumBenchmarkedIterations)
	assert.Equal(t, "mnist", run.ModelName)
	assert.Equal(t, "predict", run.FunctionName)
	assert.Equal(t, int64(7), run.EnvironmentInfoID)
	assert.Equal(t, int64(3), run.VersionSetID)
	assert.Equal(t, int64(100), run.TaskID)
	assert.NotEmpty(t, run.ID)

	assert.Equal(t, []string{"AddEnvironmentInfo", "AddVersionSet", "GetOrCreateTaskID", "AddBenchmarkRuns"}, store.methods())
	assert.Equal(t, store.runs, res.Runs)
	assert.Equal(t, 1, res.Context.ModelsDone)
	assert.Equal(t, 1, res.Context.PairsRun)
	assert.Equal(t, 5, obs.iterations)
	assert.Equal(t, 1, obs.runs)
	assert.Equal(t, 0, e.Memory().NumTensors)
}

func TestRun_InputLayerBeforeEmbedding(t *testing.T) {
	doc := `{"models": {"tokens": {
	  "predict": {"batchSize": 4, "numWarmUpIterations": 1, "numBenchmarkedIterations": 2, "endingTimestampMs": 10},
	  "fit": {"batchSize": 4, "numWarmUpIterations": 0, "numBenchmarkedIterations": 1, "endingTimestampMs": 20}
	}}}`
	e := newEngine(t)
	store := newFakeStore()
	r := NewRunner(e, store, testModels)

	res, err := r.Run(context.Background(), parseLog(t, doc), record.EnvironmentInfo{}, record.VersionSet{})
	require.NoError(t, err)
	require.Len(t, res.Runs, 2)
	assert.Equal(t, "predict", res.Runs[0].FunctionName)
	assert.Len(t, res.Runs[0].TimesMs, 2)
	assert.Equal(t, "fit", res.Runs[1].FunctionName)
	assert.Equal(t, 0, e.Memory().NumTensors)
}

func TestRun_MissingTaskBeforeStore(t *testing.T) {
	e := newEngine(t)
	store := newFakeStore()
	r := NewRunner(e, store, testModels)

	_, err := r.Run(context.Background(), parseLog(t, `{"models": {"mnist": {}}}`),
		record.EnvironmentInfo{}, record.VersionSet{})
	assert.ErrorIs(t, err, suitelog.ErrMissingTask)
	assert.Empty(t, store.calls)
}

func TestRun_InvalidBatchSizeBeforeStore(t *testing.T) {
	e := newEngine(t)
	store := newFakeStore()
	r := NewRunner(e, store, testModels)

	doc := strings.Replace(mnistPredictLog, `"batchSize": 32`, `"batchSize": -1`, 1)
	_, err := r.Run(context.Background(), parseLog(t, doc), record.EnvironmentInfo{}, record.VersionSet{})
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
	assert.Empty(t, store.calls)
	assert.Equal(t, 0, e.Memory().NumTensors)
}

func TestRun_OrderAndSkips(t *testing.T) {
	doc := `{"models": {
	  "text":  {"predict": {"batchSize": 2, "numWarmUpIterations": 0, "numBenchmarkedIterations": 1, "endingTimestampMs": 50}},
	  "mnist": {"evaluate": {"batchSize": 2, "numBenchmarkedIterations": 1, "endingTimestampMs": 10},
	            "fit": {"batchSize": 2, "numWarmUpIterations": 0, "numBenchmarkedIterations": 2, "endingTimestampMs": 20}}
	}}`
	e := newEngine(t)
	store := newFakeStore()
	r := NewRunner(e, store, testModels)

	res, err := r.Run(context.Background(), parseLog(t, doc), record.EnvironmentInfo{}, record.VersionSet{})
	require.NoError(t, err)

	require.Len(t, res.Runs, 2)
	assert.Equal(t, "mnist", res.Runs[0].ModelName)
	assert.Equal(t, "fit", res.Runs[0].FunctionName)
	assert.Nil(t, res.Runs[0].TimesMs)
	assert.Equal(t, "text", res.Runs[1].ModelName)
	assert.Equal(t, 1, res.Context.PairsSkipped)
	assert.Equal(t, 2, res.Context.PairsRun)
	assert.Len(t, store.tasks, 2)
	assert.Equal(t, 0, e.Memory().NumTensors)
}

func TestRun_BatchWriteFailure(t *testing.T) {
	e := newEngine(t)
	store := newFakeStore()
	store.failRun = errors.New("datastore unavailable")
	r := NewRunner(e, store, testModels)

	_, err := r.Run(context.Background(), parseLog(t, mnistPredictLog), record.EnvironmentInfo{}, record.VersionSet{})
	assert.ErrorIs(t, err, store.failRun)
	assert.Empty(t, store.runs)
}

func TestRun_LoadFailure(t *testing.T) {
	e := newEngine(t)
	store := newFakeStore()
	r := NewRunner(e, store, memModels{})

	_, err := r.Run(context.Background(), parseLog(t, mnistPredictLog), record.EnvironmentInfo{}, record.VersionSet{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mnist")
	assert.NotContains(t, store.methods(), "AddBenchmarkRuns")
}

func TestToSuiteLog(t *testing.T) {
	runs := []record.BenchmarkRun{
		{ModelName: "mnist", FunctionName: "predict", BatchSize: 32, NumBenchmarkedIterations: 2,
			AverageTimeMs: 1.5, TimesMs: []float64{1, 2}, EndingTimestampMs: 20},
		{ModelName: "mnist", FunctionName: "fit", BatchSize: 32, NumBenchmarkedIterations: 1, EndingTimestampMs: 30},
	}
	l := ToSuiteLog(runs, record.EnvironmentInfo{Type: "native"}, record.VersionSet{HarnessVersion: "dev"})

	require.NoError(t, l.Validate())
	fns, ok := l.Functions("mnist")
	require.True(t, ok)
	assert.Equal(t, 2, fns.Len())
	p, _ := fns.Get("predict")
	n, err := ValidateBatchSize(p.BatchSize)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	assert.Equal(t, []float64{1, 2}, p.TimesMs)
	assert.Equal(t, "native", l.EnvironmentInfo.Type)
}
