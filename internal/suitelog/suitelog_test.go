package suitelog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{
  "environmentInfo": {"type": "browser", "userAgent": "Mozilla/5.0"},
  "versionSet": {"frameworkVersion": "0.7.0", "harnessVersion": "1", "goVersion": ""},
  "models": {
    "text":  {"predict": {"batchSize": 4, "numWarmUpIterations": 1, "numBenchmarkedIterations": 3, "averageTimeMs": 1.5, "endingTimestampMs": 300}},
    "mnist": {"predict": {"batchSize": 32, "numWarmUpIterations": 2, "numBenchmarkedIterations": 5, "averageTimeMs": 10.2, "endingTimestampMs": 100},
              "fit":     {"batchSize": 32, "numWarmUpIterations": 1, "numBenchmarkedIterations": 2, "averageTimeMs": 40, "endingTimestampMs": 900}},
    "tie":   {"fit": {"batchSize": 8, "numWarmUpIterations": 0, "numBenchmarkedIterations": 1, "averageTimeMs": 2, "endingTimestampMs": 100}}
  }
}`

func TestParsePreservesOrder(t *testing.T) {
	l, err := Parse([]byte(sampleLog))
	require.NoError(t, err)

	assert.Equal(t, []string{"text", "mnist", "tie"}, l.ModelNames())
	assert.Equal(t, "browser", l.EnvironmentInfo.Type)
	require.NotNil(t, l.VersionSet)
	assert.Equal(t, "0.7.0", l.VersionSet.FrameworkVersion)

	fns, ok := l.Functions("mnist")
	require.True(t, ok)
	first := fns.Oldest()
	require.NotNil(t, first)
	assert.Equal(t, "predict", first.Key)
	assert.Equal(t, "32", first.Value.BatchSize.String())
	assert.Equal(t, 5, first.Value.NumBenchmarkedIterations)
	assert.Equal(t, "fit", first.Next().Key)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"models": [`))
	assert.ErrorIs(t, err, ErrParse)
}

func TestOrder(t *testing.T) {
	l, err := Parse([]byte(sampleLog))
	require.NoError(t, err)

	// mnist and tie share timestamp 100; mnist comes first in the document.
	got := Order(l)
	if diff := cmp.Diff([]string{"mnist", "tie", "text"}, got); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderIsPermutation(t *testing.T) {
	l := New()
	ends := map[string]float64{"a": 5, "b": 1, "c": 3, "d": 1, "e": 9}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		l.Add(name, "predict", Entry{EndingTimestampMs: ends[name]})
	}

	got := Order(l)
	assert.ElementsMatch(t, l.ModelNames(), got)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, ends[got[i-1]], ends[got[i]])
	}
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, got)
}

func TestOrderSkipsEmptyModels(t *testing.T) {
	l, err := Parse([]byte(`{"models": {"empty": {}, "one": {"predict": {"batchSize": 1, "endingTimestampMs": 4}}}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, Order(l))
}

func TestValidate(t *testing.T) {
	l, err := Parse([]byte(sampleLog))
	require.NoError(t, err)
	require.NoError(t, l.Validate())

	l, err = Parse([]byte(`{"models": {"mnist": {}}}`))
	require.NoError(t, err)
	err = l.Validate()
	assert.ErrorIs(t, err, ErrMissingTask)
	assert.Contains(t, err.Error(), "mnist")
}

func TestLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/suite/suite_log.json":
			_, _ = w.Write([]byte(sampleLog))
		case "/suite/broken.json":
			_, _ = w.Write([]byte("not json"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	l, err := Load(ctx, srv.Client(), srv.URL+"/suite/suite_log.json")
	require.NoError(t, err)
	assert.Equal(t, 3, l.Models.Len())

	_, err = Load(ctx, srv.Client(), srv.URL+"/suite/missing.json")
	assert.ErrorIs(t, err, ErrFetch)

	_, err = Load(ctx, srv.Client(), srv.URL+"/suite/broken.json")
	assert.ErrorIs(t, err, ErrParse)
}

func TestLoadFileAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite_log.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o600))

	l, err := LoadFile(path)
	require.NoError(t, err)

	out, err := os.Create(filepath.Join(dir, "copy.json"))
	require.NoError(t, err)
	require.NoError(t, l.Write(out))
	require.NoError(t, out.Close())

	again, err := LoadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, l.ModelNames(), again.ModelNames())
	assert.Equal(t, Order(l), Order(again))

	_, err = LoadFile(filepath.Join(dir, "nope.json"))
	assert.ErrorIs(t, err, ErrFetch)
}

func TestModelURL(t *testing.T) {
	u, err := ModelURL("http://localhost:8080/suite/suite_log.json", "", "mnist")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/suite/models/mnist/model.json", u)

	u, err = ModelURL("http://localhost:8080/suite/suite_log.json", "https://cdn.example.com/models", "mnist")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/models/mnist/model.json", u)
}
