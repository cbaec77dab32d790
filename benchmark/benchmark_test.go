// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package benchmark_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/benchmarks/benchmark"
)

const suiteDir = "../testdata/suite"

func openStore(t *testing.T) *benchmark.Store {
	t.Helper()
	st, err := benchmark.OpenStore(context.Background(), benchmark.StoreConfig{Type: "sqlite", ConnectionString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOrder(t *testing.T) {
	l, err := benchmark.LoadSuite(context.Background(), benchmark.Options{SuiteFile: suiteDir + "/suite_log.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mnist", "text"}, benchmark.Order(l))
}

func TestRun_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.StripPrefix("/suite/", http.FileServer(http.Dir(suiteDir))))
	defer srv.Close()

	st := openStore(t)
	ctx := context.Background()
	res, err := benchmark.Run(ctx, benchmark.Options{
		SuiteURL:   srv.URL + "/suite/suite_log.json",
		Threads:    2,
		HTTPClient: srv.Client(),
		Store:      st,
	})
	require.NoError(t, err)

	require.Len(t, res.Runs, 3)
	assert.Equal(t, "mnist", res.Runs[0].ModelName)
	assert.Equal(t, "predict", res.Runs[0].FunctionName)
	assert.Len(t, res.Runs[0].TimesMs, 5)
	assert.Equal(t, "fit", res.Runs[1].FunctionName)
	assert.Nil(t, res.Runs[1].TimesMs)
	assert.Equal(t, "text", res.Runs[2].ModelName)
	assert.Len(t, res.Runs[2].TimesMs, 3)

	stored, err := st.ListRuns(ctx, benchmark.RunFilter{ModelName: "mnist"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRun_FromDisk(t *testing.T) {
	st := openStore(t)
	res, err := benchmark.Run(context.Background(), benchmark.Options{
		SuiteFile: suiteDir + "/suite_log.json",
		ModelsDir: suiteDir + "/models",
		Store:     st,
	})
	require.NoError(t, err)
	assert.Len(t, res.Runs, 3)

	exported := benchmark.ToSuiteLog(res.Runs, benchmark.EnvironmentInfo{Type: "native"}, benchmark.VersionSet{})
	require.NoError(t, exported.Validate())
	assert.Equal(t, []string{"mnist", "text"}, benchmark.Order(exported))
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := benchmark.Run(ctx, benchmark.Options{SuiteFile: suiteDir + "/suite_log.json"})
	assert.Error(t, err)

	_, err = benchmark.Run(ctx, benchmark.Options{SuiteFile: suiteDir + "/missing.json", Store: openStore(t)})
	assert.ErrorIs(t, err, benchmark.ErrFetch)
}
