// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package benchmark provides the public API of the Born benchmark harness.
//
// The harness replays a reference suite log against the native engine: it
// loads every model named in the log, times predict and fit calls the way
// the reference did, and writes the results to a datastore.
//
// Example usage:
//
//	import "github.com/born-ml/benchmarks/benchmark"
//
//	st, err := benchmark.OpenStore(ctx, benchmark.StoreConfig{Type: "sqlite", ConnectionString: "bench.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
//	res, err := benchmark.Run(ctx, benchmark.Options{
//	    SuiteURL: "http://localhost:8080/suite/suite_log.json",
//	    Store:    st,
//	})
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/born-ml/benchmarks/internal/benchmark"
	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/envinfo"
	"github.com/born-ml/benchmarks/internal/record"
	"github.com/born-ml/benchmarks/internal/store"
	"github.com/born-ml/benchmarks/internal/suitelog"
	"github.com/born-ml/benchmarks/internal/tokenizer"
)

// Core types.
type (
	// SuiteLog is a parsed reference log.
	SuiteLog = suitelog.Log
	// BenchmarkRun is one persisted timing record.
	BenchmarkRun = record.BenchmarkRun
	// EnvironmentInfo describes where a run executed.
	EnvironmentInfo = record.EnvironmentInfo
	// VersionSet records the versions active during a run.
	VersionSet = record.VersionSet
	// Datastore persists results through four calls.
	Datastore = benchmark.Datastore
	// Observer receives timings while a run progresses.
	Observer = benchmark.Observer
	// Function is a benchmarked model function.
	Function = benchmark.Function
	// Result is the outcome of Run.
	Result = benchmark.Result
	// Store is the SQL datastore.
	Store = store.Store
	// StoreConfig selects the SQL backend.
	StoreConfig = store.Config
	// RunFilter narrows Store.ListRuns.
	RunFilter = store.RunFilter
)

// Benchmarked functions.
const (
	Unknown    = benchmark.Unknown
	Predict    = benchmark.Predict
	Fit        = benchmark.Fit
	FitDataset = benchmark.FitDataset
)

// Errors returned by the harness.
var (
	ErrInvalidBatchSize  = benchmark.ErrInvalidBatchSize
	ErrInvalidIterations = benchmark.ErrInvalidIterations
	ErrMissingTask       = suitelog.ErrMissingTask
	ErrFetch             = suitelog.ErrFetch
	ErrParse             = suitelog.ErrParse
)

// Options configures Run.
type Options struct {
	// SuiteURL is fetched with a single GET unless SuiteFile is set.
	SuiteURL  string
	SuiteFile string
	// ModelsURL overrides the models/ directory next to SuiteURL.
	ModelsURL string
	// ModelsDir loads topologies from disk instead of over HTTP.
	ModelsDir string

	// Threads bounds kernel parallelism; 0 uses every CPU.
	Threads int
	Seed    int64
	// Tokenizer names a tiktoken encoding for token-id inputs. Empty or
	// unavailable encodings fall back to uniform random ids.
	Tokenizer string
	TaskType  string

	Store      Datastore
	Observer   Observer
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// OpenStore opens a SQL datastore and applies migrations.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	return store.Open(ctx, cfg)
}

// LoadSuite loads the suite log named by opts.
func LoadSuite(ctx context.Context, opts Options) (*SuiteLog, error) {
	if opts.SuiteFile != "" {
		return suitelog.LoadFile(opts.SuiteFile)
	}
	if opts.SuiteURL == "" {
		return nil, errors.New("no suite log URL or file given")
	}
	return suitelog.Load(ctx, httpClient(opts), opts.SuiteURL)
}

// Order returns the models of l in replay order.
func Order(l *SuiteLog) []string {
	return suitelog.Order(l)
}

// Run loads the suite log and replays it on a fresh CPU engine.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Store == nil {
		return nil, errors.New("no datastore configured")
	}
	log, err := LoadSuite(ctx, opts)
	if err != nil {
		return nil, err
	}
	return Replay(ctx, log, opts)
}

// Replay runs an already loaded suite log.
func Replay(ctx context.Context, log *SuiteLog, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}

	e, err := engine.NewCPU(opts.Threads, engine.WithSeed(seed), engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	runOpts := []benchmark.Option{
		benchmark.WithLogger(logger),
		benchmark.WithInputs(benchmark.Inputs{Tokens: tokenSource(opts.Tokenizer, logger)}),
	}
	if opts.Observer != nil {
		runOpts = append(runOpts, benchmark.WithObserver(opts.Observer))
	}
	if opts.TaskType != "" {
		runOpts = append(runOpts, benchmark.WithTaskType(opts.TaskType))
	}

	r := benchmark.NewRunner(e, opts.Store, modelSource(opts), runOpts...)
	return r.Run(ctx, log, envinfo.Collect(ctx, e.Backend(), opts.Threads), envinfo.Versions())
}

// ToSuiteLog converts measured runs into a suite log that can serve as a
// reference for later runs.
func ToSuiteLog(runs []BenchmarkRun, env EnvironmentInfo, vs VersionSet) *SuiteLog {
	return benchmark.ToSuiteLog(runs, env, vs)
}

func modelSource(opts Options) benchmark.ModelSource {
	if opts.ModelsDir != "" {
		return benchmark.DirModels{Dir: opts.ModelsDir}
	}
	return benchmark.HTTPModels{Client: httpClient(opts), SuiteURL: opts.SuiteURL, BaseURL: opts.ModelsURL}
}

func httpClient(opts Options) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}
	return http.DefaultClient
}

func tokenSource(encoding string, logger *slog.Logger) *tokenizer.TokenSource {
	if encoding == "" {
		return nil
	}
	enc, err := tokenizer.NewTikToken(encoding)
	if err != nil {
		logger.Warn("tokenizer unavailable, using random token ids", "encoding", encoding, "error", err)
		return nil
	}
	src, err := tokenizer.NewTokenSource(enc, tokenizer.DefaultCorpus)
	if err != nil {
		logger.Warn("tokenizer corpus unusable, using random token ids", "error", err)
		return nil
	}
	return src
}
