// Package suitelog loads, validates and orders reference benchmark logs.
//
// A suite log records a previous (reference) run: for every model, the
// timing of each benchmarked function, plus the environment the reference
// ran in. Model and function order in the document is preserved because it
// is the tie-break for chronological replay.
package suitelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/born-ml/benchmarks/internal/fetch"
	"github.com/born-ml/benchmarks/internal/record"
)

// ErrMissingTask is returned when a model has no recorded functions.
var ErrMissingTask = errors.New("missing task")

// Re-exported so callers can match load failures without importing fetch.
var (
	ErrFetch = fetch.ErrFetch
	ErrParse = fetch.ErrParse
)

// Entry is the reference timing of one (model, function) pair.
type Entry struct {
	BatchSize                json.Number `json:"batchSize"`
	NumWarmUpIterations      int         `json:"numWarmUpIterations"`
	NumBenchmarkedIterations int         `json:"numBenchmarkedIterations"`
	AverageTimeMs            float64     `json:"averageTimeMs"`
	TimesMs                  []float64   `json:"timesMs,omitempty"`
	TotalTimeMs              float64     `json:"totalTimeMs,omitempty"`
	StartTs                  float64     `json:"startTs,omitempty"`
	EndingTimestampMs        float64     `json:"endingTimestampMs"`
}

// Functions maps function names to entries in document order.
type Functions = orderedmap.OrderedMap[string, Entry]

// Models maps model names to their functions in document order.
type Models = orderedmap.OrderedMap[string, *Functions]

// Log is a parsed suite log. It is not modified after loading.
type Log struct {
	EnvironmentInfo record.EnvironmentInfo `json:"environmentInfo"`
	VersionSet      *record.VersionSet     `json:"versionSet,omitempty"`
	Models          *Models                `json:"models"`
}

// New returns an empty log.
func New() *Log {
	return &Log{Models: orderedmap.New[string, *Functions]()}
}

// Load fetches and parses a suite log with a single GET. There are no retries.
func Load(ctx context.Context, client *http.Client, url string) (*Log, error) {
	body, err := fetch.Get(ctx, client, url)
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

// LoadFile reads a suite log from disk.
func LoadFile(path string) (*Log, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return Parse(body)
}

// Parse decodes a suite log document.
func Parse(data []byte) (*Log, error) {
	l := New()
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("%w: suite log: %w", ErrParse, err)
	}
	if l.Models == nil {
		l.Models = orderedmap.New[string, *Functions]()
	}
	for p := l.Models.Oldest(); p != nil; p = p.Next() {
		if p.Value == nil {
			p.Value = orderedmap.New[string, Entry]()
		}
	}
	return l, nil
}

// Write encodes the log as indented JSON.
func (l *Log) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

// Add records an entry, creating the model on first use.
func (l *Log) Add(model, function string, e Entry) {
	fns, ok := l.Models.Get(model)
	if !ok {
		fns = orderedmap.New[string, Entry]()
		l.Models.Set(model, fns)
	}
	fns.Set(function, e)
}

// ModelNames returns model names in document order.
func (l *Log) ModelNames() []string {
	names := make([]string, 0, l.Models.Len())
	for p := l.Models.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	return names
}

// Functions returns the functions recorded for a model.
func (l *Log) Functions(model string) (*Functions, bool) {
	return l.Models.Get(model)
}

// Validate checks that every model has at least one function entry.
func (l *Log) Validate() error {
	for p := l.Models.Oldest(); p != nil; p = p.Next() {
		if p.Value.Len() == 0 {
			return fmt.Errorf("%w: model %q has no recorded functions", ErrMissingTask, p.Key)
		}
	}
	return nil
}

// FromRun converts a measured run into a suite log entry.
func FromRun(r record.BenchmarkRun) Entry {
	return Entry{
		BatchSize:                json.Number(fmt.Sprint(r.BatchSize)),
		NumWarmUpIterations:      r.NumWarmUpIterations,
		NumBenchmarkedIterations: r.NumBenchmarkedIterations,
		AverageTimeMs:            r.AverageTimeMs,
		TimesMs:                  r.TimesMs,
		TotalTimeMs:              r.TotalTimeMs,
		StartTs:                  float64(r.StartTs),
		EndingTimestampMs:        float64(r.EndingTimestampMs),
	}
}

// ModelURL returns the topology URL of a model: <modelsBase>/<model>/model.json
// when modelsBase is set, otherwise models/<model>/model.json relative to the
// suite log URL.
func ModelURL(suiteURL, modelsBase, model string) (string, error) {
	if modelsBase != "" {
		if modelsBase[len(modelsBase)-1] != '/' {
			modelsBase += "/"
		}
		return fetch.Resolve(modelsBase, model+"/model.json")
	}
	return fetch.Resolve(suiteURL, "models/"+model+"/model.json")
}
