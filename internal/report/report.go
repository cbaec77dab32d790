// Package report summarises measured runs against their reference timings.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/benchmarks/internal/record"
)

// Row holds the statistics of one (model, function) record.
type Row struct {
	Model       string  `json:"model"`
	Function    string  `json:"function"`
	BatchSize   int     `json:"batchSize"`
	Iterations  int     `json:"iterations"`
	MeanMs      float64 `json:"meanMs"`
	StdDevMs    float64 `json:"stdDevMs"`
	P50Ms       float64 `json:"p50Ms"`
	P95Ms       float64 `json:"p95Ms"`
	ReferenceMs float64 `json:"referenceMs,omitempty"`
	// Ratio is MeanMs / ReferenceMs; 0 when there is no reference.
	Ratio float64 `json:"ratio,omitempty"`
}

// Report is the summary of one run.
type Report struct {
	RunID       string                 `json:"runId"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment record.EnvironmentInfo `json:"environment"`
	Rows        []Row                  `json:"rows"`
}

// New computes a report from runs.
func New(runID string, env record.EnvironmentInfo, runs []record.BenchmarkRun) *Report {
	r := &Report{RunID: runID, Timestamp: time.Now(), Environment: env}
	for _, run := range runs {
		r.Rows = append(r.Rows, NewRow(run))
	}
	return r
}

// NewRow computes the statistics of one run. Runs without per-iteration
// timings (fit) report their average with zero spread.
func NewRow(run record.BenchmarkRun) Row {
	row := Row{
		Model:       run.ModelName,
		Function:    run.FunctionName,
		BatchSize:   run.BatchSize,
		Iterations:  run.NumBenchmarkedIterations,
		MeanMs:      run.AverageTimeMs,
		P50Ms:       run.AverageTimeMs,
		P95Ms:       run.AverageTimeMs,
		ReferenceMs: run.ReferenceAverageTimeMs,
	}
	if len(run.TimesMs) > 0 {
		sorted := append([]float64(nil), run.TimesMs...)
		sort.Float64s(sorted)
		row.MeanMs = stat.Mean(sorted, nil)
		if len(sorted) > 1 {
			row.StdDevMs = stat.StdDev(sorted, nil)
		}
		row.P50Ms = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		row.P95Ms = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}
	if row.ReferenceMs > 0 {
		row.Ratio = row.MeanMs / row.ReferenceMs
	}
	return row
}

// Table renders the report as a console table.
func (r *Report) Table(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"MODEL", "FUNCTION", "BATCH", "ITERS", "MEAN MS", "STDDEV", "P50", "P95", "REFERENCE MS", "RATIO"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	for _, row := range r.Rows {
		ref, ratio := "-", "-"
		if row.ReferenceMs > 0 {
			ref = fmt.Sprintf("%.3f", row.ReferenceMs)
			ratio = fmt.Sprintf("%.2fx", row.Ratio)
		}
		table.Append([]string{
			row.Model,
			row.Function,
			fmt.Sprint(row.BatchSize),
			fmt.Sprint(row.Iterations),
			fmt.Sprintf("%.3f", row.MeanMs),
			fmt.Sprintf("%.3f", row.StdDevMs),
			fmt.Sprintf("%.3f", row.P50Ms),
			fmt.Sprintf("%.3f", row.P95Ms),
			ref,
			ratio,
		})
	}
	table.Render()
}

// Summary returns a short plain-text summary suitable for chat notifications.
func (r *Report) Summary() string {
	s := fmt.Sprintf("born-bench run %s on %s/%s (%s): %d records", r.RunID,
		r.Environment.OS, r.Environment.Arch, r.Environment.CPUModel, len(r.Rows))
	for _, row := range r.Rows {
		s += fmt.Sprintf("\n• %s/%s: %.2f ms", row.Model, row.Function, row.MeanMs)
		if row.ReferenceMs > 0 {
			s += fmt.Sprintf(" (%.2fx reference)", row.Ratio)
		}
	}
	return s
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// SaveJSON writes the report to path.
func (r *Report) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
