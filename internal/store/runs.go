package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/benchmarks/internal/record"
)

// ErrUnreferenced is returned for runs without task or environment ids.
var ErrUnreferenced = errors.New("benchmark run has no task or environment id")

const runColumns = `id, task_id, version_set_id, environment_info_id, batch_size,
	num_warm_up_iterations, num_benchmarked_iterations, average_time_ms, times_ms,
	total_time_ms, start_ts, ending_timestamp_ms, reference_average_time_ms`

const numRunColumns = 13

// maxRowsPerInsert keeps a statement under SQLite's bound parameter limit.
const maxRowsPerInsert = 500

// AddBenchmarkRuns inserts runs with multi-row INSERT statements inside one
// transaction.
func (s *Store) AddBenchmarkRuns(ctx context.Context, runs []record.BenchmarkRun) error {
	if len(runs) == 0 {
		return nil
	}
	for i, r := range runs {
		if r.TaskID == 0 || r.EnvironmentInfoID == 0 {
			return fmt.Errorf("%w: run %d (%s/%s)", ErrUnreferenced, i, r.ModelName, r.FunctionName)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for start := 0; start < len(runs); start += maxRowsPerInsert {
		chunk := runs[start:min(start+maxRowsPerInsert, len(runs))]
		query, args, err := s.insertRuns(chunk)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert benchmark runs: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) insertRuns(runs []record.BenchmarkRun) (string, []any, error) {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", numRunColumns), ", ") + ")"
	rows := make([]string, len(runs))
	args := make([]any, 0, len(runs)*numRunColumns)
	for i, r := range runs {
		var times any
		if r.TimesMs != nil {
			b, err := json.Marshal(r.TimesMs)
			if err != nil {
				return "", nil, err
			}
			times = string(b)
		}
		rows[i] = row
		args = append(args, r.ID, r.TaskID, r.VersionSetID, r.EnvironmentInfoID, r.BatchSize,
			r.NumWarmUpIterations, r.NumBenchmarkedIterations, r.AverageTimeMs, times,
			r.TotalTimeMs, r.StartTs, r.EndingTimestampMs, r.ReferenceAverageTimeMs)
	}
	query := `INSERT INTO benchmark_runs (` + runColumns + `) VALUES ` + strings.Join(rows, ", ")
	return s.dialect.rebind(query), args, nil
}

// RunFilter narrows ListRuns. Empty fields match everything.
type RunFilter struct {
	ModelName    string
	FunctionName string
	Limit        int
}

// ListRuns returns stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context, f RunFilter) ([]record.BenchmarkRun, error) {
	var (
		where []string
		args  []any
	)
	if f.ModelName != "" {
		where = append(where, "t.model_name = ?")
		args = append(args, f.ModelName)
	}
	if f.FunctionName != "" {
		where = append(where, "t.function_name = ?")
		args = append(args, f.FunctionName)
	}

	query := `SELECT r.id, r.task_id, r.version_set_id, r.environment_info_id, t.model_name, t.function_name,
		r.batch_size, r.num_warm_up_iterations, r.num_benchmarked_iterations, r.average_time_ms,
		r.times_ms, r.total_time_ms, r.start_ts, r.ending_timestamp_ms, r.reference_average_time_ms
		FROM benchmark_runs r JOIN tasks t ON t.id = r.task_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.ending_timestamp_ms DESC, r.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []record.BenchmarkRun
	for rows.Next() {
		var (
			r     record.BenchmarkRun
			times *string
			ref   *float64
		)
		if err := rows.Scan(&r.ID, &r.TaskID, &r.VersionSetID, &r.EnvironmentInfoID, &r.ModelName, &r.FunctionName,
			&r.BatchSize, &r.NumWarmUpIterations, &r.NumBenchmarkedIterations, &r.AverageTimeMs,
			&times, &r.TotalTimeMs, &r.StartTs, &r.EndingTimestampMs, &ref); err != nil {
			return nil, err
		}
		if times != nil && *times != "" {
			if err := json.Unmarshal([]byte(*times), &r.TimesMs); err != nil {
				return nil, fmt.Errorf("run %s: times_ms: %w", r.ID, err)
			}
		}
		if ref != nil {
			r.ReferenceAverageTimeMs = *ref
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
