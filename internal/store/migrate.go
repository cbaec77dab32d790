package store

import (
	"context"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	serial := s.dialect.serial
	queries := []string{
		`CREATE TABLE IF NOT EXISTS environment_info (
			id ` + serial + `,
			fingerprint TEXT NOT NULL UNIQUE,
			payload TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS version_sets (
			id ` + serial + `,
			fingerprint TEXT NOT NULL UNIQUE,
			payload TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id ` + serial + `,
			task_type TEXT NOT NULL,
			model_name TEXT NOT NULL,
			function_name TEXT NOT NULL,
			UNIQUE (task_type, model_name, function_name)
		)`,
		`CREATE TABLE IF NOT EXISTS benchmark_runs (
			id TEXT PRIMARY KEY,
			task_id BIGINT NOT NULL REFERENCES tasks(id),
			version_set_id BIGINT NOT NULL REFERENCES version_sets(id),
			environment_info_id BIGINT NOT NULL REFERENCES environment_info(id),
			batch_size INTEGER NOT NULL,
			num_warm_up_iterations INTEGER NOT NULL,
			num_benchmarked_iterations INTEGER NOT NULL,
			average_time_ms DOUBLE PRECISION NOT NULL,
			times_ms TEXT,
			total_time_ms DOUBLE PRECISION NOT NULL,
			start_ts BIGINT NOT NULL,
			ending_timestamp_ms BIGINT NOT NULL,
			reference_average_time_ms DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_benchmark_runs_task ON benchmark_runs (task_id, ending_timestamp_ms)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
