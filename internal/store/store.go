// Package store persists benchmark results in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/born-ml/benchmarks/internal/record"
)

// DefaultSQLitePath is used when no connection string is configured.
const DefaultSQLitePath = ".born-bench.db"

// Config selects the storage backend.
type Config struct {
	Type             string `mapstructure:"type"` // "sqlite" or "postgres"
	ConnectionString string `mapstructure:"dsn"`  // File path for SQLite, DSN for Postgres
}

// Store is a SQL-backed benchmark datastore.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open creates a Store for cfg and applies migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "postgres", "postgresql":
		if cfg.ConnectionString == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return open(ctx, "postgres", cfg.ConnectionString, postgres)
	case "sqlite", "sqlite3", "":
		if cfg.ConnectionString == "" {
			cfg.ConnectionString = DefaultSQLitePath
		}
		return open(ctx, "sqlite", cfg.ConnectionString, sqlite)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

func open(ctx context.Context, driver, dsn string, d dialect) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.name == sqlite.name {
		// A single connection keeps :memory: databases shared and serialises writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddEnvironmentInfo stores info unless an identical row exists and returns its id.
func (s *Store) AddEnvironmentInfo(ctx context.Context, info record.EnvironmentInfo) (int64, error) {
	payload, err := json.Marshal(info)
	if err != nil {
		return 0, err
	}
	return s.upsertFingerprint(ctx, "environment_info", info.Fingerprint(), string(payload))
}

// AddVersionSet stores vs unless an identical row exists and returns its id.
func (s *Store) AddVersionSet(ctx context.Context, vs record.VersionSet) (int64, error) {
	payload, err := json.Marshal(vs)
	if err != nil {
		return 0, err
	}
	return s.upsertFingerprint(ctx, "version_sets", vs.Fingerprint(), string(payload))
}

func (s *Store) upsertFingerprint(ctx context.Context, table, fingerprint, payload string) (int64, error) {
	insert := s.dialect.rebind(`INSERT INTO ` + table + ` (fingerprint, payload) VALUES (?, ?) ON CONFLICT (fingerprint) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, insert, fingerprint, payload); err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}

	var id int64
	query := s.dialect.rebind(`SELECT id FROM ` + table + ` WHERE fingerprint = ?`)
	if err := s.db.QueryRowContext(ctx, query, fingerprint).Scan(&id); err != nil {
		return 0, fmt.Errorf("select %s: %w", table, err)
	}
	return id, nil
}

// GetOrCreateTaskID returns the id of the (taskType, modelName, functionName)
// task, creating it on first use.
func (s *Store) GetOrCreateTaskID(ctx context.Context, taskType, modelName, functionName string) (int64, error) {
	insert := s.dialect.rebind(`INSERT INTO tasks (task_type, model_name, function_name) VALUES (?, ?, ?)
		ON CONFLICT (task_type, model_name, function_name) DO NOTHING`)
	if _, err := s.db.ExecContext(ctx, insert, taskType, modelName, functionName); err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	var id int64
	query := s.dialect.rebind(`SELECT id FROM tasks WHERE task_type = ? AND model_name = ? AND function_name = ?`)
	if err := s.db.QueryRowContext(ctx, query, taskType, modelName, functionName).Scan(&id); err != nil {
		return 0, fmt.Errorf("select task: %w", err)
	}
	return id, nil
}

// Tasks lists every known task.
func (s *Store) Tasks(ctx context.Context) ([]record.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_type, model_name, function_name FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []record.Task
	for rows.Next() {
		var t record.Task
		if err := rows.Scan(&t.ID, &t.TaskType, &t.ModelName, &t.FunctionName); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
