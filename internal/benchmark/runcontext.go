package benchmark

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/benchmarks/internal/engine"
)

// RunContext carries the state of one pipeline execution through each step.
type RunContext struct {
	ID     string
	Start  time.Time
	Logger *slog.Logger
	Engine *engine.Engine

	EnvironmentInfoID int64
	VersionSetID      int64

	ModelsDone   int
	PairsRun     int
	PairsSkipped int
}

func newRunContext(e *engine.Engine, logger *slog.Logger, now time.Time) *RunContext {
	id := ""
	if u, err := uuid.NewV7(); err == nil {
		id = u.String()
	} else {
		id = uuid.NewString()
	}
	return &RunContext{
		ID:     id,
		Start:  now,
		Logger: logger.With("run", id),
		Engine: e,
	}
}
