// Package cpu implements the native CPU execution backend.
//
// Compute functions operate on host float32/int32 buffers and allocate their
// outputs through a kernels.Allocator so the engine can track them. The
// kernel adapters in kernels.go expose each function under the kernel
// dispatch contract.
package cpu

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/parallel"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Name is the backend name used for kernel registration.
const Name = "cpu"

// Backend implements tensor operations on the CPU.
type Backend struct {
	par parallel.Config
}

// New creates a CPU backend. threads <= 0 uses one worker per CPU.
func New(threads int) *Backend {
	return &Backend{par: parallel.DefaultConfig().WithWorkers(threads)}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return Name
}

// Workers returns the number of worker goroutines kernels may use.
func (b *Backend) Workers() int {
	if !b.par.Enabled {
		return 1
	}
	return b.par.NumWorkers
}

func requireFloat(op string, ts ...*tensor.Tensor) error {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			return fmt.Errorf("%s: unsupported dtype %s (only float32 supported)", op, t.DType())
		}
	}
	return nil
}

func requireInt(op string, t *tensor.Tensor) error {
	if t.DType() != tensor.Int32 {
		return fmt.Errorf("%s: indices must be int32, got %s", op, t.DType())
	}
	return nil
}

// normalizeAxis maps a negative axis to its positive equivalent.
func normalizeAxis(op string, axis, rank int) (int, error) {
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return 0, fmt.Errorf("%s: axis out of range for tensor of rank %d", op, rank)
	}
	return axis, nil
}

func shapeErr(op string, a, b tensor.Shape) error {
	return fmt.Errorf("%w: %s %v vs %v", tensor.ErrShapeMismatch, op, a, b)
}
