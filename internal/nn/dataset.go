package nn

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Dataset yields (x, y) training batches.
type Dataset interface {
	NumBatches() int
	Batch(i int) (x, y *tensor.Tensor)
}

// TensorDataset is an in-memory Dataset of pre-built batches.
type TensorDataset struct {
	xs []*tensor.Tensor
	ys []*tensor.Tensor
}

// NewTensorDataset pairs input and target batches.
func NewTensorDataset(xs, ys []*tensor.Tensor) (*TensorDataset, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("dataset: %d input batches but %d target batches", len(xs), len(ys))
	}
	for i := range xs {
		if xs[i].Shape()[0] != ys[i].Shape()[0] {
			return nil, fmt.Errorf("%w: dataset batch %d has %d inputs and %d targets",
				tensor.ErrShapeMismatch, i, xs[i].Shape()[0], ys[i].Shape()[0])
		}
	}
	return &TensorDataset{xs: xs, ys: ys}, nil
}

// NumBatches returns the number of batches.
func (d *TensorDataset) NumBatches() int { return len(d.xs) }

// Batch returns batch i.
func (d *TensorDataset) Batch(i int) (*tensor.Tensor, *tensor.Tensor) { return d.xs[i], d.ys[i] }

// Dispose releases every batch.
func (d *TensorDataset) Dispose(e *engine.Engine) {
	e.Dispose(d.xs...)
	e.Dispose(d.ys...)
}
