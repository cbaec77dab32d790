package nn

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Loss computes a scalar loss and its gradient with respect to the prediction.
type Loss interface {
	Name() string
	Compute(e *engine.Engine, pred, target *tensor.Tensor) (value, grad *tensor.Tensor, err error)
}

// ParseLoss maps a layers-model loss name to a Loss.
func ParseLoss(name string) (Loss, error) {
	switch name {
	case "meanSquaredError", "mean_squared_error", "mse":
		return MeanSquaredError{}, nil
	case "categoricalCrossentropy", "categorical_crossentropy":
		return CategoricalCrossentropy{}, nil
	default:
		return nil, fmt.Errorf("%w: loss %q", ErrUnknownLayer, name)
	}
}

// MeanSquaredError is mean((pred - target)²) over all elements.
type MeanSquaredError struct{}

// Name returns the loss name.
func (MeanSquaredError) Name() string { return "meanSquaredError" }

// Compute returns the loss and 2 * (pred - target) / N.
func (MeanSquaredError) Compute(e *engine.Engine, pred, target *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	if !pred.Shape().Equal(target.Shape()) {
		return nil, nil, fmt.Errorf("%w: mse prediction %v vs target %v", tensor.ErrShapeMismatch, pred.Shape(), target.Shape())
	}
	n := float32(pred.Size())

	diff, err := e.Sub(pred, target)
	if err != nil {
		return nil, nil, err
	}
	sq, err := e.Mul(diff, diff)
	if err != nil {
		return nil, nil, err
	}
	sum, err := e.Sum(sq)
	if err != nil {
		return nil, nil, err
	}
	value, err := e.Scale(sum, 1/n)
	if err != nil {
		return nil, nil, err
	}
	grad, err := e.Scale(diff, 2/n)
	if err != nil {
		return nil, nil, err
	}
	return value, grad, nil
}

// categoricalEpsilon keeps log() finite.
const categoricalEpsilon = 1e-7

// CategoricalCrossentropy is -sum(target * log(pred)) / batch for
// probability predictions (softmax outputs).
type CategoricalCrossentropy struct{}

// Name returns the loss name.
func (CategoricalCrossentropy) Name() string { return "categoricalCrossentropy" }

// Compute returns the loss and -(target / pred) / batch.
func (CategoricalCrossentropy) Compute(e *engine.Engine, pred, target *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	if !pred.Shape().Equal(target.Shape()) || pred.Rank() == 0 {
		return nil, nil, fmt.Errorf("%w: crossentropy prediction %v vs target %v", tensor.ErrShapeMismatch, pred.Shape(), target.Shape())
	}
	batch := float32(pred.Shape()[0])

	p, err := e.Clip(pred, categoricalEpsilon, 1-categoricalEpsilon)
	if err != nil {
		return nil, nil, err
	}
	logp, err := e.Log(p)
	if err != nil {
		return nil, nil, err
	}
	prod, err := e.Mul(target, logp)
	if err != nil {
		return nil, nil, err
	}
	sum, err := e.Sum(prod)
	if err != nil {
		return nil, nil, err
	}
	value, err := e.Scale(sum, -1/batch)
	if err != nil {
		return nil, nil, err
	}
	ratio, err := e.Div(target, p)
	if err != nil {
		return nil, nil, err
	}
	grad, err := e.Scale(ratio, -1/batch)
	if err != nil {
		return nil, nil, err
	}
	return value, grad, nil
}
