// Package nn implements the layers-model runtime used by the benchmarks.
//
// This package provides:
//   - Layer: building block with explicit forward and backward passes
//   - Dense, Activation, Flatten, Dropout, Embedding layers
//   - Sequential: layer stack with Predict, Fit and FitDataset
//   - Loss functions: mean squared error, categorical cross-entropy
//
// All tensors are created through an engine.Engine. Weights are kept alive
// across Tidy scopes and released by Sequential.Dispose.
package nn

import (
	"errors"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// ErrUnknownLayer is returned for unsupported layer, activation or loss names.
var ErrUnknownLayer = errors.New("unknown layer")

// Layer is one stage of a Sequential model.
//
// Build receives the declared input shape, with tensor.BatchDim as the
// leading dimension, creates the layer weights and returns the output shape.
// Forward caches what Backward needs when training is true; Backward
// consumes the upstream gradient, fills the gradients of Params and returns
// the gradient with respect to the layer input (nil when the input is not
// differentiable).
type Layer interface {
	Name() string
	Build(e *engine.Engine, inputShape tensor.Shape) (tensor.Shape, error)
	Forward(e *engine.Engine, x *tensor.Tensor, training bool) (*tensor.Tensor, error)
	Backward(e *engine.Engine, dy *tensor.Tensor) (*tensor.Tensor, error)
	Params() []*Parameter
}

// Optimizer updates parameters from their gradients.
//
// Optimizer state (moments, velocities) lives until Dispose.
type Optimizer interface {
	Name() string
	Step(e *engine.Engine, params []*Parameter) error
	Dispose(e *engine.Engine)
}
