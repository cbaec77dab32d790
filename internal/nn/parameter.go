package nn

import "github.com/born-ml/benchmarks/internal/tensor"

// Parameter is a trainable weight and its most recent gradient.
//
// Value is kept alive by the engine until the owning model is disposed.
// Grad is set by Layer.Backward and is only valid inside the Tidy scope of
// the training step that produced it.
type Parameter struct {
	Name  string
	Value *tensor.Tensor
	Grad  *tensor.Tensor
}

// NewParameter creates a named parameter.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{Name: name, Value: value}
}
