package nn

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Flatten reshapes [batch, d1, d2, ...] to [batch, d1*d2*...].
type Flatten struct {
	name    string
	inShape tensor.Shape
}

// NewFlatten creates a flatten layer.
func NewFlatten(name string) *Flatten { return &Flatten{name: name} }

// Name returns the layer name.
func (f *Flatten) Name() string { return f.name }

// Build computes the flattened shape.
func (f *Flatten) Build(_ *engine.Engine, in tensor.Shape) (tensor.Shape, error) {
	if len(in) < 2 {
		return nil, fmt.Errorf("%w: flatten %s expects rank >= 2, got %v", tensor.ErrShapeMismatch, f.name, in)
	}
	return tensor.Shape{in[0], in.Batchless().NumElements()}, nil
}

// Forward flattens every non-batch dimension.
func (f *Flatten) Forward(e *engine.Engine, x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if training {
		f.inShape = x.Shape().Clone()
	}
	return e.Reshape(x, tensor.Shape{x.Shape()[0], -1})
}

// Backward restores the input shape.
func (f *Flatten) Backward(e *engine.Engine, dy *tensor.Tensor) (*tensor.Tensor, error) {
	if f.inShape == nil {
		return nil, fmt.Errorf("flatten %s: backward called before a training forward pass", f.name)
	}
	return e.Reshape(dy, f.inShape)
}

// Params returns nil.
func (f *Flatten) Params() []*Parameter { return nil }

// Dropout zeroes a fraction of activations during training (inverted dropout).
// At inference it is the identity.
type Dropout struct {
	name string
	rate float64
	mask *tensor.Tensor
}

// NewDropout creates a dropout layer. rate must be in [0, 1).
func NewDropout(name string, rate float64) (*Dropout, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("dropout %s: rate %g out of range [0, 1)", name, rate)
	}
	return &Dropout{name: name, rate: rate}, nil
}

// Name returns the layer name.
func (d *Dropout) Name() string { return d.name }

// Rate returns the drop probability.
func (d *Dropout) Rate() float64 { return d.rate }

// Build passes the shape through.
func (d *Dropout) Build(_ *engine.Engine, in tensor.Shape) (tensor.Shape, error) {
	return in.Clone(), nil
}

// Forward applies a random mask when training.
//
// The identity case returns a copy so that callers can always release the
// output without touching the input.
func (d *Dropout) Forward(e *engine.Engine, x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if !training || d.rate == 0 {
		d.mask = nil
		return e.Reshape(x, x.Shape())
	}
	mask, err := e.RandomMask(x.Shape(), 1-d.rate)
	if err != nil {
		return nil, fmt.Errorf("dropout %s: %w", d.name, err)
	}
	d.mask = mask
	return e.Mul(x, mask)
}

// Backward applies the same mask to dy.
func (d *Dropout) Backward(e *engine.Engine, dy *tensor.Tensor) (*tensor.Tensor, error) {
	if d.mask == nil {
		return dy, nil
	}
	return e.Mul(dy, d.mask)
}

// Params returns nil.
func (d *Dropout) Params() []*Parameter { return nil }
