package nn

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Dense implements a fully connected layer with an optional fused activation.
//
// Performs y = act(x @ W + b) where:
//   - x has shape [batch, inFeatures]
//   - W (kernel) has shape [inFeatures, units]
//   - b has shape [units]
//
// The kernel uses Glorot uniform initialization; the bias starts at zero.
type Dense struct {
	name       string
	units      int
	useBias    bool
	activation *Activation

	kernel *Parameter
	bias   *Parameter
	input  *tensor.Tensor
}

// NewDense creates a dense layer. activation may be empty for a linear layer.
func NewDense(name string, units int, activation string, useBias bool) (*Dense, error) {
	if units <= 0 {
		return nil, fmt.Errorf("dense %s: units must be positive, got %d", name, units)
	}
	act, err := NewActivation(name+"/activation", activation)
	if err != nil {
		return nil, err
	}
	return &Dense{name: name, units: units, useBias: useBias, activation: act}, nil
}

// Name returns the layer name.
func (d *Dense) Name() string { return d.name }

// Units returns the output feature count.
func (d *Dense) Units() int { return d.units }

// Build creates the kernel and bias for a [batch, features] input.
func (d *Dense) Build(e *engine.Engine, in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 2 || in[1] <= 0 {
		return nil, fmt.Errorf("%w: dense %s expects [batch, features] input, got %v",
			tensor.ErrShapeMismatch, d.name, in)
	}
	fanIn := in[1]

	w, err := glorotUniform(e, fanIn, d.units, tensor.Shape{fanIn, d.units})
	if err != nil {
		return nil, fmt.Errorf("dense %s: %w", d.name, err)
	}
	d.kernel = NewParameter(d.name+"/kernel", w)

	if d.useBias {
		b, err := zerosKept(e, tensor.Shape{d.units})
		if err != nil {
			return nil, fmt.Errorf("dense %s: %w", d.name, err)
		}
		d.bias = NewParameter(d.name+"/bias", b)
	}
	return tensor.Shape{in[0], d.units}, nil
}

// Forward computes act(x @ W + b).
func (d *Dense) Forward(e *engine.Engine, x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if d.kernel == nil {
		return nil, fmt.Errorf("dense %s: layer is not built", d.name)
	}
	h, err := e.MatMul(x, d.kernel.Value, false, false)
	if err != nil {
		return nil, fmt.Errorf("dense %s: %w", d.name, err)
	}
	if d.bias != nil {
		if h, err = e.Add(h, d.bias.Value); err != nil {
			return nil, fmt.Errorf("dense %s: %w", d.name, err)
		}
	}
	if training {
		d.input = x
	}
	if d.activation.Kind() == "linear" {
		return h, nil
	}
	return d.activation.Forward(e, h, training)
}

// Backward computes dW = xᵀ @ dh, db = sum(dh, 0) and returns dx = dh @ Wᵀ.
func (d *Dense) Backward(e *engine.Engine, dy *tensor.Tensor) (*tensor.Tensor, error) {
	if d.input == nil {
		return nil, fmt.Errorf("dense %s: backward called before a training forward pass", d.name)
	}
	var err error
	dh := dy
	if d.activation.Kind() != "linear" {
		if dh, err = d.activation.Backward(e, dy); err != nil {
			return nil, err
		}
	}
	if d.kernel.Grad, err = e.MatMul(d.input, dh, true, false); err != nil {
		return nil, fmt.Errorf("dense %s: kernel grad: %w", d.name, err)
	}
	if d.bias != nil {
		if d.bias.Grad, err = e.SumAxis(dh, 0, false); err != nil {
			return nil, fmt.Errorf("dense %s: bias grad: %w", d.name, err)
		}
	}
	return e.MatMul(dh, d.kernel.Value, false, true)
}

// Params returns the kernel and, when enabled, the bias.
func (d *Dense) Params() []*Parameter {
	if d.kernel == nil {
		return nil
	}
	if d.bias != nil {
		return []*Parameter{d.kernel, d.bias}
	}
	return []*Parameter{d.kernel}
}
