package nn

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Activation applies an element-wise (or, for softmax, row-wise) nonlinearity.
//
// Supported kinds: linear, relu, sigmoid, tanh, softmax.
type Activation struct {
	name  string
	kind  string
	saved *tensor.Tensor // relu: input; others: output
}

// NewActivation creates an activation layer. An empty kind means linear.
func NewActivation(name, kind string) (*Activation, error) {
	switch kind {
	case "":
		kind = "linear"
	case "linear", "relu", "sigmoid", "tanh", "softmax":
	default:
		return nil, fmt.Errorf("%w: activation %q", ErrUnknownLayer, kind)
	}
	return &Activation{name: name, kind: kind}, nil
}

// Name returns the layer name.
func (a *Activation) Name() string { return a.name }

// Kind returns the activation function name.
func (a *Activation) Kind() string { return a.kind }

// Build passes the shape through.
func (a *Activation) Build(_ *engine.Engine, in tensor.Shape) (tensor.Shape, error) {
	return in.Clone(), nil
}

// Forward applies the activation.
func (a *Activation) Forward(e *engine.Engine, x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	var (
		y   *tensor.Tensor
		err error
	)
	switch a.kind {
	case "relu":
		y, err = e.Relu(x)
	case "sigmoid":
		y, err = e.Sigmoid(x)
	case "tanh":
		y, err = e.Tanh(x)
	case "softmax":
		y, err = e.Softmax(x)
	default:
		y, err = e.Reshape(x, x.Shape())
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	if training {
		a.saved = y
		if a.kind == "relu" {
			a.saved = x
		}
	}
	return y, nil
}

// Backward propagates dy through the activation.
func (a *Activation) Backward(e *engine.Engine, dy *tensor.Tensor) (*tensor.Tensor, error) {
	if a.saved == nil {
		return nil, fmt.Errorf("%s: backward called before a training forward pass", a.name)
	}
	switch a.kind {
	case "relu":
		return e.ReluGrad(dy, a.saved)
	case "sigmoid":
		return e.SigmoidGrad(dy, a.saved)
	case "tanh":
		return e.TanhGrad(dy, a.saved)
	case "softmax":
		return e.SoftmaxGrad(dy, a.saved)
	default:
		return dy, nil
	}
}

// Params returns nil; activations have no weights.
func (a *Activation) Params() []*Parameter { return nil }
