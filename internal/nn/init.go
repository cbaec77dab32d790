package nn

import (
	"math"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// glorotUniform creates a kept weight tensor drawn from
// U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
func glorotUniform(e *engine.Engine, fanIn, fanOut int, shape tensor.Shape) (*tensor.Tensor, error) {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	t, err := e.RandomUniform(shape, -bound, bound)
	if err != nil {
		return nil, err
	}
	e.Keep(t)
	return t, nil
}

// zerosKept creates a kept zero tensor, used for biases.
func zerosKept(e *engine.Engine, shape tensor.Shape) (*tensor.Tensor, error) {
	t, err := e.Zeros(shape, tensor.Float32)
	if err != nil {
		return nil, err
	}
	e.Keep(t)
	return t, nil
}
