package engine

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/tensor"
)

func checkShape(op string, shape tensor.Shape) error {
	if err := shape.Validate(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, tensor.ErrShapeMismatch, err)
	}
	return nil
}

// Zeros creates a zero-filled tensor.
func (e *Engine) Zeros(shape tensor.Shape, dtype tensor.DataType) (*tensor.Tensor, error) {
	if err := checkShape("zeros", shape); err != nil {
		return nil, err
	}
	return e.Alloc(shape, dtype), nil
}

// Fill creates a float32 tensor with every element set to v.
func (e *Engine) Fill(shape tensor.Shape, v float32) (*tensor.Tensor, error) {
	t, err := e.Zeros(shape, tensor.Float32)
	if err != nil {
		return nil, err
	}
	data := t.Float32()
	for i := range data {
		data[i] = v
	}
	return t, nil
}

// NewScalar creates a rank-0 float32 tensor.
func (e *Engine) NewScalar(v float32) *tensor.Tensor {
	t := e.Alloc(tensor.Shape{}, tensor.Float32)
	t.Float32()[0] = v
	return t
}

// FromFloat32 creates a tensor holding a copy of data.
func (e *Engine) FromFloat32(shape tensor.Shape, data []float32) (*tensor.Tensor, error) {
	if err := checkShape("fromFloat32", shape); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("%w: %d values for shape %v", tensor.ErrShapeMismatch, len(data), shape)
	}
	t := e.Alloc(shape, tensor.Float32)
	copy(t.Float32(), data)
	return t, nil
}

// FromInt32 creates an int32 tensor holding a copy of data.
func (e *Engine) FromInt32(shape tensor.Shape, data []int32) (*tensor.Tensor, error) {
	if err := checkShape("fromInt32", shape); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("%w: %d values for shape %v", tensor.ErrShapeMismatch, len(data), shape)
	}
	t := e.Alloc(shape, tensor.Int32)
	copy(t.Int32(), data)
	return t, nil
}

// RandomNormal creates a tensor of normally distributed values.
func (e *Engine) RandomNormal(shape tensor.Shape, mean, stddev float64) (*tensor.Tensor, error) {
	if err := checkShape("randomNormal", shape); err != nil {
		return nil, err
	}
	t := e.Alloc(shape, tensor.Float32)
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range t.Float32() {
		t.Float32()[i] = float32(mean + stddev*e.rng.NormFloat64())
	}
	return t, nil
}

// RandomUniform creates a tensor of values uniformly distributed in [lo, hi).
func (e *Engine) RandomUniform(shape tensor.Shape, lo, hi float64) (*tensor.Tensor, error) {
	if err := checkShape("randomUniform", shape); err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, fmt.Errorf("randomUniform: max %g less than min %g", hi, lo)
	}
	t := e.Alloc(shape, tensor.Float32)
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range t.Float32() {
		t.Float32()[i] = float32(lo + (hi-lo)*e.rng.Float64())
	}
	return t, nil
}

// RandomInt creates an int32 tensor of values uniformly distributed in [lo, hi).
func (e *Engine) RandomInt(shape tensor.Shape, lo, hi int) (*tensor.Tensor, error) {
	if err := checkShape("randomInt", shape); err != nil {
		return nil, err
	}
	if hi <= lo {
		return nil, fmt.Errorf("randomInt: empty range [%d, %d)", lo, hi)
	}
	t := e.Alloc(shape, tensor.Int32)
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range t.Int32() {
		t.Int32()[i] = int32(lo + e.rng.Intn(hi-lo)) //nolint:gosec // G115: bounded by hi.
	}
	return t, nil
}

// RandomMask creates an inverted-dropout mask: each element is 1/keep with
// probability keep and 0 otherwise.
func (e *Engine) RandomMask(shape tensor.Shape, keep float64) (*tensor.Tensor, error) {
	if keep <= 0 || keep > 1 {
		return nil, fmt.Errorf("randomMask: keep probability %g out of range (0, 1]", keep)
	}
	t, err := e.Zeros(shape, tensor.Float32)
	if err != nil {
		return nil, err
	}
	scale := float32(1 / keep)
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range t.Float32() {
		if e.rng.Float64() < keep {
			t.Float32()[i] = scale
		}
	}
	return t, nil
}
