package engine

import (
	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// MatMul computes op(a) @ op(b) for 2D tensors.
func (e *Engine) MatMul(a, b *tensor.Tensor, transposeA, transposeB bool) (*tensor.Tensor, error) {
	return e.run1(kernels.MatMul, kernels.Attrs{"transposeA": transposeA, "transposeB": transposeB}, a, b)
}

// Add computes a + b with broadcasting.
func (e *Engine) Add(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Add, nil, a, b)
}

// Sub computes a - b with broadcasting.
func (e *Engine) Sub(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Sub, nil, a, b)
}

// Mul computes a * b with broadcasting.
func (e *Engine) Mul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Multiply, nil, a, b)
}

// Div computes a / b with broadcasting.
func (e *Engine) Div(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.RealDiv, nil, a, b)
}

// Scale multiplies x by a constant.
func (e *Engine) Scale(x *tensor.Tensor, c float32) (*tensor.Tensor, error) {
	s := e.NewScalar(c)
	defer e.Dispose(s)
	return e.Mul(x, s)
}

// Log computes the natural logarithm.
func (e *Engine) Log(x *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Log, nil, x)
}

// Clip clamps x to [lo, hi].
func (e *Engine) Clip(x *tensor.Tensor, lo, hi float32) (*tensor.Tensor, error) {
	return e.run1(kernels.ClipByValue, kernels.Attrs{"clipValueMin": lo, "clipValueMax": hi}, x)
}

// Relu applies max(0, x).
func (e *Engine) Relu(x *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Relu, nil, x)
}

// Sigmoid applies the logistic function.
func (e *Engine) Sigmoid(x *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Sigmoid, nil, x)
}

// Tanh applies the hyperbolic tangent.
func (e *Engine) Tanh(x *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Tanh, nil, x)
}

// Softmax applies softmax over the last dimension.
func (e *Engine) Softmax(x *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Softmax, nil, x)
}

// Sum reduces every element to a scalar.
func (e *Engine) Sum(x *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Sum, nil, x)
}

// SumAxis reduces along one axis.
func (e *Engine) SumAxis(x *tensor.Tensor, axis int, keepDims bool) (*tensor.Tensor, error) {
	return e.run1(kernels.Sum, kernels.Attrs{"axis": axis, "keepDims": keepDims}, x)
}

// Reshape returns a copy of x with a new shape. One dimension may be -1.
func (e *Engine) Reshape(x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	return e.run1(kernels.Reshape, kernels.Attrs{"shape": shape}, x)
}

// Slice returns size rows of x starting at begin.
func (e *Engine) Slice(x *tensor.Tensor, begin, size int) (*tensor.Tensor, error) {
	return e.run1(kernels.Slice, kernels.Attrs{"begin": begin, "size": size}, x)
}

// Gather looks up rows of table by int32 ids.
func (e *Engine) Gather(table, ids *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.Gather, nil, table, ids)
}

// UnsortedSegmentSum scatters data rows into numSegments sums keyed by ids.
func (e *Engine) UnsortedSegmentSum(data, ids *tensor.Tensor, numSegments int) (*tensor.Tensor, error) {
	return e.run1(kernels.UnsortedSegmentSum, kernels.Attrs{"numSegments": numSegments}, data, ids)
}

// ReluGrad propagates dy through relu given its input x.
func (e *Engine) ReluGrad(dy, x *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.ReluGrad, nil, dy, x)
}

// SigmoidGrad propagates dy through sigmoid given its output y.
func (e *Engine) SigmoidGrad(dy, y *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.SigmoidGrad, nil, dy, y)
}

// TanhGrad propagates dy through tanh given its output y.
func (e *Engine) TanhGrad(dy, y *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.TanhGrad, nil, dy, y)
}

// SoftmaxGrad propagates dy through softmax given its output y.
func (e *Engine) SoftmaxGrad(dy, y *tensor.Tensor) (*tensor.Tensor, error) {
	return e.run1(kernels.SoftmaxGrad, nil, dy, y)
}
