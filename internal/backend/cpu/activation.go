package cpu

import (
	"math"

	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/parallel"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Relu computes max(0, x).
func (b *Backend) Relu(alloc kernels.Allocator, x *tensor.Tensor) (*tensor.Tensor, error) {
	return b.unary("relu", alloc, x, func(v float32) float32 { return max(v, 0) })
}

// Sigmoid computes 1 / (1 + exp(-x)).
func (b *Backend) Sigmoid(alloc kernels.Allocator, x *tensor.Tensor) (*tensor.Tensor, error) {
	return b.unary("sigmoid", alloc, x, func(v float32) float32 {
		return float32(1 / (1 + math.Exp(-float64(v))))
	})
}

// Tanh computes the hyperbolic tangent.
func (b *Backend) Tanh(alloc kernels.Allocator, x *tensor.Tensor) (*tensor.Tensor, error) {
	return b.unary("tanh", alloc, x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}

// Softmax computes softmax along the last dimension.
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)).
func (b *Backend) Softmax(alloc kernels.Allocator, x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := requireFloat("softmax", x); err != nil {
		return nil, err
	}
	if _, err := normalizeAxis("softmax", -1, x.Rank()); err != nil {
		return nil, err
	}
	out := alloc.Alloc(x.Shape(), tensor.Float32)
	src, dst := x.Float32(), out.Float32()
	width := x.Shape()[x.Rank()-1]
	rows := len(src) / width

	parallel.ForRange(rows, func(start, end int) {
		for r := start; r < end; r++ {
			in := src[r*width : (r+1)*width]
			o := dst[r*width : (r+1)*width]
			maxVal := in[0]
			for _, v := range in[1:] {
				maxVal = max(maxVal, v)
			}
			var sum float64
			for i, v := range in {
				e := math.Exp(float64(v - maxVal))
				o[i] = float32(e)
				sum += e
			}
			for i := range o {
				o[i] = float32(float64(o[i]) / sum)
			}
		}
	}, b.par)
	return out, nil
}

// ReluGrad returns dy where x > 0, zero elsewhere.
func (b *Backend) ReluGrad(alloc kernels.Allocator, dy, x *tensor.Tensor) (*tensor.Tensor, error) {
	return b.sameShape("reluGrad", alloc, dy, x, func(g, v float32) float32 {
		if v > 0 {
			return g
		}
		return 0
	})
}

// SigmoidGrad returns dy * y * (1 - y) where y is the sigmoid output.
func (b *Backend) SigmoidGrad(alloc kernels.Allocator, dy, y *tensor.Tensor) (*tensor.Tensor, error) {
	return b.sameShape("sigmoidGrad", alloc, dy, y, func(g, v float32) float32 { return g * v * (1 - v) })
}

// TanhGrad returns dy * (1 - y²) where y is the tanh output.
func (b *Backend) TanhGrad(alloc kernels.Allocator, dy, y *tensor.Tensor) (*tensor.Tensor, error) {
	return b.sameShape("tanhGrad", alloc, dy, y, func(g, v float32) float32 { return g * (1 - v*v) })
}

// SoftmaxGrad computes y * (dy - sum(dy * y)) along the last dimension.
func (b *Backend) SoftmaxGrad(alloc kernels.Allocator, dy, y *tensor.Tensor) (*tensor.Tensor, error) {
	if err := requireFloat("softmaxGrad", dy, y); err != nil {
		return nil, err
	}
	if !dy.Shape().Equal(y.Shape()) || y.Rank() == 0 {
		return nil, shapeErr("softmaxGrad", dy.Shape(), y.Shape())
	}
	out := alloc.Alloc(y.Shape(), tensor.Float32)
	g, s, dst := dy.Float32(), y.Float32(), out.Float32()
	width := y.Shape()[y.Rank()-1]

	parallel.For(len(s)/width, func(r int) {
		lo, hi := r*width, (r+1)*width
		var dot float32
		for i := lo; i < hi; i++ {
			dot += g[i] * s[i]
		}
		for i := lo; i < hi; i++ {
			dst[i] = s[i] * (g[i] - dot)
		}
	}, b.par)
	return out, nil
}

func (b *Backend) sameShape(op string, alloc kernels.Allocator, x, y *tensor.Tensor, fn binaryFn) (*tensor.Tensor, error) {
	if err := requireFloat(op, x, y); err != nil {
		return nil, err
	}
	if !x.Shape().Equal(y.Shape()) {
		return nil, shapeErr(op, x.Shape(), y.Shape())
	}
	out := alloc.Alloc(x.Shape(), tensor.Float32)
	dst, xs, ys := out.Float32(), x.Float32(), y.Float32()
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = fn(xs[i], ys[i])
		}
	}, b.par)
	return out, nil
}
