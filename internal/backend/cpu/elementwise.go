package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/parallel"
	"github.com/born-ml/benchmarks/internal/tensor"
)

type binaryFn func(a, b float32) float32

// Add performs element-wise addition with NumPy-style broadcasting.
func (b *Backend) Add(alloc kernels.Allocator, x, y *tensor.Tensor) (*tensor.Tensor, error) {
	return b.binary("add", alloc, x, y, func(p, q float32) float32 { return p + q })
}

// Sub performs element-wise subtraction with broadcasting.
func (b *Backend) Sub(alloc kernels.Allocator, x, y *tensor.Tensor) (*tensor.Tensor, error) {
	return b.binary("sub", alloc, x, y, func(p, q float32) float32 { return p - q })
}

// Multiply performs element-wise multiplication with broadcasting.
func (b *Backend) Multiply(alloc kernels.Allocator, x, y *tensor.Tensor) (*tensor.Tensor, error) {
	return b.binary("multiply", alloc, x, y, func(p, q float32) float32 { return p * q })
}

// RealDiv performs element-wise division with broadcasting.
func (b *Backend) RealDiv(alloc kernels.Allocator, x, y *tensor.Tensor) (*tensor.Tensor, error) {
	return b.binary("realDiv", alloc, x, y, func(p, q float32) float32 { return p / q })
}

func (b *Backend) binary(op string, alloc kernels.Allocator, x, y *tensor.Tensor, fn binaryFn) (*tensor.Tensor, error) {
	if err := requireFloat(op, x, y); err != nil {
		return nil, err
	}
	outShape, needsBroadcast, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := alloc.Alloc(outShape, tensor.Float32)
	dst, xs, ys := out.Float32(), x.Float32(), y.Float32()

	if !needsBroadcast {
		parallel.ForRange(len(dst), func(start, end int) {
			for i := start; i < end; i++ {
				dst[i] = fn(xs[i], ys[i])
			}
		}, b.par)
		return out, nil
	}

	xStrides := broadcastStrides(x.Shape(), outShape)
	yStrides := broadcastStrides(y.Shape(), outShape)
	outStrides := outShape.ComputeStrides()
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			xi, yi, rem := 0, 0, i
			for d, s := range outStrides {
				idx := rem / s
				rem %= s
				xi += idx * xStrides[d]
				yi += idx * yStrides[d]
			}
			dst[i] = fn(xs[xi], ys[yi])
		}
	}, b.par)
	return out, nil
}

// broadcastStrides returns strides of in aligned to out, with zero stride on
// broadcast dimensions.
func broadcastStrides(in, out tensor.Shape) []int {
	strides := make([]int, len(out))
	inStrides := in.ComputeStrides()
	offset := len(out) - len(in)
	for i, dim := range in {
		if dim != 1 {
			strides[i+offset] = inStrides[i]
		}
	}
	return strides
}

func (b *Backend) unary(op string, alloc kernels.Allocator, x *tensor.Tensor, fn func(float32) float32) (*tensor.Tensor, error) {
	if err := requireFloat(op, x); err != nil {
		return nil, err
	}
	out := alloc.Alloc(x.Shape(), tensor.Float32)
	dst, src := out.Float32(), x.Float32()
	parallel.ForRange(len(dst), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = fn(src[i])
		}
	}, b.par)
	return out, nil
}

// Log computes the natural logarithm element-wise.
func (b *Backend) Log(alloc kernels.Allocator, x *tensor.Tensor) (*tensor.Tensor, error) {
	return b.unary("log", alloc, x, func(v float32) float32 {
		return float32(math.Log(float64(v)))
	})
}

// ClipByValue clamps every element to [lo, hi].
func (b *Backend) ClipByValue(alloc kernels.Allocator, x *tensor.Tensor, lo, hi float32) (*tensor.Tensor, error) {
	if lo > hi {
		return nil, fmt.Errorf("clipByValue: min %g greater than max %g", lo, hi)
	}
	return b.unary("clipByValue", alloc, x, func(v float32) float32 {
		return min(max(v, lo), hi)
	})
}
