package cpu

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Register adds every CPU kernel to r under the backend name "cpu".
func Register(r *kernels.Registry, b *Backend) error {
	for name, fn := range b.kernelFuncs() {
		cfg := kernels.Config{KernelName: name, BackendName: Name, KernelFunc: fn}
		if err := r.Register(cfg); err != nil {
			return fmt.Errorf("register cpu kernels: %w", err)
		}
	}
	return nil
}

func (b *Backend) kernelFuncs() map[string]kernels.KernelFunc {
	return map[string]kernels.KernelFunc{
		kernels.MatMul: arity(kernels.MatMul, 2, func(a kernels.Args) (*tensor.Tensor, error) {
			return b.MatMul(a.Alloc, a.Inputs[0], a.Inputs[1], a.Attrs.Bool("transposeA", false), a.Attrs.Bool("transposeB", false))
		}),
		kernels.Add:      arity(kernels.Add, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.Add(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.Sub:      arity(kernels.Sub, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.Sub(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.Multiply: arity(kernels.Multiply, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.Multiply(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.RealDiv:  arity(kernels.RealDiv, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.RealDiv(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.Log:      arity(kernels.Log, 1, func(a kernels.Args) (*tensor.Tensor, error) { return b.Log(a.Alloc, a.Inputs[0]) }),
		kernels.ClipByValue: arity(kernels.ClipByValue, 1, func(a kernels.Args) (*tensor.Tensor, error) {
			return b.ClipByValue(a.Alloc, a.Inputs[0], float32(a.Attrs.Float("clipValueMin", 0)), float32(a.Attrs.Float("clipValueMax", 1)))
		}),
		kernels.Relu:    arity(kernels.Relu, 1, func(a kernels.Args) (*tensor.Tensor, error) { return b.Relu(a.Alloc, a.Inputs[0]) }),
		kernels.Sigmoid: arity(kernels.Sigmoid, 1, func(a kernels.Args) (*tensor.Tensor, error) { return b.Sigmoid(a.Alloc, a.Inputs[0]) }),
		kernels.Tanh:    arity(kernels.Tanh, 1, func(a kernels.Args) (*tensor.Tensor, error) { return b.Tanh(a.Alloc, a.Inputs[0]) }),
		kernels.Softmax: arity(kernels.Softmax, 1, func(a kernels.Args) (*tensor.Tensor, error) { return b.Softmax(a.Alloc, a.Inputs[0]) }),
		kernels.Sum: arity(kernels.Sum, 1, func(a kernels.Args) (*tensor.Tensor, error) {
			keep := a.Attrs.Bool("keepDims", false)
			if axis, ok := a.Attrs["axis"].(int); ok {
				return b.SumAxis(a.Alloc, a.Inputs[0], axis, keep)
			}
			return b.SumAll(a.Alloc, a.Inputs[0], keep)
		}),
		kernels.Reshape: arity(kernels.Reshape, 1, func(a kernels.Args) (*tensor.Tensor, error) {
			shape, ok := a.Attrs.Shape("shape")
			if !ok {
				return nil, fmt.Errorf("reshape: missing shape attribute")
			}
			return b.Reshape(a.Alloc, a.Inputs[0], shape)
		}),
		kernels.Slice: arity(kernels.Slice, 1, func(a kernels.Args) (*tensor.Tensor, error) {
			return b.Slice(a.Alloc, a.Inputs[0], a.Attrs.Int("begin", 0), a.Attrs.Int("size", 0))
		}),
		kernels.Gather:      arity(kernels.Gather, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.Gather(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.ReluGrad:    arity(kernels.ReluGrad, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.ReluGrad(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.SigmoidGrad: arity(kernels.SigmoidGrad, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.SigmoidGrad(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.TanhGrad:    arity(kernels.TanhGrad, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.TanhGrad(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.SoftmaxGrad: arity(kernels.SoftmaxGrad, 2, func(a kernels.Args) (*tensor.Tensor, error) { return b.SoftmaxGrad(a.Alloc, a.Inputs[0], a.Inputs[1]) }),
		kernels.UnsortedSegmentSum: arity(kernels.UnsortedSegmentSum, 2, func(a kernels.Args) (*tensor.Tensor, error) {
			return b.UnsortedSegmentSum(a.Alloc, a.Inputs[0], a.Inputs[1], a.Attrs.Int("numSegments", 0))
		}),
	}
}

// arity checks the input count and wraps a single-output compute function.
func arity(name string, n int, fn func(kernels.Args) (*tensor.Tensor, error)) kernels.KernelFunc {
	return func(args kernels.Args) ([]*tensor.Tensor, error) {
		if len(args.Inputs) != n {
			return nil, fmt.Errorf("%s requires %d input(s), got %d", name, n, len(args.Inputs))
		}
		out, err := fn(args)
		if err != nil {
			return nil, err
		}
		return []*tensor.Tensor{out}, nil
	}
}
