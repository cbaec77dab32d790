package cpu

import (
	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// SumAll reduces every element to a scalar (or a [1,...,1] tensor when keepDims).
func (b *Backend) SumAll(alloc kernels.Allocator, x *tensor.Tensor, keepDims bool) (*tensor.Tensor, error) {
	if err := requireFloat("sum", x); err != nil {
		return nil, err
	}
	shape := tensor.Shape{}
	if keepDims {
		shape = make(tensor.Shape, x.Rank())
		for i := range shape {
			shape[i] = 1
		}
	}
	var sum float64
	for _, v := range x.Float32() {
		sum += float64(v)
	}
	out := alloc.Alloc(shape, tensor.Float32)
	out.Float32()[0] = float32(sum)
	return out, nil
}

// SumAxis reduces along one axis.
func (b *Backend) SumAxis(alloc kernels.Allocator, x *tensor.Tensor, axis int, keepDims bool) (*tensor.Tensor, error) {
	if err := requireFloat("sum", x); err != nil {
		return nil, err
	}
	axis, err := normalizeAxis("sum", axis, x.Rank())
	if err != nil {
		return nil, err
	}

	shape := x.Shape()
	outer, inner := 1, 1
	for i := 0; i < axis; i++ {
		outer *= shape[i]
	}
	for i := axis + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	dim := shape[axis]

	var outShape tensor.Shape
	for i, d := range shape {
		switch {
		case i != axis:
			outShape = append(outShape, d)
		case keepDims:
			outShape = append(outShape, 1)
		}
	}
	if outShape == nil {
		outShape = tensor.Shape{}
	}

	out := alloc.Alloc(outShape, tensor.Float32)
	src, dst := x.Float32(), out.Float32()
	for o := 0; o < outer; o++ {
		for d := 0; d < dim; d++ {
			base := (o*dim + d) * inner
			for i := 0; i < inner; i++ {
				dst[o*inner+i] += src[base+i]
			}
		}
	}
	return out, nil
}
