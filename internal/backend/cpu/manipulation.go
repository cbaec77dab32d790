package cpu

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Reshape copies x into a tensor of a new shape with the same element count.
// A single -1 dimension is inferred.
func (b *Backend) Reshape(alloc kernels.Allocator, x *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	target, err := inferShape(shape, x.Size())
	if err != nil {
		return nil, fmt.Errorf("reshape %v -> %v: %w", x.Shape(), shape, err)
	}
	out := alloc.Alloc(target, x.DType())
	copy(out.Float32(), x.Float32())
	copy(out.Int32(), x.Int32())
	return out, nil
}

func inferShape(shape tensor.Shape, size int) (tensor.Shape, error) {
	out := shape.Clone()
	infer := -1
	known := 1
	for i, d := range out {
		switch {
		case d == -1 && infer >= 0:
			return nil, fmt.Errorf("%w: more than one inferred dimension", tensor.ErrShapeMismatch)
		case d == -1:
			infer = i
		case d <= 0:
			return nil, fmt.Errorf("%w: invalid dimension %d", tensor.ErrShapeMismatch, d)
		default:
			known *= d
		}
	}
	if infer >= 0 {
		if known == 0 || size%known != 0 {
			return nil, fmt.Errorf("%w: cannot infer dimension for %d elements", tensor.ErrShapeMismatch, size)
		}
		out[infer] = size / known
		known *= out[infer]
	}
	if known != size {
		return nil, fmt.Errorf("%w: %d elements do not fit %v", tensor.ErrShapeMismatch, size, shape)
	}
	return out, nil
}

// Slice returns rows [begin, begin+size) along the first dimension.
func (b *Backend) Slice(alloc kernels.Allocator, x *tensor.Tensor, begin, size int) (*tensor.Tensor, error) {
	if x.Rank() == 0 {
		return nil, fmt.Errorf("slice: scalar input")
	}
	rows := x.Shape()[0]
	if begin < 0 || size <= 0 || begin+size > rows {
		return nil, fmt.Errorf("slice: rows [%d, %d) out of range for %v", begin, begin+size, x.Shape())
	}
	shape := x.Shape().Clone()
	shape[0] = size
	rowLen := x.Size() / rows

	out := alloc.Alloc(shape, x.DType())
	lo, hi := begin*rowLen, (begin+size)*rowLen
	if x.DType() == tensor.Int32 {
		copy(out.Int32(), x.Int32()[lo:hi])
	} else {
		copy(out.Float32(), x.Float32()[lo:hi])
	}
	return out, nil
}

// Gather selects rows of table by index: out[i...] = table[ids[i...]].
// The output shape is ids.shape + table.shape[1:].
func (b *Backend) Gather(alloc kernels.Allocator, table, ids *tensor.Tensor) (*tensor.Tensor, error) {
	if err := requireFloat("gather", table); err != nil {
		return nil, err
	}
	if err := requireInt("gather", ids); err != nil {
		return nil, err
	}
	if table.Rank() == 0 {
		return nil, fmt.Errorf("gather: scalar table")
	}
	rows := table.Shape()[0]
	rowLen := table.Size() / rows

	shape := append(ids.Shape().Clone(), table.Shape()[1:]...)
	out := alloc.Alloc(shape, tensor.Float32)
	src, dst := table.Float32(), out.Float32()
	for i, id := range ids.Int32() {
		if id < 0 || int(id) >= rows {
			return nil, fmt.Errorf("gather: index %d out of range [0, %d)", id, rows)
		}
		copy(dst[i*rowLen:(i+1)*rowLen], src[int(id)*rowLen:(int(id)+1)*rowLen])
	}
	return out, nil
}

// UnsortedSegmentSum sums slices of data into numSegments buckets chosen by ids.
// data.shape must start with ids.shape; the output shape is
// [numSegments] + data.shape[ids.rank:].
func (b *Backend) UnsortedSegmentSum(alloc kernels.Allocator, data, ids *tensor.Tensor, numSegments int) (*tensor.Tensor, error) {
	if err := requireFloat("unsortedSegmentSum", data); err != nil {
		return nil, err
	}
	if err := requireInt("unsortedSegmentSum", ids); err != nil {
		return nil, err
	}
	if numSegments <= 0 {
		return nil, fmt.Errorf("unsortedSegmentSum: numSegments must be positive, got %d", numSegments)
	}
	idShape, dataShape := ids.Shape(), data.Shape()
	if len(dataShape) < len(idShape) || !dataShape[:len(idShape)].Equal(idShape) {
		return nil, shapeErr("unsortedSegmentSum", dataShape, idShape)
	}

	inner := dataShape[len(idShape):]
	shape := append(tensor.Shape{numSegments}, inner...)
	rowLen := inner.NumElements()

	out := alloc.Alloc(shape, tensor.Float32)
	src, dst := data.Float32(), out.Float32()
	for i, id := range ids.Int32() {
		if id < 0 || int(id) >= numSegments {
			continue
		}
		seg := dst[int(id)*rowLen : (int(id)+1)*rowLen]
		for j, v := range src[i*rowLen : (i+1)*rowLen] {
			seg[j] += v
		}
	}
	return out, nil
}
