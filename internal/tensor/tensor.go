package tensor

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned when a released tensor is used.
var ErrDisposed = errors.New("tensor is disposed")

// Tensor is a dense row-major host tensor.
//
// Tensors are created by the engine, which assigns the id and tracks the
// tensor until it is released. Exactly one of the float32 or int32 buffers
// is populated, according to the data type.
type Tensor struct {
	id       uint64
	shape    Shape
	dtype    DataType
	f32      []float32
	i32      []int32
	disposed bool
}

// New allocates a zero-filled tensor.
func New(id uint64, shape Shape, dtype DataType) *Tensor {
	t := &Tensor{id: id, shape: shape.Clone(), dtype: dtype}
	n := shape.NumElements()
	switch dtype {
	case Int32:
		t.i32 = make([]int32, n)
	default:
		t.f32 = make([]float32, n)
	}
	return t
}

// ID returns the engine-assigned identifier.
func (t *Tensor) ID() uint64 { return t.id }

// Shape returns the tensor dimensions. The returned slice must not be modified.
func (t *Tensor) Shape() Shape { return t.shape }

// DType returns the element type.
func (t *Tensor) DType() DataType { return t.dtype }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Size returns the number of elements.
func (t *Tensor) Size() int { return t.shape.NumElements() }

// Bytes returns the size of the backing buffer in bytes.
func (t *Tensor) Bytes() int64 { return int64(t.Size() * t.dtype.Size()) }

// Float32 returns the backing float32 buffer (nil for other dtypes).
func (t *Tensor) Float32() []float32 { return t.f32 }

// Int32 returns the backing int32 buffer (nil for other dtypes).
func (t *Tensor) Int32() []int32 { return t.i32 }

// Disposed reports whether the tensor has been released.
func (t *Tensor) Disposed() bool { return t.disposed }

// Release drops the backing buffer. It is idempotent.
func (t *Tensor) Release() {
	t.disposed = true
	t.f32 = nil
	t.i32 = nil
}

// Check returns ErrDisposed for nil or released tensors.
func (t *Tensor) Check() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrDisposed)
	}
	if t.disposed {
		return fmt.Errorf("%w: tensor %d", ErrDisposed, t.id)
	}
	return nil
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(id=%d, shape=%v, dtype=%s)", t.id, t.shape, t.dtype)
}
