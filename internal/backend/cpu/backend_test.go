package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/tensor"
)

type testAlloc struct{ n uint64 }

func (a *testAlloc) Alloc(shape tensor.Shape, dtype tensor.DataType) *tensor.Tensor {
	a.n++
	return tensor.New(a.n, shape, dtype)
}

func floats(shape tensor.Shape, data ...float32) *tensor.Tensor {
	t := tensor.New(0, shape, tensor.Float32)
	copy(t.Float32(), data)
	return t
}

func ints(shape tensor.Shape, data ...int32) *tensor.Tensor {
	t := tensor.New(0, shape, tensor.Int32)
	copy(t.Int32(), data)
	return t
}

func TestMatMul(t *testing.T) {
	b := New(1)
	alloc := &testAlloc{}
	x := floats(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	y := floats(tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)

	out, err := b.MatMul(alloc, x, y, false, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.Float32())
}

func TestMatMul_Transposes(t *testing.T) {
	b := New(1)
	alloc := &testAlloc{}
	x := floats(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	// xᵀ @ x: (3,2) @ (2,3)
	out, err := b.MatMul(alloc, x, x, true, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 3}, out.Shape())
	assert.Equal(t, []float32{17, 22, 27, 22, 29, 36, 27, 36, 45}, out.Float32())

	// x @ xᵀ: (2,3) @ (3,2)
	out, err = b.MatMul(alloc, x, x, false, true)
	require.NoError(t, err)
	assert.Equal(t, []float32{14, 32, 32, 77}, out.Float32())
}

func TestMatMul_ShapeMismatch(t *testing.T) {
	b := New(1)
	_, err := b.MatMul(&testAlloc{}, floats(tensor.Shape{2, 3}), floats(tensor.Shape{2, 3}), false, false)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestMatMul_ParallelMatchesSequential(t *testing.T) {
	const m, k, n = 64, 48, 40
	x := tensor.New(0, tensor.Shape{m, k}, tensor.Float32)
	y := tensor.New(0, tensor.Shape{k, n}, tensor.Float32)
	for i := range x.Float32() {
		x.Float32()[i] = float32(i%7) - 3
	}
	for i := range y.Float32() {
		y.Float32()[i] = float32(i%5) - 2
	}

	seq, err := New(1).MatMul(&testAlloc{}, x, y, false, false)
	require.NoError(t, err)
	par, err := New(4).MatMul(&testAlloc{}, x, y, false, false)
	require.NoError(t, err)
	assert.Equal(t, seq.Float32(), par.Float32())
}

func TestAdd_Broadcast(t *testing.T) {
	b := New(2)
	x := floats(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	bias := floats(tensor.Shape{3}, 10, 20, 30)

	out, err := b.Add(&testAlloc{}, x, bias)
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, out.Float32())

	scalar := floats(tensor.Shape{}, 2)
	out, err = b.Multiply(&testAlloc{}, x, scalar)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8, 10, 12}, out.Float32())
}

func TestBinary_RejectsInt(t *testing.T) {
	b := New(1)
	_, err := b.Sub(&testAlloc{}, ints(tensor.Shape{2}, 1, 2), floats(tensor.Shape{2}, 1, 2))
	assert.Error(t, err)
}

func TestActivations(t *testing.T) {
	b := New(1)
	alloc := &testAlloc{}
	x := floats(tensor.Shape{4}, -2, -0.5, 0, 3)

	relu, err := b.Relu(alloc, x)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 3}, relu.Float32())

	sig, err := b.Sigmoid(alloc, floats(tensor.Shape{1}, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sig.Float32()[0], 1e-6)

	clip, err := b.ClipByValue(alloc, x, -1, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, -0.5, 0, 1}, clip.Float32())

	_, err = b.ClipByValue(alloc, x, 1, -1)
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	b := New(1)
	out, err := b.Softmax(&testAlloc{}, floats(tensor.Shape{2, 3}, 1, 2, 3, 0, 0, 0))
	require.NoError(t, err)

	got := out.Float32()
	assert.InDelta(t, 1.0, got[0]+got[1]+got[2], 1e-6)
	assert.InDelta(t, 1.0/3, got[4], 1e-6)
	assert.Greater(t, got[2], got[1])
}

func TestSoftmaxGrad_UniformUpstreamIsZero(t *testing.T) {
	b := New(1)
	y := floats(tensor.Shape{1, 3}, 0.2, 0.3, 0.5)
	dy := floats(tensor.Shape{1, 3}, 1, 1, 1)

	out, err := b.SoftmaxGrad(&testAlloc{}, dy, y)
	require.NoError(t, err)
	for _, v := range out.Float32() {
		assert.InDelta(t, 0, v, 1e-6)
	}
}

func TestGrads(t *testing.T) {
	b := New(1)
	alloc := &testAlloc{}
	dy := floats(tensor.Shape{3}, 1, 1, 1)

	relu, err := b.ReluGrad(alloc, dy, floats(tensor.Shape{3}, -1, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, relu.Float32())

	tanh, err := b.TanhGrad(alloc, dy, floats(tensor.Shape{3}, 0, 0.5, 1))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0.75, 0}, tanh.Float32())

	_, err = b.SigmoidGrad(alloc, dy, floats(tensor.Shape{2}, 0, 0))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestSum(t *testing.T) {
	b := New(1)
	alloc := &testAlloc{}
	x := floats(tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)

	all, err := b.SumAll(alloc, x, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{}, all.Shape())
	assert.Equal(t, []float32{21}, all.Float32())

	rows, err := b.SumAxis(alloc, x, 0, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3}, rows.Shape())
	assert.Equal(t, []float32{5, 7, 9}, rows.Float32())

	cols, err := b.SumAxis(alloc, x, -1, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1}, cols.Shape())
	assert.Equal(t, []float32{6, 15}, cols.Float32())
}

func TestReshapeAndSlice(t *testing.T) {
	b := New(1)
	alloc := &testAlloc{}
	x := floats(tensor.Shape{2, 2, 2}, 1, 2, 3, 4, 5, 6, 7, 8)

	flat, err := b.Reshape(alloc, x, tensor.Shape{2, -1})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4}, flat.Shape())

	_, err = b.Reshape(alloc, x, tensor.Shape{3, -1})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	s, err := b.Slice(alloc, x, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2}, s.Shape())
	assert.Equal(t, []float32{5, 6, 7, 8}, s.Float32())

	_, err = b.Slice(alloc, x, 1, 2)
	assert.Error(t, err)
}

func TestGatherAndSegmentSum(t *testing.T) {
	b := New(1)
	alloc := &testAlloc{}
	table := floats(tensor.Shape{3, 2}, 0, 1, 10, 11, 20, 21)
	ids := ints(tensor.Shape{2, 2}, 2, 0, 2, 1)

	out, err := b.Gather(alloc, table, ids)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 2}, out.Shape())
	assert.Equal(t, []float32{20, 21, 0, 1, 20, 21, 10, 11}, out.Float32())

	grad, err := b.UnsortedSegmentSum(alloc, floats(tensor.Shape{2, 2, 2}, 1, 1, 1, 1, 1, 1, 1, 1), ids, 3)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, grad.Shape())
	assert.Equal(t, []float32{1, 1, 1, 1, 2, 2}, grad.Float32())

	_, err = b.Gather(alloc, table, ints(tensor.Shape{1}, 3))
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	r := kernels.NewRegistry()
	require.NoError(t, Register(r, New(1)))

	cfgs := r.ForBackend(Name)
	assert.Len(t, cfgs, len(kernels.Names))
	for _, name := range kernels.Names {
		_, err := r.Get(name, Name)
		assert.NoError(t, err, name)
	}

	// Registering twice is rejected.
	assert.Error(t, Register(r, New(1)))
}

func TestKernelAdapter_Arity(t *testing.T) {
	r := kernels.NewRegistry()
	require.NoError(t, Register(r, New(1)))

	cfg, err := r.Get(kernels.Add, Name)
	require.NoError(t, err)
	_, err = cfg.KernelFunc(kernels.Args{Inputs: []*tensor.Tensor{floats(tensor.Shape{1}, 1)}, Alloc: &testAlloc{}})
	assert.Error(t, err)

	cfg, err = r.Get(kernels.Sum, Name)
	require.NoError(t, err)
	outs, err := cfg.KernelFunc(kernels.Args{
		Inputs: []*tensor.Tensor{floats(tensor.Shape{2, 2}, 1, 2, 3, 4)},
		Attrs:  kernels.Attrs{"axis": 1},
		Alloc:  &testAlloc{},
	})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, []float32{3, 7}, outs[0].Float32())
}
