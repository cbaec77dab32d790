package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		want  int
	}{
		{"scalar", Shape{}, 1},
		{"vector", Shape{5}, 5},
		{"matrix", Shape{3, 4}, 12},
		{"image batch", Shape{2, 28, 28, 1}, 1568},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shape.NumElements())
		})
	}
}

func TestShape_WithBatch(t *testing.T) {
	declared := Shape{BatchDim, 28, 28, 1}
	got := declared.WithBatch(32)

	assert.Equal(t, Shape{32, 28, 28, 1}, got)
	assert.Equal(t, BatchDim, declared[0], "declared shape must not be modified")
	assert.NoError(t, got.Validate())
	assert.Error(t, declared.Validate())
}

func TestShape_Batchless(t *testing.T) {
	assert.Equal(t, Shape{10}, Shape{4, 10}.Batchless())
	assert.Equal(t, Shape{}, Shape{}.Batchless())
}

func TestShape_ComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Empty(t, Shape{}.ComputeStrides())
}

func TestBroadcastShapes(t *testing.T) {
	got, needs, err := BroadcastShapes(Shape{3, 1}, Shape{3, 5})
	require.NoError(t, err)
	assert.True(t, needs)
	assert.Equal(t, Shape{3, 5}, got)

	got, needs, err = BroadcastShapes(Shape{4, 10}, Shape{10})
	require.NoError(t, err)
	assert.True(t, needs)
	assert.Equal(t, Shape{4, 10}, got)

	got, needs, err = BroadcastShapes(Shape{3, 5}, Shape{3, 5})
	require.NoError(t, err)
	assert.False(t, needs)
	assert.Equal(t, Shape{3, 5}, got)

	_, _, err = BroadcastShapes(Shape{3, 4}, Shape{3, 5})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestTensor_Release(t *testing.T) {
	x := New(7, Shape{2, 3}, Float32)
	assert.Len(t, x.Float32(), 6)
	assert.Nil(t, x.Int32())
	assert.Equal(t, int64(24), x.Bytes())
	require.NoError(t, x.Check())

	x.Release()
	x.Release()
	assert.True(t, x.Disposed())
	assert.Nil(t, x.Float32())
	assert.ErrorIs(t, x.Check(), ErrDisposed)

	var nilTensor *Tensor
	assert.ErrorIs(t, nilTensor.Check(), ErrDisposed)
}

func TestParseDataType(t *testing.T) {
	assert.Equal(t, Int32, ParseDataType("int32"))
	assert.Equal(t, Float32, ParseDataType("float32"))
	assert.Equal(t, Float32, ParseDataType(""))
	assert.Equal(t, "int32", Int32.String())
}
