package cpu

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/parallel"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// MatMul performs 2D matrix multiplication with optional transposes.
//
//	op(A) (M, K) @ op(B) (K, N) -> (M, N)
//
// Output rows are split across workers.
func (b *Backend) MatMul(alloc kernels.Allocator, x, y *tensor.Tensor, transposeA, transposeB bool) (*tensor.Tensor, error) {
	if err := requireFloat("matmul", x, y); err != nil {
		return nil, err
	}
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 {
		return nil, fmt.Errorf("matmul: only 2D tensors supported, got %dD and %dD", len(xs), len(ys))
	}

	m, k := xs[0], xs[1]
	if transposeA {
		m, k = k, m
	}
	kAlt, n := ys[0], ys[1]
	if transposeB {
		kAlt, n = n, kAlt
	}
	if k != kAlt {
		return nil, fmt.Errorf("%w: matmul %v @ %v (transposeA=%t, transposeB=%t)",
			tensor.ErrShapeMismatch, xs, ys, transposeA, transposeB)
	}

	out := alloc.Alloc(tensor.Shape{m, n}, tensor.Float32)
	matmulFloat32(out.Float32(), x.Float32(), y.Float32(), m, k, n, transposeA, transposeB, b.par)
	return out, nil
}

// matmulFloat32 computes C[i,j] = sum_k A[i,k] * B[k,j] over row-major buffers.
func matmulFloat32(c, a, bm []float32, m, k, n int, transposeA, transposeB bool, cfg parallel.Config) {
	aAt := func(i, p int) float32 {
		if transposeA {
			return a[p*m+i]
		}
		return a[i*k+p]
	}

	rowCfg := cfg
	rowCfg.MinChunkSize = 1
	if m*k*n < 1<<14 {
		rowCfg = parallel.Sequential
	}

	parallel.ForRange(m, func(start, end int) {
		for i := start; i < end; i++ {
			row := c[i*n : (i+1)*n]
			for j := range row {
				row[j] = 0
			}
			for p := 0; p < k; p++ {
				av := aAt(i, p)
				if av == 0 {
					continue
				}
				if transposeB {
					for j := 0; j < n; j++ {
						row[j] += av * bm[j*k+p]
					}
				} else {
					bRow := bm[p*n : (p+1)*n]
					for j, bv := range bRow {
						row[j] += av * bv
					}
				}
			}
		}
	}, rowCfg)
}
