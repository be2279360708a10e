package cpu

import (
	"fmt"

	"github.com/born-ml/trainers/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Output rows are computed in parallel with an i-k-j loop order.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	requireFloat32("matmul", a, b)
	as, bs := a.Shape(), b.Shape()
	if len(as) != 2 || len(bs) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %v and %v", as, bs))
	}
	if as[1] != bs[0] {
		panic(fmt.Sprintf("matmul: inner dimensions differ: %v @ %v", as, bs))
	}
	m, k, n := as[0], as[1], bs[1]
	out := cpu.alloc(tensor.Shape{m, n}, "matmul")
	matmulFloat32(out.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, cpu.rowParallel(m, k*n))
	return out
}

func matmulFloat32(c, a, b []float32, m, k, n int, forRows func(int, func(int))) {
	forRows(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			av := a[i*k+p]
			if av == 0 {
				continue
			}
			brow := b[p*n : (p+1)*n]
			for j, bv := range brow {
				row[j] += av * bv
			}
		}
	})
}
