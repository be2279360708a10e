package cpu

import (
	"fmt"

	"github.com/born-ml/trainers/internal/parallel"
	"github.com/born-ml/trainers/internal/tensor"
)

// Reshape returns a view with a new shape. The element count must match.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v into %v", t.Shape(), newShape))
	}
	return t.View(newShape)
}

// Transpose permutes dimensions into a new contiguous tensor. With no axes
// the dimensions are reversed.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: %d axes for %dD tensor", len(axes), ndim))
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}
	out, err := tensor.NewRaw(outShape, t.DType(), cpu.device)
	if err != nil {
		panic("transpose: " + err.Error())
	}

	elem := t.DType().Size()
	src, dst := t.Data(), out.Data()
	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	if ndim == 2 {
		rows, cols := shape[0], shape[1]
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				copy(dst[(c*rows+r)*elem:(c*rows+r+1)*elem], src[(r*cols+c)*elem:(r*cols+c+1)*elem])
			}
		}
		return out
	}

	for o := 0; o < out.NumElements(); o++ {
		rem, in := o, 0
		for d := 0; d < ndim; d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			in += coord * inStrides[axes[d]]
		}
		copy(dst[o*elem:(o+1)*elem], src[in*elem:(in+1)*elem])
	}
	return out
}

// rowParallel picks a loop runner for rows of the given per-row cost.
// Small problems stay on the calling goroutine.
func (cpu *CPUBackend) rowParallel(rows, perRow int) func(int, func(int)) {
	if rows*perRow < 1<<14 {
		return func(n int, f func(int)) {
			for i := 0; i < n; i++ {
				f(i)
			}
		}
	}
	cfg := cpu.par.WithMinChunk(max(1, (1<<12)/max(perRow, 1)))
	return func(n int, f func(int)) {
		parallel.For(n, f, cfg)
	}
}
