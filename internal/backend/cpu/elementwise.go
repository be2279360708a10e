package cpu

import (
	"fmt"

	"github.com/born-ml/trainers/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// MulScalar multiplies every element by s.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return cpu.unary("mul_scalar", x, func(v float32) float32 { return v * s })
}

// AddScalar adds s to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return cpu.unary("add_scalar", x, func(v float32) float32 { return v + s })
}

func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	requireFloat32(op, x)
	out := cpu.alloc(x.Shape(), op)
	src, dst := x.AsFloat32(), out.AsFloat32()
	for i, v := range src {
		dst[i] = f(v)
	}
	return out
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	requireFloat32(op, a, b)
	outShape, broadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	out := cpu.alloc(outShape, op)
	ad, bd, od := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()

	switch {
	case !broadcast:
		for i := range od {
			od[i] = f(ad[i], bd[i])
		}
	case len(bd) == 1:
		for i := range od {
			od[i] = f(ad[i%len(ad)], bd[0])
		}
	default:
		as := broadcastStrides(a.Shape(), outShape)
		bs := broadcastStrides(b.Shape(), outShape)
		idx := make([]int, len(outShape))
		ai, bi := 0, 0
		for i := range od {
			od[i] = f(ad[ai], bd[bi])
			// odometer increment over outShape
			for d := len(outShape) - 1; d >= 0; d-- {
				idx[d]++
				ai += as[d]
				bi += bs[d]
				if idx[d] < outShape[d] {
					break
				}
				ai -= as[d] * outShape[d]
				bi -= bs[d] * outShape[d]
				idx[d] = 0
			}
		}
	}
	return out
}

// broadcastStrides returns strides of s aligned to out, with 0 for
// broadcast dimensions.
func broadcastStrides(s, out tensor.Shape) []int {
	strides := make([]int, len(out))
	src := s.ComputeStrides()
	offset := len(out) - len(s)
	for i := range s {
		if s[i] != 1 {
			strides[offset+i] = src[i]
		}
	}
	return strides
}
