package cpu

import (
	"math"

	"github.com/born-ml/trainers/internal/tensor"
)

// ReLU computes max(0, x).
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("relu", x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// LeakyReLU computes x for x > 0 and slope*x otherwise.
func (cpu *CPUBackend) LeakyReLU(x *tensor.RawTensor, slope float32) *tensor.RawTensor {
	return cpu.unary("leaky_relu", x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return slope * v
	})
}

// Sigmoid computes 1 / (1 + exp(-x)) without overflowing for large |x|.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sigmoid", x, func(v float32) float32 {
		if v >= 0 {
			return float32(1 / (1 + math.Exp(-float64(v))))
		}
		e := math.Exp(float64(v))
		return float32(e / (1 + e))
	})
}

// Tanh computes the hyperbolic tangent.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("tanh", x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}
