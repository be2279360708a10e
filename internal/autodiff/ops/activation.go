package ops

import "github.com/born-ml/trainers/internal/tensor"

// ReLUOp: d(ReLU(x))/dx = 1 if x > 0, else 0.
type ReLUOp struct{ base }

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(x, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{base{[]*tensor.RawTensor{x}, output}}
}

// Backward computes the ReLU gradient.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0].AsFloat32()
	return []*tensor.RawTensor{mapGrad(outputGrad, op.inputs[0], func(i int) float32 {
		if x[i] > 0 {
			return 1
		}
		return 0
	})}
}

// LeakyReLUOp: derivative is 1 for x > 0 and slope otherwise.
type LeakyReLUOp struct {
	base
	slope float32
}

// NewLeakyReLUOp creates a new LeakyReLUOp.
func NewLeakyReLUOp(x, output *tensor.RawTensor, slope float32) *LeakyReLUOp {
	return &LeakyReLUOp{base: base{[]*tensor.RawTensor{x}, output}, slope: slope}
}

// Backward computes the LeakyReLU gradient.
func (op *LeakyReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0].AsFloat32()
	return []*tensor.RawTensor{mapGrad(outputGrad, op.inputs[0], func(i int) float32 {
		if x[i] > 0 {
			return 1
		}
		return op.slope
	})}
}

// SigmoidOp: d(sigmoid(x))/dx = y * (1 - y), computed from the output.
type SigmoidOp struct{ base }

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(x, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{base{[]*tensor.RawTensor{x}, output}}
}

// Backward computes the sigmoid gradient.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	y := op.output.AsFloat32()
	return []*tensor.RawTensor{mapGrad(outputGrad, op.inputs[0], func(i int) float32 {
		return y[i] * (1 - y[i])
	})}
}

// TanhOp: d(tanh(x))/dx = 1 - y^2, computed from the output.
type TanhOp struct{ base }

// NewTanhOp creates a new TanhOp.
func NewTanhOp(x, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{base{[]*tensor.RawTensor{x}, output}}
}

// Backward computes the tanh gradient.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	y := op.output.AsFloat32()
	return []*tensor.RawTensor{mapGrad(outputGrad, op.inputs[0], func(i int) float32 {
		return 1 - y[i]*y[i]
	})}
}
