package ops

import "github.com/born-ml/trainers/internal/tensor"

// AddOp is output = a + b with broadcasting.
// Both inputs receive the output gradient, summed over broadcast dimensions.
type AddOp struct{ base }

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{base{[]*tensor.RawTensor{a, b}, output}}
}

// Backward computes input gradients for addition.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceBroadcast(outputGrad, op.inputs[0].Shape()),
		reduceBroadcast(outputGrad, op.inputs[1].Shape()),
	}
}

// SubOp is output = a - b with broadcasting.
type SubOp struct{ base }

// NewSubOp creates a new SubOp.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{base{[]*tensor.RawTensor{a, b}, output}}
}

// Backward computes input gradients for subtraction: grad and -grad.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceBroadcast(outputGrad, op.inputs[0].Shape()),
		reduceBroadcast(backend.MulScalar(outputGrad, -1), op.inputs[1].Shape()),
	}
}

// MulOp is output = a * b with broadcasting.
// d(a*b)/da = b and d(a*b)/db = a.
type MulOp struct{ base }

// NewMulOp creates a new MulOp.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{base{[]*tensor.RawTensor{a, b}, output}}
}

// Backward computes input gradients for multiplication.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		reduceBroadcast(backend.Mul(outputGrad, b), a.Shape()),
		reduceBroadcast(backend.Mul(outputGrad, a), b.Shape()),
	}
}

// ScalarOp covers output = x*scale + shift with constant scalars.
type ScalarOp struct {
	base
	scale float32
}

// NewScalarOp creates an op whose gradient is outputGrad * scale.
// AddScalar records it with scale 1.
func NewScalarOp(x, output *tensor.RawTensor, scale float32) *ScalarOp {
	return &ScalarOp{base: base{[]*tensor.RawTensor{x}, output}, scale: scale}
}

// Backward scales the output gradient.
func (op *ScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if op.scale == 1 {
		return []*tensor.RawTensor{outputGrad}
	}
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scale)}
}
