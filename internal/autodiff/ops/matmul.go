package ops

import "github.com/born-ml/trainers/internal/tensor"

// MatMulOp is output = a @ b for 2D matrices.
//
// Backward:
//
//	dA = grad @ B^T
//	dB = A^T @ grad
type MatMulOp struct{ base }

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp(a, b, output *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{base{[]*tensor.RawTensor{a, b}, output}}
}

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.MatMul(outputGrad, backend.Transpose(b)),
		backend.MatMul(backend.Transpose(a), outputGrad),
	}
}
