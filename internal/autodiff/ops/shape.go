package ops

import "github.com/born-ml/trainers/internal/tensor"

// ReshapeOp records a reshape so gradients reach the original tensor, e.g.
// a Conv2D bias [C] viewed as [1, C, 1, 1].
type ReshapeOp struct{ base }

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(input, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{base{[]*tensor.RawTensor{input}, output}}
}

// Backward reshapes the gradient back to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.View(op.inputs[0].Shape())}
}

// TransposeOp records a dimension permutation.
type TransposeOp struct {
	base
	axes []int
}

// NewTransposeOp creates a new TransposeOp. Empty axes means reversed.
func NewTransposeOp(input, output *tensor.RawTensor, axes []int) *TransposeOp {
	if len(axes) == 0 {
		n := len(input.Shape())
		axes = make([]int, n)
		for i := range axes {
			axes[i] = n - 1 - i
		}
	}
	return &TransposeOp{base: base{[]*tensor.RawTensor{input}, output}, axes: axes}
}

// Backward applies the inverse permutation to the gradient.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}
