package ops

import "github.com/born-ml/trainers/internal/tensor"

// Conv2DOp records a 2D convolution. The backward computation is delegated
// to the backend's Conv2DInputBackward and Conv2DKernelBackward kernels.
type Conv2DOp struct {
	base
	stride, padding int
}

// NewConv2DOp creates a new Conv2DOp.
func NewConv2DOp(input, kernel, output *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{
		base:    base{[]*tensor.RawTensor{input, kernel}, output},
		stride:  stride,
		padding: padding,
	}
}

// Backward returns [dL/dinput, dL/dkernel].
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input, kernel := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.Conv2DInputBackward(input, kernel, outputGrad, op.stride, op.padding),
		backend.Conv2DKernelBackward(input, kernel, outputGrad, op.stride, op.padding),
	}
}
