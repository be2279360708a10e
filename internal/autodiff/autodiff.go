// Package autodiff implements reverse-mode automatic differentiation using
// the decorator pattern.
//
// AutodiffBackend wraps any tensor.Backend and records every differentiable
// operation on a GradientTape while recording is on:
//
//	backend := autodiff.New[tensor.Backend](cpu.New())
//	backend.Tape().StartRecording()
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, backend)
//	dx := grads[x.Raw()]
package autodiff

import (
	"github.com/born-ml/trainers/internal/autodiff/ops"
	"github.com/born-ml/trainers/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// NoGrad runs fn with recording disabled, restoring the previous state.
// Tensors produced inside fn are constants as far as the tape is concerned.
func (b *AutodiffBackend[B]) NoGrad(fn func()) {
	NoGrad(b.tape, fn)
}

func (b *AutodiffBackend[B]) record(op ops.Operation) {
	if b.tape.IsRecording() {
		b.tape.Record(op)
	}
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.record(ops.NewAddOp(x, y, out))
	return out
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.record(ops.NewSubOp(x, y, out))
	return out
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.record(ops.NewMulOp(x, y, out))
	return out
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	b.record(ops.NewMatMulOp(x, y, out))
	return out
}

// MulScalar multiplies by a constant and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.MulScalar(x, s)
	b.record(ops.NewScalarOp(x, out, s))
	return out
}

// AddScalar adds a constant and records the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.AddScalar(x, s)
	b.record(ops.NewScalarOp(x, out, 1))
	return out
}

// Reshape reshapes a tensor and records the operation.
//
// Reshape must be on the tape: a Conv2D bias [C] is viewed as [1, C, 1, 1]
// for broadcasting, and without ReshapeOp its gradient would stop at the
// view instead of reaching the parameter.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(t, newShape)
	b.record(ops.NewReshapeOp(t, out))
	return out
}

// Transpose transposes a tensor and records the operation.
//
// Linear computes x @ W^T; the transposed weight is a new tensor, so the
// TransposeOp is what carries the gradient back to W.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	out := b.inner.Transpose(t, axes...)
	b.record(ops.NewTransposeOp(t, out, axes))
	return out
}

// Conv2D performs 2D convolution and records the operation.
func (b *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	out := b.inner.Conv2D(input, kernel, stride, padding)
	b.record(ops.NewConv2DOp(input, kernel, out, stride, padding))
	return out
}

// Conv2DInputBackward delegates to the inner backend; it is never recorded.
func (b *AutodiffBackend[B]) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// Conv2DKernelBackward delegates to the inner backend; it is never recorded.
func (b *AutodiffBackend[B]) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, grad, stride, padding)
}

// MaxPool2D performs max pooling and records the operation.
func (b *AutodiffBackend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	out := b.inner.MaxPool2D(input, kernelSize, stride)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMaxPool2DOp(input, out, kernelSize, stride))
	}
	return out
}

// ReLU applies ReLU and records the operation.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.record(ops.NewReLUOp(x, out))
	return out
}

// LeakyReLU applies LeakyReLU and records the operation.
func (b *AutodiffBackend[B]) LeakyReLU(x *tensor.RawTensor, slope float32) *tensor.RawTensor {
	out := b.inner.LeakyReLU(x, slope)
	b.record(ops.NewLeakyReLUOp(x, out, slope))
	return out
}

// Sigmoid applies the logistic function and records the operation.
func (b *AutodiffBackend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sigmoid(x)
	b.record(ops.NewSigmoidOp(x, out))
	return out
}

// Tanh applies tanh and records the operation.
func (b *AutodiffBackend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Tanh(x)
	b.record(ops.NewTanhOp(x, out))
	return out
}

// CrossEntropy computes mean softmax cross-entropy over int32 targets and
// records the operation.
func (b *AutodiffBackend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	out := ops.CrossEntropyForward(logits, targets, b.Device())
	b.record(ops.NewCrossEntropyOp(logits, targets, out))
	return out
}

// BinaryCrossEntropy computes mean binary cross-entropy on probabilities
// and records the operation.
func (b *AutodiffBackend[B]) BinaryCrossEntropy(probs, targets *tensor.RawTensor) *tensor.RawTensor {
	out := ops.BCEForward(probs, targets, b.Device())
	b.record(ops.NewBCEOp(probs, targets, out))
	return out
}
