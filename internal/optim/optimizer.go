// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers update parameters in place and skip parameters that are frozen
// (see nn.Freeze) or that received no gradient.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001}, backend)
//
//	backend.Tape().StartRecording()
//	loss := criterion.Forward(model.Forward(images), labels)
//	grads := autodiff.Backward(loss, backend)
//	backend.Tape().Clear()
//
//	optimizer.Step(grads)
//	optimizer.ZeroGrad()
package optim

import (
	"fmt"

	"github.com/born-ml/trainers/internal/nn"
	"github.com/born-ml/trainers/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all trainable parameters. grads is
	// the map returned by autodiff.Backward.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

// gradientFor returns the gradient of a trainable parameter, or nil when
// the parameter is frozen or did not take part in the forward pass.
func gradientFor[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	if param == nil || !param.RequiresGrad() {
		return nil
	}
	grad, ok := grads[param.Tensor().Raw()]
	if !ok {
		return nil
	}
	if grad.NumElements() != param.Tensor().NumElements() {
		panic(fmt.Sprintf("optim: gradient shape %v does not match parameter %s %v",
			grad.Shape(), param.Name(), param.Tensor().Shape()))
	}
	param.SetGrad(tensor.New[float32, B](grad, param.Tensor().Backend()))
	return grad.AsFloat32()
}
