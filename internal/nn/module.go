// Package nn implements the neural network building blocks used by the
// trainers.
//
// This package provides:
//   - Module interface: Base interface for all NN components
//   - Parameter: Trainable tensors with a requires-grad flag (see Freeze)
//   - Layers: Linear, Conv2D, MaxPool2D, Flatten, Unflatten
//   - Activations: ReLU, LeakyReLU, Sigmoid, Tanh
//   - Losses: CrossEntropyLoss, BCELoss
//   - Sequential: Container for stacking layers
//   - Save/Load: .born checkpoints of a module's state dict
package nn

import (
	"github.com/born-ml/trainers/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(128, 10, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module, including
	// nested ones. Modules without weights return nil.
	Parameters() []*Parameter[B]

	// StateDict returns parameter names mapped to their raw tensors. The
	// tensors are shared with the module, not copied.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies values from stateDict into the module's
	// parameters, validating names, shapes and dtypes.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// stateless is embedded by modules without parameters.
type stateless[B tensor.Backend] struct{}

func (stateless[B]) Parameters() []*Parameter[B] { return nil }

func (stateless[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

func (stateless[B]) LoadStateDict(map[string]*tensor.RawTensor) error { return nil }
