package nn

import (
	"fmt"

	"github.com/born-ml/trainers/internal/tensor"
)

// ReLU applies f(x) = max(0, x) element-wise.
type ReLU[B tensor.Backend] struct {
	stateless[B]
}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	return tensor.New[float32, B](backend.ReLU(input.Raw()), backend)
}

// LeakyReLU applies f(x) = x for x > 0 and slope*x otherwise.
//
//	act := nn.NewLeakyReLU[Backend](0.2)
type LeakyReLU[B tensor.Backend] struct {
	stateless[B]
	slope float32
}

// NewLeakyReLU creates a LeakyReLU with the given negative slope.
func NewLeakyReLU[B tensor.Backend](slope float32) *LeakyReLU[B] {
	return &LeakyReLU[B]{slope: slope}
}

// Forward applies LeakyReLU.
func (l *LeakyReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	return tensor.New[float32, B](backend.LeakyReLU(input.Raw(), l.slope), backend)
}

// String returns a string representation of the layer.
func (l *LeakyReLU[B]) String() string {
	return fmt.Sprintf("LeakyReLU(negative_slope=%g)", l.slope)
}

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)), squashing values into (0, 1).
type Sigmoid[B tensor.Backend] struct {
	stateless[B]
}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies Sigmoid.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	return tensor.New[float32, B](backend.Sigmoid(input.Raw()), backend)
}

// Tanh squashes values into (-1, 1).
type Tanh[B tensor.Backend] struct {
	stateless[B]
}

// NewTanh creates a new Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies Tanh.
func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	return tensor.New[float32, B](backend.Tanh(input.Raw()), backend)
}
