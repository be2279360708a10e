package nn

import (
	"fmt"

	"github.com/born-ml/trainers/internal/tensor"
)

// Flatten reshapes [N, d1, d2, ...] to [N, d1*d2*...].
type Flatten[B tensor.Backend] struct {
	stateless[B]
}

// NewFlatten creates a new Flatten module.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return &Flatten[B]{}
}

// Forward flattens all dimensions after the first.
func (f *Flatten[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("flatten: expected at least 2D input, got shape %v", shape))
	}
	return input.Reshape(shape[0], -1)
}

// Unflatten reshapes [N, prod(dims)] to [N, dims...].
//
//	toImage := nn.NewUnflatten[Backend](1, 28, 28) // [N, 784] -> [N, 1, 28, 28]
type Unflatten[B tensor.Backend] struct {
	stateless[B]
	dims []int
}

// NewUnflatten creates an Unflatten producing [N, dims...].
func NewUnflatten[B tensor.Backend](dims ...int) *Unflatten[B] {
	return &Unflatten[B]{dims: append([]int(nil), dims...)}
}

// Forward unflattens the trailing dimension.
func (u *Unflatten[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	want := tensor.Shape(u.dims).NumElements()
	if len(shape) != 2 || shape[1] != want {
		panic(fmt.Sprintf("unflatten: expected [N, %d], got shape %v", want, shape))
	}
	return input.Reshape(append([]int{shape[0]}, u.dims...)...)
}
