package nn

import (
	"fmt"

	"github.com/born-ml/trainers/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer over square windows.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, (height-k)/stride+1, (width-k)/stride+1]
type MaxPool2D[B tensor.Backend] struct {
	stateless[B]
	kernelSize int
	stride     int
}

// NewMaxPool2D creates a new 2D max pooling layer.
//
//	pool := nn.NewMaxPool2D[Backend](2, 2) // halves height and width
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride}
}

// Forward performs max pooling.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	backend := input.Backend()
	return tensor.New[float32, B](backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride), backend)
}

// String returns a string representation of the layer.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(kernel_size=%d, stride=%d)", m.kernelSize, m.stride)
}

// ComputeOutputSize returns [out_height, out_width] for an input size.
func (m *MaxPool2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	outH := (inputH-m.kernelSize)/m.stride + 1
	outW := (inputW-m.kernelSize)/m.stride + 1
	return [2]int{outH, outW}
}
