package nn

import (
	"fmt"

	"github.com/born-ml/trainers/internal/tensor"
)

// Conv2D is a 2D convolutional layer with a per-channel bias.
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding - kernel_h) / stride + 1
//	out_w = (width + 2*padding - kernel_w) / stride + 1
//
// Example:
//
//	conv := nn.NewConv2D(3, 32, 3, 1, 1, backend)
//	output := conv.Forward(images) // [N, 3, 32, 32] -> [N, 32, 32, 32]
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int

	weight *Parameter[B] // [out_channels, in_channels, k, k]
	bias   *Parameter[B] // [out_channels]

	backend B
}

// NewConv2D creates a square-kernel convolution with Xavier-initialized
// weights and zero bias.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, backend B) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}

	// fan_in = in_channels * k * k, fan_out = out_channels * k * k
	area := kernelSize * kernelSize
	weight := Xavier(inChannels*area, outChannels*area,
		tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}, backend)
	bias := Zeros(tensor.Shape{outChannels}, backend)

	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
		backend:     backend,
	}
}

// Forward performs the convolution and adds the bias.
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", inputShape[1], c.inChannels))
	}

	outputRaw := c.backend.Conv2D(input.Raw(), c.weight.Tensor().Raw(), c.stride, c.padding)
	output := tensor.New[float32, B](outputRaw, c.backend)

	// Bias [C] viewed as [1, C, 1, 1]; the reshape goes through the backend
	// so the gradient reaches the parameter.
	return output.Add(c.bias.Tensor().Reshape(1, c.outChannels, 1, 1))
}

// Parameters returns [weight, bias].
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.weight, c.bias}
}

// StateDict returns {"weight", "bias"}.
func (c *Conv2D[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": c.weight.Tensor().Raw(),
		"bias":   c.bias.Tensor().Raw(),
	}
}

// LoadStateDict loads weight and bias.
func (c *Conv2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadInto(c.weight, stateDict, "weight"); err != nil {
		return err
	}
	return loadInto(c.bias, stateDict, "bias")
}

// String returns a string representation of the layer.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(in_channels=%d, out_channels=%d, kernel_size=%d, stride=%d, padding=%d)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding)
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int {
	return c.outChannels
}

// ComputeOutputSize returns [out_height, out_width] for an input size.
func (c *Conv2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	outH := (inputH+2*c.padding-c.kernelSize)/c.stride + 1
	outW := (inputW+2*c.padding-c.kernelSize)/c.stride + 1
	return [2]int{outH, outW}
}
