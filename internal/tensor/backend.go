package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations and always
// return newly allocated results.
//
// Implementations:
//   - cpu.CPUBackend: pure Go, parallel over rows/planes
//   - webgpu.Backend: CPU backend with GPU matrix multiplication
//   - autodiff.AutodiffBackend: decorator recording a gradient tape
type Backend interface {
	// Element-wise binary operations with broadcasting
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MatMul multiplies 2D matrices: (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// Scalar operations
	MulScalar(x *RawTensor, scalar float32) *RawTensor
	AddScalar(x *RawTensor, scalar float32) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Convolution and pooling on NCHW tensors.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor

	// Activations
	ReLU(x *RawTensor) *RawTensor
	LeakyReLU(x *RawTensor, slope float32) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
