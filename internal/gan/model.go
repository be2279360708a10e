// Package gan trains a fully connected generative adversarial network on
// 28x28 grayscale digits.
//
// The generator maps latent noise to images in [-1, 1]; the discriminator
// maps images to the probability that they are real. Both are trained with
// binary cross-entropy and their own Adam optimizer.
package gan

import (
	"github.com/born-ml/trainers/internal/nn"
	"github.com/born-ml/trainers/internal/tensor"
)

// Hidden layer widths.
const (
	genHidden1  = 256
	genHidden2  = 512
	discHidden1 = 512
	discHidden2 = 256
)

// Generator maps noise [N, latent] to images [N, C, H, W]:
//
//	Linear(latent, 256) -> LeakyReLU -> Linear(256, 512) -> LeakyReLU ->
//	Linear(512, C*H*W) -> Tanh -> Unflatten(C, H, W)
type Generator[B tensor.Backend] struct {
	*nn.Sequential[B]
	latentDim  int
	imageShape [3]int
	backend    B
}

// NewGenerator creates a generator for images of imageShape (C, H, W).
func NewGenerator[B tensor.Backend](latentDim int, imageShape [3]int, slope float32, backend B) *Generator[B] {
	imageSize := imageShape[0] * imageShape[1] * imageShape[2]
	return &Generator[B]{
		Sequential: nn.NewSequential[B](
			nn.NewLinear(latentDim, genHidden1, backend),
			nn.NewLeakyReLU[B](slope),
			nn.NewLinear(genHidden1, genHidden2, backend),
			nn.NewLeakyReLU[B](slope),
			nn.NewLinear(genHidden2, imageSize, backend),
			nn.NewTanh[B](),
			nn.NewUnflatten[B](imageShape[0], imageShape[1], imageShape[2]),
		),
		latentDim:  latentDim,
		imageShape: imageShape,
		backend:    backend,
	}
}

// LatentDim returns the size of the noise vector.
func (g *Generator[B]) LatentDim() int {
	return g.latentDim
}

// Noise draws n standard normal latent vectors, shape [n, latent].
func (g *Generator[B]) Noise(n int) *tensor.Tensor[float32, B] {
	return tensor.Randn(tensor.Shape{n, g.latentDim}, g.backend)
}

// Sample generates n images from fresh noise. On an autodiff backend nothing
// is recorded on the tape.
func (g *Generator[B]) Sample(n int) *tensor.Tensor[float32, B] {
	var images *tensor.Tensor[float32, B]
	withoutGrad(g.backend, func() {
		images = g.Forward(g.Noise(n))
	})
	return images
}

// Discriminator maps images [N, C, H, W] to probabilities [N, 1]:
//
//	Flatten -> Linear(C*H*W, 512) -> LeakyReLU -> Linear(512, 256) ->
//	LeakyReLU -> Linear(256, 1) -> Sigmoid
type Discriminator[B tensor.Backend] struct {
	*nn.Sequential[B]
}

// NewDiscriminator creates a discriminator for images of imageShape.
func NewDiscriminator[B tensor.Backend](imageShape [3]int, slope float32, backend B) *Discriminator[B] {
	imageSize := imageShape[0] * imageShape[1] * imageShape[2]
	return &Discriminator[B]{
		Sequential: nn.NewSequential[B](
			nn.NewFlatten[B](),
			nn.NewLinear(imageSize, discHidden1, backend),
			nn.NewLeakyReLU[B](slope),
			nn.NewLinear(discHidden1, discHidden2, backend),
			nn.NewLeakyReLU[B](slope),
			nn.NewLinear(discHidden2, 1, backend),
			nn.NewSigmoid[B](),
		),
	}
}

// Labels returns an [n, 1] tensor filled with value: 1 marks real images,
// 0 fake ones. n must be the actual size of the batch being scored.
func Labels[B tensor.Backend](n int, value float32, backend B) *tensor.Tensor[float32, B] {
	return tensor.Full[float32](tensor.Shape{n, 1}, value, backend)
}

// withoutGrad runs fn with tape recording disabled when the backend has a
// tape, and plainly otherwise.
func withoutGrad(backend any, fn func()) {
	if b, ok := backend.(interface{ NoGrad(func()) }); ok {
		b.NoGrad(fn)
		return
	}
	fn()
}
