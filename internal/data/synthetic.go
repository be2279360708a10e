package data

import (
	"math/rand"
)

// Synthetic generates n labeled images of the given shape without any
// files. Each class draws a distinct bright band on a dark background, plus
// seeded noise, so models can learn something and runs are reproducible.
// Values are in [-1, 1].
func Synthetic(n, classes int, shape [3]int, seed int64) *InMemory {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // ML randomness, not security
	channels, height, width := shape[0], shape[1], shape[2]

	samples := make([]Sample, n)
	for i := range samples {
		label := i % classes
		img := make([]float32, channels*height*width)
		band := label * height / classes
		for c := 0; c < channels; c++ {
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					v := float32(-1)
					if y >= band && y < band+max(1, height/classes) {
						v = 0.8 - 0.2*float32(c)
					}
					v += 0.1 * float32(rng.NormFloat64())
					img[(c*height+y)*width+x] = min(max(v, -1), 1)
				}
			}
		}
		samples[i] = Sample{Image: img, Label: int32(label)} //nolint:gosec // G115: label < classes
	}
	return &InMemory{samples: samples, shape: shape}
}

// SyntheticMNIST returns n synthetic 1x28x28 digit-like samples.
func SyntheticMNIST(n int, seed int64) *InMemory {
	return Synthetic(n, 10, [3]int{MNISTChannels, MNISTHeight, MNISTWidth}, seed)
}

// SyntheticCIFAR returns n synthetic 3x32x32 samples over 10 classes.
func SyntheticCIFAR(n int, seed int64) *InMemory {
	return Synthetic(n, CIFARClasses, [3]int{CIFARChannels, CIFARHeight, CIFARWidth}, seed)
}
