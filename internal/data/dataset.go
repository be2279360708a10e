// Package data reads the image datasets used by the trainers and batches
// them into tensors.
//
// Pixels are normalized from [0, 255] to [-1, 1] (mean 0.5, std 0.5 per
// channel) at load time, so every Sample is ready for the models.
package data

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the dataset files are missing from the data
// directory.
var ErrNotFound = errors.New("dataset not found")

// Sample is one image with its class label. Image is laid out as C*H*W.
type Sample struct {
	Image []float32
	Label int32
}

// Dataset is a finite, indexable collection of samples.
type Dataset interface {
	Len() int
	Sample(i int) Sample
	// ImageShape returns (channels, height, width).
	ImageShape() [3]int
}

// InMemory is a Dataset backed by a slice.
type InMemory struct {
	samples []Sample
	shape   [3]int
}

// NewInMemory creates a dataset from samples whose images all have
// shape[0]*shape[1]*shape[2] values.
func NewInMemory(samples []Sample, shape [3]int) (*InMemory, error) {
	size := shape[0] * shape[1] * shape[2]
	if size <= 0 {
		return nil, fmt.Errorf("invalid image shape %v", shape)
	}
	for i, s := range samples {
		if len(s.Image) != size {
			return nil, fmt.Errorf("sample %d: image has %d values, want %d", i, len(s.Image), size)
		}
	}
	return &InMemory{samples: samples, shape: shape}, nil
}

// Len returns the number of samples.
func (d *InMemory) Len() int { return len(d.samples) }

// Sample returns the i-th sample.
func (d *InMemory) Sample(i int) Sample { return d.samples[i] }

// ImageShape returns (channels, height, width).
func (d *InMemory) ImageShape() [3]int { return d.shape }

// Limit returns a dataset with at most n samples. n <= 0 keeps everything.
func (d *InMemory) Limit(n int) *InMemory {
	if n <= 0 || n >= len(d.samples) {
		return d
	}
	return &InMemory{samples: d.samples[:n], shape: d.shape}
}

// Normalize maps a raw pixel in [0, 255] to [-1, 1].
func Normalize(pixel byte) float32 {
	return (float32(pixel)/255 - 0.5) / 0.5
}

// normalizeAll converts raw pixels into a fresh normalized slice.
func normalizeAll(pixels []byte) []float32 {
	out := make([]float32, len(pixels))
	for i, p := range pixels {
		out[i] = Normalize(p)
	}
	return out
}
