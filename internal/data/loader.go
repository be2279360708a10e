package data

import (
	"fmt"
	"iter"
	"math/rand"

	"github.com/born-ml/trainers/internal/tensor"
)

// Batch is a mini-batch of images [N, C, H, W] and labels [N]. Size is N,
// which is smaller than the loader's batch size for the final batch of an
// epoch when the dataset does not divide evenly.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B]
	Labels *tensor.Tensor[int32, B]
	Size   int
}

// Loader cuts a Dataset into mini-batches, optionally in a new random order
// every epoch.
//
//	loader := data.NewLoader(ds, 64, true, seed, backend)
//	for batch := range loader.Epoch() {
//	    ...
//	}
type Loader[B tensor.Backend] struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	order     []int
	backend   B
}

// NewLoader creates a loader. The shuffle order is drawn from a source
// seeded with seed, so equal seeds give equal batch sequences.
func NewLoader[B tensor.Backend](dataset Dataset, batchSize int, shuffle bool, seed int64, backend B) *Loader[B] {
	if batchSize <= 0 {
		panic(fmt.Sprintf("loader: invalid batch size %d", batchSize))
	}
	order := make([]int, dataset.Len())
	for i := range order {
		order[i] = i
	}
	return &Loader[B]{
		dataset:   dataset,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)), //nolint:gosec // ML randomness, not security
		order:     order,
		backend:   backend,
	}
}

// NumBatches returns the number of batches per epoch.
func (l *Loader[B]) NumBatches() int {
	return (l.dataset.Len() + l.batchSize - 1) / l.batchSize
}

// Epoch reshuffles (when enabled) and yields every sample exactly once,
// batchSize at a time.
func (l *Loader[B]) Epoch() iter.Seq[*Batch[B]] {
	if l.shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	order := append([]int(nil), l.order...)

	return func(yield func(*Batch[B]) bool) {
		for start := 0; start < len(order); start += l.batchSize {
			end := min(start+l.batchSize, len(order))
			if !yield(l.makeBatch(order[start:end])) {
				return
			}
		}
	}
}

func (l *Loader[B]) makeBatch(indices []int) *Batch[B] {
	shape := l.dataset.ImageShape()
	n := len(indices)
	imageSize := shape[0] * shape[1] * shape[2]

	images := tensor.Zeros[float32](tensor.Shape{n, shape[0], shape[1], shape[2]}, l.backend)
	labels := tensor.Zeros[int32](tensor.Shape{n}, l.backend)
	imageData, labelData := images.Data(), labels.Data()

	for i, idx := range indices {
		s := l.dataset.Sample(idx)
		copy(imageData[i*imageSize:(i+1)*imageSize], s.Image)
		labelData[i] = s.Label
	}
	return &Batch[B]{Images: images, Labels: labels, Size: n}
}
