package nn

import (
	"fmt"

	"github.com/born-ml/trainers/internal/autodiff/ops"
	"github.com/born-ml/trainers/internal/tensor"
)

// CrossEntropyBackend is implemented by autodiff-aware backends that record
// cross-entropy on their tape.
type CrossEntropyBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// BCEBackend is implemented by autodiff-aware backends that record binary
// cross-entropy on their tape.
type BCEBackend interface {
	BinaryCrossEntropy(probs, targets *tensor.RawTensor) *tensor.RawTensor
}

// CrossEntropyLoss computes mean softmax cross-entropy for multi-class
// classification.
//
//	Loss = mean_i(logsumexp(logits_i) - logits_i[target_i])
//
// Logits are raw scores of shape [batch, classes]; targets are int32 class
// indices of shape [batch]. The result has shape [1].
//
//	criterion := nn.NewCrossEntropyLoss(backend)
//	loss := criterion.Forward(model.Forward(images), labels)
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the loss. On an autodiff backend the operation is
// recorded on the tape; otherwise only the value is computed.
func (c *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	if adBackend, ok := any(c.backend).(CrossEntropyBackend); ok {
		return tensor.New[float32, B](adBackend.CrossEntropy(logits.Raw(), targets.Raw()), c.backend)
	}
	return tensor.New[float32, B](ops.CrossEntropyForward(logits.Raw(), targets.Raw(), c.backend.Device()), c.backend)
}

// BCELoss computes mean binary cross-entropy on probabilities:
//
//	Loss = -mean(y*log(p) + (1-y)*log(1-p))
//
// Each log term is clamped at -100 so saturated probabilities give a large
// but finite loss. Predictions and targets must have the same shape.
type BCELoss[B tensor.Backend] struct {
	backend B
}

// NewBCELoss creates a new binary cross-entropy loss function.
func NewBCELoss[B tensor.Backend](backend B) *BCELoss[B] {
	return &BCELoss[B]{backend: backend}
}

// Forward computes the loss, recording it when the backend supports it.
func (l *BCELoss[B]) Forward(probs, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !probs.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("BCELoss: predictions %v and targets %v must have the same shape", probs.Shape(), targets.Shape()))
	}
	if adBackend, ok := any(l.backend).(BCEBackend); ok {
		return tensor.New[float32, B](adBackend.BinaryCrossEntropy(probs.Raw(), targets.Raw()), l.backend)
	}
	return tensor.New[float32, B](ops.BCEForward(probs.Raw(), targets.Raw(), l.backend.Device()), l.backend)
}

// Accuracy returns the number of rows of logits whose arg-max equals the
// target class.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) int {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Accuracy: logits must be 2D [batch, classes], got %v", shape))
	}
	batch, classes := shape[0], shape[1]
	labels := targets.Data()
	if len(labels) != batch {
		panic(fmt.Sprintf("Accuracy: %d targets for %d rows", len(labels), batch))
	}

	data := logits.Data()
	correct := 0
	for i := 0; i < batch; i++ {
		row := data[i*classes : (i+1)*classes]
		best := 0
		for j := 1; j < classes; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		if int32(best) == labels[i] { //nolint:gosec // G115: class count fits in int32
			correct++
		}
	}
	return correct
}
