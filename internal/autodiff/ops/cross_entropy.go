package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/trainers/internal/tensor"
)

// CrossEntropyOp is the fused softmax + negative log-likelihood loss.
//
// Forward:
//
//	Loss = mean_b(-log_softmax(logits[b])[targets[b]])
//
// Backward:
//
//	dL/dlogits[b,i] = (softmax(logits[b])[i] - onehot[b,i]) / batch_size
//
// Logits are [batch_size, num_classes], targets are int32 class indices
// [batch_size]. Targets receive no gradient.
type CrossEntropyOp struct {
	base
	targets *tensor.RawTensor
}

// NewCrossEntropyOp creates a new cross-entropy operation.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{base: base{[]*tensor.RawTensor{logits}, output}, targets: targets}
}

// CrossEntropyForward computes the mean cross-entropy as a [1] tensor.
func CrossEntropyForward(logits, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	batch, classes := checkCrossEntropy(logits, targets)
	l, t := logits.AsFloat32(), targets.AsInt32()

	var total float64
	for b := 0; b < batch; b++ {
		row := l[b*classes : (b+1)*classes]
		total -= float64(row[t[b]]) - logSumExp(row)
	}
	return scalarLoss(float32(total/float64(batch)), device)
}

// Backward computes the gradient with respect to logits.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	logits := op.inputs[0]
	batch, classes := checkCrossEntropy(logits, op.targets)
	grad := newLike(logits.Shape(), logits.Device())

	l, t, g := logits.AsFloat32(), op.targets.AsInt32(), grad.AsFloat32()
	scale := outputGrad.AsFloat32()[0] / float32(batch)
	for b := 0; b < batch; b++ {
		row := l[b*classes : (b+1)*classes]
		lse := logSumExp(row)
		for i, v := range row {
			p := float32(math.Exp(float64(v) - lse))
			if int32(i) == t[b] {
				p--
			}
			g[b*classes+i] = p * scale
		}
	}
	return []*tensor.RawTensor{grad}
}

func checkCrossEntropy(logits, targets *tensor.RawTensor) (batch, classes int) {
	s := logits.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("cross_entropy: logits must be 2D [batch_size, num_classes], got %v", s))
	}
	batch, classes = s[0], s[1]
	if targets.NumElements() != batch {
		panic(fmt.Sprintf("cross_entropy: %d targets for batch of %d", targets.NumElements(), batch))
	}
	for _, c := range targets.AsInt32() {
		if c < 0 || int(c) >= classes {
			panic(fmt.Sprintf("cross_entropy: target %d out of range [0, %d)", c, classes))
		}
	}
	return batch, classes
}

// logSumExp computes log(sum(exp(z))) with the max-shift trick.
func logSumExp(z []float32) float64 {
	m := z[0]
	for _, v := range z[1:] {
		if v > m {
			m = v
		}
	}
	var sum float64
	for _, v := range z {
		sum += math.Exp(float64(v - m))
	}
	return float64(m) + math.Log(sum)
}
