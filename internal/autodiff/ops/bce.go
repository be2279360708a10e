package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/trainers/internal/tensor"
)

// Log terms are clamped so that p = 0 or p = 1 gives a finite loss.
const (
	bceLogFloor = -100
	bceGradEps  = 1e-12
)

// BCEOp is binary cross-entropy on probabilities:
//
//	Loss = -mean(y*log(p) + (1-y)*log(1-p))
//	dL/dp = (p - y) / (p*(1-p)) / n
//
// Targets receive no gradient.
type BCEOp struct {
	base
	targets *tensor.RawTensor
}

// NewBCEOp creates a new binary cross-entropy operation.
func NewBCEOp(probs, targets, output *tensor.RawTensor) *BCEOp {
	return &BCEOp{base: base{[]*tensor.RawTensor{probs}, output}, targets: targets}
}

// BCEForward computes the mean binary cross-entropy as a [1] tensor.
func BCEForward(probs, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	checkBCE(probs, targets)
	p, y := probs.AsFloat32(), targets.AsFloat32()

	var total float64
	for i := range p {
		total -= float64(y[i])*clampedLog(float64(p[i])) + float64(1-y[i])*clampedLog(1-float64(p[i]))
	}
	return scalarLoss(float32(total/float64(len(p))), device)
}

// Backward computes the gradient with respect to the probabilities.
func (op *BCEOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	probs := op.inputs[0]
	grad := newLike(probs.Shape(), probs.Device())
	p, y, g := probs.AsFloat32(), op.targets.AsFloat32(), grad.AsFloat32()

	scale := float64(outputGrad.AsFloat32()[0]) / float64(len(p))
	for i := range p {
		pi := float64(p[i])
		g[i] = float32((pi - float64(y[i])) / math.Max(pi*(1-pi), bceGradEps) * scale)
	}
	return []*tensor.RawTensor{grad}
}

func clampedLog(v float64) float64 {
	if v <= 0 {
		return bceLogFloor
	}
	return math.Max(math.Log(v), bceLogFloor)
}

func checkBCE(probs, targets *tensor.RawTensor) {
	if !probs.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("bce: probabilities %v and targets %v differ in shape", probs.Shape(), targets.Shape()))
	}
}
