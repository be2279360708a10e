package ops_test

import (
	"math"
	"testing"

	"github.com/born-ml/trainers/internal/autodiff/ops"
	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func one(backend *cpu.CPUBackend) *tensor.RawTensor {
	return tensor.Ones[float32](tensor.Shape{1}, backend).Raw()
}

// TestCrossEntropyOp_Forward tests the loss value against a hand computation.
func TestCrossEntropyOp_Forward(t *testing.T) {
	backend := cpu.New()
	logits, _ := tensor.FromSlice([]float32{1, 2, 3, 3, 2, 1}, tensor.Shape{2, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{2, 0}, tensor.Shape{2}, backend)

	output := ops.CrossEntropyForward(logits.Raw(), targets.Raw(), backend.Device())
	require.Equal(t, tensor.Shape{1}, output.Shape())

	want := -(3 - math.Log(math.Exp(1)+math.Exp(2)+math.Exp(3)))
	assert.InDelta(t, want, output.AsFloat32()[0], 1e-5)
}

// TestCrossEntropyOp_Backward tests softmax - onehot scaled by batch size.
func TestCrossEntropyOp_Backward(t *testing.T) {
	backend := cpu.New()
	logits, _ := tensor.FromSlice([]float32{0, 0, 0, 0, 0, 0}, tensor.Shape{2, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{1, 2}, tensor.Shape{2}, backend)

	out := ops.CrossEntropyForward(logits.Raw(), targets.Raw(), backend.Device())
	op := ops.NewCrossEntropyOp(logits.Raw(), targets.Raw(), out)
	grads := op.Backward(one(backend), backend)
	require.Len(t, grads, 1)

	third := float32(1.0 / 3.0 / 2.0)
	half := float32(0.5)
	assert.InDeltaSlice(t, []float32{
		third, third - half, third,
		third, third, third - half,
	}, grads[0].AsFloat32(), 1e-6)
	assert.Len(t, op.Inputs(), 1)
}

// TestCrossEntropyOp_NumericalStability tests extreme logits.
func TestCrossEntropyOp_NumericalStability(t *testing.T) {
	backend := cpu.New()
	logits, _ := tensor.FromSlice([]float32{1000, 0, -1000, -1000, 0, 1000}, tensor.Shape{2, 3}, backend)
	targets, _ := tensor.FromSlice([]int32{0, 0}, tensor.Shape{2}, backend)

	loss := ops.CrossEntropyForward(logits.Raw(), targets.Raw(), backend.Device()).AsFloat32()[0]
	assert.False(t, math.IsNaN(float64(loss)))
	assert.False(t, math.IsInf(float64(loss), 0))
	assert.InDelta(t, 1000, loss, 1e-3)
}

// TestCrossEntropyOp_InvalidTarget tests out-of-range class indices.
func TestCrossEntropyOp_InvalidTarget(t *testing.T) {
	backend := cpu.New()
	logits := tensor.Zeros[float32](tensor.Shape{1, 10}, backend)
	targets, _ := tensor.FromSlice([]int32{10}, tensor.Shape{1}, backend)
	assert.Panics(t, func() { ops.CrossEntropyForward(logits.Raw(), targets.Raw(), backend.Device()) })
}

// TestBCE tests the binary cross-entropy value, gradient and clamping.
func TestBCE(t *testing.T) {
	backend := cpu.New()
	probs, _ := tensor.FromSlice([]float32{0.8, 0.3}, tensor.Shape{2, 1}, backend)
	targets, _ := tensor.FromSlice([]float32{1, 0}, tensor.Shape{2, 1}, backend)

	out := ops.BCEForward(probs.Raw(), targets.Raw(), backend.Device())
	want := -(math.Log(0.8) + math.Log(0.7)) / 2
	assert.InDelta(t, want, out.AsFloat32()[0], 1e-6)

	grads := ops.NewBCEOp(probs.Raw(), targets.Raw(), out).Backward(one(backend), backend)
	// (p - y) / (p (1 - p)) / n
	assert.InDeltaSlice(t, []float32{
		float32((0.8 - 1) / (0.8 * 0.2) / 2),
		float32((0.3 - 0) / (0.3 * 0.7) / 2),
	}, grads[0].AsFloat32(), 1e-5)

	sure, _ := tensor.FromSlice([]float32{0, 1}, tensor.Shape{2, 1}, backend)
	clamped := ops.BCEForward(sure.Raw(), targets.Raw(), backend.Device()).AsFloat32()[0]
	assert.InDelta(t, 100, clamped, 1e-4)
}
