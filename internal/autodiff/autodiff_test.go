package autodiff_test

import (
	"testing"

	"github.com/born-ml/trainers/internal/autodiff"
	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSquareGradient tests d(x*x)/dx = 2x.
func TestSquareGradient(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice([]float32{3, -1}, tensor.Shape{2}, backend)
	y := x.Mul(x)
	grads := autodiff.Backward(y, backend)

	require.Contains(t, grads, x.Raw())
	assert.Equal(t, []float32{6, -2}, grads[x.Raw()].AsFloat32())
}

// TestTapeRecording tests the recording switch and Clear.
func TestTapeRecording(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	x := tensor.Ones[float32](tensor.Shape{2}, backend)

	x.Add(x)
	assert.Equal(t, 0, tape.NumOps())

	tape.StartRecording()
	x.Add(x).MulScalar(2)
	assert.Equal(t, 2, tape.NumOps())
	assert.True(t, tape.IsRecording())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording())
}

// TestNoGrad tests that nothing is recorded inside a NoGrad scope and that
// recording resumes afterwards.
func TestNoGrad(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()
	x := tensor.Ones[float32](tensor.Shape{2}, backend)

	backend.NoGrad(func() {
		x.Add(x)
		assert.False(t, tape.IsRecording())
	})
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording())

	assert.Panics(t, func() {
		backend.NoGrad(func() { panic("boom") })
	})
	assert.True(t, tape.IsRecording())
}

// TestBackwardStopsAtConstants tests that a value computed under NoGrad
// does not route gradient to its producers.
func TestBackwardStopsAtConstants(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	w, _ := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
	v, _ := tensor.FromSlice([]float32{5}, tensor.Shape{1}, backend)

	var c *tensor.Tensor[float32, *autodiff.AutodiffBackend[*cpu.CPUBackend]]
	backend.NoGrad(func() { c = v.Mul(v) })
	loss := w.Mul(c)

	grads := autodiff.Backward(loss, backend)
	assert.Equal(t, []float32{25}, grads[w.Raw()].AsFloat32())
	assert.NotContains(t, grads, v.Raw())
}

// TestBackwardAccumulates tests gradient accumulation when a tensor feeds
// two branches.
func TestBackwardAccumulates(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	y := x.MulScalar(3).Add(x.AddScalar(1))
	grads := autodiff.Backward(y, backend)

	assert.Equal(t, []float32{4, 4}, grads[x.Raw()].AsFloat32())
}

// TestBackwardWithoutOps tests the empty tape guard.
func TestBackwardWithoutOps(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := tensor.Ones[float32](tensor.Shape{1}, backend)
	assert.Panics(t, func() { autodiff.Backward(x, backend) })
}
