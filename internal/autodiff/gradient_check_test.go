package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/trainers/internal/autodiff"
	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

type T = tensor.Tensor[float32, Backend]

// checkGradients compares tape gradients of forward() against central
// finite differences for every element of every parameter.
func checkGradients(t *testing.T, backend Backend, params []*T, forward func() *T) {
	t.Helper()
	tape := backend.Tape()

	tape.Clear()
	tape.StartRecording()
	loss := forward()
	grads := autodiff.Backward(loss, backend)
	tape.StopRecording()
	tape.Clear()

	const eps = 1e-3
	eval := func() float64 {
		var v float32
		backend.NoGrad(func() { v = forward().Item() })
		return float64(v)
	}
	for pi, p := range params {
		g, ok := grads[p.Raw()]
		require.True(t, ok, "param %d has no gradient", pi)
		data := p.Data()
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := eval()
			data[i] = orig - eps
			minus := eval()
			data[i] = orig

			numeric := (plus - minus) / (2 * eps)
			analytic := float64(g.AsFloat32()[i])
			tol := 2e-2 * math.Max(1, math.Abs(numeric))
			assert.InDelta(t, numeric, analytic, tol, "param %d element %d", pi, i)
		}
	}
}

func randn(backend Backend, shape ...int) *T {
	return tensor.Randn(tensor.Shape(shape), backend).MulScalar(0.5)
}

// TestGradientCheck_MLPWithBCE covers matmul, transpose, broadcast add,
// tanh, sigmoid and binary cross-entropy. Piecewise-linear ops are checked
// analytically in TestPiecewiseGradients.
func TestGradientCheck_MLPWithBCE(t *testing.T) {
	tensor.ManualSeed(3)
	backend := autodiff.New(cpu.New())

	x := randn(backend, 4, 5)
	w1, b1 := randn(backend, 6, 5), randn(backend, 6)
	w2, b2 := randn(backend, 1, 6), randn(backend, 1)
	y, _ := tensor.FromSlice([]float32{1, 0, 1, 0}, tensor.Shape{4, 1}, backend)

	forward := func() *T {
		h := x.MatMul(w1.T()).Add(b1)
		h = tensor.New[float32](backend.Tanh(h.Raw()), backend)
		o := h.MatMul(w2.T()).Add(b2)
		p := tensor.New[float32](backend.Sigmoid(o.Raw()), backend)
		return tensor.New[float32](backend.BinaryCrossEntropy(p.Raw(), y.Raw()), backend)
	}
	checkGradients(t, backend, []*T{x, w1, b1, w2, b2}, forward)
}

// TestGradientCheck_ConvNetWithCrossEntropy covers conv2d, reshape-broadcast
// bias, scalar ops and cross-entropy.
func TestGradientCheck_ConvNetWithCrossEntropy(t *testing.T) {
	tensor.ManualSeed(5)
	backend := autodiff.New(cpu.New())

	x := randn(backend, 2, 2, 4, 4)
	k, kb := randn(backend, 3, 2, 3, 3), randn(backend, 3)
	w := randn(backend, 4, 48)
	targets, _ := tensor.FromSlice([]int32{1, 3}, tensor.Shape{2}, backend)

	forward := func() *T {
		c := tensor.New[float32](backend.Conv2D(x.Raw(), k.Raw(), 1, 1), backend)
		c = c.Add(kb.Reshape(1, 3, 1, 1))
		c = tensor.New[float32](backend.Tanh(c.Raw()), backend)
		logits := c.Reshape(2, -1).MatMul(w.T()).MulScalar(2).AddScalar(0.1)
		return tensor.New[float32](backend.CrossEntropy(logits.Raw(), targets.Raw()), backend)
	}
	checkGradients(t, backend, []*T{k, kb, w}, forward)
}

// TestGradientCheck_SubAndMul covers subtraction and multiplication with a
// tensor used twice.
func TestGradientCheck_SubAndMul(t *testing.T) {
	tensor.ManualSeed(9)
	backend := autodiff.New(cpu.New())
	a, b := randn(backend, 3, 2), randn(backend, 2)

	forward := func() *T {
		d := a.Sub(b).Mul(a)
		return d.Reshape(1, 6).MatMul(tensor.Ones[float32](tensor.Shape{6, 1}, backend)).Reshape(1)
	}
	checkGradients(t, backend, []*T{a, b}, forward)
}

// TestPiecewiseGradients tests ReLU, LeakyReLU and max pooling gradients away
// from their kinks.
func TestPiecewiseGradients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	x, _ := tensor.FromSlice([]float32{-2, 1, -0.5, 3}, tensor.Shape{1, 1, 2, 2}, backend)
	relu := tensor.New[float32](backend.ReLU(x.Raw()), backend)
	leaky := tensor.New[float32](backend.LeakyReLU(x.Raw(), 0.2), backend)
	pooled := tensor.New[float32](backend.MaxPool2D(x.Raw(), 2, 2), backend)

	out := relu.Add(leaky.MulScalar(10)).Reshape(4).Add(pooled.Reshape(1).MulScalar(100))
	grads := autodiff.Backward(out, backend)

	// relu' + 10*leaky' + 100*4*[is max], the pooled value feeds all four outputs
	assert.InDeltaSlice(t, []float32{2, 11, 2, 411}, grads[x.Raw()].AsFloat32(), 1e-5)
}
