package nn_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainers/internal/autodiff"
	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/nn"
	"github.com/born-ml/trainers/internal/tensor"
)

func TestCrossEntropyLoss(t *testing.T) {
	backend := newBackend()
	logits, err := tensor.FromSlice([]float32{0, 0, 0, 10, 0, 0}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{1, 0}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	loss := nn.NewCrossEntropyLoss(backend).Forward(logits, targets)
	require.Equal(t, tensor.Shape{1}, loss.Shape())

	// Row 0: ln 3; row 1: ln(1 + 2e-10) ≈ 0.
	want := math.Log(3) / 2
	assert.InDelta(t, want, float64(loss.Item()), 1e-4)
}

func TestCrossEntropyLossWithoutAutodiff(t *testing.T) {
	backend := cpu.New()
	logits, err := tensor.FromSlice([]float32{0, 0, 0}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{2}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	loss := nn.NewCrossEntropyLoss(backend).Forward(logits, targets)
	assert.InDelta(t, math.Log(3), float64(loss.Item()), 1e-5)
}

func TestBCELoss(t *testing.T) {
	backend := newBackend()
	probs, err := tensor.FromSlice([]float32{0.5, 0.9}, tensor.Shape{2, 1}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{2, 1}, backend)
	require.NoError(t, err)

	loss := nn.NewBCELoss(backend).Forward(probs, targets)
	want := (-math.Log(0.5) - math.Log(0.1)) / 2
	assert.InDelta(t, want, float64(loss.Item()), 1e-5)

	mismatched := tensor.Zeros[float32](tensor.Shape{2}, backend)
	assert.Panics(t, func() { nn.NewBCELoss(backend).Forward(probs, mismatched) })
}

func TestBCELossClampsLog(t *testing.T) {
	backend := newBackend()
	probs, err := tensor.FromSlice([]float32{0}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]float32{1}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)

	loss := nn.NewBCELoss(backend).Forward(probs, targets)
	assert.InDelta(t, 100, float64(loss.Item()), 1e-4)
}

func TestLossIsRecorded(t *testing.T) {
	backend := newBackend()
	layer := nn.NewLinear(2, 1, backend)
	x, err := tensor.FromSlice([]float32{1, -1, 0.5, 2}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	y, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{2, 1}, backend)
	require.NoError(t, err)

	backend.Tape().StartRecording()
	probs := nn.NewSigmoid[Backend]().Forward(layer.Forward(x))
	loss := nn.NewBCELoss(backend).Forward(probs, y)
	grads := autodiff.Backward(loss, backend)
	backend.Tape().StopRecording()

	for _, p := range layer.Parameters() {
		g, ok := grads[p.Tensor().Raw()]
		require.True(t, ok, p.Name())
		assert.Equal(t, p.Tensor().Shape(), g.Shape(), p.Name())
	}
}

func TestAccuracy(t *testing.T) {
	backend := newBackend()
	logits, err := tensor.FromSlice([]float32{
		0.1, 0.9, 0,
		2, 1, 0,
		0, 0, 5,
	}, tensor.Shape{3, 3}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int32{1, 2, 2}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	assert.Equal(t, 2, nn.Accuracy(logits, targets))
}

func TestSaveLoad(t *testing.T) {
	backend := newBackend()
	path := filepath.Join(t.TempDir(), "models", "mlp.born")

	src := nn.NewSequential[Backend](nn.NewLinear(3, 2, backend), nn.NewTanh[Backend]())
	require.NoError(t, nn.Save[Backend](src, path, "MLP", map[string]string{"k": "v"}))

	dst := nn.NewSequential[Backend](nn.NewLinear(3, 2, backend), nn.NewTanh[Backend]())
	header, err := nn.Load[Backend](dst, path, backend)
	require.NoError(t, err)
	assert.Equal(t, "MLP", header.ModelType)
	assert.Equal(t, "v", header.Metadata["k"])

	for name, raw := range src.StateDict() {
		assert.Equal(t, raw.AsFloat32(), dst.StateDict()[name].AsFloat32(), name)
	}
}

func TestExportSafeTensors(t *testing.T) {
	backend := newBackend()
	path := filepath.Join(t.TempDir(), "mlp.safetensors")
	model := nn.NewSequential[Backend](nn.NewLinear(3, 2, backend))
	require.NoError(t, nn.ExportSafeTensors[Backend](model, path, nil))
	assert.FileExists(t, path)
}
