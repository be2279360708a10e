package webgpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/backend/webgpu"
	"github.com/born-ml/trainers/internal/tensor"
)

func openOrSkip(t *testing.T) *webgpu.Backend {
	t.Helper()
	b, err := webgpu.New()
	if err != nil {
		require.ErrorIs(t, err, webgpu.ErrUnavailable)
		t.Skip("WebGPU not available")
	}
	t.Cleanup(b.Release)
	return b
}

func TestNewReportsUnavailable(t *testing.T) {
	if webgpu.IsAvailable() {
		t.Skip("adapter present")
	}
	_, err := webgpu.New()
	assert.ErrorIs(t, err, webgpu.ErrUnavailable)
}

func TestMatMulMatchesCPU(t *testing.T) {
	gpu := openOrSkip(t)
	gpu.MinWork = 0
	ref := cpu.New()

	tensor.ManualSeed(1)
	x := tensor.Randn(tensor.Shape{33, 17}, ref).Raw()
	y := tensor.Randn(tensor.Shape{17, 20}, ref).Raw()

	want := ref.MatMul(x, y).AsFloat32()
	got := gpu.MatMul(x, y)
	require.Equal(t, tensor.Shape{33, 20}, got.Shape())
	assert.InDeltaSlice(t, want, got.AsFloat32(), 1e-4)
}

func TestOtherOpsUseCPU(t *testing.T) {
	gpu := openOrSkip(t)
	x := tensor.MustRaw(tensor.Shape{2, 2}, tensor.Float32, tensor.CPU)
	copy(x.AsFloat32(), []float32{-1, 2, -3, 4})

	assert.Equal(t, []float32{0, 2, 0, 4}, gpu.ReLU(x).AsFloat32())
	assert.Equal(t, "WebGPU", gpu.Name())
}
