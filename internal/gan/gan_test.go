package gan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainers/internal/autodiff"
	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/data"
	"github.com/born-ml/trainers/internal/nn"
	"github.com/born-ml/trainers/internal/serialization"
	"github.com/born-ml/trainers/internal/tensor"
	"github.com/born-ml/trainers/internal/train"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newTrainer(t *testing.T, seed int64, epochs int) *Trainer[*cpu.CPUBackend] {
	t.Helper()
	tensor.ManualSeed(seed)
	cfg := DefaultConfig()
	cfg.Epochs = epochs
	trainer, err := NewTrainer(cfg, autodiff.New(cpu.New()))
	require.NoError(t, err)
	return trainer
}

func snapshot(params []*nn.Parameter[Backend]) [][]float32 {
	out := make([][]float32, len(params))
	for i, p := range params {
		out[i] = append([]float32(nil), p.Tensor().Data()...)
	}
	return out
}

func realBatch(t *testing.T, n int, backend Backend) *tensor.Tensor[float32, Backend] {
	t.Helper()
	loader := data.NewLoader(data.SyntheticMNIST(n, 3), n, false, 0, backend)
	for batch := range loader.Epoch() {
		return batch.Images
	}
	t.Fatal("empty loader")
	return nil
}

func TestLabelsMatchBatchSize(t *testing.T) {
	backend := autodiff.New(cpu.New())
	for _, n := range []int{1, 7, 64} {
		ones := Labels(n, 1, backend)
		assert.Equal(t, tensor.Shape{n, 1}, ones.Shape())
		for _, v := range ones.Data() {
			assert.Equal(t, float32(1), v)
		}
		assert.Equal(t, tensor.Shape{n, 1}, Labels(n, 0, backend).Shape())
	}
}

func TestGeneratorOutputShape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	g := NewGenerator(100, [3]int{1, 28, 28}, 0.2, backend)

	out := g.Forward(g.Noise(5))
	assert.Equal(t, tensor.Shape{5, 1, 28, 28}, out.Shape())
	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestSampleDoesNotRecord(t *testing.T) {
	backend := autodiff.New(cpu.New())
	g := NewGenerator(16, [3]int{1, 28, 28}, 0.2, backend)

	backend.Tape().StartRecording()
	images := g.Sample(3)
	assert.Equal(t, tensor.Shape{3, 1, 28, 28}, images.Shape())
	assert.Zero(t, backend.Tape().NumOps())
	assert.True(t, backend.Tape().IsRecording())
}

func TestDiscriminatorOutputShape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	d := NewDiscriminator([3]int{1, 28, 28}, 0.2, backend)

	out := d.Forward(realBatch(t, 6, backend))
	assert.Equal(t, tensor.Shape{6, 1}, out.Shape())
	for _, v := range out.Data() {
		assert.Greater(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestDiscriminatorStepLeavesGeneratorUntouched(t *testing.T) {
	trainer := newTrainer(t, 1, 1)
	images := realBatch(t, 4, trainer.backend)

	gBefore := snapshot(trainer.G.Parameters())
	dBefore := snapshot(trainer.D.Parameters())

	loss := trainer.discriminatorStep(images, Labels(4, 1, trainer.backend), Labels(4, 0, trainer.backend))
	assert.Greater(t, loss, 0.0)

	assert.Equal(t, gBefore, snapshot(trainer.G.Parameters()))
	assert.NotEqual(t, dBefore, snapshot(trainer.D.Parameters()))
	assert.Zero(t, trainer.backend.Tape().NumOps())
}

func TestGeneratorStepLeavesDiscriminatorUntouched(t *testing.T) {
	trainer := newTrainer(t, 1, 1)

	gBefore := snapshot(trainer.G.Parameters())
	dBefore := snapshot(trainer.D.Parameters())

	loss := trainer.generatorStep(4, Labels(4, 1, trainer.backend))
	assert.Greater(t, loss, 0.0)

	assert.NotEqual(t, gBefore, snapshot(trainer.G.Parameters()))
	assert.Equal(t, dBefore, snapshot(trainer.D.Parameters()))
	for _, p := range trainer.D.Parameters() {
		assert.True(t, p.RequiresGrad(), "discriminator must be unfrozen after the generator step")
	}
}

func TestStepHandlesShortBatch(t *testing.T) {
	trainer := newTrainer(t, 2, 1)
	res := trainer.Step(realBatch(t, 3, trainer.backend))
	assert.Greater(t, res.LossD, 0.0)
	assert.Greater(t, res.LossG, 0.0)
}

func TestStepDeterministicWithSeed(t *testing.T) {
	run := func() StepResult {
		trainer := newTrainer(t, 42, 1)
		return trainer.Step(realBatch(t, 4, trainer.backend))
	}
	assert.Equal(t, run(), run())
}

func TestNewTrainerValidatesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LatentDim = 0
	_, err := NewTrainer(cfg, autodiff.New(cpu.New()))
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Epochs = 0
	_, err = NewTrainer(cfg, autodiff.New(cpu.New()))
	require.Error(t, err)
}

func TestFitOneEpochWritesCheckpoints(t *testing.T) {
	trainer := newTrainer(t, 7, 1)
	loader := data.NewLoader(data.SyntheticMNIST(8, 7), 4, true, 7, trainer.backend)
	require.Equal(t, 2, loader.NumBatches())

	var out bytes.Buffer
	history, err := trainer.Fit(context.Background(), loader, train.NewReporter(&out))
	require.NoError(t, err)
	require.Len(t, history, 1)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Regexp(t, `^Epoch \[1/1\], Loss D: \d+\.\d{4}, Loss G: \d+\.\d{4}$`, lines[0])
	assert.Equal(t, fmt.Sprintf("Epoch [1/1], Loss D: %.4f, Loss G: %.4f", history[0].LossD, history[0].LossG), lines[0])

	dir := filepath.Join(t.TempDir(), "models")
	require.NoError(t, trainer.Save(dir))
	for _, name := range []string{GeneratorFile, DiscriminatorFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size(), name)
	}

	// Reload the generator and check it reproduces the trained weights.
	backend := autodiff.New(cpu.New())
	g := NewGenerator(100, [3]int{1, 28, 28}, 0.2, backend)
	header, err := nn.Load[Backend](g, filepath.Join(dir, GeneratorFile), backend)
	require.NoError(t, err)
	assert.Equal(t, "Generator", header.ModelType)
	assert.Equal(t, "100", header.Metadata["latent_dim"])
	assert.Equal(t, snapshot(trainer.G.Parameters()), snapshot(g.Parameters()))

	_, _, err = serialization.ReadFile(filepath.Join(dir, DiscriminatorFile), tensor.CPU)
	require.NoError(t, err)
}

func TestFitStopsOnCancel(t *testing.T) {
	trainer := newTrainer(t, 7, 3)
	loader := data.NewLoader(data.SyntheticMNIST(8, 7), 4, false, 0, trainer.backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	history, err := trainer.Fit(ctx, loader, train.NewReporter(&out))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, history)
	assert.Empty(t, out.String())
}
