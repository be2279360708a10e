package gan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/born-ml/trainers/internal/autodiff"
	"github.com/born-ml/trainers/internal/data"
	"github.com/born-ml/trainers/internal/nn"
	"github.com/born-ml/trainers/internal/optim"
	"github.com/born-ml/trainers/internal/tensor"
	"github.com/born-ml/trainers/internal/train"
)

// Checkpoint file names written by Save.
const (
	GeneratorFile     = "generator.born"
	DiscriminatorFile = "discriminator.born"
)

// Config holds the GAN hyperparameters.
type Config struct {
	LatentDim  int
	ImageShape [3]int // (C, H, W)
	LR         float32
	Betas      [2]float32
	Slope      float32 // LeakyReLU negative slope
	Epochs     int
}

// DefaultConfig returns the MNIST setup: latent 100, 1x28x28 images,
// Adam lr 2e-4 with betas (0.5, 0.999), slope 0.2, 50 epochs.
func DefaultConfig() Config {
	return Config{
		LatentDim:  100,
		ImageShape: [3]int{1, 28, 28},
		LR:         0.0002,
		Betas:      [2]float32{0.5, 0.999},
		Slope:      0.2,
		Epochs:     50,
	}
}

func (c Config) validate() error {
	switch {
	case c.LatentDim <= 0:
		return errors.New("gan: latent dimension must be > 0")
	case c.ImageShape[0] <= 0 || c.ImageShape[1] <= 0 || c.ImageShape[2] <= 0:
		return fmt.Errorf("gan: invalid image shape %v", c.ImageShape)
	case c.LR <= 0:
		return errors.New("gan: learning rate must be > 0")
	case c.Epochs <= 0:
		return errors.New("gan: epochs must be > 0")
	}
	return nil
}

// StepResult holds the losses of one training step.
type StepResult struct {
	LossD float64
	LossG float64
}

// Trainer owns both networks, their optimizers and the shared autodiff
// backend whose tape records every step.
type Trainer[B tensor.Backend] struct {
	G *Generator[*autodiff.AutodiffBackend[B]]
	D *Discriminator[*autodiff.AutodiffBackend[B]]

	optG      optim.Optimizer
	optD      optim.Optimizer
	criterion *nn.BCELoss[*autodiff.AutodiffBackend[B]]
	backend   *autodiff.AutodiffBackend[B]
	cfg       Config
}

// NewTrainer builds the generator, discriminator and one Adam per model.
// Weights are drawn from the tensor package's random source.
func NewTrainer[B tensor.Backend](cfg Config, backend *autodiff.AutodiffBackend[B]) (*Trainer[B], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := NewGenerator(cfg.LatentDim, cfg.ImageShape, cfg.Slope, backend)
	d := NewDiscriminator(cfg.ImageShape, cfg.Slope, backend)
	adam := optim.AdamConfig{LR: cfg.LR, Betas: cfg.Betas}

	return &Trainer[B]{
		G:         g,
		D:         d,
		optG:      optim.NewAdam(g.Parameters(), adam, backend),
		optD:      optim.NewAdam(d.Parameters(), adam, backend),
		criterion: nn.NewBCELoss(backend),
		backend:   backend,
		cfg:       cfg,
	}, nil
}

// Step runs one discriminator update followed by one generator update on
// a batch of real images [N, C, H, W].
//
// The discriminator sees the real batch against ones and a generated batch
// against zeros; the generated batch is produced without recording, so no
// gradient reaches the generator. The generator is then trained through a
// frozen discriminator against ones. Label tensors always have N rows.
func (t *Trainer[B]) Step(images *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]]) StepResult {
	n := images.Shape()[0]
	realLabels := Labels(n, 1, t.backend)
	fakeLabels := Labels(n, 0, t.backend)

	lossD := t.discriminatorStep(images, realLabels, fakeLabels)
	lossG := t.generatorStep(n, realLabels)
	return StepResult{LossD: lossD, LossG: lossG}
}

func (t *Trainer[B]) discriminatorStep(images, realLabels, fakeLabels *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]]) float64 {
	n := images.Shape()[0]
	return t.backward(t.optD, func() *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]] {
		lossReal := t.criterion.Forward(t.D.Forward(images), realLabels)

		var fake *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]]
		t.backend.NoGrad(func() {
			fake = t.G.Forward(t.G.Noise(n))
		})
		lossFake := t.criterion.Forward(t.D.Forward(fake), fakeLabels)
		return lossReal.Add(lossFake)
	})
}

func (t *Trainer[B]) generatorStep(n int, realLabels *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]]) float64 {
	nn.Freeze(t.D.Parameters())
	defer nn.Unfreeze(t.D.Parameters())

	return t.backward(t.optG, func() *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]] {
		return t.criterion.Forward(t.D.Forward(t.G.Forward(t.G.Noise(n))), realLabels)
	})
}

// backward records forward on a clean tape, backpropagates the loss it
// returns and applies one optimizer step. The tape is cleared afterwards.
func (t *Trainer[B]) backward(opt optim.Optimizer, forward func() *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]]) float64 {
	tape := t.backend.Tape()
	tape.Clear()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	loss := forward()
	grads := autodiff.Backward(loss, t.backend)
	opt.Step(grads)
	opt.ZeroGrad()
	return float64(loss.Item())
}

// Fit trains for cfg.Epochs epochs and prints one line per epoch with the
// losses of the epoch's last batch. It returns those per-epoch results.
// Cancelling ctx stops training between batches.
func (t *Trainer[B]) Fit(ctx context.Context, loader *data.Loader[*autodiff.AutodiffBackend[B]], reporter *train.Reporter) ([]StepResult, error) {
	history := make([]StepResult, 0, t.cfg.Epochs)
	var window train.Window
	var lossD, lossG train.Meter

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		lossD.Reset()
		lossG.Reset()
		startData := time.Now()
		for batch := range loader.Epoch() {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			dataTime := time.Since(startData)

			startCompute := time.Now()
			res := t.Step(batch.Images)
			window.Record(batch.Size, dataTime, time.Since(startCompute))
			lossD.Add(res.LossD)
			lossG.Add(res.LossG)
			startData = time.Now()
		}
		if lossD.Count() == 0 {
			return history, errors.New("gan: dataset is empty")
		}

		last := StepResult{LossD: lossD.Last(), LossG: lossG.Last()}
		history = append(history, last)
		reporter.GANEpoch(epoch, t.cfg.Epochs, last.LossD, last.LossG)
		reporter.Throughput(epoch, window.Snapshot())
	}
	return history, nil
}

// Save writes generator.born and discriminator.born into dir, creating it
// if needed.
func (t *Trainer[B]) Save(dir string) error {
	meta := map[string]string{
		"latent_dim":  strconv.Itoa(t.cfg.LatentDim),
		"image_shape": fmt.Sprint(t.cfg.ImageShape),
	}
	if err := nn.Save[*autodiff.AutodiffBackend[B]](t.G, filepath.Join(dir, GeneratorFile), "Generator", meta); err != nil {
		return err
	}
	return nn.Save[*autodiff.AutodiffBackend[B]](t.D, filepath.Join(dir, DiscriminatorFile), "Discriminator", meta)
}
