package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/born-ml/trainers/internal/autodiff"
	"github.com/born-ml/trainers/internal/data"
	"github.com/born-ml/trainers/internal/nn"
	"github.com/born-ml/trainers/internal/optim"
	"github.com/born-ml/trainers/internal/serialization"
	"github.com/born-ml/trainers/internal/tensor"
	"github.com/born-ml/trainers/internal/train"
)

// ModelType is written into checkpoint headers.
const ModelType = "CNN"

// Checkpoint formats accepted by Save.
const (
	FormatBorn        = "born"
	FormatSafeTensors = "safetensors"
)

// ErrUnknownOptimizer is returned for optimizer names other than "adam"
// and "sgd".
var ErrUnknownOptimizer = errors.New("classifier: unknown optimizer")

// Config holds the training hyperparameters.
type Config struct {
	Model     ModelConfig
	Optimizer string // "adam" or "sgd"
	LR        float32
	Momentum  float32 // SGD only
	Epochs    int
}

// DefaultConfig returns the CIFAR-10 setup: Adam with lr 1e-3, 10 epochs.
func DefaultConfig() Config {
	return Config{
		Model:     CIFARConfig(),
		Optimizer: "adam",
		LR:        0.001,
		Momentum:  0.9,
		Epochs:    10,
	}
}

// Trainer fits a CNN with one optimizer and cross-entropy loss.
type Trainer[B tensor.Backend] struct {
	Model *CNN[*autodiff.AutodiffBackend[B]]

	optimizer optim.Optimizer
	criterion *nn.CrossEntropyLoss[*autodiff.AutodiffBackend[B]]
	backend   *autodiff.AutodiffBackend[B]
	cfg       Config
	steps     int64
}

// NewTrainer builds the model and its optimizer.
func NewTrainer[B tensor.Backend](cfg Config, backend *autodiff.AutodiffBackend[B]) (*Trainer[B], error) {
	if err := cfg.Model.Validate(); err != nil {
		return nil, err
	}
	if cfg.LR <= 0 {
		return nil, errors.New("classifier: learning rate must be > 0")
	}
	if cfg.Epochs <= 0 {
		return nil, errors.New("classifier: epochs must be > 0")
	}

	model := NewCNN(cfg.Model, backend)
	var opt optim.Optimizer
	switch strings.ToLower(cfg.Optimizer) {
	case "adam", "":
		opt = optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: cfg.LR}, backend)
	case "sgd":
		opt = optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}, backend)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOptimizer, cfg.Optimizer)
	}

	return &Trainer[B]{
		Model:     model,
		optimizer: opt,
		criterion: nn.NewCrossEntropyLoss(backend),
		backend:   backend,
		cfg:       cfg,
	}, nil
}

// TrainStep runs forward, loss, backward and one optimizer step on a batch
// and returns the batch loss.
func (t *Trainer[B]) TrainStep(batch *data.Batch[*autodiff.AutodiffBackend[B]]) float64 {
	tape := t.backend.Tape()
	tape.Clear()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	logits := t.Model.Forward(batch.Images)
	loss := t.criterion.Forward(logits, batch.Labels)

	grads := autodiff.Backward(loss, t.backend)
	t.optimizer.Step(grads)
	t.optimizer.ZeroGrad()
	t.steps++

	return float64(loss.Item())
}

// TrainEpoch runs one pass over loader and returns the mean of the batch
// losses. window, if non-nil, receives per-batch timings.
func (t *Trainer[B]) TrainEpoch(ctx context.Context, loader *data.Loader[*autodiff.AutodiffBackend[B]], window *train.Window) (float64, error) {
	var meter train.Meter
	startData := time.Now()
	for batch := range loader.Epoch() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		meter.Add(t.TrainStep(batch))
		if window != nil {
			window.Record(batch.Size, dataTime, time.Since(startCompute))
		}
		startData = time.Now()
	}
	if meter.Count() == 0 {
		return 0, errors.New("classifier: dataset is empty")
	}
	return meter.Mean(), nil
}

// Evaluate returns the mean batch loss and the accuracy over loader.
// Nothing is recorded on the tape.
func (t *Trainer[B]) Evaluate(ctx context.Context, loader *data.Loader[*autodiff.AutodiffBackend[B]]) (loss, accuracy float64, err error) {
	var meter train.Meter
	correct, total := 0, 0

	t.backend.NoGrad(func() {
		for batch := range loader.Epoch() {
			if err = ctx.Err(); err != nil {
				return
			}
			logits := t.Model.Forward(batch.Images)
			meter.Add(float64(t.criterion.Forward(logits, batch.Labels).Item()))
			correct += nn.Accuracy(logits, batch.Labels)
			total += batch.Size
		}
	})
	if err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, errors.New("classifier: evaluation set is empty")
	}
	return meter.Mean(), float64(correct) / float64(total), nil
}

// Fit trains for cfg.Epochs epochs and prints the mean loss of each one.
// It returns the per-epoch mean losses.
func (t *Trainer[B]) Fit(ctx context.Context, loader *data.Loader[*autodiff.AutodiffBackend[B]], reporter *train.Reporter) ([]float64, error) {
	history := make([]float64, 0, t.cfg.Epochs)
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		var window train.Window
		loss, err := t.TrainEpoch(ctx, loader, &window)
		if err != nil {
			return history, err
		}
		history = append(history, loss)
		reporter.Epoch(epoch, t.cfg.Epochs, loss)
		reporter.Throughput(epoch, window.Snapshot())
	}
	return history, nil
}

// Save writes the model to path. FormatBorn records the epoch count, step
// count, last loss and optimizer name in the header; FormatSafeTensors
// stores them as string metadata.
func (t *Trainer[B]) Save(path, format string, lastLoss float64) error {
	switch format {
	case FormatBorn, "":
		return nn.SaveCheckpoint[*autodiff.AutodiffBackend[B]](t.Model, path, ModelType, serialization.CheckpointMeta{
			Epoch:         t.cfg.Epochs,
			Step:          t.steps,
			Loss:          lastLoss,
			OptimizerType: t.optimizerName(),
			TrainingMeta: map[string]any{
				"lr":          t.optimizer.GetLR(),
				"num_classes": t.cfg.Model.NumClasses,
			},
		})
	case FormatSafeTensors:
		return nn.ExportSafeTensors[*autodiff.AutodiffBackend[B]](t.Model, path, map[string]string{
			"model_type": ModelType,
			"optimizer":  t.optimizerName(),
			"loss":       fmt.Sprintf("%.4f", lastLoss),
		})
	default:
		return fmt.Errorf("classifier: unknown checkpoint format %q", format)
	}
}

func (t *Trainer[B]) optimizerName() string {
	if t.cfg.Optimizer == "" {
		return "adam"
	}
	return strings.ToLower(t.cfg.Optimizer)
}
