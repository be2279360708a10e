// Package classifier trains a small convolutional network on 32x32 color
// images (CIFAR-10) with cross-entropy loss.
package classifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/trainers/internal/nn"
	"github.com/born-ml/trainers/internal/tensor"
)

// ModelConfig describes the input images and the number of classes.
// Height and Width must be divisible by 4 (two 2x2 poolings).
type ModelConfig struct {
	Channels   int
	Height     int
	Width      int
	NumClasses int
}

// CIFARConfig returns the CIFAR-10 input layout: 3x32x32, 10 classes.
func CIFARConfig() ModelConfig {
	return ModelConfig{Channels: 3, Height: 32, Width: 32, NumClasses: 10}
}

// Validate checks that the configuration describes a buildable network.
func (c ModelConfig) Validate() error {
	if c.Channels <= 0 || c.NumClasses <= 0 {
		return fmt.Errorf("classifier: channels and classes must be > 0, got %d and %d", c.Channels, c.NumClasses)
	}
	if c.Height <= 0 || c.Width <= 0 || c.Height%4 != 0 || c.Width%4 != 0 {
		return fmt.Errorf("classifier: image size %dx%d must be positive and divisible by 4", c.Height, c.Width)
	}
	return nil
}

// CNN is a two-stage convolutional classifier.
//
// Architecture (CIFAR-10):
//
//	Input: [batch, 3, 32, 32]
//	Conv1: 3 -> 32 channels, 3x3, padding 1 -> [batch, 32, 32, 32]
//	ReLU
//	MaxPool: 2x2 -> [batch, 32, 16, 16]
//	Conv2: 32 -> 64 channels, 3x3, padding 1 -> [batch, 64, 16, 16]
//	ReLU
//	MaxPool: 2x2 -> [batch, 64, 8, 8]
//	Flatten -> [batch, 4096]
//	FC1: 4096 -> 512
//	ReLU
//	FC2: 512 -> 10 (class scores)
type CNN[B tensor.Backend] struct {
	conv1   *nn.Conv2D[B]
	relu1   *nn.ReLU[B]
	pool1   *nn.MaxPool2D[B]
	conv2   *nn.Conv2D[B]
	relu2   *nn.ReLU[B]
	pool2   *nn.MaxPool2D[B]
	flatten *nn.Flatten[B]
	fc1     *nn.Linear[B]
	relu3   *nn.ReLU[B]
	fc2     *nn.Linear[B]

	cfg ModelConfig
}

// NewCNN creates the network. Panics if cfg is invalid.
func NewCNN[B tensor.Backend](cfg ModelConfig, backend B) *CNN[B] {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	flat := 64 * (cfg.Height / 4) * (cfg.Width / 4)
	return &CNN[B]{
		conv1:   nn.NewConv2D(cfg.Channels, 32, 3, 1, 1, backend),
		relu1:   nn.NewReLU[B](),
		pool1:   nn.NewMaxPool2D[B](2, 2),
		conv2:   nn.NewConv2D(32, 64, 3, 1, 1, backend),
		relu2:   nn.NewReLU[B](),
		pool2:   nn.NewMaxPool2D[B](2, 2),
		flatten: nn.NewFlatten[B](),
		fc1:     nn.NewLinear(flat, 512, backend),
		relu3:   nn.NewReLU[B](),
		fc2:     nn.NewLinear(512, cfg.NumClasses, backend),
		cfg:     cfg,
	}
}

// Config returns the model configuration.
func (m *CNN[B]) Config() ModelConfig {
	return m.cfg
}

// Forward maps images [batch, C, H, W] to logits [batch, classes]. Logits
// are not normalized; the loss applies log-softmax.
func (m *CNN[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != m.cfg.Channels || shape[2] != m.cfg.Height || shape[3] != m.cfg.Width {
		panic(fmt.Sprintf("CNN: expected input [batch, %d, %d, %d], got %v",
			m.cfg.Channels, m.cfg.Height, m.cfg.Width, shape))
	}

	x := m.conv1.Forward(input) // [batch, 32, H, W]
	x = m.relu1.Forward(x)
	x = m.pool1.Forward(x) // [batch, 32, H/2, W/2]

	x = m.conv2.Forward(x) // [batch, 64, H/2, W/2]
	x = m.relu2.Forward(x)
	x = m.pool2.Forward(x) // [batch, 64, H/4, W/4]

	x = m.flatten.Forward(x) // [batch, 64*H/4*W/4]
	x = m.fc1.Forward(x)     // [batch, 512]
	x = m.relu3.Forward(x)
	return m.fc2.Forward(x) // [batch, classes]
}

type namedModule[B tensor.Backend] struct {
	name   string
	module nn.Module[B]
}

func (m *CNN[B]) layers() []namedModule[B] {
	return []namedModule[B]{
		{"conv1", m.conv1},
		{"conv2", m.conv2},
		{"fc1", m.fc1},
		{"fc2", m.fc2},
	}
}

// Parameters returns all trainable parameters.
func (m *CNN[B]) Parameters() []*nn.Parameter[B] {
	params := make([]*nn.Parameter[B], 0, 8)
	for _, l := range m.layers() {
		params = append(params, l.module.Parameters()...)
	}
	return params
}

// StateDict returns the weights keyed "<layer>.<param>", e.g. "conv1.weight".
func (m *CNN[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, 8)
	for _, l := range m.layers() {
		for name, raw := range l.module.StateDict() {
			stateDict[l.name+"."+name] = raw
		}
	}
	return stateDict
}

// LoadStateDict loads weights saved by StateDict.
func (m *CNN[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	used := make(map[string]bool, len(stateDict))
	for _, l := range m.layers() {
		sub := make(map[string]*tensor.RawTensor)
		for key, raw := range stateDict {
			if name, ok := strings.CutPrefix(key, l.name+"."); ok {
				sub[name] = raw
				used[key] = true
			}
		}
		if err := l.module.LoadStateDict(sub); err != nil {
			return fmt.Errorf("layer %s: %w", l.name, err)
		}
	}

	var unknown []string
	for key := range stateDict {
		if !used[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unexpected keys in state dict: %v", unknown)
	}
	return nil
}
