package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainers/internal/classifier"
	"github.com/born-ml/trainers/internal/data"
)

func syntheticOptions() options {
	return options{
		epochs:    1,
		batchSize: 2,
		lr:        0.001,
		optimizer: "adam",
		seed:      1,
		synthetic: true,
		samples:   4,
		format:    classifier.FormatBorn,
		device:    "cpu",
	}
}

func TestRunSyntheticOneEpoch(t *testing.T) {
	opts := syntheticOptions()
	opts.save = filepath.Join(t.TempDir(), "cnn.born")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &stdout, &stderr))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^Epoch \[1/1\], Loss: \d+\.\d{4}$`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Test Loss: "), lines[1])

	info, err := os.Stat(opts.save)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunSGD(t *testing.T) {
	opts := syntheticOptions()
	opts.optimizer = "sgd"
	require.NoError(t, run(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{}))
}

func TestRunMissingData(t *testing.T) {
	opts := syntheticOptions()
	opts.synthetic = false
	opts.dataDir = t.TempDir()
	err := run(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorIs(t, err, data.ErrNotFound)
}

func TestRunUnknownOptimizer(t *testing.T) {
	opts := syntheticOptions()
	opts.optimizer = "lbfgs"
	err := run(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorIs(t, err, classifier.ErrUnknownOptimizer)
}
