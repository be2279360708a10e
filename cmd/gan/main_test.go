package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainers/internal/data"
	"github.com/born-ml/trainers/internal/gan"
)

func TestRunSyntheticOneEpoch(t *testing.T) {
	out := filepath.Join(t.TempDir(), "models")
	opts := options{
		outDir:    out,
		epochs:    1,
		batchSize: 4,
		lr:        0.0002,
		latent:    100,
		seed:      1,
		synthetic: true,
		samples:   8,
		device:    "cpu",
	}

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &stdout, &stderr))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "Epoch [1/1], Loss D: "), lines[0])

	for _, name := range []string{gan.GeneratorFile, gan.DiscriminatorFile} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestRunMissingData(t *testing.T) {
	opts := options{
		dataDir:   t.TempDir(),
		outDir:    t.TempDir(),
		epochs:    1,
		batchSize: 4,
		lr:        0.0002,
		latent:    100,
		device:    "cpu",
	}
	err := run(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	require.ErrorIs(t, err, data.ErrNotFound)
}

func TestRunUnknownDevice(t *testing.T) {
	opts := options{synthetic: true, samples: 4, epochs: 1, batchSize: 4, lr: 0.0002, latent: 100, device: "tpu"}
	err := run(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
}

func writeIDX(t *testing.T, path string, header []uint32, body []byte) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, header))
	buf.Write(body)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestRunUsesDatasetGeometry(t *testing.T) {
	dir := t.TempDir()
	writeIDX(t, filepath.Join(dir, "train-images-idx3-ubyte"), []uint32{2051, 4, 14, 14}, make([]byte, 4*14*14))
	writeIDX(t, filepath.Join(dir, "train-labels-idx1-ubyte"), []uint32{2049, 4}, []byte{0, 1, 2, 3})

	out := filepath.Join(t.TempDir(), "models")
	opts := options{
		dataDir:   dir,
		outDir:    out,
		epochs:    1,
		batchSize: 2,
		lr:        0.0002,
		latent:    8,
		seed:      1,
		device:    "cpu",
	}
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "Epoch [1/1]")
	_, err := os.Stat(filepath.Join(out, gan.GeneratorFile))
	require.NoError(t, err)
}
