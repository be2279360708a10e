package data_test

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/data"
	"github.com/born-ml/trainers/internal/tensor"
)

func idxImages(n, rows, cols int) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, [4]uint32{2051, uint32(n), uint32(rows), uint32(cols)})
	for i := 0; i < n*rows*cols; i++ {
		buf.WriteByte(byte(i % 256))
	}
	return buf.Bytes()
}

func idxLabels(labels ...byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, [2]uint32{2049, uint32(len(labels))})
	buf.Write(labels)
	return buf.Bytes()
}

func gzipped(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func TestNormalize(t *testing.T) {
	assert.InDelta(t, -1, data.Normalize(0), 1e-6)
	assert.InDelta(t, 1, data.Normalize(255), 1e-6)
	assert.InDelta(t, 0.00392, data.Normalize(128), 1e-4)
}

func TestLoadMNIST(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "train-images-idx3-ubyte"), idxImages(3, 28, 28))
	writeFile(t, filepath.Join(dir, "train-labels-idx1-ubyte"), idxLabels(5, 0, 9))

	ds, err := data.LoadMNIST(dir, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, [3]int{1, 28, 28}, ds.ImageShape())
	assert.Equal(t, int32(9), ds.Sample(2).Label)
	assert.InDelta(t, -1, ds.Sample(0).Image[0], 1e-6)
	assert.Len(t, ds.Sample(1).Image, 784)

	limited, err := data.LoadMNIST(dir, true, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, limited.Len())
}

func TestLoadMNISTGzip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "t10k-images-idx3-ubyte.gz"), gzipped(t, idxImages(2, 28, 28)))
	writeFile(t, filepath.Join(dir, "t10k-labels-idx1-ubyte.gz"), gzipped(t, idxLabels(1, 2)))

	ds, err := data.LoadMNIST(dir, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, int32(2), ds.Sample(1).Label)
}

func TestLoadMNISTErrors(t *testing.T) {
	_, err := data.LoadMNIST(t.TempDir(), true, 0)
	assert.ErrorIs(t, err, data.ErrNotFound)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "train-images-idx3-ubyte"), idxLabels(1))
	writeFile(t, filepath.Join(dir, "train-labels-idx1-ubyte"), idxLabels(1))
	_, err = data.LoadMNIST(dir, true, 0)
	assert.ErrorContains(t, err, "invalid magic")

	dir = t.TempDir()
	writeFile(t, filepath.Join(dir, "train-images-idx3-ubyte"), idxImages(2, 28, 28))
	writeFile(t, filepath.Join(dir, "train-labels-idx1-ubyte"), idxLabels(1))
	_, err = data.LoadMNIST(dir, true, 0)
	assert.ErrorContains(t, err, "label count")
}

func TestReadIDXChecksMagicFirst(t *testing.T) {
	// A labels file is shorter than an image header.
	_, _, _, err := data.ReadIDXImages(bytes.NewReader(idxLabels()))
	assert.ErrorContains(t, err, "invalid magic")

	_, err = data.ReadIDXLabels(bytes.NewReader(idxImages(0, 28, 28)))
	assert.ErrorContains(t, err, "invalid magic")
}

func TestReadIDXRejectsCorruptCounts(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, [4]uint32{2051, 1, 1 << 20, 1 << 20})
	_, _, _, err := data.ReadIDXImages(&buf)
	assert.ErrorContains(t, err, "invalid image size")

	buf.Reset()
	_ = binary.Write(&buf, binary.BigEndian, [4]uint32{2051, 1 << 31, 28, 28})
	buf.Write(make([]byte, 28*28))
	_, _, _, err = data.ReadIDXImages(&buf)
	assert.ErrorContains(t, err, "failed to read image 1")

	buf.Reset()
	_ = binary.Write(&buf, binary.BigEndian, [2]uint32{2049, 1 << 31})
	buf.Write([]byte{1, 2, 3})
	_, err = data.ReadIDXLabels(&buf)
	assert.ErrorContains(t, err, "got 3 of 2147483648")
}

func cifarRecords(labels ...byte) []byte {
	var buf bytes.Buffer
	for _, l := range labels {
		buf.WriteByte(l)
		buf.Write(bytes.Repeat([]byte{255}, 1024))
		buf.Write(bytes.Repeat([]byte{0}, 2048))
	}
	return buf.Bytes()
}

func TestLoadCIFAR10(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "cifar-10-batches-bin")
	for i, name := range []string{"data_batch_1.bin", "data_batch_2.bin", "data_batch_3.bin", "data_batch_4.bin", "data_batch_5.bin"} {
		writeFile(t, filepath.Join(root, name), cifarRecords(byte(i), byte(i+5)))
	}
	writeFile(t, filepath.Join(root, "test_batch.bin"), cifarRecords(3))

	train, err := data.LoadCIFAR10(dir, true, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, train.Len())
	assert.Equal(t, [3]int{3, 32, 32}, train.ImageShape())
	assert.Equal(t, int32(9), train.Sample(9).Label)

	img := train.Sample(0).Image
	assert.InDelta(t, 1, img[0], 1e-6)     // red plane
	assert.InDelta(t, -1, img[1024], 1e-6) // green plane

	limited, err := data.LoadCIFAR10(dir, true, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, limited.Len())

	test, err := data.LoadCIFAR10(dir, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, test.Len())
}

func TestLoadCIFAR10FlatDirAndErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "test_batch.bin"), cifarRecords(1, 2))
	test, err := data.LoadCIFAR10(dir, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, test.Len())

	_, err = data.LoadCIFAR10(dir, true, 0)
	assert.ErrorIs(t, err, data.ErrNotFound)

	_, err = data.ReadCIFARBatch(bytes.NewReader(cifarRecords(1)[:100]), 0)
	assert.Error(t, err)

	_, err = data.ReadCIFARBatch(bytes.NewReader(cifarRecords(12)), 0)
	assert.ErrorContains(t, err, "out of range")
}

func TestSyntheticDeterministic(t *testing.T) {
	a := data.SyntheticMNIST(20, 4)
	b := data.SyntheticMNIST(20, 4)
	assert.Equal(t, a.Sample(7), b.Sample(7))
	assert.Equal(t, int32(7), a.Sample(7).Label)
	for _, v := range a.Sample(3).Image {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(1))
	}

	c := data.SyntheticCIFAR(5, 1)
	assert.Equal(t, [3]int{3, 32, 32}, c.ImageShape())
	assert.Len(t, c.Sample(0).Image, 3072)
}

func TestLoaderCoversEpochWithShortFinalBatch(t *testing.T) {
	backend := cpu.New()
	ds := data.SyntheticMNIST(10, 1)
	loader := data.NewLoader(ds, 4, true, 42, backend)
	assert.Equal(t, 3, loader.NumBatches())

	var sizes []int
	counts := map[int32]int{}
	for batch := range loader.Epoch() {
		sizes = append(sizes, batch.Size)
		assert.Equal(t, tensor.Shape{batch.Size, 1, 28, 28}, batch.Images.Shape())
		assert.Equal(t, tensor.Shape{batch.Size}, batch.Labels.Shape())
		for _, l := range batch.Labels.Data() {
			counts[l]++
		}
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)
	// Labels 0..9 appear once each, so every sample was seen exactly once.
	assert.Len(t, counts, 10)
	for label, n := range counts {
		assert.Equal(t, 1, n, "label %d", label)
	}
}

func epochLabels(loader *data.Loader[*cpu.CPUBackend]) []int32 {
	var labels []int32
	for batch := range loader.Epoch() {
		labels = append(labels, batch.Labels.Data()...)
	}
	return labels
}

func TestLoaderShuffling(t *testing.T) {
	backend := cpu.New()
	ds := data.SyntheticMNIST(50, 1)

	a := data.NewLoader(ds, 8, true, 7, backend)
	b := data.NewLoader(ds, 8, true, 7, backend)
	first := epochLabels(a)
	assert.Equal(t, first, epochLabels(b))
	assert.NotEqual(t, first, epochLabels(a), "order should change across epochs")

	sequential := data.NewLoader(ds, 8, false, 7, backend)
	labels := epochLabels(sequential)
	for i, l := range labels {
		assert.Equal(t, int32(i%10), l)
	}
}

func TestLoaderEarlyBreak(t *testing.T) {
	loader := data.NewLoader(data.SyntheticMNIST(10, 1), 2, false, 0, cpu.New())
	seen := 0
	for range loader.Epoch() {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestNewInMemoryValidates(t *testing.T) {
	_, err := data.NewInMemory([]data.Sample{{Image: make([]float32, 3)}}, [3]int{1, 2, 2})
	assert.Error(t, err)
	ds, err := data.NewInMemory([]data.Sample{{Image: make([]float32, 4)}, {Image: make([]float32, 4)}}, [3]int{1, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Limit(1).Len())
	assert.Equal(t, 2, ds.Limit(0).Len())
}
