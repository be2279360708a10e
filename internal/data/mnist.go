package data

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051 // 0x00000803
	idxLabelsMagic = 2049 // 0x00000801

	maxIDXDim   = 4096    // largest accepted rows or cols
	idxPrealloc = 1 << 16 // images preallocated before the header count is trusted
)

// MNIST image geometry.
const (
	MNISTChannels = 1
	MNISTHeight   = 28
	MNISTWidth    = 28
)

// ReadIDXImages reads an IDX3 image file.
//
//	magic number: 0x00000803 (2051), big-endian
//	number of images, rows, cols: 4 bytes each
//	pixel data: unsigned bytes (0-255), row-major
func ReadIDXImages(r io.Reader) (images [][]byte, rows, cols int, err error) {
	if err := readIDXMagic(r, idxImagesMagic); err != nil {
		return nil, 0, 0, err
	}
	var dims [3]uint32
	if err := binary.Read(r, binary.BigEndian, &dims); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read header: %w", err)
	}
	count, rows, cols := int(dims[0]), int(dims[1]), int(dims[2])
	if rows <= 0 || cols <= 0 || rows > maxIDXDim || cols > maxIDXDim {
		return nil, 0, 0, fmt.Errorf("invalid image size %dx%d", rows, cols)
	}

	// count comes from the file; grow as images actually arrive.
	images = make([][]byte, 0, min(count, idxPrealloc))
	for i := range count {
		img := make([]byte, rows*cols)
		if _, err := io.ReadFull(r, img); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to read image %d: %w", i, err)
		}
		images = append(images, img)
	}
	return images, rows, cols, nil
}

// ReadIDXLabels reads an IDX1 label file.
//
//	magic number: 0x00000801 (2049), big-endian
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadIDXLabels(r io.Reader) ([]byte, error) {
	if err := readIDXMagic(r, idxLabelsMagic); err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	labels, err := io.ReadAll(io.LimitReader(r, int64(count)))
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	if len(labels) != int(count) {
		return nil, fmt.Errorf("failed to read labels: got %d of %d: %w", len(labels), count, io.ErrUnexpectedEOF)
	}
	return labels, nil
}

// readIDXMagic reads the 4-byte magic number and checks it before any
// other header field is trusted.
func readIDXMagic(r io.Reader, want uint32) error {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return fmt.Errorf("failed to read magic number: %w", err)
	}
	if magic != want {
		return fmt.Errorf("invalid magic number: got %d, want %d", magic, want)
	}
	return nil
}

// LoadMNIST loads MNIST from the official IDX files in dir, plain or
// gzip-compressed:
//
//	train-images-idx3-ubyte[.gz], train-labels-idx1-ubyte[.gz]
//	t10k-images-idx3-ubyte[.gz],  t10k-labels-idx1-ubyte[.gz]
//
// maxSamples > 0 caps the number of samples. Missing files yield an error
// wrapping ErrNotFound.
func LoadMNIST(dir string, train bool, maxSamples int) (*InMemory, error) {
	prefix := "t10k"
	if train {
		prefix = "train"
	}

	var images [][]byte
	var rows, cols int
	err := withDatasetFile(dir, prefix+"-images-idx3-ubyte", func(r io.Reader) error {
		var err error
		images, rows, cols, err = ReadIDXImages(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}

	var labels []byte
	err = withDatasetFile(dir, prefix+"-labels-idx1-ubyte", func(r io.Reader) error {
		var err error
		labels, err = ReadIDXLabels(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}

	if len(images) != len(labels) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(images), len(labels))
	}

	n := len(images)
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{Image: normalizeAll(images[i]), Label: int32(labels[i])}
	}
	return NewInMemory(samples, [3]int{MNISTChannels, rows, cols})
}

// withDatasetFile opens dir/name or dir/name.gz and passes a buffered,
// decompressed reader to fn.
func withDatasetFile(dir, name string, fn func(io.Reader) error) error {
	path := filepath.Join(dir, name)
	gzipped := false
	//nolint:gosec // G304: dataset path is chosen by the user
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		//nolint:gosec // G304: dataset path is chosen by the user
		f, err = os.Open(path + ".gz")
		gzipped = true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return fn(r)
}
