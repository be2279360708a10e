package data

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CIFAR-10 image geometry.
const (
	CIFARChannels = 3
	CIFARHeight   = 32
	CIFARWidth    = 32
	CIFARClasses  = 10

	cifarImageBytes  = CIFARChannels * CIFARHeight * CIFARWidth
	cifarRecordBytes = 1 + cifarImageBytes
)

// CIFARClassNames lists the CIFAR-10 classes in label order.
var CIFARClassNames = [CIFARClasses]string{
	"airplane", "automobile", "bird", "cat", "deer",
	"dog", "frog", "horse", "ship", "truck",
}

// ReadCIFARBatch reads records of the CIFAR-10 binary format until EOF:
// one label byte followed by 3072 pixel bytes (1024 red, 1024 green,
// 1024 blue, each plane row-major). At most limit records are read when
// limit > 0.
func ReadCIFARBatch(r io.Reader, limit int) ([]Sample, error) {
	var samples []Sample
	record := make([]byte, cifarRecordBytes)
	for limit <= 0 || len(samples) < limit {
		_, err := io.ReadFull(r, record)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", len(samples), err)
		}
		if record[0] >= CIFARClasses {
			return nil, fmt.Errorf("record %d: label %d out of range", len(samples), record[0])
		}
		samples = append(samples, Sample{
			Image: normalizeAll(record[1:]),
			Label: int32(record[0]),
		})
	}
	return samples, nil
}

// LoadCIFAR10 loads the CIFAR-10 binary release from dir. The files are
// looked up in dir/cifar-10-batches-bin and then in dir itself:
//
//	train: data_batch_1.bin .. data_batch_5.bin
//	test:  test_batch.bin
//
// maxSamples > 0 caps the number of samples. Missing files yield an error
// wrapping ErrNotFound.
func LoadCIFAR10(dir string, train bool, maxSamples int) (*InMemory, error) {
	names := []string{"test_batch.bin"}
	if train {
		names = []string{"data_batch_1.bin", "data_batch_2.bin", "data_batch_3.bin", "data_batch_4.bin", "data_batch_5.bin"}
	}

	root := filepath.Join(dir, "cifar-10-batches-bin")
	if _, err := os.Stat(filepath.Join(root, names[0])); err != nil {
		root = dir
	}

	var samples []Sample
	for _, name := range names {
		remaining := 0
		if maxSamples > 0 {
			remaining = maxSamples - len(samples)
			if remaining <= 0 {
				break
			}
		}
		batch, err := readCIFARFile(filepath.Join(root, name), remaining)
		if err != nil {
			return nil, err
		}
		samples = append(samples, batch...)
	}
	return NewInMemory(samples, [3]int{CIFARChannels, CIFARHeight, CIFARWidth})
}

func readCIFARFile(path string, limit int) ([]Sample, error) {
	//nolint:gosec // G304: dataset path is chosen by the user
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := ReadCIFARBatch(f, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return samples, nil
}
