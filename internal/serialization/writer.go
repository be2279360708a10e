package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/born-ml/trainers/internal/tensor"
)

// Encode writes stateDict to w in .born v2 format. FormatVersion, Producer,
// Tensors and (if zero) CreatedAt of header are filled in.
func Encode(w io.Writer, stateDict map[string]*tensor.RawTensor, header Header) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersionV2
	header.Producer = Producer
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = map[string]string{}
	}
	header.Tensors = make([]TensorMeta, 0, len(names))

	var data []byte
	for _, name := range names {
		raw := stateDict[name]
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  []int(raw.Shape().Clone()),
			Offset: int64(len(data)),
			Size:   int64(raw.ByteSize()),
		})
		data = append(data, raw.Data()...)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	var flags uint32
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil {
		flags |= FlagHasCheckpoint
	}

	fixed := make([]byte, FixedHeaderSizeV2)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersionV2)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	checksum := ComputeChecksum(data)
	copy(fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	pos := int64(FixedHeaderSizeV2 + len(headerJSON))
	padding := (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment

	for _, chunk := range [][]byte{fixed, headerJSON, make([]byte, padding), data} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}
	return nil
}

// WriteFile writes stateDict to path, creating parent directories.
// meta may be nil.
func WriteFile(path string, stateDict map[string]*tensor.RawTensor, modelType string, metadata map[string]string, meta *CheckpointMeta) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	//nolint:gosec // G304: path is chosen by the user
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	bw := bufio.NewWriter(f)
	header := Header{ModelType: modelType, Metadata: metadata, CheckpointMeta: meta}
	if err := Encode(bw, stateDict, header); err != nil {
		return err
	}
	return bw.Flush()
}
