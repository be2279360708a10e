package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/trainers/internal/tensor"
)

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// EncodeSafeTensors writes tensors in the HuggingFace SafeTensors layout:
//
//	[8 bytes: header size, uint64 LE]
//	[JSON header]
//	[tensor data in name order]
func EncodeSafeTensors(w io.Writer, stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}
	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		shape := make([]int64, len(raw.Shape()))
		for i, d := range raw.Shape() {
			shape[i] = int64(d)
		}
		size := int64(raw.ByteSize())
		header[name] = SafeTensorHeader{
			DType:       safeTensorsDType(raw.DType()),
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

// WriteSafeTensors writes tensors to a SafeTensors file.
func WriteSafeTensors(path string, stateDict map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
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
	if err := EncodeSafeTensors(bw, stateDict, metadata); err != nil {
		return err
	}
	return bw.Flush()
}

func safeTensorsDType(dt tensor.DataType) string {
	switch dt {
	case tensor.Int32:
		return "I32"
	case tensor.Uint8:
		return "U8"
	default:
		return "F32"
	}
}
