package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/trainers/internal/tensor"
)

// Decode reads a .born v2 stream, verifies its checksum and returns the
// state dict allocated on device.
func Decode(r io.Reader, device tensor.Device) (map[string]*tensor.RawTensor, Header, error) {
	var header Header

	fixed := make([]byte, FixedHeaderSizeV2)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, header, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if !bytes.Equal(fixed[0:4], []byte(MagicBytes)) {
		return nil, header, fmt.Errorf("%w: %q", ErrInvalidMagic, fixed[0:4])
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersionV2 {
		return nil, header, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [32]byte
	copy(stored[:], fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, header, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, header, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, header, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	pos := int64(FixedHeaderSizeV2) + int64(headerSize)
	padding := (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, header, fmt.Errorf("failed to skip padding: %w", err)
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, header, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, header, err
	}
	//nolint:gosec // G115: dataSize was just allocated, it fits in int64
	if err := ValidateHeader(&header, int64(dataSize)); err != nil {
		return nil, header, err
	}

	stateDict := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		dt, _ := tensor.ParseDataType(meta.DType) // checked by ValidateHeader
		raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dt, device)
		if err != nil {
			return nil, header, fmt.Errorf("tensor %q: %w", meta.Name, err)
		}
		copy(raw.Data(), data[meta.Offset:meta.Offset+meta.Size])
		stateDict[meta.Name] = raw
	}
	return stateDict, header, nil
}

// ReadFile reads a .born file.
func ReadFile(path string, device tensor.Device) (map[string]*tensor.RawTensor, Header, error) {
	//nolint:gosec // G304: path is chosen by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Decode(f, device)
}
