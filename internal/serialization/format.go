package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes        = "BORN"
	FormatVersionV2   = 2    // the only version written and read
	HeaderAlignment   = 64   // tensor data starts on a 64-byte boundary
	FixedHeaderSizeV2 = 64   // fixed header size (0x40 bytes)
	ChecksumSize      = 32   // SHA-256 checksum size
	ChecksumOffsetV2  = 0x20 // checksum offset in the fixed header
)

// Flags for the .born format.
const (
	FlagHasMetadata   uint32 = 1 << 2 // custom metadata included
	FlagHasCheckpoint uint32 = 1 << 3 // training state included
)

// Producer identifies the writer in file headers.
const Producer = "born-trainers/1"

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	Producer       string            `json:"born_version"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Tensors        []TensorMeta      `json:"tensors"`
	Metadata       map[string]string `json:"metadata"`
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta contains training state recorded alongside the weights.
type CheckpointMeta struct {
	Epoch         int            `json:"epoch"`
	Step          int64          `json:"step"`
	Loss          float64        `json:"loss"`
	OptimizerType string         `json:"optimizer_type,omitempty"`
	TrainingMeta  map[string]any `json:"training_meta,omitempty"`
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // e.g. "0.weight"
	DType  string `json:"dtype"`  // e.g. "float32"
	Shape  []int  `json:"shape"`  // tensor shape
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // size in bytes
}
