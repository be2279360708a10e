// Package serialization implements the .born checkpoint format and a
// SafeTensors exporter.
//
// A .born v2 file is laid out as:
//
//	0x00 [4]  magic "BORN"
//	0x04 [4]  version, uint32 LE (2)
//	0x08 [4]  flags, uint32 LE
//	0x0C [4]  reserved
//	0x10 [8]  header size, uint64 LE
//	0x18 [8]  data size, uint64 LE
//	0x20 [32] SHA-256 of the tensor data
//	0x40      JSON header, padded to a 64-byte boundary
//	          raw little-endian tensor data
//
// Tensors are stored in name order so the same state dict always produces
// the same data section and checksum.
//
//	err := serialization.WriteFile("models/generator.born", model.StateDict(), "Generator", nil, nil)
//	stateDict, header, err := serialization.ReadFile("models/generator.born", tensor.CPU)
package serialization
