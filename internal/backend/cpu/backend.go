// Package cpu implements the pure-Go CPU backend. Kernels fan out over
// rows or NCHW planes with internal/parallel and always allocate results.
package cpu

import (
	"github.com/born-ml/trainers/internal/parallel"
	"github.com/born-ml/trainers/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a CPU backend using parallel.DefaultConfig.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallel config.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Parallel returns the parallel config used by the kernels.
func (cpu *CPUBackend) Parallel() parallel.Config {
	return cpu.par
}

func (cpu *CPUBackend) alloc(shape tensor.Shape, op string) *tensor.RawTensor {
	r, err := tensor.NewRaw(shape, tensor.Float32, cpu.device)
	if err != nil {
		panic(op + ": " + err.Error())
	}
	return r
}

func requireFloat32(op string, ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			panic(op + ": unsupported dtype " + t.DType().String())
		}
	}
}
