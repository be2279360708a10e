//go:build !windows

package webgpu

import "github.com/born-ml/trainers/internal/backend/cpu"

// Backend is the CPU backend on platforms without a wgpu binding.
type Backend struct {
	*cpu.CPUBackend
	MinWork int
}

// New always fails with ErrUnavailable on this platform.
func New() (*Backend, error) {
	return nil, ErrUnavailable
}

// IsAvailable reports false on this platform.
func IsAvailable() bool {
	return false
}

// Release is a no-op.
func (b *Backend) Release() {}
