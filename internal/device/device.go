// Package device selects the compute backend for the training commands and
// describes the host it runs on.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/backend/webgpu"
	"github.com/born-ml/trainers/internal/tensor"
)

// Device names accepted by Open.
const (
	CPU    = "cpu"
	WebGPU = "webgpu"
	Auto   = "auto"
)

// ErrUnknownDevice is returned by Open for unrecognized names.
var ErrUnknownDevice = errors.New("unknown device")

// Open returns the backend for name and a function that releases it.
// "auto" prefers WebGPU and falls back to the CPU.
func Open(name string) (tensor.Backend, func(), error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CPU, "":
		return cpu.New(), func() {}, nil
	case WebGPU:
		b, err := webgpu.New()
		if err != nil {
			return nil, nil, err
		}
		return b, b.Release, nil
	case Auto:
		if b, err := webgpu.New(); err == nil {
			return b, b.Release, nil
		}
		return cpu.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q (want cpu, webgpu or auto)", ErrUnknownDevice, name)
	}
}

// Describe returns a one-line summary of the host CPU, e.g.
//
//	AMD Ryzen 9 7950X (16 cores, 32 threads, AVX2 FMA3 AVX512F)
func Describe() string {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = cpuid.CPU.VendorString
	}
	if brand == "" {
		brand = "unknown CPU"
	}

	var features []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX2, "AVX2"},
		{cpuid.FMA3, "FMA3"},
		{cpuid.AVX512F, "AVX512F"},
		{cpuid.ASIMD, "NEON"},
	} {
		if cpuid.CPU.Supports(f.id) {
			features = append(features, f.name)
		}
	}

	desc := fmt.Sprintf("%s (%d cores, %d threads", brand, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
	if len(features) > 0 {
		desc += ", " + strings.Join(features, " ")
	}
	return desc + ")"
}
