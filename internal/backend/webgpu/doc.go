// Package webgpu offloads dense matrix multiplication to the GPU through
// WebGPU compute shaders (github.com/go-webgpu/webgpu, no cgo).
//
// Backend embeds the CPU backend: tensors stay in host memory and every
// operation other than 2D float32 MatMul runs on the CPU kernels. Small
// products, where upload and readback dominate, also stay on the CPU.
//
// The native wgpu library is only wired up for Windows builds; New returns
// ErrUnavailable elsewhere.
package webgpu

import "errors"

// ErrUnavailable is returned by New when no WebGPU adapter can be used.
var ErrUnavailable = errors.New("webgpu: not available")

// DefaultMinWork is the smallest M*K*N product sent to the GPU.
const DefaultMinWork = 1 << 18
