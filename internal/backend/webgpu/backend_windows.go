//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/trainers/internal/backend/cpu"
	"github.com/born-ml/trainers/internal/tensor"
)

// Backend runs MatMul on a WebGPU device and everything else on the CPU.
type Backend struct {
	*cpu.CPUBackend

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	pipeline *wgpu.ComputePipeline
	shader   *wgpu.ShaderModule

	// MinWork is the smallest M*K*N product dispatched to the GPU.
	MinWork int

	mu sync.Mutex
}

// New opens the high-performance adapter and compiles the matmul pipeline.
func New() (backend *Backend, err error) {
	// wgpu panics when the native library cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: native library: %v", ErrUnavailable, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", ErrUnavailable, err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", ErrUnavailable, err)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: no queue", ErrUnavailable)
	}

	shader := device.CreateShaderModuleWGSL(matmulShader)
	return &Backend{
		CPUBackend: cpu.New(),
		instance:   instance,
		adapter:    adapter,
		device:     device,
		queue:      queue,
		shader:     shader,
		pipeline:   device.CreateComputePipelineSimple(nil, shader, "main"),
		MinWork:    DefaultMinWork,
	}, nil
}

// IsAvailable reports whether an adapter can be obtained.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "WebGPU"
}

// MatMul multiplies 2D float32 matrices on the GPU when the product is
// large enough. Other inputs, and GPU failures, go to the CPU kernel.
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 || x.DType() != tensor.Float32 || xs[1] != ys[0] ||
		xs[0]*xs[1]*ys[1] < b.MinWork {
		return b.CPUBackend.MatMul(x, y)
	}
	out, err := b.matmulGPU(x, y)
	if err != nil {
		return b.CPUBackend.MatMul(x, y)
	}
	return out
}

func (b *Backend) matmulGPU(x, y *tensor.RawTensor) (*tensor.RawTensor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, k, n := x.Shape()[0], x.Shape()[1], y.Shape()[1]
	//nolint:gosec // G115: sizes are non-negative and far below 4 GiB
	resultSize := uint64(m * n * 4)

	bufA := b.upload(x.Data(), wgpu.BufferUsageStorage)
	defer bufA.Release()
	bufB := b.upload(y.Data(), wgpu.BufferUsageStorage)
	defer bufB.Release()

	bufC := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:  resultSize,
	})
	defer bufC.Release()

	params := make([]byte, 16)
	//nolint:gosec // G115: dimensions are non-negative
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	//nolint:gosec // G115: dimensions are non-negative
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))
	//nolint:gosec // G115: dimensions are non-negative
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))
	bufParams := b.upload(params, wgpu.BufferUsageUniform)
	defer bufParams.Release()

	//nolint:gosec // G115: ByteSize is non-negative
	bindGroup := b.device.CreateBindGroupSimple(b.pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufA, 0, uint64(x.ByteSize())),
		wgpu.BufferBindingEntry(1, bufB, 0, uint64(y.ByteSize())),
		wgpu.BufferBindingEntry(2, bufC, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufParams, 0, 16),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	//nolint:gosec // G115: workgroup counts are small
	pass.DispatchWorkgroups(uint32((n+15)/16), uint32((m+15)/16), 1)
	pass.End()
	b.queue.Submit(encoder.Finish(nil))

	data, err := b.readback(bufC, resultSize)
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(tensor.Shape{m, n}, tensor.Float32, b.Device())
	if err != nil {
		return nil, err
	}
	copy(out.Data(), data)
	return out, nil
}

// upload creates a buffer initialized with data. Sizes are rounded up to
// 16 bytes for uniform binding rules.
func (b *Backend) upload(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := (uint64(len(data)) + 15) &^ 15
	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	//nolint:gosec // mapped range is valid until Unmap
	copy(unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size), data)
	buf.Unmap()
	return buf
}

func (b *Backend) readback(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	out := make([]byte, size)
	//nolint:gosec // mapped range is valid until Unmap
	copy(out, unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size))
	staging.Unmap()
	return out, nil
}

// Release frees the GPU objects. The backend must not be used afterwards.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.shader != nil {
		b.shader.Release()
		b.shader = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
