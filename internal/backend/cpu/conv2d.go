package cpu

import (
	"fmt"

	"github.com/born-ml/trainers/internal/parallel"
	"github.com/born-ml/trainers/internal/tensor"
)

// convGeom holds the dimensions of one NCHW convolution.
type convGeom struct {
	n, cIn, h, w     int
	cOut, kh, kw     int
	hOut, wOut       int
	stride, padding  int
	colWidth, colLen int // C_in*K_h*K_w and H_out*W_out
}

func newConvGeom(input, kernel *tensor.RawTensor, stride, padding int) convGeom {
	is, ks := input.Shape(), kernel.Shape()
	if len(is) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(is)))
	}
	if len(ks) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(ks)))
	}
	if is[1] != ks[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", is[1], ks[1]))
	}
	if stride <= 0 {
		panic("conv2d: stride must be positive")
	}
	g := convGeom{
		n: is[0], cIn: is[1], h: is[2], w: is[3],
		cOut: ks[0], kh: ks[2], kw: ks[3],
		stride: stride, padding: padding,
	}
	g.hOut = (g.h+2*padding-g.kh)/stride + 1
	g.wOut = (g.w+2*padding-g.kw)/stride + 1
	if g.hOut <= 0 || g.wOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions %dx%d (check stride/padding)", g.hOut, g.wOut))
	}
	g.colWidth = g.cIn * g.kh * g.kw
	g.colLen = g.hOut * g.wOut
	return g
}

// Conv2D performs 2D convolution with the im2col algorithm.
//
// Input [N, C_in, H, W], kernel [C_out, C_in, K_h, K_w], output
// [N, C_out, H_out, W_out] with H_out = (H + 2*padding - K_h)/stride + 1.
// Each sample is unrolled into a [H_out*W_out, C_in*K_h*K_w] patch matrix
// and multiplied with the kernel; samples run in parallel.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	requireFloat32("conv2d", input, kernel)
	g := newConvGeom(input, kernel, stride, padding)
	out := cpu.alloc(tensor.Shape{g.n, g.cOut, g.hOut, g.wOut}, "conv2d")

	in, k, o := input.AsFloat32(), kernel.AsFloat32(), out.AsFloat32()
	parallel.For(g.n, func(n int) {
		col := make([]float32, g.colLen*g.colWidth)
		g.im2col(col, in[n*g.cIn*g.h*g.w:(n+1)*g.cIn*g.h*g.w])
		dst := o[n*g.cOut*g.colLen : (n+1)*g.cOut*g.colLen]
		for co := 0; co < g.cOut; co++ {
			kr := k[co*g.colWidth : (co+1)*g.colWidth]
			row := dst[co*g.colLen : (co+1)*g.colLen]
			for p := range row {
				patch := col[p*g.colWidth : (p+1)*g.colWidth]
				var sum float32
				for j, kv := range kr {
					sum += kv * patch[j]
				}
				row[p] = sum
			}
		}
	}, cpu.par)
	return out
}

// Conv2DInputBackward computes dL/dinput for Conv2D.
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	requireFloat32("conv2d_backward", input, kernel, grad)
	g := newConvGeom(input, kernel, stride, padding)
	dInput := cpu.alloc(input.Shape(), "conv2d_backward")

	k, gr, di := kernel.AsFloat32(), grad.AsFloat32(), dInput.AsFloat32()
	parallel.For(g.n, func(n int) {
		dcol := make([]float32, g.colLen*g.colWidth)
		gn := gr[n*g.cOut*g.colLen : (n+1)*g.cOut*g.colLen]
		for co := 0; co < g.cOut; co++ {
			kr := k[co*g.colWidth : (co+1)*g.colWidth]
			for p, gv := range gn[co*g.colLen : (co+1)*g.colLen] {
				if gv == 0 {
					continue
				}
				drow := dcol[p*g.colWidth : (p+1)*g.colWidth]
				for j, kv := range kr {
					drow[j] += gv * kv
				}
			}
		}
		g.col2im(di[n*g.cIn*g.h*g.w:(n+1)*g.cIn*g.h*g.w], dcol)
	}, cpu.par)
	return dInput
}

// Conv2DKernelBackward computes dL/dkernel for Conv2D. Output channels are
// split across workers; samples are summed in order.
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	requireFloat32("conv2d_backward", input, kernel, grad)
	g := newConvGeom(input, kernel, stride, padding)
	dKernel := cpu.alloc(kernel.Shape(), "conv2d_backward")

	in, gr, dk := input.AsFloat32(), grad.AsFloat32(), dKernel.AsFloat32()
	cols := make([][]float32, g.n)
	parallel.For(g.n, func(n int) {
		cols[n] = make([]float32, g.colLen*g.colWidth)
		g.im2col(cols[n], in[n*g.cIn*g.h*g.w:(n+1)*g.cIn*g.h*g.w])
	}, cpu.par)

	parallel.For(g.cOut, func(co int) {
		drow := dk[co*g.colWidth : (co+1)*g.colWidth]
		for n := 0; n < g.n; n++ {
			gn := gr[(n*g.cOut+co)*g.colLen : (n*g.cOut+co+1)*g.colLen]
			for p, gv := range gn {
				if gv == 0 {
					continue
				}
				patch := cols[n][p*g.colWidth : (p+1)*g.colWidth]
				for j, v := range patch {
					drow[j] += gv * v
				}
			}
		}
	}, cpu.par)
	return dKernel
}

// im2col unrolls one sample [C, H, W] into rows of patches.
func (g convGeom) im2col(col, img []float32) {
	idx := 0
	for oh := 0; oh < g.hOut; oh++ {
		for ow := 0; ow < g.wOut; ow++ {
			h0, w0 := oh*g.stride-g.padding, ow*g.stride-g.padding
			for c := 0; c < g.cIn; c++ {
				plane := img[c*g.h*g.w : (c+1)*g.h*g.w]
				for i := 0; i < g.kh; i++ {
					hh := h0 + i
					for j := 0; j < g.kw; j++ {
						ww := w0 + j
						if hh >= 0 && hh < g.h && ww >= 0 && ww < g.w {
							col[idx] = plane[hh*g.w+ww]
						} else {
							col[idx] = 0
						}
						idx++
					}
				}
			}
		}
	}
}

// col2im scatters patch gradients back onto one sample, accumulating overlaps.
func (g convGeom) col2im(img, col []float32) {
	idx := 0
	for oh := 0; oh < g.hOut; oh++ {
		for ow := 0; ow < g.wOut; ow++ {
			h0, w0 := oh*g.stride-g.padding, ow*g.stride-g.padding
			for c := 0; c < g.cIn; c++ {
				plane := img[c*g.h*g.w : (c+1)*g.h*g.w]
				for i := 0; i < g.kh; i++ {
					hh := h0 + i
					for j := 0; j < g.kw; j++ {
						ww := w0 + j
						if hh >= 0 && hh < g.h && ww >= 0 && ww < g.w {
							plane[hh*g.w+ww] += col[idx]
						}
						idx++
					}
				}
			}
		}
	}
}
