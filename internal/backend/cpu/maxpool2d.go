package cpu

import (
	"fmt"

	"github.com/born-ml/trainers/internal/parallel"
	"github.com/born-ml/trainers/internal/tensor"
)

// MaxPool2D applies non-overlapping or strided max pooling over NCHW input
// without padding.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	requireFloat32("maxpool2d", input)
	s := input.Shape()
	if len(s) != 4 {
		panic(fmt.Sprintf("maxpool2d: input must be 4D [N,C,H,W], got %dD", len(s)))
	}
	n, c, h, w := s[0], s[1], s[2], s[3]
	hOut := (h-kernelSize)/stride + 1
	wOut := (w-kernelSize)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("maxpool2d: kernel %d too large for %dx%d input", kernelSize, h, w))
	}

	out := cpu.alloc(tensor.Shape{n, c, hOut, wOut}, "maxpool2d")
	in, o := input.AsFloat32(), out.AsFloat32()
	parallel.ForBatch(n, c, func(b, ch int) {
		plane := in[(b*c+ch)*h*w : (b*c+ch+1)*h*w]
		dst := o[(b*c+ch)*hOut*wOut : (b*c+ch+1)*hOut*wOut]
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				best := plane[oh*stride*w+ow*stride]
				for i := 0; i < kernelSize; i++ {
					row := plane[(oh*stride+i)*w:]
					for j := 0; j < kernelSize; j++ {
						if v := row[ow*stride+j]; v > best {
							best = v
						}
					}
				}
				dst[oh*wOut+ow] = best
			}
		}
	}, cpu.par.WithMinChunk(8))
	return out
}
