package ops

import "github.com/born-ml/trainers/internal/tensor"

// MaxPool2DOp records max pooling. Gradients flow only to the input position
// that held the window maximum (first one on ties).
type MaxPool2DOp struct {
	base
	maxIndices []int
}

// NewMaxPool2DOp creates a new MaxPool2DOp. Max positions are located at
// record time while the input is known to be unchanged.
func NewMaxPool2DOp(input, output *tensor.RawTensor, kernelSize, stride int) *MaxPool2DOp {
	return &MaxPool2DOp{
		base:       base{[]*tensor.RawTensor{input}, output},
		maxIndices: maxIndices(input, output.Shape(), kernelSize, stride),
	}
}

func maxIndices(input *tensor.RawTensor, outShape tensor.Shape, kernelSize, stride int) []int {
	s := input.Shape()
	h, w := s[2], s[3]
	hOut, wOut := outShape[2], outShape[3]
	in := input.AsFloat32()
	idx := make([]int, outShape.NumElements())

	o := 0
	for plane := 0; plane < s[0]*s[1]; plane++ {
		start := plane * h * w
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				best := start + oh*stride*w + ow*stride
				for i := 0; i < kernelSize; i++ {
					for j := 0; j < kernelSize; j++ {
						p := start + (oh*stride+i)*w + ow*stride + j
						if in[p] > in[best] {
							best = p
						}
					}
				}
				idx[o] = best
				o++
			}
		}
	}
	return idx
}

// Backward routes each output gradient to its max input position.
func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := newLike(op.inputs[0].Shape(), op.inputs[0].Device())
	g, dst := outputGrad.AsFloat32(), grad.AsFloat32()
	for o, p := range op.maxIndices {
		dst[p] += g[o]
	}
	return []*tensor.RawTensor{grad}
}
