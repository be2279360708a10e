package ops

import (
	"github.com/born-ml/trainers/internal/tensor"
)

// reduceBroadcast sums grad down to targetShape, undoing the broadcasting
// done in the forward pass.
//
//	grad [4, 3], target [3]    -> sum over rows
//	grad [2, 8, 5, 5], target [1, 8, 1, 1] -> sum per channel
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}
	out := newLike(targetShape, grad.Device())
	gs := grad.Shape()
	strides := make([]int, len(gs))
	ts := targetShape.ComputeStrides()
	offset := len(gs) - len(targetShape)
	for i, d := range targetShape {
		if d != 1 {
			strides[offset+i] = ts[i]
		}
	}

	src, dst := grad.AsFloat32(), out.AsFloat32()
	idx := make([]int, len(gs))
	ti := 0
	for _, v := range src {
		dst[ti] += v
		for d := len(gs) - 1; d >= 0; d-- {
			idx[d]++
			ti += strides[d]
			if idx[d] < gs[d] {
				break
			}
			ti -= strides[d] * gs[d]
			idx[d] = 0
		}
	}
	return out
}

func newLike(shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	return tensor.MustRaw(shape, tensor.Float32, device)
}

// mapGrad builds dL/dx[i] = g[i] * f(i) for element-wise ops.
func mapGrad(outputGrad, like *tensor.RawTensor, f func(i int) float32) *tensor.RawTensor {
	out := newLike(like.Shape(), like.Device())
	g, dst := outputGrad.AsFloat32(), out.AsFloat32()
	for i := range dst {
		dst[i] = g[i] * f(i)
	}
	return out
}

// scalarLoss allocates the [1]-shaped result of a mean-reduced loss.
func scalarLoss(value float32, device tensor.Device) *tensor.RawTensor {
	out := newLike(tensor.Shape{1}, device)
	out.AsFloat32()[0] = value
	return out
}
