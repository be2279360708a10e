package tensor

// Add performs element-wise addition with broadcasting.
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Mul(t.raw, other.raw), t.backend)
}

// MatMul performs matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (t *Tensor[T, B]) MatMul(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.MatMul(t.raw, other.raw), t.backend)
}

// MulScalar multiplies every element by s.
func (t *Tensor[T, B]) MulScalar(s float32) *Tensor[T, B] {
	return New[T, B](t.backend.MulScalar(t.raw, s), t.backend)
}

// AddScalar adds s to every element.
func (t *Tensor[T, B]) AddScalar(s float32) *Tensor[T, B] {
	return New[T, B](t.backend.AddScalar(t.raw, s), t.backend)
}

// Reshape returns a tensor with the same data but a different shape.
// A single -1 dimension is inferred from the element count.
//
//	x := tensor.Zeros[float32](tensor.Shape{8, 1, 28, 28}, backend)
//	flat := x.Reshape(8, -1) // [8, 784]
func (t *Tensor[T, B]) Reshape(newShape ...int) *Tensor[T, B] {
	shape := inferShape(Shape(newShape), t.NumElements())
	return New[T, B](t.backend.Reshape(t.raw, shape), t.backend)
}

// Transpose permutes dimensions. With no axes the dimensions are reversed.
func (t *Tensor[T, B]) Transpose(axes ...int) *Tensor[T, B] {
	return New[T, B](t.backend.Transpose(t.raw, axes...), t.backend)
}

// T is a shortcut for 2D transpose.
func (t *Tensor[T, B]) T() *Tensor[T, B] {
	if len(t.Shape()) != 2 {
		panic("T() only works for 2D tensors")
	}
	return t.Transpose(1, 0)
}

func inferShape(shape Shape, numElements int) Shape {
	out := shape.Clone()
	known, unknown := 1, -1
	for i, d := range out {
		if d == -1 {
			if unknown >= 0 {
				panic("reshape: only one dimension can be -1")
			}
			unknown = i
			continue
		}
		known *= d
	}
	if unknown >= 0 {
		if known == 0 || numElements%known != 0 {
			panic("reshape: cannot infer dimension")
		}
		out[unknown] = numElements / known
	}
	return out
}
