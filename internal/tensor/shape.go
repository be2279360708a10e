package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	n := 1 // a scalar has one element
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BroadcastShapes applies NumPy-style broadcasting to a and b.
//
// Dimensions are compared right to left; they are compatible when equal or
// when one of them is 1. Missing leading dimensions count as 1.
//
//	(3, 1) + (3, 5) -> (3, 5), true
//	(5)    + (2, 5) -> (2, 5), true
//	(3, 4) + (3, 5) -> error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	n := max(len(a), len(b))
	out := make(Shape, n)
	broadcast := len(a) != len(b)

	for i := 0; i < n; i++ {
		ad, bd := dimFromRight(a, i), dimFromRight(b, i)
		switch {
		case ad == bd:
			out[n-1-i] = ad
		case ad == 1:
			out[n-1-i] = bd
			broadcast = true
		case bd == 1:
			out[n-1-i] = ad
			broadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v", a, b)
		}
	}
	return out, broadcast, nil
}

func dimFromRight(s Shape, i int) int {
	if idx := len(s) - 1 - i; idx >= 0 {
		return s[idx]
	}
	return 1
}
