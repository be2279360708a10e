package tensor

import (
	"math"
	"math/rand"
	"sync"
)

// The package random source drives Randn, Rand and Uniform. It starts
// unseeded (clock based); ManualSeed makes runs reproducible.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // ML randomness, not security
)

// ManualSeed reseeds the package random source.
func ManualSeed(seed int64) {
	rngMu.Lock()
	defer rngMu.Unlock()
	rng = rand.New(rand.NewSource(seed)) //nolint:gosec // ML randomness, not security
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	raw, err := NewRaw(shape, inferDataType[T](), b.Device())
	if err != nil {
		panic(err)
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, T(1), b)
}

// Full creates a tensor filled with value.
//
//	labels := tensor.Full[float32](tensor.Shape{n, 1}, 1, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float32 tensor sampled from the standard normal
// distribution (Box-Muller).
func Randn[B Backend](shape Shape, b B) *Tensor[float32, B] {
	t := Zeros[float32, B](shape, b)
	data := t.Data()

	rngMu.Lock()
	defer rngMu.Unlock()
	for i := 0; i < len(data); i += 2 {
		u1 := 1 - rng.Float64() // (0, 1], keeps log finite
		u2 := rng.Float64()
		r := math.Sqrt(-2 * math.Log(u1))
		data[i] = float32(r * math.Cos(2*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = float32(r * math.Sin(2*math.Pi*u2))
		}
	}
	return t
}

// Rand creates a float32 tensor uniformly distributed in [0, 1).
func Rand[B Backend](shape Shape, b B) *Tensor[float32, B] {
	return Uniform(shape, 0, 1, b)
}

// Uniform creates a float32 tensor uniformly distributed in [low, high).
func Uniform[B Backend](shape Shape, low, high float32, b B) *Tensor[float32, B] {
	t := Zeros[float32, B](shape, b)
	data := t.Data()

	rngMu.Lock()
	defer rngMu.Unlock()
	for i := range data {
		data[i] = low + (high-low)*rng.Float32()
	}
	return t
}
