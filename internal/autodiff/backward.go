package autodiff

import (
	"fmt"

	"github.com/born-ml/trainers/internal/tensor"
)

// BackwardCapable is implemented by backends that own a gradient tape.
type BackwardCapable interface {
	tensor.Backend
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward seeds dL/dt with ones and computes gradients for every tensor
// on the backend's tape that t depends on.
//
//	grads := autodiff.Backward(loss, backend)
//	dW := grads[weight.Raw()]
func Backward[B BackwardCapable](t *tensor.Tensor[float32, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	seed, err := tensor.NewRaw(t.Shape(), tensor.Float32, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: failed to create output gradient: %v", err))
	}
	data := seed.AsFloat32()
	for i := range data {
		data[i] = 1
	}
	return tape.Backward(t.Raw(), seed, backend)
}
