package nn

import (
	"fmt"

	"github.com/born-ml/trainers/internal/tensor"
)

// Parameter represents a trainable tensor in a neural network.
//
// A parameter carries a requires-grad flag. Optimizers only update
// parameters whose flag is set, which is how a model is frozen while
// another one trains through it:
//
//	nn.Freeze(discriminator.Parameters())
//	defer nn.Unfreeze(discriminator.Parameters())
type Parameter[B tensor.Backend] struct {
	name         string
	tensor       *tensor.Tensor[float32, B]
	grad         *tensor.Tensor[float32, B]
	requiresGrad bool
}

// NewParameter creates a new trainable parameter. The flag starts set.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:         name,
		tensor:       t,
		requiresGrad: true,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before a backward pass.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// RequiresGrad reports whether optimizers may update this parameter.
func (p *Parameter[B]) RequiresGrad() bool {
	return p.requiresGrad
}

// SetRequiresGrad sets the requires-grad flag.
func (p *Parameter[B]) SetRequiresGrad(v bool) {
	p.requiresGrad = v
}

// Freeze clears the requires-grad flag of every parameter.
func Freeze[B tensor.Backend](params []*Parameter[B]) {
	for _, p := range params {
		p.requiresGrad = false
	}
}

// Unfreeze sets the requires-grad flag of every parameter.
func Unfreeze[B tensor.Backend](params []*Parameter[B]) {
	for _, p := range params {
		p.requiresGrad = true
	}
}

// loadInto validates raw against p and copies its values.
func loadInto[B tensor.Backend](p *Parameter[B], stateDict map[string]*tensor.RawTensor, key string) error {
	raw, ok := stateDict[key]
	if !ok {
		return fmt.Errorf("missing %s in state dict", key)
	}
	if want := p.tensor.Shape(); !raw.Shape().Equal(want) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", key, want, raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %v", key, raw.DType())
	}
	p.tensor.Raw().CopyFrom(raw)
	return nil
}
