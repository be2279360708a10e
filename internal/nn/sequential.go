package nn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/trainers/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input. State dict keys are
// prefixed with the module's index, so the weight of the first Linear in
//
//	model := nn.NewSequential[Backend](
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(128, 10, backend),
//	)
//
// is stored as "0.weight" and the last layer's bias as "2.bias".
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{modules: modules}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns all trainable parameters from all modules, in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential[B]) Module(index int) Module[B] {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// StateDict collects the state dicts of all modules, keyed "<index>.<name>".
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for i, module := range s.modules {
		prefix := strconv.Itoa(i) + "."
		for name, raw := range module.StateDict() {
			stateDict[prefix+name] = raw
		}
	}
	return stateDict
}

// LoadStateDict routes "<index>.<name>" keys to the matching module.
// Keys that no module claims are reported as an error.
func (s *Sequential[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	claimed := 0
	for i, module := range s.modules {
		prefix := strconv.Itoa(i) + "."
		moduleStateDict := make(map[string]*tensor.RawTensor)
		for key, raw := range stateDict {
			if name, ok := strings.CutPrefix(key, prefix); ok {
				moduleStateDict[name] = raw
			}
		}
		if len(module.Parameters()) == 0 {
			continue
		}
		if err := module.LoadStateDict(moduleStateDict); err != nil {
			return fmt.Errorf("failed to load module %d: %w", i, err)
		}
		claimed += len(module.StateDict())
	}
	if claimed != len(stateDict) {
		return fmt.Errorf("state dict has %d entries, model uses %d", len(stateDict), claimed)
	}
	return nil
}
