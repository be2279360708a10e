package autodiff

import (
	"github.com/born-ml/trainers/internal/autodiff/ops"
	"github.com/born-ml/trainers/internal/tensor"
)

// GradientTape records operations during the forward pass and computes
// gradients during the backward pass.
//
//	tape.StartRecording()
//	// ... forward ...
//	grads := tape.Backward(loss, ones, backend)
//	tape.Clear()
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape creates a new, non-recording gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record adds an operation to the tape if it is recording.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear removes all recorded operations. Recording state is preserved.
func (t *GradientTape) Clear() {
	clear(t.operations)
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// Backward computes gradients of output with respect to every tensor that
// contributed to it, walking the tape in reverse. Gradients of tensors used
// more than once are summed.
//
// Operations recorded after output, or not reachable from it, contribute
// nothing. Recording is paused for the duration of the pass.
func (t *GradientTape) Backward(output, outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	grads[output] = outputGrad

	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		g, ok := grads[op.Output()]
		if !ok {
			continue
		}
		inputGrads := op.Backward(g, backend)
		for j, input := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			if existing, ok := grads[input]; ok {
				grads[input] = backend.Add(existing, inputGrads[j])
			} else {
				grads[input] = inputGrads[j]
			}
		}
	}
	return grads
}

// NoGrad runs fn with the tape's recording disabled and then restores the
// previous recording state, even if fn panics.
func NoGrad(tape *GradientTape, fn func()) {
	was := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		tape.recording = was
	}()
	fn()
}
