package optim

import (
	"math"

	"github.com/born-ml/trainers/internal/nn"
	"github.com/born-ml/trainers/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// The GAN trainer uses one Adam per model with betas (0.5, 0.999):
//
//	optG := optim.NewAdam(gen.Parameters(), optim.AdamConfig{LR: 2e-4, Betas: [2]float32{0.5, 0.999}}, backend)
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	t      int                            // Timestep for bias correction
	m      map[*nn.Parameter[B]][]float32 // First moment estimates
	v      map[*nn.Parameter[B]][]float32 // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// DefaultAdamConfig returns lr 1e-3, betas (0.9, 0.999), eps 1e-8.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{LR: 0.001, Betas: [2]float32{0.9, 0.999}, Eps: 1e-8}
}

// NewAdam creates a new Adam optimizer. Zero config fields take the
// defaults of DefaultAdamConfig.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, _ B) *Adam[B] {
	defaults := DefaultAdamConfig()
	if config.LR == 0 {
		config.LR = defaults.LR
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = defaults.Betas[0]
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = defaults.Betas[1]
	}
	if config.Eps == 0 {
		config.Eps = defaults.Eps
	}

	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*nn.Parameter[B]][]float32),
		v:      make(map[*nn.Parameter[B]][]float32),
	}
}

// Step performs a single optimization step.
//
// The timestep advances on every call. Frozen parameters and parameters
// with no gradient keep their values and moments.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, param := range a.params {
		grad := gradientFor(param, grads)
		if grad == nil {
			continue
		}

		m, ok := a.m[param]
		if !ok {
			m = make([]float32, len(grad))
			a.m[param] = m
		}
		v, ok := a.v[param]
		if !ok {
			v = make([]float32, len(grad))
			a.v[param] = v
		}

		paramData := param.Tensor().Data()
		for i, g := range grad {
			m[i] = a.beta1*m[i] + (1.0-a.beta1)*g
			v[i] = a.beta2*v[i] + (1.0-a.beta2)*g*g

			mHat := m[i] / biasCorrection1
			vHat := v[i] / biasCorrection2

			paramData[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) {
	a.lr = lr
}

// GetTimestep returns the current timestep.
func (a *Adam[B]) GetTimestep() int {
	return a.t
}
