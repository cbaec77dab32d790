package optim

import (
	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/nn"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Without momentum this is param = param - lr * gradient.
type SGD struct {
	lr       float32
	momentum float32
	velocity state
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float32 // Learning rate (default: 0.01)
	Momentum float32 // Momentum factor (default: 0)
}

// NewSGD creates an SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{lr: config.LR, momentum: config.Momentum, velocity: state{}}
}

// Name returns "sgd".
func (s *SGD) Name() string { return "sgd" }

// Step updates every parameter that has a gradient.
func (s *SGD) Step(e *engine.Engine, params []*nn.Parameter) error {
	for _, p := range params {
		if p.Grad == nil {
			continue
		}
		if err := checkGrad(p); err != nil {
			return err
		}
		w, g := p.Value.Float32(), p.Grad.Float32()

		if s.momentum == 0 {
			for i := range w {
				w[i] -= s.lr * g[i]
			}
			continue
		}

		v, err := s.velocity.get(e, p)
		if err != nil {
			return err
		}
		vel := v.Float32()
		for i := range w {
			vel[i] = s.momentum*vel[i] + g[i]
			w[i] -= s.lr * vel[i]
		}
	}
	return nil
}

// Dispose releases the velocity buffers.
func (s *SGD) Dispose(e *engine.Engine) {
	s.velocity.dispose(e)
}
