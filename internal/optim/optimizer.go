// Package optim implements the optimizers used to train layers models.
//
// Optimizers update parameter values in place from the gradients left by
// the backward pass. Their per-parameter state is allocated through the
// engine on first use, kept across Tidy scopes and released by Dispose.
package optim

import (
	"fmt"
	"strings"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/nn"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Config is the optimizer section of a layers-model training config.
type Config struct {
	ClassName    string  `json:"class_name"`
	LearningRate float64 `json:"learning_rate"`
	Momentum     float64 `json:"momentum"`
	Beta1        float64 `json:"beta1"`
	Beta2        float64 `json:"beta2"`
	Epsilon      float64 `json:"epsilon"`
}

// New creates an optimizer by class name ("sgd", "SGD", "adam", "Adam", ...).
func New(cfg Config) (nn.Optimizer, error) {
	switch strings.ToLower(cfg.ClassName) {
	case "sgd", "momentum":
		return NewSGD(SGDConfig{LR: float32(cfg.LearningRate), Momentum: float32(cfg.Momentum)}), nil
	case "adam":
		return NewAdam(AdamConfig{
			LR:    float32(cfg.LearningRate),
			Betas: [2]float32{float32(cfg.Beta1), float32(cfg.Beta2)},
			Eps:   float32(cfg.Epsilon),
		}), nil
	default:
		return nil, fmt.Errorf("%w: optimizer %q", nn.ErrUnknownLayer, cfg.ClassName)
	}
}

// state holds one kept tensor per parameter.
type state map[*nn.Parameter]*tensor.Tensor

func (s state) get(e *engine.Engine, p *nn.Parameter) (*tensor.Tensor, error) {
	if t, ok := s[p]; ok {
		return t, nil
	}
	t, err := e.Zeros(p.Value.Shape(), tensor.Float32)
	if err != nil {
		return nil, err
	}
	e.Keep(t)
	s[p] = t
	return t, nil
}

func (s state) dispose(e *engine.Engine) {
	for p, t := range s {
		e.Dispose(t)
		delete(s, p)
	}
}

func checkGrad(p *nn.Parameter) error {
	if err := p.Value.Check(); err != nil {
		return fmt.Errorf("parameter %s: %w", p.Name, err)
	}
	if err := p.Grad.Check(); err != nil {
		return fmt.Errorf("gradient of %s: %w", p.Name, err)
	}
	if !p.Grad.Shape().Equal(p.Value.Shape()) {
		return fmt.Errorf("%w: gradient of %s has shape %v, parameter %v",
			tensor.ErrShapeMismatch, p.Name, p.Grad.Shape(), p.Value.Shape())
	}
	return nil
}
