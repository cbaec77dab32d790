package loader

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/fetch"
	"github.com/born-ml/benchmarks/internal/nn"
	"github.com/born-ml/benchmarks/internal/optim"
)

// LoadTopology fetches and parses a topology document.
func LoadTopology(ctx context.Context, client *http.Client, url string) (*Artifacts, error) {
	body, err := fetch.Get(ctx, client, url)
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

// LoadTopologyFile reads a topology document from disk.
func LoadTopologyFile(path string) (*Artifacts, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fetch.ErrFetch, err)
	}
	return Parse(body)
}

// LoadModel fetches a topology and builds a compiled model on e.
func LoadModel(ctx context.Context, client *http.Client, e *engine.Engine, url string) (*nn.Sequential, error) {
	a, err := LoadTopology(ctx, client, url)
	if err != nil {
		return nil, err
	}
	return Build(e, a)
}

// Build creates, builds and compiles the model described by a.
func Build(e *engine.Engine, a *Artifacts) (*nn.Sequential, error) {
	inputShape, dtype, err := a.InputSpec()
	if err != nil {
		return nil, err
	}

	var layers []nn.Layer
	for i, spec := range a.ModelTopology.Config.Layers {
		l, err := newLayer(i, spec)
		if err != nil {
			return nil, err
		}
		if l != nil {
			layers = append(layers, l)
		}
	}

	name := a.ModelTopology.Config.Name
	model := nn.NewSequential(name, layers...)
	if err := model.Build(e, inputShape, dtype); err != nil {
		return nil, err
	}

	loss, opt, err := compileSpec(a.TrainingConfig)
	if err != nil {
		model.Dispose(e)
		return nil, err
	}
	model.Compile(loss, opt)
	return model, nil
}

func newLayer(i int, spec LayerSpec) (nn.Layer, error) {
	cfg := spec.Config
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s_%d", spec.ClassName, i)
	}

	switch spec.ClassName {
	case "InputLayer":
		return nil, nil
	case "Dense":
		useBias := cfg.UseBias == nil || *cfg.UseBias
		return nn.NewDense(name, cfg.Units, cfg.Activation, useBias)
	case "Activation":
		return nn.NewActivation(name, cfg.Activation)
	case "Flatten":
		return nn.NewFlatten(name), nil
	case "Dropout":
		return nn.NewDropout(name, cfg.Rate)
	case "Embedding":
		return nn.NewEmbedding(name, cfg.InputDim, cfg.OutputDim)
	default:
		return nil, fmt.Errorf("%w: %q (layer %d)", nn.ErrUnknownLayer, spec.ClassName, i)
	}
}

func compileSpec(tc *TrainingConfig) (nn.Loss, nn.Optimizer, error) {
	lossName, optCfg := DefaultLoss, optim.Config{ClassName: DefaultOptimizer}
	if tc != nil {
		if tc.Loss != "" {
			lossName = tc.Loss
		}
		if tc.OptimizerConfig.ClassName != "" {
			optCfg = tc.OptimizerConfig.Config
			optCfg.ClassName = tc.OptimizerConfig.ClassName
		}
	}
	loss, err := nn.ParseLoss(lossName)
	if err != nil {
		return nil, nil, err
	}
	opt, err := optim.New(optCfg)
	if err != nil {
		return nil, nil, err
	}
	return loss, opt, nil
}
