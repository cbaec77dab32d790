package benchmark

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/loader"
	"github.com/born-ml/benchmarks/internal/nn"
	"github.com/born-ml/benchmarks/internal/suitelog"
)

// ModelSource loads and builds a named model on an engine.
type ModelSource interface {
	LoadModel(ctx context.Context, e *engine.Engine, name string) (*nn.Sequential, error)
}

// HTTPModels fetches topologies from models/<name>/model.json next to the
// suite log, or under BaseURL when set.
type HTTPModels struct {
	Client   *http.Client
	SuiteURL string
	BaseURL  string
}

// LoadModel implements ModelSource.
func (s HTTPModels) LoadModel(ctx context.Context, e *engine.Engine, name string) (*nn.Sequential, error) {
	url, err := suitelog.ModelURL(s.SuiteURL, s.BaseURL, name)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	return loader.LoadModel(ctx, client, e, url)
}

// DirModels reads topologies from <Dir>/<name>/model.json.
type DirModels struct {
	Dir string
}

// LoadModel implements ModelSource.
func (s DirModels) LoadModel(_ context.Context, e *engine.Engine, name string) (*nn.Sequential, error) {
	a, err := loader.LoadTopologyFile(filepath.Join(s.Dir, name, "model.json"))
	if err != nil {
		return nil, err
	}
	return loader.Build(e, a)
}
