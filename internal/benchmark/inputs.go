package benchmark

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/nn"
	"github.com/born-ml/benchmarks/internal/tensor"
	"github.com/born-ml/benchmarks/internal/tokenizer"
)

// Inputs builds random tensors shaped for a model.
//
// Token-id models draw their ids from Tokens when set, and from a uniform
// distribution over the vocabulary otherwise.
type Inputs struct {
	Tokens *tokenizer.TokenSource
}

// Input returns a random input batch of the model's declared input shape.
func (g Inputs) Input(e *engine.Engine, m *nn.Sequential, batch int) (*tensor.Tensor, error) {
	shape := m.InputShape().WithBatch(batch)
	if m.InputDType() != tensor.Int32 {
		return e.RandomNormal(shape, 0, 1)
	}

	vocab := vocabSize(m)
	if vocab <= 0 {
		return nil, fmt.Errorf("model %s takes token ids but has no embedding layer", m.Name())
	}
	if g.Tokens == nil || len(shape) != 2 {
		return e.RandomInt(shape, 0, vocab)
	}
	ids, err := g.Tokens.Fill(shape[0], shape[1], vocab)
	if err != nil {
		return nil, err
	}
	return e.FromInt32(shape, ids)
}

// Target returns a random target batch of the model's declared output shape.
func (g Inputs) Target(e *engine.Engine, m *nn.Sequential, batch int) (*tensor.Tensor, error) {
	return e.RandomUniform(m.OutputShape().WithBatch(batch), 0, 1)
}

func vocabSize(m *nn.Sequential) int {
	for _, l := range m.Layers() {
		if emb, ok := l.(*nn.Embedding); ok {
			return emb.InputDim()
		}
	}
	return 0
}
