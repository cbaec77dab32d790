package nn

import (
	"fmt"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Embedding maps int32 token ids to dense vectors.
//
// Input shape: [batch, length] (int32).
// Output shape: [batch, length, outputDim].
type Embedding struct {
	name      string
	inputDim  int
	outputDim int

	table *Parameter
	ids   *tensor.Tensor
}

// NewEmbedding creates an embedding over a vocabulary of inputDim tokens.
func NewEmbedding(name string, inputDim, outputDim int) (*Embedding, error) {
	if inputDim <= 0 || outputDim <= 0 {
		return nil, fmt.Errorf("embedding %s: dimensions must be positive, got %d x %d", name, inputDim, outputDim)
	}
	return &Embedding{name: name, inputDim: inputDim, outputDim: outputDim}, nil
}

// Name returns the layer name.
func (m *Embedding) Name() string { return m.name }

// InputDim returns the vocabulary size.
func (m *Embedding) InputDim() int { return m.inputDim }

// Build creates the lookup table, initialized uniformly in [-0.05, 0.05).
func (m *Embedding) Build(e *engine.Engine, in tensor.Shape) (tensor.Shape, error) {
	if len(in) != 2 {
		return nil, fmt.Errorf("%w: embedding %s expects [batch, length] input, got %v",
			tensor.ErrShapeMismatch, m.name, in)
	}
	t, err := e.RandomUniform(tensor.Shape{m.inputDim, m.outputDim}, -0.05, 0.05)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", m.name, err)
	}
	e.Keep(t)
	m.table = NewParameter(m.name+"/embeddings", t)
	return tensor.Shape{in[0], in[1], m.outputDim}, nil
}

// Forward gathers the rows for each id.
func (m *Embedding) Forward(e *engine.Engine, ids *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if m.table == nil {
		return nil, fmt.Errorf("embedding %s: layer is not built", m.name)
	}
	if ids.DType() != tensor.Int32 {
		return nil, fmt.Errorf("embedding %s: ids must be int32, got %s", m.name, ids.DType())
	}
	if training {
		m.ids = ids
	}
	return e.Gather(m.table.Value, ids)
}

// Backward accumulates dy into the rows that were looked up. Ids are not
// differentiable, so the returned input gradient is nil.
func (m *Embedding) Backward(e *engine.Engine, dy *tensor.Tensor) (*tensor.Tensor, error) {
	if m.ids == nil {
		return nil, fmt.Errorf("embedding %s: backward called before a training forward pass", m.name)
	}
	grad, err := e.UnsortedSegmentSum(dy, m.ids, m.inputDim)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", m.name, err)
	}
	m.table.Grad = grad
	return nil, nil
}

// Params returns the lookup table.
func (m *Embedding) Params() []*Parameter {
	if m.table == nil {
		return nil
	}
	return []*Parameter{m.table}
}
