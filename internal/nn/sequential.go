package nn

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/benchmarks/internal/engine"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// DefaultBatchSize is the Fit mini-batch size when none is given.
const DefaultBatchSize = 32

// FitConfig controls Sequential.Fit.
type FitConfig struct {
	Epochs    int
	BatchSize int
}

// History records the mean training loss of each epoch.
type History struct {
	Loss []float64 `json:"loss"`
}

// Sequential is a stack of layers where each output feeds the next input.
//
// Example:
//
//	dense1, _ := nn.NewDense("dense1", 128, "relu", true)
//	dense2, _ := nn.NewDense("dense2", 10, "softmax", true)
//	model := nn.NewSequential("mnist", nn.NewFlatten("flatten"), dense1, dense2)
//	if err := model.Build(e, tensor.Shape{-1, 28, 28, 1}, tensor.Float32); err != nil {
//	    return err
//	}
//	model.Compile(nn.CategoricalCrossentropy{}, optim.NewAdam(optim.DefaultAdamConfig()))
//	defer model.Dispose(e)
type Sequential struct {
	name   string
	layers []Layer

	inputShape  tensor.Shape
	outputShape tensor.Shape
	inputDType  tensor.DataType

	loss      Loss
	optimizer Optimizer
}

// NewSequential creates an unbuilt model.
func NewSequential(name string, layers ...Layer) *Sequential {
	return &Sequential{name: name, layers: layers}
}

// Name returns the model name.
func (m *Sequential) Name() string { return m.name }

// Layers returns the layer stack.
func (m *Sequential) Layers() []Layer { return m.layers }

// InputShape returns the declared input shape (leading tensor.BatchDim).
func (m *Sequential) InputShape() tensor.Shape { return m.inputShape }

// OutputShape returns the declared output shape (leading tensor.BatchDim).
func (m *Sequential) OutputShape() tensor.Shape { return m.outputShape }

// InputDType returns the expected input element type.
func (m *Sequential) InputDType() tensor.DataType { return m.inputDType }

// Build creates every layer's weights for the declared input shape.
func (m *Sequential) Build(e *engine.Engine, inputShape tensor.Shape, dtype tensor.DataType) error {
	if len(m.layers) == 0 {
		return fmt.Errorf("model %s has no layers", m.name)
	}
	if len(inputShape) == 0 || inputShape[0] != tensor.BatchDim {
		return fmt.Errorf("%w: model %s input shape %v must start with a batch dimension",
			tensor.ErrShapeMismatch, m.name, inputShape)
	}
	if err := inputShape.Batchless().Validate(); err != nil {
		return fmt.Errorf("%w: model %s: %w", tensor.ErrShapeMismatch, m.name, err)
	}

	shape := inputShape.Clone()
	for _, l := range m.layers {
		out, err := l.Build(e, shape)
		if err != nil {
			m.Dispose(e)
			return fmt.Errorf("build %s: %w", m.name, err)
		}
		shape = out
	}
	m.inputShape = inputShape.Clone()
	m.outputShape = shape
	m.inputDType = dtype
	return nil
}

// Compile sets the loss and optimizer used by Fit and FitDataset.
func (m *Sequential) Compile(loss Loss, opt Optimizer) {
	m.loss = loss
	m.optimizer = opt
}

// Compiled reports whether Compile has been called.
func (m *Sequential) Compiled() bool { return m.loss != nil && m.optimizer != nil }

// Params returns every trainable parameter in layer order.
func (m *Sequential) Params() []*Parameter {
	var params []*Parameter
	for _, l := range m.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// CountParams returns the number of trainable scalars.
func (m *Sequential) CountParams() int {
	n := 0
	for _, p := range m.Params() {
		n += p.Value.Size()
	}
	return n
}

// Dispose releases the model weights and any optimizer state.
func (m *Sequential) Dispose(e *engine.Engine) {
	for _, p := range m.Params() {
		e.Dispose(p.Value)
	}
	if m.optimizer != nil {
		m.optimizer.Dispose(e)
	}
}

func (m *Sequential) forward(e *engine.Engine, x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	out := x
	for _, l := range m.layers {
		var err error
		if out, err = l.Forward(e, out, training); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Sequential) checkInput(x *tensor.Tensor) error {
	if m.outputShape == nil {
		return fmt.Errorf("model %s is not built", m.name)
	}
	if err := x.Check(); err != nil {
		return err
	}
	if x.DType() != m.inputDType {
		return fmt.Errorf("model %s expects %s input, got %s", m.name, m.inputDType, x.DType())
	}
	want := m.inputShape.WithBatch(x.Shape()[0])
	if !x.Shape().Equal(want) {
		return fmt.Errorf("%w: model %s expects input %v, got %v", tensor.ErrShapeMismatch, m.name, m.inputShape, x.Shape())
	}
	return nil
}

// Predict runs inference. Intermediates are released; the caller owns the
// returned tensor.
func (m *Sequential) Predict(e *engine.Engine, x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := m.checkInput(x); err != nil {
		return nil, err
	}
	return e.Tidy(func() (*tensor.Tensor, error) {
		return m.forward(e, x, false)
	})
}

// Fit trains on (x, y) for cfg.Epochs epochs of mini-batches.
//
// Optimizer state lives for the duration of one Fit call. The context is
// checked between batches.
func (m *Sequential) Fit(ctx context.Context, e *engine.Engine, x, y *tensor.Tensor, cfg FitConfig) (History, error) {
	if err := m.checkFit(x, y, cfg.Epochs); err != nil {
		return History{}, err
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	n := x.Shape()[0]
	defer m.optimizer.Dispose(e)

	hist := History{Loss: make([]float64, 0, cfg.Epochs)}
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		var total float64
		batches := 0
		for start := 0; start < n; start += batchSize {
			if err := ctx.Err(); err != nil {
				return hist, err
			}
			size := min(batchSize, n-start)
			loss, err := m.trainBatch(e, func() (*tensor.Tensor, *tensor.Tensor, error) {
				if size == n {
					return x, y, nil
				}
				bx, err := e.Slice(x, start, size)
				if err != nil {
					return nil, nil, err
				}
				by, err := e.Slice(y, start, size)
				return bx, by, err
			})
			if err != nil {
				return hist, fmt.Errorf("fit %s epoch %d: %w", m.name, epoch, err)
			}
			total += loss
			batches++
		}
		hist.Loss = append(hist.Loss, total/float64(batches))
	}
	return hist, nil
}

// FitDataset trains for epochs passes over ds.
func (m *Sequential) FitDataset(ctx context.Context, e *engine.Engine, ds Dataset, epochs int) (History, error) {
	if ds == nil || ds.NumBatches() == 0 {
		return History{}, errors.New("fitDataset: empty dataset")
	}
	x, y := ds.Batch(0)
	if err := m.checkFit(x, y, epochs); err != nil {
		return History{}, err
	}
	defer m.optimizer.Dispose(e)

	hist := History{Loss: make([]float64, 0, epochs)}
	for epoch := 0; epoch < epochs; epoch++ {
		var total float64
		for i := 0; i < ds.NumBatches(); i++ {
			if err := ctx.Err(); err != nil {
				return hist, err
			}
			loss, err := m.trainBatch(e, func() (*tensor.Tensor, *tensor.Tensor, error) {
				bx, by := ds.Batch(i)
				return bx, by, m.checkInput(bx)
			})
			if err != nil {
				return hist, fmt.Errorf("fitDataset %s epoch %d batch %d: %w", m.name, epoch, i, err)
			}
			total += loss
		}
		hist.Loss = append(hist.Loss, total/float64(ds.NumBatches()))
	}
	return hist, nil
}

func (m *Sequential) checkFit(x, y *tensor.Tensor, epochs int) error {
	if !m.Compiled() {
		return fmt.Errorf("model %s must be compiled before training", m.name)
	}
	if epochs <= 0 {
		return fmt.Errorf("model %s: epochs must be positive, got %d", m.name, epochs)
	}
	if err := m.checkInput(x); err != nil {
		return err
	}
	if err := y.Check(); err != nil {
		return err
	}
	want := m.outputShape.WithBatch(x.Shape()[0])
	if !y.Shape().Equal(want) {
		return fmt.Errorf("%w: model %s expects targets %v, got %v", tensor.ErrShapeMismatch, m.name, want, y.Shape())
	}
	return nil
}

// trainBatch runs forward, loss, backward and one optimizer step inside a
// single Tidy scope and returns the batch loss.
func (m *Sequential) trainBatch(e *engine.Engine, batch func() (*tensor.Tensor, *tensor.Tensor, error)) (float64, error) {
	var loss float32
	params := m.Params()
	defer func() {
		for _, p := range params {
			p.Grad = nil
		}
	}()

	_, err := e.Tidy(func() (*tensor.Tensor, error) {
		x, y, err := batch()
		if err != nil {
			return nil, err
		}
		pred, err := m.forward(e, x, true)
		if err != nil {
			return nil, err
		}
		value, grad, err := m.loss.Compute(e, pred, y)
		if err != nil {
			return nil, err
		}
		if loss, err = e.Scalar(value); err != nil {
			return nil, err
		}
		for i := len(m.layers) - 1; i >= 0 && grad != nil; i-- {
			if grad, err = m.layers[i].Backward(e, grad); err != nil {
				return nil, err
			}
		}
		return nil, m.optimizer.Step(e, params)
	})
	return float64(loss), err
}
