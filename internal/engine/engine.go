// Package engine owns tensor lifetimes and dispatches operations to backend
// kernels.
//
// Every tensor is created through an Engine, which tracks it until it is
// released. Tidy scopes release intermediates automatically; Keep exempts
// long-lived tensors such as model weights; Memory reports what is still
// live so callers can verify nothing leaks.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/born-ml/benchmarks/internal/backend/cpu"
	"github.com/born-ml/benchmarks/internal/kernels"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// MemoryInfo describes the tensors currently tracked by an engine.
type MemoryInfo struct {
	NumTensors int   `json:"numTensors"`
	NumBytes   int64 `json:"numBytes"`
	PeakBytes  int64 `json:"peakBytes"`
}

// Engine executes kernels of one backend and tracks tensor memory.
type Engine struct {
	registry *kernels.Registry
	backend  string
	logger   *slog.Logger

	mu        sync.Mutex
	nextID    uint64
	live      map[uint64]*tensor.Tensor
	kept      map[uint64]bool
	scopes    [][]*tensor.Tensor
	numBytes  int64
	peakBytes int64
	rng       *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed seeds the engine's random generator.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // G404: math/rand is fine for ML weights and inputs.
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine dispatching to kernels registered for backend.
func New(registry *kernels.Registry, backend string, opts ...Option) (*Engine, error) {
	if len(registry.ForBackend(backend)) == 0 {
		return nil, fmt.Errorf("%w: no kernels registered for backend %q", kernels.ErrKernelNotFound, backend)
	}
	e := &Engine{
		registry: registry,
		backend:  backend,
		logger:   slog.Default(),
		live:     make(map[uint64]*tensor.Tensor),
		kept:     make(map[uint64]bool),
	}
	WithSeed(1)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewCPU creates an engine on a fresh CPU backend. threads <= 0 uses every CPU.
func NewCPU(threads int, opts ...Option) (*Engine, error) {
	registry := kernels.NewRegistry()
	if err := cpu.Register(registry, cpu.New(threads)); err != nil {
		return nil, err
	}
	return New(registry, cpu.Name, opts...)
}

// Backend returns the active backend name.
func (e *Engine) Backend() string {
	return e.backend
}

// Alloc creates and tracks a zero-filled tensor in the innermost scope.
func (e *Engine) Alloc(shape tensor.Shape, dtype tensor.DataType) *tensor.Tensor {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	t := tensor.New(e.nextID, shape, dtype)
	e.live[t.ID()] = t
	e.numBytes += t.Bytes()
	e.peakBytes = max(e.peakBytes, e.numBytes)
	if n := len(e.scopes); n > 0 {
		e.scopes[n-1] = append(e.scopes[n-1], t)
	}
	return t
}

// callAlloc records the outputs of one kernel call so they can be released
// if the kernel fails.
type callAlloc struct {
	e   *Engine
	out []*tensor.Tensor
}

func (c *callAlloc) Alloc(shape tensor.Shape, dtype tensor.DataType) *tensor.Tensor {
	t := c.e.Alloc(shape, dtype)
	c.out = append(c.out, t)
	return t
}

// RunKernel executes a named kernel on the active backend.
func (e *Engine) RunKernel(name string, inputs []*tensor.Tensor, attrs kernels.Attrs) ([]*tensor.Tensor, error) {
	for i, in := range inputs {
		if err := in.Check(); err != nil {
			return nil, fmt.Errorf("%s input %d: %w", name, i, err)
		}
	}
	cfg, err := e.registry.Get(name, e.backend)
	if err != nil {
		return nil, err
	}

	alloc := &callAlloc{e: e}
	outs, err := cfg.KernelFunc(kernels.Args{Inputs: inputs, Attrs: attrs, Alloc: alloc})
	if err != nil {
		e.Dispose(alloc.out...)
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return outs, nil
}

func (e *Engine) run1(name string, attrs kernels.Attrs, inputs ...*tensor.Tensor) (*tensor.Tensor, error) {
	outs, err := e.RunKernel(name, inputs, attrs)
	if err != nil {
		return nil, err
	}
	if len(outs) != 1 {
		e.Dispose(outs...)
		return nil, fmt.Errorf("%s: expected 1 output, got %d", name, len(outs))
	}
	return outs[0], nil
}

// Tidy runs fn in a new scope and releases every tensor allocated in it
// except kept tensors and the returned result, which moves to the enclosing
// scope. On error the result is released as well.
//
// Example:
//
//	y, err := e.Tidy(func() (*tensor.Tensor, error) {
//	    h, err := e.MatMul(x, w, false, false)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return e.Relu(h)
//	})
func (e *Engine) Tidy(fn func() (*tensor.Tensor, error)) (*tensor.Tensor, error) {
	e.mu.Lock()
	e.scopes = append(e.scopes, nil)
	e.mu.Unlock()

	result, err := fn()
	if err != nil {
		result = nil
	}

	e.mu.Lock()
	n := len(e.scopes)
	scope := e.scopes[n-1]
	e.scopes = e.scopes[:n-1]
	released := 0
	for _, t := range scope {
		if t == result || e.kept[t.ID()] {
			continue
		}
		if e.releaseLocked(t) {
			released++
		}
	}
	if result != nil && len(e.scopes) > 0 {
		e.scopes[len(e.scopes)-1] = append(e.scopes[len(e.scopes)-1], result)
	}
	e.mu.Unlock()

	e.logger.Debug("tidy scope released tensors", "released", released)
	return result, err
}

// Keep exempts tensors from release by any Tidy scope. They stay live until Dispose.
func (e *Engine) Keep(ts ...*tensor.Tensor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range ts {
		if t != nil {
			e.kept[t.ID()] = true
		}
	}
}

// Dispose releases tensors. Nil and already released tensors are ignored.
func (e *Engine) Dispose(ts ...*tensor.Tensor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range ts {
		if t != nil {
			e.releaseLocked(t)
		}
	}
}

func (e *Engine) releaseLocked(t *tensor.Tensor) bool {
	if _, ok := e.live[t.ID()]; !ok || t.Disposed() {
		return false
	}
	delete(e.live, t.ID())
	delete(e.kept, t.ID())
	e.numBytes -= t.Bytes()
	t.Release()
	return true
}

// Memory returns a snapshot of tracked tensors.
func (e *Engine) Memory() MemoryInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return MemoryInfo{
		NumTensors: len(e.live),
		NumBytes:   e.numBytes,
		PeakBytes:  e.peakBytes,
	}
}

// Data returns a copy of a float32 tensor's values. Reading data forces the
// computation that produced t to be complete.
func (e *Engine) Data(t *tensor.Tensor) ([]float32, error) {
	if err := t.Check(); err != nil {
		return nil, err
	}
	if t.DType() != tensor.Float32 {
		return nil, fmt.Errorf("data: tensor %d has dtype %s", t.ID(), t.DType())
	}
	out := make([]float32, len(t.Float32()))
	copy(out, t.Float32())
	return out, nil
}

// DataInt32 returns a copy of an int32 tensor's values.
func (e *Engine) DataInt32(t *tensor.Tensor) ([]int32, error) {
	if err := t.Check(); err != nil {
		return nil, err
	}
	if t.DType() != tensor.Int32 {
		return nil, fmt.Errorf("data: tensor %d has dtype %s", t.ID(), t.DType())
	}
	out := make([]int32, len(t.Int32()))
	copy(out, t.Int32())
	return out, nil
}

// Scalar reads the single value of a one-element float32 tensor.
func (e *Engine) Scalar(t *tensor.Tensor) (float32, error) {
	data, err := e.Data(t)
	if err != nil {
		return 0, err
	}
	if len(data) != 1 {
		return 0, fmt.Errorf("%w: expected one element, got shape %v", tensor.ErrShapeMismatch, t.Shape())
	}
	return data[0], nil
}
