// Package kernels defines the kernel dispatch contract between the engine and
// execution backends.
//
// A backend exposes each operation as a KernelFunc registered under a
// (kernel name, backend name) pair. The engine looks kernels up by name for
// its active backend and never calls backend code directly.
package kernels

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/born-ml/benchmarks/internal/tensor"
)

// ErrKernelNotFound is returned when no kernel is registered for a name and backend.
var ErrKernelNotFound = errors.New("kernel not found")

// Allocator creates output tensors on behalf of a kernel.
type Allocator interface {
	Alloc(shape tensor.Shape, dtype tensor.DataType) *tensor.Tensor
}

// Args are the arguments passed to a kernel invocation.
type Args struct {
	Inputs []*tensor.Tensor
	Attrs  Attrs
	Alloc  Allocator
}

// KernelFunc executes one operation and returns its outputs.
type KernelFunc func(args Args) ([]*tensor.Tensor, error)

// Config describes a kernel implementation for one backend.
type Config struct {
	KernelName  string
	BackendName string
	KernelFunc  KernelFunc
}

// Registry maps (kernel, backend) pairs to kernel configs.
type Registry struct {
	mu      sync.RWMutex
	kernels map[string]Config
}

// NewRegistry creates an empty kernel registry.
func NewRegistry() *Registry {
	return &Registry{kernels: make(map[string]Config)}
}

func key(kernelName, backendName string) string {
	return kernelName + "_" + backendName
}

// Register adds a kernel. Registering the same (kernel, backend) pair twice is an error.
func (r *Registry) Register(cfg Config) error {
	if cfg.KernelName == "" || cfg.BackendName == "" {
		return fmt.Errorf("kernel config requires kernel and backend names, got %q/%q", cfg.KernelName, cfg.BackendName)
	}
	if cfg.KernelFunc == nil {
		return fmt.Errorf("kernel %s for backend %s has no kernel func", cfg.KernelName, cfg.BackendName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(cfg.KernelName, cfg.BackendName)
	if _, ok := r.kernels[k]; ok {
		return fmt.Errorf("kernel %s for backend %s is already registered", cfg.KernelName, cfg.BackendName)
	}
	r.kernels[k] = cfg
	return nil
}

// Get returns the kernel registered for a name and backend.
func (r *Registry) Get(kernelName, backendName string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.kernels[key(kernelName, backendName)]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s for backend %s", ErrKernelNotFound, kernelName, backendName)
	}
	return cfg, nil
}

// ForBackend returns every kernel registered for a backend, sorted by kernel name.
func (r *Registry) ForBackend(backendName string) []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Config
	for _, cfg := range r.kernels {
		if cfg.BackendName == backendName {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KernelName < out[j].KernelName })
	return out
}

// Unregister removes a kernel.
func (r *Registry) Unregister(kernelName, backendName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(kernelName, backendName)
	if _, ok := r.kernels[k]; !ok {
		return fmt.Errorf("%w: %s for backend %s", ErrKernelNotFound, kernelName, backendName)
	}
	delete(r.kernels, k)
	return nil
}
