package kernels

import "github.com/born-ml/benchmarks/internal/tensor"

// Attrs holds named kernel attributes such as axes or clip bounds.
type Attrs map[string]any

// Float returns a float attribute or def when absent.
func (a Attrs) Float(name string, def float64) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return def
	}
}

// Int returns an int attribute or def when absent.
func (a Attrs) Int(name string, def int) int {
	if v, ok := a[name].(int); ok {
		return v
	}
	return def
}

// Bool returns a bool attribute or def when absent.
func (a Attrs) Bool(name string, def bool) bool {
	if v, ok := a[name].(bool); ok {
		return v
	}
	return def
}

// Shape returns a shape attribute.
func (a Attrs) Shape(name string) (tensor.Shape, bool) {
	switch v := a[name].(type) {
	case tensor.Shape:
		return v, true
	case []int:
		return tensor.Shape(v), true
	default:
		return nil, false
	}
}
