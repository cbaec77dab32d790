// Package benchmark replays a suite log against the native engine: it loads
// each model, times predict and fit calls, and persists the results.
package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Function is a benchmarked model function.
type Function int

const (
	Unknown Function = iota
	Predict
	Fit
	FitDataset
)

// ParseFunction maps a suite log function name to a Function. Unrecognised
// names map to Unknown.
func ParseFunction(name string) Function {
	switch name {
	case "predict":
		return Predict
	case "fit":
		return Fit
	case "fitDataset":
		return FitDataset
	default:
		return Unknown
	}
}

func (f Function) String() string {
	switch f {
	case Predict:
		return "predict"
	case Fit:
		return "fit"
	case FitDataset:
		return "fitDataset"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidBatchSize is returned for batch sizes that are not positive integers.
	ErrInvalidBatchSize = errors.New("invalid batch size")
	// ErrInvalidIterations is returned for negative warm-up or non-positive benchmark counts.
	ErrInvalidIterations = errors.New("invalid iteration count")
)

// MaxBatchSize bounds the batch dimension of generated inputs so a corrupt
// suite log cannot request an unbounded allocation.
const MaxBatchSize = 1 << 20

// ValidateBatchSize parses a batch size and checks that it is a positive
// integer no larger than MaxBatchSize. Integral literals such as 32.0 are
// accepted.
func ValidateBatchSize(n json.Number) (int, error) {
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidBatchSize, n.String())
		}
		if f < 1 || f > MaxBatchSize {
			return 0, fmt.Errorf("%w: %s", ErrInvalidBatchSize, n.String())
		}
		v = int64(f)
	}
	if v < 1 || v > MaxBatchSize {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBatchSize, v)
	}
	return int(v), nil
}

// ValidateIterations checks warm-up and benchmarked iteration counts.
func ValidateIterations(warmUp, benchmarked int) error {
	if warmUp < 0 {
		return fmt.Errorf("%w: numWarmUpIterations %d", ErrInvalidIterations, warmUp)
	}
	if benchmarked < 1 {
		return fmt.Errorf("%w: numBenchmarkedIterations %d", ErrInvalidIterations, benchmarked)
	}
	return nil
}
