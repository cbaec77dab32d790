package loader

import (
	"encoding/json"
	"fmt"

	"github.com/born-ml/benchmarks/internal/fetch"
	"github.com/born-ml/benchmarks/internal/nn"
	"github.com/born-ml/benchmarks/internal/optim"
	"github.com/born-ml/benchmarks/internal/tensor"
)

// Default training setup for topologies without a trainingConfig.
const (
	DefaultLoss      = "meanSquaredError"
	DefaultOptimizer = "sgd"
)

// Artifacts is a layers-model document.
type Artifacts struct {
	Format         string          `json:"format"`
	GeneratedBy    string          `json:"generatedBy,omitempty"`
	ModelTopology  ModelTopology   `json:"modelTopology"`
	TrainingConfig *TrainingConfig `json:"trainingConfig,omitempty"`
}

// ModelTopology is the serialized model graph.
type ModelTopology struct {
	ClassName string `json:"class_name"`
	Config    struct {
		Name   string      `json:"name"`
		Layers []LayerSpec `json:"layers"`
	} `json:"config"`
}

// LayerSpec is one serialized layer.
type LayerSpec struct {
	ClassName string      `json:"class_name"`
	Config    LayerConfig `json:"config"`
}

// LayerConfig holds the layer options the runtime understands. Unknown
// options are ignored.
type LayerConfig struct {
	Name            string `json:"name"`
	BatchInputShape []*int `json:"batch_input_shape,omitempty"`
	DType           string `json:"dtype,omitempty"`

	Units      int    `json:"units,omitempty"`
	Activation string `json:"activation,omitempty"`
	UseBias    *bool  `json:"use_bias,omitempty"`

	Rate float64 `json:"rate,omitempty"`

	InputDim    int `json:"input_dim,omitempty"`
	OutputDim   int `json:"output_dim,omitempty"`
	InputLength int `json:"input_length,omitempty"`
}

// TrainingConfig is the compile section of a layers-model document.
type TrainingConfig struct {
	Loss            string `json:"loss"`
	OptimizerConfig struct {
		ClassName string       `json:"class_name"`
		Config    optim.Config `json:"config"`
	} `json:"optimizer_config"`
}

// Parse decodes a topology document.
func Parse(data []byte) (*Artifacts, error) {
	var a Artifacts
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: model topology: %w", fetch.ErrParse, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks that the document describes a buildable sequential model.
func (a *Artifacts) Validate() error {
	if cn := a.ModelTopology.ClassName; cn != "" && cn != "Sequential" {
		return fmt.Errorf("%w: model class %q (only Sequential is supported)", nn.ErrUnknownLayer, cn)
	}
	if len(a.ModelTopology.Config.Layers) == 0 {
		return fmt.Errorf("%w: model topology has no layers", fetch.ErrParse)
	}
	if _, _, err := a.InputSpec(); err != nil {
		return err
	}
	return nil
}

// InputSpec returns the declared input shape (leading tensor.BatchDim) and dtype.
//
// The shape comes from the batch_input_shape of a leading InputLayer or of
// the first real layer, or, for an Embedding, from its input_length. Models
// whose first real layer is an Embedding always take int32 ids.
func (a *Artifacts) InputSpec() (tensor.Shape, tensor.DataType, error) {
	layers := a.ModelTopology.Config.Layers
	first := 0
	for first < len(layers)-1 && layers[first].ClassName == "InputLayer" {
		first++
	}
	head := layers[first]
	embedding := head.ClassName == "Embedding"

	declared := head.Config
	for i := first - 1; i >= 0 && len(declared.BatchInputShape) == 0; i-- {
		declared = layers[i].Config
	}

	if len(declared.BatchInputShape) > 0 {
		shape, err := batchShape(declared.BatchInputShape)
		if err != nil {
			return nil, 0, err
		}
		dtype := tensor.ParseDataType(declared.DType)
		if embedding {
			dtype = tensor.Int32
		}
		return shape, dtype, nil
	}

	if embedding && head.Config.InputLength > 0 {
		return tensor.Shape{tensor.BatchDim, head.Config.InputLength}, tensor.Int32, nil
	}
	return nil, 0, fmt.Errorf("%w: first layer %q declares no input shape", tensor.ErrShapeMismatch, head.Config.Name)
}

func batchShape(dims []*int) (tensor.Shape, error) {
	shape := make(tensor.Shape, len(dims))
	for i, d := range dims {
		switch {
		case i == 0:
			shape[i] = tensor.BatchDim
		case d == nil:
			return nil, fmt.Errorf("%w: unknown dimension %d in batch_input_shape", tensor.ErrShapeMismatch, i)
		default:
			shape[i] = *d
		}
	}
	return shape, nil
}
