// Package loader reads layers-model topology documents and builds compiled
// nn.Sequential models with randomly initialized weights.
//
// A topology document has the shape:
//
//	{
//	  "format": "layers-model",
//	  "modelTopology": {
//	    "class_name": "Sequential",
//	    "config": {"name": "mnist", "layers": [
//	      {"class_name": "Flatten", "config": {"name": "flatten", "batch_input_shape": [null, 28, 28, 1]}},
//	      {"class_name": "Dense", "config": {"name": "dense", "units": 10, "activation": "softmax"}}
//	    ]}
//	  },
//	  "trainingConfig": {
//	    "loss": "categoricalCrossentropy",
//	    "optimizer_config": {"class_name": "Adam", "config": {"learning_rate": 0.001}}
//	  }
//	}
//
// Weights manifests are ignored: benchmarks time computation, not accuracy,
// so every model starts from fresh random weights.
//
// Example:
//
//	model, err := loader.LoadModel(ctx, http.DefaultClient, e, modelURL)
//	if err != nil {
//	    return err
//	}
//	defer model.Dispose(e)
package loader
