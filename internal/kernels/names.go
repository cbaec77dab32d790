package kernels

// Kernel names understood by the engine.
const (
	MatMul             = "MatMul"
	Add                = "Add"
	Sub                = "Sub"
	Multiply           = "Multiply"
	RealDiv            = "RealDiv"
	Log                = "Log"
	ClipByValue        = "ClipByValue"
	Relu               = "Relu"
	Sigmoid            = "Sigmoid"
	Tanh               = "Tanh"
	Softmax            = "Softmax"
	Sum                = "Sum"
	Reshape            = "Reshape"
	Slice              = "Slice"
	Gather             = "Gather"
	ReluGrad           = "ReluGrad"
	SigmoidGrad        = "SigmoidGrad"
	TanhGrad           = "TanhGrad"
	SoftmaxGrad        = "SoftmaxGrad"
	UnsortedSegmentSum = "UnsortedSegmentSum"
)

// Names lists every kernel a complete backend provides.
var Names = []string{
	MatMul, Add, Sub, Multiply, RealDiv, Log, ClipByValue,
	Relu, Sigmoid, Tanh, Softmax, Sum, Reshape, Slice, Gather,
	ReluGrad, SigmoidGrad, TanhGrad, SoftmaxGrad, UnsortedSegmentSum,
}
