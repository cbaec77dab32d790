// Package tensor provides the host tensor type shared by the engine, the
// kernels and the CPU backend.
package tensor

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Int32
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// ParseDataType maps a layers-model dtype string to a DataType.
// Unknown or empty names default to Float32.
func ParseDataType(name string) DataType {
	switch name {
	case "int32":
		return Int32
	default:
		return Float32
	}
}
