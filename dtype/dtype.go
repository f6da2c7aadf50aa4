// Package dtype defines the numeric element types carried by protocol entities
// and the bijection between them and the engine's external type codes.
package dtype

// Element is a constraint for the Go types that can back an entity payload.
type Element interface {
	uint8 | int8 | int16 | uint16 | int32 | uint32 | float32 | float64
}

// ElementType represents runtime type information for payload elements.
type ElementType int

// Supported element types. Invalid is the zero value.
const (
	Invalid ElementType = iota
	Uint8
	Int8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

// All lists every supported element type in declaration order.
var All = []ElementType{Uint8, Int8, Int16, Uint16, Int32, Uint32, Float32, Float64}

// Size returns the byte size of the element type, or 0 for Invalid.
func (t ElementType) Size() int {
	switch t {
	case Uint8, Int8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether t is one of the supported element types.
func (t ElementType) Valid() bool {
	return t >= Uint8 && t <= Float64
}

// String returns a human-readable name for the element type.
func (t ElementType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "invalid"
	}
}

// Parse returns the element type named s.
func Parse(s string) (ElementType, bool) {
	for _, t := range All {
		if t.String() == s {
			return t, true
		}
	}
	return Invalid, false
}

// Of returns the ElementType for the Go type T.
func Of[T Element]() ElementType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Uint8
	case int8:
		return Int8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return Invalid
}
