// Package ndarray provides shaped numeric arrays in row-major order, the Go-side
// representation of protocol payloads.
package ndarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
)

var le = binary.LittleEndian

// Array is a dense n-dimensional array. Elements are stored row-major as
// little-endian bytes.
type Array struct {
	data  []byte
	shape Shape
	dtype dtype.ElementType
}

// New creates a zero-filled array.
func New(et dtype.ElementType, shape Shape) (*Array, error) {
	if !et.Valid() {
		return nil, fmt.Errorf("invalid element type %s", et)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Array{
		data:  make([]byte, shape.NumElements()*et.Size()),
		shape: shape.Clone(),
		dtype: et,
	}, nil
}

// FromBytes creates an array over a copy of data, which must be row-major.
func FromBytes(et dtype.ElementType, shape Shape, data []byte) (*Array, error) {
	a, err := New(et, shape)
	if err != nil {
		return nil, err
	}
	if len(data) != len(a.data) {
		return nil, fmt.Errorf("data length %d does not match shape %v of %s (%d bytes)", len(data), shape, et, len(a.data))
	}
	copy(a.data, data)
	return a, nil
}

// FromSlice creates an array from row-major values.
func FromSlice[T dtype.Element](shape Shape, values []T) (*Array, error) {
	a, err := New(dtype.Of[T](), shape)
	if err != nil {
		return nil, err
	}
	if len(values) != a.NumElements() {
		return nil, fmt.Errorf("got %d values for shape %v", len(values), shape)
	}
	size := a.dtype.Size()
	for i, v := range values {
		putElem(a.data[i*size:], v)
	}
	return a, nil
}

// MustFromSlice is FromSlice that panics on error. Intended for literals.
func MustFromSlice[T dtype.Element](shape Shape, values []T) *Array {
	a, err := FromSlice(shape, values)
	if err != nil {
		panic(err)
	}
	return a
}

// Values copies the elements out as []T. T must match the array's element type.
func Values[T dtype.Element](a *Array) ([]T, error) {
	if want := dtype.Of[T](); want != a.dtype {
		return nil, fmt.Errorf("array dtype is %s, not %s", a.dtype, want)
	}
	size := a.dtype.Size()
	out := make([]T, a.NumElements())
	for i := range out {
		out[i] = getElem[T](a.data[i*size:])
	}
	return out, nil
}

// DType returns the element type.
func (a *Array) DType() dtype.ElementType {
	return a.dtype
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() Shape {
	return a.shape.Clone()
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.shape)
}

// NumElements returns the total number of elements.
func (a *Array) NumElements() int {
	return a.shape.NumElements()
}

// ByteSize returns the payload size in bytes.
func (a *Array) ByteSize() int {
	return len(a.data)
}

// Bytes returns the underlying row-major bytes.
// WARNING: Direct access to underlying memory.
func (a *Array) Bytes() []byte {
	return a.data
}

// Reshape returns a new array sharing no memory with a, with the same
// elements in a different shape.
func (a *Array) Reshape(shape Shape) (*Array, error) {
	if shape.NumElements() != a.NumElements() {
		return nil, fmt.Errorf("cannot reshape %v to %v", a.shape, shape)
	}
	return FromBytes(a.dtype, shape, a.data)
}

// Equal reports whether a and b have the same type, shape and bytes.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.dtype == b.dtype && a.shape.Equal(b.shape) && bytes.Equal(a.data, b.data)
}

// At returns the element at idx converted to float64.
func (a *Array) At(idx ...int) float64 {
	return a.atFlat(a.flatIndex(idx))
}

// Set stores v, converted to the array's element type, at idx.
func (a *Array) Set(v float64, idx ...int) {
	a.setFlat(a.flatIndex(idx), v)
}

// Float64s returns every element converted to float64 in row-major order.
func (a *Array) Float64s() []float64 {
	out := make([]float64, a.NumElements())
	for i := range out {
		out[i] = a.atFlat(i)
	}
	return out
}

func (a *Array) flatIndex(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("index rank %d does not match array rank %d", len(idx), len(a.shape)))
	}
	strides := a.shape.Strides(RowMajor)
	flat := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("index %v out of range for shape %v", idx, a.shape))
		}
		flat += v * strides[i]
	}
	return flat
}

func (a *Array) atFlat(i int) float64 {
	b := a.data[i*a.dtype.Size():]
	switch a.dtype {
	case dtype.Uint8:
		return float64(getElem[uint8](b))
	case dtype.Int8:
		return float64(getElem[int8](b))
	case dtype.Int16:
		return float64(getElem[int16](b))
	case dtype.Uint16:
		return float64(getElem[uint16](b))
	case dtype.Int32:
		return float64(getElem[int32](b))
	case dtype.Uint32:
		return float64(getElem[uint32](b))
	case dtype.Float32:
		return float64(getElem[float32](b))
	default:
		return getElem[float64](b)
	}
}

func (a *Array) setFlat(i int, v float64) {
	b := a.data[i*a.dtype.Size():]
	switch a.dtype {
	case dtype.Uint8:
		putElem(b, uint8(v))
	case dtype.Int8:
		putElem(b, int8(v))
	case dtype.Int16:
		putElem(b, int16(v))
	case dtype.Uint16:
		putElem(b, uint16(v))
	case dtype.Int32:
		putElem(b, int32(v))
	case dtype.Uint32:
		putElem(b, uint32(v))
	case dtype.Float32:
		putElem(b, float32(v))
	default:
		putElem(b, v)
	}
}

func putElem[T dtype.Element](b []byte, v T) {
	switch x := any(v).(type) {
	case uint8:
		b[0] = x
	case int8:
		b[0] = byte(x)
	case int16:
		le.PutUint16(b, uint16(x))
	case uint16:
		le.PutUint16(b, x)
	case int32:
		le.PutUint32(b, uint32(x))
	case uint32:
		le.PutUint32(b, x)
	case float32:
		le.PutUint32(b, math.Float32bits(x))
	case float64:
		le.PutUint64(b, math.Float64bits(x))
	}
}

func getElem[T dtype.Element](b []byte) T {
	var out T
	switch p := any(&out).(type) {
	case *uint8:
		*p = b[0]
	case *int8:
		*p = int8(b[0])
	case *int16:
		*p = int16(le.Uint16(b))
	case *uint16:
		*p = le.Uint16(b)
	case *int32:
		*p = int32(le.Uint32(b))
	case *uint32:
		*p = le.Uint32(b)
	case *float32:
		*p = math.Float32frombits(le.Uint32(b))
	case *float64:
		*p = math.Float64frombits(le.Uint64(b))
	}
	return out
}
