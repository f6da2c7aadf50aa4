package protocol

import (
	"math"

	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol/internal/cursor"
)

// EncodeOptions configures an Encoder.
type EncodeOptions struct {
	// ForceLargeObjects writes every Matrix and Image payload descriptor as
	// minus the element size, regardless of payload size. Vectors and grid
	// transforms always carry a byte count.
	ForceLargeObjects bool
}

// Encoder converts entities to their wire form. It holds no mutable state and
// is safe for concurrent use.
type Encoder struct {
	reg  *Registry
	opts EncodeOptions
}

// NewEncoder creates an Encoder bound to reg.
func NewEncoder(reg *Registry, opts EncodeOptions) *Encoder {
	return &Encoder{reg: reg, opts: opts}
}

// Encode returns the full encoding of ent.
func (e *Encoder) Encode(ent Entity) ([]byte, error) {
	n, err := e.EncodedSize(ent)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := e.EncodeTo(buf, ent); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodedSize returns the number of bytes Encode would produce for ent.
func (e *Encoder) EncodedSize(ent Entity) (int, error) {
	n, err := e.sizeOf(ent)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt {
		return 0, errors.Overflow(errors.PhaseEncode, ent.Kind().String(), n, "addressable memory")
	}
	return int(n), nil
}

// EncodeTo writes the encoding of ent at the start of dst and returns the
// number of bytes written. dst must be at least EncodedSize(ent) long.
func (e *Encoder) EncodeTo(dst []byte, ent Entity) (int, error) {
	n, err := e.EncodedSize(ent)
	if err != nil {
		return 0, err
	}
	if len(dst) < n {
		return 0, errors.InvalidInput(errors.PhaseEncode, "destination holds %d bytes, %s needs %d", len(dst), ent.Kind(), n)
	}
	w := cursor.NewWriter(dst[:n])
	if err := e.encode(w, ent); err != nil {
		return 0, err
	}
	return w.Pos(), nil
}

func (e *Encoder) encode(w *cursor.Writer, ent Entity) error {
	switch x := ent.(type) {
	case *Vector:
		return e.encodeVector(w, x)
	case *Matrix:
		return e.encodeMatrix(w, x)
	case *Image:
		return e.encodeImage(w, x)
	case *GridTransform:
		return e.encodeGrid(w, x)
	case *ComboTransform:
		return e.encodeCombo(w, x)
	case *Collection:
		return e.encodeCollection(w, x)
	case nil:
		return errors.InvalidInput(errors.PhaseEncode, "nil entity")
	}
	return errors.InvalidInput(errors.PhaseEncode, "unhandled entity %T", ent)
}

// sizeOf validates ent and returns its encoded length.
func (e *Encoder) sizeOf(ent Entity) (int64, error) {
	switch x := ent.(type) {
	case *Vector:
		return e.vectorSize(x)
	case *Matrix:
		return e.matrixSize(x)
	case *Image:
		return e.imageSize(x)
	case *GridTransform:
		return e.gridSize(x)
	case *ComboTransform:
		return e.comboSize(x)
	case *Collection:
		return e.collectionSize(x)
	case nil:
		return 0, errors.InvalidInput(errors.PhaseEncode, "nil entity")
	}
	return 0, errors.InvalidInput(errors.PhaseEncode, "unhandled entity %T", ent)
}

// large reports whether a payload of n bytes is written in large-object mode.
func (e *Encoder) large(n int64) bool {
	return e.opts.ForceLargeObjects || n > math.MaxInt32
}

// descriptor returns the top header payload descriptor for n payload bytes of
// itemSize-byte elements.
func (e *Encoder) descriptor(n int64, itemSize int) int32 {
	if e.large(n) {
		return -int32(itemSize)
	}
	return int32(n)
}
