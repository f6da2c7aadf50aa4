package protocol

import (
	"encoding/binary"

	"github.com/bioimagesuiteweb/bisweb-sub000/protocol/internal/cursor"
)

// ByteOrder is the byte order of every integer and float on the wire. The
// engine targets wasm32, which is little-endian.
var ByteOrder = binary.LittleEndian

// Fixed header sizes in bytes.
const (
	TopHeaderSize       = 16
	MatrixHeaderSize    = 8
	ImageHeaderSize     = 40
	GridHeaderSize      = 40
	CompositeHeaderSize = 4

	// ImageRank is the number of axes recorded in an image header.
	ImageRank = 5
)

// Header is the top header shared by every entity.
type Header struct {
	Magic          int32
	TypeCode       int32
	SecondaryBytes int32
	// Descriptor is the payload byte count, or minus the element size for
	// large objects.
	Descriptor int32
}

// LargeObject reports whether the header uses the large-object escape.
func (h Header) LargeObject() bool {
	return h.Descriptor < 0
}

func readHeader(r *cursor.Reader) (Header, error) {
	var h Header
	var err error
	if h.Magic, err = r.Int32(); err != nil {
		return h, err
	}
	if h.TypeCode, err = r.Int32(); err != nil {
		return h, err
	}
	if h.SecondaryBytes, err = r.Int32(); err != nil {
		return h, err
	}
	h.Descriptor, err = r.Int32()
	return h, err
}

func writeHeader(w *cursor.Writer, h Header) error {
	for _, v := range [4]int32{h.Magic, h.TypeCode, h.SecondaryBytes, h.Descriptor} {
		if err := w.Int32(v); err != nil {
			return err
		}
	}
	return nil
}
