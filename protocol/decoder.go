package protocol

import (
	stderrors "errors"
	"math"

	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol/internal/cursor"
)

// Decoder converts wire bytes back to entities. Decoded entities never alias
// the source buffer, so it may be released as soon as a decode returns.
type Decoder struct {
	reg *Registry
}

// NewDecoder creates a Decoder bound to reg.
func NewDecoder(reg *Registry) *Decoder {
	return &Decoder{reg: reg}
}

// Decode decodes the entity at the start of buf.
func (d *Decoder) Decode(buf []byte) (Entity, error) {
	ent, _, err := d.DecodeAt(buf, 0)
	return ent, err
}

// DecodeAt decodes the entity at off and returns it with the number of bytes
// it occupied.
func (d *Decoder) DecodeAt(buf []byte, off int) (Entity, int, error) {
	if off < 0 || off > len(buf) {
		return nil, 0, errors.MalformedHeader("", off, "offset outside buffer of %d bytes", len(buf))
	}
	r := cursor.NewReader(buf, off)
	ent, err := d.decode(r)
	if err != nil {
		return nil, 0, err
	}
	return ent, r.Pos() - off, nil
}

// PeekHeader reads the top header at off without decoding the entity.
func (d *Decoder) PeekHeader(buf []byte, off int) (Header, error) {
	if off < 0 {
		return Header{}, errors.MalformedHeader("", off, "negative offset")
	}
	h, err := readHeader(cursor.NewReader(buf, off))
	if err != nil {
		return h, truncated("", off, err)
	}
	return h, nil
}

// Extent returns the full encoded length of the entity whose encoding starts
// prefix. Only the top header, plus the secondary header for large objects,
// needs to be present.
func (d *Decoder) Extent(prefix []byte) (int, error) {
	r := cursor.NewReader(prefix, 0)
	h, err := readHeader(r)
	if err != nil {
		return 0, truncated("", 0, err)
	}
	kind, err := d.kindAt(h.Magic, 0)
	if err != nil {
		return 0, err
	}
	if h.SecondaryBytes < 0 {
		return 0, errors.MalformedHeader(kind.String(), 0, "negative secondary header length %d", h.SecondaryBytes)
	}
	fixed := int64(TopHeaderSize) + int64(h.SecondaryBytes)
	if !h.LargeObject() {
		return int(fixed + int64(h.Descriptor)), nil
	}

	var dims []int32
	switch kind {
	case KindMatrix:
		dims, err = readDims(r, 2)
	case KindImage:
		dims, err = readDims(r, ImageRank)
		if err == nil {
			normalizeImageDims(dims)
		}
	case KindGridTransform:
		if err = r.Skip(4); err == nil {
			dims, err = readDims(r, 3)
		}
	default:
		return 0, errors.MalformedHeader(kind.String(), 0, "large-object descriptor %d not allowed", h.Descriptor)
	}
	if err != nil {
		return 0, truncated(kind.String(), 0, err)
	}
	itemSize := int64(-h.Descriptor)
	if kind == KindGridTransform {
		dims = append(dims, 3)
	}
	n, err := payloadLength(kind.String(), 0, itemSize, dims, math.MaxInt-fixed)
	if err != nil {
		return 0, err
	}
	return int(fixed + n), nil
}

func (d *Decoder) decode(r *cursor.Reader) (Entity, error) {
	start := r.Pos()
	h, err := readHeader(r)
	if err != nil {
		return nil, truncated("", start, err)
	}
	kind, err := d.kindAt(h.Magic, start)
	if err != nil {
		return nil, err
	}
	if h.SecondaryBytes < 0 {
		return nil, errors.MalformedHeader(kind.String(), start, "negative secondary header length %d", h.SecondaryBytes)
	}

	switch kind {
	case KindVector:
		return d.decodeVector(r, h, start)
	case KindMatrix:
		return d.decodeMatrix(r, h, start)
	case KindImage:
		return d.decodeImage(r, h, start)
	case KindGridTransform:
		return d.decodeGrid(r, h, start)
	case KindComboTransform:
		return d.decodeCombo(r, h, start)
	case KindCollection:
		return d.decodeCollection(r, h, start)
	}
	return nil, errors.UnknownEntityKind(errors.PhaseDecode, h.Magic, start)
}

func (d *Decoder) kindAt(magic int32, off int) (Kind, error) {
	k, err := d.reg.KindOf(magic)
	if err != nil {
		return 0, errors.UnknownEntityKind(errors.PhaseDecode, magic, off)
	}
	return k, nil
}

// expectSecondary checks the secondary header length recorded for a kind
// whose secondary header has a fixed size.
func expectSecondary(kind Kind, h Header, want, off int) error {
	if int(h.SecondaryBytes) != want {
		return errors.InvariantViolation(kind.String(), off, "secondary header is %d bytes, want %d", h.SecondaryBytes, want)
	}
	return nil
}

// truncated maps a cursor bounds failure to a malformed header error.
func truncated(entity string, off int, err error) error {
	if stderrors.Is(err, cursor.ErrShort) {
		return errors.New(errors.PhaseDecode, errors.KindMalformedHeader).
			Entity(entity).
			Offset(off).
			Detail("truncated buffer").
			Cause(err).
			Build()
	}
	return err
}

func readDims(r *cursor.Reader, n int) ([]int32, error) {
	dims := make([]int32, n)
	for i := range dims {
		v, err := r.Int32()
		if err != nil {
			return nil, err
		}
		dims[i] = v
	}
	return dims, nil
}

// payloadLength returns itemSize*prod(dims) in bytes, rejecting results that
// exceed limit.
func payloadLength(entity string, off int, itemSize int64, dims []int32, limit int64) (int64, error) {
	n := itemSize
	for _, v := range dims {
		if v < 1 {
			return 0, errors.MalformedHeader(entity, off, "dimensions %v must be positive", dims)
		}
		if n > limit/int64(v) {
			return 0, errors.MalformedHeader(entity, off, "payload of %v x %d bytes is too large", dims, itemSize)
		}
		n *= int64(v)
	}
	return n, nil
}

// payloadSize checks the descriptor of h against the payload size implied by
// the secondary header and returns it.
func payloadSize(kind Kind, h Header, off int, itemSize int, dims []int32, r *cursor.Reader) (int, error) {
	n, err := payloadLength(kind.String(), off, int64(itemSize), dims, int64(math.MaxInt))
	if err != nil {
		return 0, err
	}
	if h.LargeObject() {
		if -int64(h.Descriptor) != int64(itemSize) {
			return 0, errors.MalformedHeader(kind.String(), off, "large-object descriptor %d does not match element size %d", h.Descriptor, itemSize)
		}
	} else if int64(h.Descriptor) != n {
		return 0, errors.InvariantViolation(kind.String(), off, "payload descriptor %d does not match %v x %d bytes", h.Descriptor, dims, itemSize)
	}
	if n > int64(r.Remaining()) {
		return 0, errors.MalformedHeader(kind.String(), off, "payload of %d bytes truncated to %d", n, r.Remaining())
	}
	return int(n), nil
}
