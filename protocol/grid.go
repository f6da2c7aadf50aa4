package protocol

import (
	"math"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol/internal/cursor"
)

const gridItemSize = 4

func (e *Encoder) gridSize(g *GridTransform) (int64, error) {
	if g == nil {
		return 0, errors.InvalidInput(errors.PhaseEncode, "nil %s", KindGridTransform)
	}
	points := int64(1)
	for _, d := range g.Dims {
		if d < 1 || d > math.MaxInt32 {
			return 0, errors.InvalidInput(errors.PhaseEncode, "%s dimensions %v must be positive int32", KindGridTransform, g.Dims)
		}
		points *= int64(d)
	}
	if int64(len(g.Displacements)) != 3*points {
		return 0, errors.InvalidInput(errors.PhaseEncode, "%s with dims %v needs %d displacements, has %d",
			KindGridTransform, g.Dims, 3*points, len(g.Displacements))
	}
	n := 3 * points * gridItemSize
	if n > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseEncode, KindGridTransform.String(), n, "int32 payload descriptor")
	}
	if _, err := e.typeCode(KindGridTransform, dtype.Float32); err != nil {
		return 0, err
	}
	return TopHeaderSize + GridHeaderSize + n, nil
}

func (e *Encoder) encodeGrid(w *cursor.Writer, g *GridTransform) error {
	code, err := e.typeCode(KindGridTransform, dtype.Float32)
	if err != nil {
		return err
	}
	h := Header{
		Magic:          e.reg.Magic(KindGridTransform),
		TypeCode:       code,
		SecondaryBytes: GridHeaderSize,
		Descriptor:     int32(len(g.Displacements) * gridItemSize),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	var flag int32
	if g.BSpline {
		flag = 1
	}
	if err := w.Int32(flag); err != nil {
		return err
	}
	for _, d := range g.Dims {
		if err := w.Int32(int32(d)); err != nil {
			return err
		}
	}
	for _, v := range append(g.Spacing[:], g.Origin[:]...) {
		if err := w.Float32(v); err != nil {
			return err
		}
	}
	for _, v := range g.Displacements {
		if err := w.Float32(v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) decodeGrid(r *cursor.Reader, h Header, off int) (Entity, error) {
	g, err := d.readGrid(r, h, off)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (d *Decoder) readGrid(r *cursor.Reader, h Header, off int) (*GridTransform, error) {
	name := KindGridTransform.String()
	if err := expectSecondary(KindGridTransform, h, GridHeaderSize, off); err != nil {
		return nil, err
	}
	et, err := d.reg.Types().Lookup(h.TypeCode)
	if err != nil {
		return nil, errors.WithPath(err, name)
	}
	if et != dtype.Float32 {
		return nil, errors.InvariantViolation(name, off, "element type is %s, want float32", et)
	}

	flag, err := r.Int32()
	if err != nil {
		return nil, truncated(name, off, err)
	}
	dims, err := readDims(r, 3)
	if err != nil {
		return nil, truncated(name, off, err)
	}
	g := &GridTransform{BSpline: flag != 0}
	for i := range g.Spacing {
		if g.Spacing[i], err = r.Float32(); err != nil {
			return nil, truncated(name, off, err)
		}
	}
	for i := range g.Origin {
		if g.Origin[i], err = r.Float32(); err != nil {
			return nil, truncated(name, off, err)
		}
	}

	n, err := payloadSize(KindGridTransform, h, off, gridItemSize, append(dims, 3), r)
	if err != nil {
		return nil, err
	}
	for i, v := range dims {
		g.Dims[i] = int(v)
	}
	g.Displacements = make([]float32, n/gridItemSize)
	for i := range g.Displacements {
		if g.Displacements[i], err = r.Float32(); err != nil {
			return nil, truncated(name, off, err)
		}
	}
	if len(g.Displacements) != 3*g.NumControlPoints() {
		return nil, errors.InvariantViolation(name, off, "%d displacements for %v control points", len(g.Displacements), g.Dims)
	}
	return g, nil
}
