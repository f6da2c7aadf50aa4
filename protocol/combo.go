package protocol

import (
	"fmt"
	"math"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/ndarray"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol/internal/cursor"
)

// Matrix returns the transform as a 4x4 float32 matrix entity.
func (l LinearTransform) Matrix() *Matrix {
	vals := make([]float32, 0, 16)
	for _, row := range l {
		vals = append(vals, row[:]...)
	}
	return &Matrix{Data: ndarray.MustFromSlice(ndarray.Shape{4, 4}, vals)}
}

// LinearFromMatrix converts a 4x4 float32 matrix to a LinearTransform.
func LinearFromMatrix(m *Matrix) (LinearTransform, error) {
	var l LinearTransform
	if m == nil || m.Data == nil || !m.Data.Shape().Equal(ndarray.Shape{4, 4}) || m.Data.DType() != dtype.Float32 {
		return l, errors.InvalidInput(errors.PhaseDecode, "linear transform must be a 4x4 float32 matrix")
	}
	vals, err := ndarray.Values[float32](m.Data)
	if err != nil {
		return l, err
	}
	for i := range l {
		copy(l[i][:], vals[4*i:4*i+4])
	}
	return l, nil
}

func gridPath(i int) string {
	return fmt.Sprintf("grid[%d]", i)
}

// compositeDescriptor checks that the bytes following a composite's count
// field fit the int32 payload descriptor.
func compositeDescriptor(kind Kind, body int64) (int32, error) {
	if body > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseEncode, kind.String(), body, "int32 payload descriptor")
	}
	return int32(body), nil
}

func (e *Encoder) comboSize(c *ComboTransform) (int64, error) {
	body, err := e.matrixSize(c.Linear.Matrix())
	if err != nil {
		return 0, err
	}
	for i, g := range c.Grids {
		n, err := e.gridSize(g)
		if err != nil {
			return 0, errors.WithPath(err, gridPath(i))
		}
		body += n
	}
	if _, err := compositeDescriptor(KindComboTransform, body); err != nil {
		return 0, err
	}
	if len(c.Grids) > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseEncode, KindComboTransform.String(), len(c.Grids), "int32 grid count")
	}
	return TopHeaderSize + CompositeHeaderSize + body, nil
}

func (e *Encoder) encodeCombo(w *cursor.Writer, c *ComboTransform) error {
	total, err := e.comboSize(c)
	if err != nil {
		return err
	}
	code, err := e.typeCode(KindComboTransform, dtype.Float32)
	if err != nil {
		return err
	}
	h := Header{
		Magic:          e.reg.Magic(KindComboTransform),
		TypeCode:       code,
		SecondaryBytes: CompositeHeaderSize,
		Descriptor:     int32(total - TopHeaderSize - CompositeHeaderSize),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	if err := w.Int32(int32(len(c.Grids))); err != nil {
		return err
	}
	if err := e.encodeMatrix(w, c.Linear.Matrix()); err != nil {
		return err
	}
	for i, g := range c.Grids {
		if err := e.encodeGrid(w, g); err != nil {
			return errors.WithPath(err, gridPath(i))
		}
	}
	return nil
}

func (d *Decoder) decodeCombo(r *cursor.Reader, h Header, off int) (Entity, error) {
	name := KindComboTransform.String()
	count, err := d.compositeCount(KindComboTransform, r, h, off)
	if err != nil {
		return nil, err
	}

	linear, err := d.decodeMember(r, KindMatrix, "linear")
	if err != nil {
		return nil, err
	}
	c := &ComboTransform{Grids: make([]*GridTransform, 0, count)}
	if c.Linear, err = LinearFromMatrix(linear.(*Matrix)); err != nil {
		return nil, errors.InvariantViolation(name, off, "linear component: %v", err)
	}

	for i := 0; i < count; i++ {
		g, err := d.decodeMember(r, KindGridTransform, gridPath(i))
		if err != nil {
			return nil, err
		}
		c.Grids = append(c.Grids, g.(*GridTransform))
	}
	if err := checkComposite(KindComboTransform, h, off, r.Pos()); err != nil {
		return nil, err
	}
	return c, nil
}

// decodeMember decodes a composite member that must be of kind want.
func (d *Decoder) decodeMember(r *cursor.Reader, want Kind, path string) (Entity, error) {
	at := r.Pos()
	h, err := readHeader(cursor.NewReader(r.Bytes(), at))
	if err != nil {
		return nil, errors.WithPath(truncated(want.String(), at, err), path)
	}
	kind, err := d.kindAt(h.Magic, at)
	if err != nil {
		return nil, errors.WithPath(err, path)
	}
	if kind != want {
		return nil, errors.WithPath(errors.InvariantViolation(kind.String(), at, "member is %s, want %s", kind, want), path)
	}
	ent, err := d.decode(r)
	if err != nil {
		return nil, errors.WithPath(err, path)
	}
	return ent, nil
}

// compositeCount reads the member count of a Combo or Collection.
func (d *Decoder) compositeCount(kind Kind, r *cursor.Reader, h Header, off int) (int, error) {
	if err := expectSecondary(kind, h, CompositeHeaderSize, off); err != nil {
		return 0, err
	}
	if h.Descriptor < 0 {
		return 0, errors.MalformedHeader(kind.String(), off, "negative payload descriptor %d", h.Descriptor)
	}
	count, err := r.Int32()
	if err != nil {
		return 0, truncated(kind.String(), off, err)
	}
	if count < 0 {
		return 0, errors.MalformedHeader(kind.String(), off, "negative member count %d", count)
	}
	// Every member takes at least a top header.
	if int64(count)*TopHeaderSize > int64(r.Remaining()) {
		return 0, errors.MalformedHeader(kind.String(), off, "%d members cannot fit in %d bytes", count, r.Remaining())
	}
	return int(count), nil
}

// checkComposite verifies that the members consumed exactly the declared payload.
func checkComposite(kind Kind, h Header, off, end int) error {
	want := int64(off) + TopHeaderSize + CompositeHeaderSize + int64(h.Descriptor)
	if int64(end) != want {
		return errors.InvariantViolation(kind.String(), off, "members end at %d, header declares %d", end, want)
	}
	return nil
}
