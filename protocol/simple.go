package protocol

import (
	"math"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/ndarray"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol/internal/cursor"
)

// checkArray validates the array carried by a leaf entity.
func checkArray(kind Kind, a *ndarray.Array, minRank, maxRank int) error {
	if a == nil {
		return errors.InvalidInput(errors.PhaseEncode, "%s has no data", kind)
	}
	if r := a.Rank(); r < minRank || r > maxRank {
		return errors.InvalidInput(errors.PhaseEncode, "%s needs rank %d..%d, got shape %v", kind, minRank, maxRank, a.Shape())
	}
	for _, d := range a.Shape() {
		if d > math.MaxInt32 {
			return errors.Overflow(errors.PhaseEncode, kind.String(), d, "int32 dimension")
		}
	}
	return nil
}

func (e *Encoder) typeCode(kind Kind, et dtype.ElementType) (int32, error) {
	code, err := e.reg.Types().Code(et)
	if err != nil {
		return 0, errors.WithPath(err, kind.String())
	}
	return code, nil
}

// Vector

func (e *Encoder) vectorSize(v *Vector) (int64, error) {
	if err := checkArray(KindVector, v.Data, 1, 1); err != nil {
		return 0, err
	}
	if _, err := e.typeCode(KindVector, v.Data.DType()); err != nil {
		return 0, err
	}
	n := int64(v.Data.ByteSize())
	if n > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseEncode, KindVector.String(), n, "int32 payload descriptor")
	}
	return TopHeaderSize + n, nil
}

func (e *Encoder) encodeVector(w *cursor.Writer, v *Vector) error {
	code, err := e.typeCode(KindVector, v.Data.DType())
	if err != nil {
		return err
	}
	h := Header{
		Magic:      e.reg.Magic(KindVector),
		TypeCode:   code,
		Descriptor: int32(v.Data.ByteSize()),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	dst, err := w.Reserve(v.Data.ByteSize())
	if err != nil {
		return err
	}
	copy(dst, v.Data.Bytes())
	return nil
}

func (d *Decoder) decodeVector(r *cursor.Reader, h Header, off int) (Entity, error) {
	if err := expectSecondary(KindVector, h, 0, off); err != nil {
		return nil, err
	}
	et, err := d.reg.Types().Lookup(h.TypeCode)
	if err != nil {
		return nil, errors.WithPath(err, KindVector.String())
	}
	if h.LargeObject() {
		return nil, errors.MalformedHeader(KindVector.String(), off, "large-object descriptor %d not allowed", h.Descriptor)
	}
	size := et.Size()
	if int(h.Descriptor)%size != 0 {
		return nil, errors.InvariantViolation(KindVector.String(), off, "payload of %d bytes is not a whole number of %s", h.Descriptor, et)
	}
	count := int(h.Descriptor) / size
	if count < 1 {
		return nil, errors.MalformedHeader(KindVector.String(), off, "length %d must be positive", count)
	}
	payload, err := r.View(int(h.Descriptor))
	if err != nil {
		return nil, truncated(KindVector.String(), off, err)
	}
	a, err := ndarray.FromBytes(et, ndarray.Shape{count}, payload)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvariantViolation, err, "vector payload")
	}
	return &Vector{Data: a}, nil
}

// Matrix

func (e *Encoder) matrixSize(m *Matrix) (int64, error) {
	if err := checkArray(KindMatrix, m.Data, 2, 2); err != nil {
		return 0, err
	}
	if _, err := e.typeCode(KindMatrix, m.Data.DType()); err != nil {
		return 0, err
	}
	return TopHeaderSize + MatrixHeaderSize + int64(m.Data.ByteSize()), nil
}

func (e *Encoder) encodeMatrix(w *cursor.Writer, m *Matrix) error {
	et := m.Data.DType()
	code, err := e.typeCode(KindMatrix, et)
	if err != nil {
		return err
	}
	shape := m.Data.Shape()
	h := Header{
		Magic:          e.reg.Magic(KindMatrix),
		TypeCode:       code,
		SecondaryBytes: MatrixHeaderSize,
		Descriptor:     e.descriptor(int64(m.Data.ByteSize()), et.Size()),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	for _, d := range shape {
		if err := w.Int32(int32(d)); err != nil {
			return err
		}
	}
	dst, err := w.Reserve(m.Data.ByteSize())
	if err != nil {
		return err
	}
	copy(dst, m.Data.Bytes())
	return nil
}

func (d *Decoder) decodeMatrix(r *cursor.Reader, h Header, off int) (Entity, error) {
	a, err := d.readMatrix(r, h, off)
	if err != nil {
		return nil, err
	}
	return &Matrix{Data: a}, nil
}

func (d *Decoder) readMatrix(r *cursor.Reader, h Header, off int) (*ndarray.Array, error) {
	if err := expectSecondary(KindMatrix, h, MatrixHeaderSize, off); err != nil {
		return nil, err
	}
	et, err := d.reg.Types().Lookup(h.TypeCode)
	if err != nil {
		return nil, errors.WithPath(err, KindMatrix.String())
	}
	dims, err := readDims(r, 2)
	if err != nil {
		return nil, truncated(KindMatrix.String(), off, err)
	}
	n, err := payloadSize(KindMatrix, h, off, et.Size(), dims, r)
	if err != nil {
		return nil, err
	}
	payload, err := r.View(n)
	if err != nil {
		return nil, truncated(KindMatrix.String(), off, err)
	}
	return ndarray.FromBytes(et, ndarray.Shape{int(dims[0]), int(dims[1])}, payload)
}

// Image

func (e *Encoder) imageSize(im *Image) (int64, error) {
	if err := checkArray(KindImage, im.Data, 1, ImageRank); err != nil {
		return 0, err
	}
	if _, err := e.typeCode(KindImage, im.Data.DType()); err != nil {
		return 0, err
	}
	return TopHeaderSize + ImageHeaderSize + int64(im.Data.ByteSize()), nil
}

func (e *Encoder) encodeImage(w *cursor.Writer, im *Image) error {
	et := im.Data.DType()
	code, err := e.typeCode(KindImage, et)
	if err != nil {
		return err
	}
	shape := im.Data.Shape()
	h := Header{
		Magic:          e.reg.Magic(KindImage),
		TypeCode:       code,
		SecondaryBytes: ImageHeaderSize,
		Descriptor:     e.descriptor(int64(im.Data.ByteSize()), et.Size()),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	for i := 0; i < ImageRank; i++ {
		d := 1
		if i < len(shape) {
			d = shape[i]
		}
		if err := w.Int32(int32(d)); err != nil {
			return err
		}
	}
	for _, s := range im.Spacing {
		if err := w.Float32(s); err != nil {
			return err
		}
	}
	dst, err := w.Reserve(im.Data.ByteSize())
	if err != nil {
		return err
	}
	ndarray.CopyOrdered(dst, im.Data.Bytes(), shape, et.Size(), ndarray.RowMajor, ndarray.ColumnMajor)
	return nil
}

func (d *Decoder) decodeImage(r *cursor.Reader, h Header, off int) (Entity, error) {
	if err := expectSecondary(KindImage, h, ImageHeaderSize, off); err != nil {
		return nil, err
	}
	et, err := d.reg.Types().Lookup(h.TypeCode)
	if err != nil {
		return nil, errors.WithPath(err, KindImage.String())
	}
	dims, err := readDims(r, ImageRank)
	if err != nil {
		return nil, truncated(KindImage.String(), off, err)
	}
	var spacing [ImageRank]float32
	for i := range spacing {
		if spacing[i], err = r.Float32(); err != nil {
			return nil, truncated(KindImage.String(), off, err)
		}
	}
	normalizeImageDims(dims)
	n, err := payloadSize(KindImage, h, off, et.Size(), dims, r)
	if err != nil {
		return nil, err
	}
	payload, err := r.View(n)
	if err != nil {
		return nil, truncated(KindImage.String(), off, err)
	}

	shape := imageShape(dims)
	a, err := ndarray.New(et, shape)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvariantViolation, err, "image payload")
	}
	ndarray.CopyOrdered(a.Bytes(), payload, shape, et.Size(), ndarray.ColumnMajor, ndarray.RowMajor)
	return &Image{Data: a, Spacing: spacing}, nil
}

// normalizeImageDims treats a zero extent on the two optional axes as 1.
func normalizeImageDims(dims []int32) {
	for i := 3; i < len(dims); i++ {
		if dims[i] == 0 {
			dims[i] = 1
		}
	}
}

// imageShape keeps the three spatial axes and drops trailing axes of extent 1.
func imageShape(dims []int32) ndarray.Shape {
	rank := len(dims)
	for rank > 3 && dims[rank-1] == 1 {
		rank--
	}
	shape := make(ndarray.Shape, rank)
	for i := range shape {
		shape[i] = int(dims[i])
	}
	return shape
}
