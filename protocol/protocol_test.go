package protocol

import (
	"encoding/binary"
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/ndarray"
)

var testMagic = MagicCodes{
	Vector:         20001,
	Matrix:         20002,
	Image:          20003,
	GridTransform:  20004,
	ComboTransform: 20005,
	Collection:     20006,
}

func testRegistry(t testing.TB) *Registry {
	t.Helper()
	types, err := dtype.NewTable(map[dtype.ElementType]int32{
		dtype.Uint8:   2,
		dtype.Int16:   4,
		dtype.Int32:   8,
		dtype.Float32: 16,
		dtype.Float64: 64,
		dtype.Int8:    256,
		dtype.Uint16:  512,
		dtype.Uint32:  768,
	})
	require.NoError(t, err)
	reg, err := NewRegistry(testMagic, types)
	require.NoError(t, err)
	return reg
}

func filled(t testing.TB, et dtype.ElementType, shape ndarray.Shape) *ndarray.Array {
	t.Helper()
	a, err := ndarray.New(et, shape)
	require.NoError(t, err)
	for i := 0; i < a.NumElements(); i++ {
		idx := make([]int, len(shape))
		rem := i
		for ax := len(shape) - 1; ax >= 0; ax-- {
			idx[ax] = rem % shape[ax]
			rem /= shape[ax]
		}
		a.Set(float64(i%7+1), idx...)
	}
	return a
}

func sampleGrid(dims [3]int, seed float32) *GridTransform {
	g := NewGridTransform(dims, [3]float32{2, 3, 4}, [3]float32{-1, 0, 1}, seed > 1)
	for i := range g.Displacements {
		g.Displacements[i] = seed + float32(i)/8
	}
	return g
}

func sampleEntities(t testing.TB) map[Kind]Entity {
	combo := &ComboTransform{Linear: Identity(), Grids: []*GridTransform{sampleGrid([3]int{2, 2, 2}, 1)}}
	combo.Linear[0][3] = 12.5
	return map[Kind]Entity{
		KindVector:         NewVector(filled(t, dtype.Int16, ndarray.Shape{6})),
		KindMatrix:         NewMatrix(filled(t, dtype.Float64, ndarray.Shape{3, 2})),
		KindImage:          NewImage(filled(t, dtype.Uint8, ndarray.Shape{3, 2, 2}), [5]float32{1, 1.5, 2, 1, 1}),
		KindGridTransform:  sampleGrid([3]int{2, 3, 2}, 0.5),
		KindComboTransform: combo,
		KindCollection: NewCollection(
			NewVector(filled(t, dtype.Uint32, ndarray.Shape{2})),
			sampleGrid([3]int{1, 1, 1}, 3),
		),
	}
}

func int32At(buf []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(buf[off:]))
}

func putInt32(buf []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(buf[off:], uint32(v))
}

func TestIdentityMatrixWireFormat(t *testing.T) {
	reg := testRegistry(t)
	buf, err := NewEncoder(reg, EncodeOptions{}).Encode(Identity().Matrix())
	require.NoError(t, err)
	require.Len(t, buf, TopHeaderSize+MatrixHeaderSize+64)

	assert.Equal(t, []int32{20002, 16, 8, 64}, []int32{int32At(buf, 0), int32At(buf, 4), int32At(buf, 8), int32At(buf, 12)})
	assert.Equal(t, []int32{4, 4}, []int32{int32At(buf, 16), int32At(buf, 20)})
	for i := 0; i < 16; i++ {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[24+4*i:]))
		assert.Equal(t, want, got, "element %d", i)
	}

	ent, err := NewDecoder(reg).Decode(buf)
	require.NoError(t, err)
	l, err := LinearFromMatrix(ent.(*Matrix))
	require.NoError(t, err)
	assert.Equal(t, Identity(), l)
}

func TestZeroGridWireFormat(t *testing.T) {
	reg := testRegistry(t)
	g := NewGridTransform([3]int{2, 2, 2}, [3]float32{10, 10, 10}, [3]float32{}, true)
	buf, err := NewEncoder(reg, EncodeOptions{}).Encode(g)
	require.NoError(t, err)
	require.Len(t, buf, TopHeaderSize+GridHeaderSize+24*4)

	assert.Equal(t, []int32{20004, 16, 40, 96}, []int32{int32At(buf, 0), int32At(buf, 4), int32At(buf, 8), int32At(buf, 12)})
	assert.Equal(t, []int32{1, 2, 2, 2}, []int32{int32At(buf, 16), int32At(buf, 20), int32At(buf, 24), int32At(buf, 28)})

	ent, err := NewDecoder(reg).Decode(buf)
	require.NoError(t, err)
	got := ent.(*GridTransform)
	assert.Equal(t, [3]int{2, 2, 2}, got.Dims)
	assert.Equal(t, [3]float32{10, 10, 10}, got.Spacing)
	assert.Equal(t, [3]float32{}, got.Origin)
	assert.True(t, got.BSpline)
	assert.Equal(t, make([]float32, 24), got.Displacements)
}

func TestRoundTripAllElementTypes(t *testing.T) {
	reg := testRegistry(t)
	dec := NewDecoder(reg)

	for _, large := range []bool{false, true} {
		enc := NewEncoder(reg, EncodeOptions{ForceLargeObjects: large})
		for _, et := range dtype.All {
			cases := []struct {
				name string
				ent  Entity
			}{
				{"vector", NewVector(filled(t, et, ndarray.Shape{5}))},
				{"matrix", NewMatrix(filled(t, et, ndarray.Shape{3, 4}))},
				{"image3d", NewImage(filled(t, et, ndarray.Shape{2, 3, 4}), [5]float32{0.5, 0.75, 2, 1, 1})},
				{"image5d", NewImage(filled(t, et, ndarray.Shape{2, 3, 2, 1, 2}), [5]float32{1, 1, 1, 1, 3})},
			}
			for _, tc := range cases {
				t.Run(et.String()+"/"+tc.name, func(t *testing.T) {
					buf, err := enc.Encode(tc.ent)
					require.NoError(t, err)
					got, n, err := dec.DecodeAt(buf, 0)
					require.NoError(t, err)
					assert.Equal(t, len(buf), n)
					assert.True(t, Equal(tc.ent, got), "large=%v", large)
				})
			}
		}
	}
}

func TestRoundTripEveryKind(t *testing.T) {
	reg := testRegistry(t)
	dec := NewDecoder(reg)
	for _, large := range []bool{false, true} {
		enc := NewEncoder(reg, EncodeOptions{ForceLargeObjects: large})
		for kind, ent := range sampleEntities(t) {
			t.Run(kind.String(), func(t *testing.T) {
				buf, err := enc.Encode(ent)
				require.NoError(t, err)

				size, err := enc.EncodedSize(ent)
				require.NoError(t, err)
				assert.Equal(t, len(buf), size)

				extent, err := dec.Extent(buf)
				require.NoError(t, err)
				assert.Equal(t, len(buf), extent)

				got, err := dec.Decode(buf)
				require.NoError(t, err)
				assert.Equal(t, kind, got.Kind())
				assert.True(t, Equal(ent, got))
			})
		}
	}
}

func TestLargeObjectHeader(t *testing.T) {
	reg := testRegistry(t)
	m := NewMatrix(filled(t, dtype.Float64, ndarray.Shape{2, 5}))

	normal, err := NewEncoder(reg, EncodeOptions{}).Encode(m)
	require.NoError(t, err)
	large, err := NewEncoder(reg, EncodeOptions{ForceLargeObjects: true}).Encode(m)
	require.NoError(t, err)

	assert.Equal(t, int32(80), int32At(normal, 12))
	assert.Equal(t, int32(-8), int32At(large, 12))
	assert.Equal(t, normal[16:], large[16:])

	dec := NewDecoder(reg)
	a, err := dec.Decode(normal)
	require.NoError(t, err)
	b, err := dec.Decode(large)
	require.NoError(t, err)
	assert.True(t, Equal(a, b))

	h, err := dec.PeekHeader(large, 0)
	require.NoError(t, err)
	assert.True(t, h.LargeObject())

	// A large image's extent needs only its headers.
	im := NewImage(filled(t, dtype.Int32, ndarray.Shape{4, 3, 2}), [5]float32{1, 1, 1, 1, 1})
	buf, err := NewEncoder(reg, EncodeOptions{ForceLargeObjects: true}).Encode(im)
	require.NoError(t, err)
	extent, err := dec.Extent(buf[:TopHeaderSize+ImageHeaderSize])
	require.NoError(t, err)
	assert.Equal(t, len(buf), extent)
}

func TestVectorNeverUsesLargeMode(t *testing.T) {
	reg := testRegistry(t)
	buf, err := NewEncoder(reg, EncodeOptions{ForceLargeObjects: true}).Encode(NewVector(filled(t, dtype.Float32, ndarray.Shape{3})))
	require.NoError(t, err)
	assert.Equal(t, int32(12), int32At(buf, 12))

	putInt32(buf, 12, -4)
	_, err = NewDecoder(reg).Decode(buf)
	assert.ErrorIs(t, err, errors.ErrMalformedHeader)
}

func TestLargeObjectThreshold(t *testing.T) {
	tests := []struct {
		name     string
		force    bool
		n        int64
		itemSize int
		want     int32
	}{
		{"small", false, 80, 8, 80},
		{"at int32 limit", false, math.MaxInt32, 2, math.MaxInt32},
		{"past int32 limit", false, math.MaxInt32 + 1, 2, -2},
		{"far past int32 limit", false, 1 << 40, 8, -8},
		{"forced small", true, 80, 4, -4},
		{"forced empty", true, 0, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder(nil, EncodeOptions{ForceLargeObjects: tt.force})
			assert.Equal(t, tt.want, e.descriptor(tt.n, tt.itemSize))
			assert.Equal(t, tt.want < 0, e.large(tt.n))
		})
	}
}

func TestExtentRejectsOverflowingLargeObject(t *testing.T) {
	reg := testRegistry(t)
	buf, err := NewEncoder(reg, EncodeOptions{ForceLargeObjects: true}).Encode(NewMatrix(filled(t, dtype.Float64, ndarray.Shape{2, 2})))
	require.NoError(t, err)
	putInt32(buf, TopHeaderSize, math.MaxInt32)
	putInt32(buf, TopHeaderSize+4, math.MaxInt32)

	dec := NewDecoder(reg)
	_, err = dec.Extent(buf[:TopHeaderSize+MatrixHeaderSize])
	assert.ErrorIs(t, err, errors.ErrMalformedHeader)
	_, err = dec.Decode(buf)
	assert.Error(t, err)
}

func TestGridIgnoresForcedLargeMode(t *testing.T) {
	reg := testRegistry(t)
	g := sampleGrid([3]int{2, 2, 2}, 1)
	buf, err := NewEncoder(reg, EncodeOptions{ForceLargeObjects: true}).Encode(g)
	require.NoError(t, err)
	assert.Equal(t, int32(96), int32At(buf, 12))

	got, err := NewDecoder(reg).Decode(buf)
	require.NoError(t, err)
	assert.True(t, Equal(g, got))
}

func TestLargeObjectItemSizeMismatch(t *testing.T) {
	reg := testRegistry(t)
	buf, err := NewEncoder(reg, EncodeOptions{ForceLargeObjects: true}).Encode(NewMatrix(filled(t, dtype.Int16, ndarray.Shape{2, 2})))
	require.NoError(t, err)
	putInt32(buf, 12, -4)
	_, err = NewDecoder(reg).Decode(buf)
	assert.ErrorIs(t, err, errors.ErrMalformedHeader)
}

func TestImageColumnMajorPayload(t *testing.T) {
	reg := testRegistry(t)
	a := ndarray.MustFromSlice(ndarray.Shape{2, 3, 1}, []uint8{0, 1, 2, 3, 4, 5})
	buf, err := NewEncoder(reg, EncodeOptions{}).Encode(NewImage(a, [5]float32{1, 1, 1, 1, 1}))
	require.NoError(t, err)

	payload := buf[TopHeaderSize+ImageHeaderSize:]
	assert.Equal(t, []byte{0, 3, 1, 4, 2, 5}, payload)
	assert.Equal(t, []int32{2, 3, 1, 1, 1}, []int32{int32At(buf, 16), int32At(buf, 20), int32At(buf, 24), int32At(buf, 28), int32At(buf, 32)})

	got, err := NewDecoder(reg).Decode(buf)
	require.NoError(t, err)
	assert.True(t, a.Equal(got.(*Image).Data))
}

func TestImageShapeInference(t *testing.T) {
	reg := testRegistry(t)
	enc := NewEncoder(reg, EncodeOptions{})
	dec := NewDecoder(reg)

	ent, err := FromArray(filled(t, dtype.Float32, ndarray.Shape{4, 3}), true, 0.5, 2)
	require.NoError(t, err)
	im := ent.(*Image)
	assert.Equal(t, ndarray.Shape{4, 3, 1, 1, 1}, im.Data.Shape())
	assert.Equal(t, [5]float32{0.5, 2, 1, 1, 1}, im.Spacing)

	buf, err := enc.Encode(im)
	require.NoError(t, err)
	got, err := dec.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, ndarray.Shape{4, 3, 1}, got.(*Image).Data.Shape())

	// Zero extents on the optional axes read as 1.
	putInt32(buf, 16+12, 0)
	putInt32(buf, 16+16, 0)
	got, err = dec.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, ndarray.Shape{4, 3, 1}, got.(*Image).Data.Shape())

	// Low-rank images gain spatial axes of extent 1.
	for _, shape := range []ndarray.Shape{{5}, {2, 3}} {
		buf, err := enc.Encode(NewImage(filled(t, dtype.Int16, shape), [5]float32{1, 1, 1, 1, 1}))
		require.NoError(t, err)
		got, err := dec.Decode(buf)
		require.NoError(t, err)
		want := append(shape.Clone(), 1, 1)[:3]
		assert.Equal(t, want, got.(*Image).Data.Shape(), "shape %v", shape)
	}
}

func TestFromArrayRankInference(t *testing.T) {
	tests := []struct {
		shape ndarray.Shape
		want  Kind
	}{
		{ndarray.Shape{4}, KindVector},
		{ndarray.Shape{4, 2}, KindMatrix},
		{ndarray.Shape{4, 2, 2}, KindImage},
		{ndarray.Shape{1, 1, 1, 1, 2}, KindImage},
	}
	for _, tt := range tests {
		ent, err := FromArray(filled(t, dtype.Uint8, tt.shape), false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ent.Kind(), "shape %v", tt.shape)
	}

	_, err := FromArray(filled(t, dtype.Uint8, ndarray.Shape{1, 1, 1, 1, 1, 2}), false)
	assert.Error(t, err)
	_, err = FromArray(nil, false)
	assert.Error(t, err)
}

func TestDispatch(t *testing.T) {
	reg := testRegistry(t)
	enc := NewEncoder(reg, EncodeOptions{})
	dec := NewDecoder(reg)

	for kind, ent := range sampleEntities(t) {
		buf, err := enc.Encode(ent)
		require.NoError(t, err)
		h, err := dec.PeekHeader(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, reg.Magic(kind), h.Magic)
		assert.Equal(t, kind.String(), reg.NameForMagic(h.Magic))

		putInt32(buf, 0, 99)
		_, err = dec.Decode(buf)
		assert.ErrorIs(t, err, errors.ErrUnknownEntityKind, kind.String())
		_, err = dec.Extent(buf)
		assert.ErrorIs(t, err, errors.ErrUnknownEntityKind)
	}
	assert.Equal(t, "unknown(99)", reg.NameForMagic(99))
}

func TestComboSizeAccounting(t *testing.T) {
	reg := testRegistry(t)
	enc := NewEncoder(reg, EncodeOptions{})
	dec := NewDecoder(reg)
	const linearSize = TopHeaderSize + MatrixHeaderSize + 64

	for _, k := range []int{0, 1, 5} {
		c := &ComboTransform{Linear: Identity()}
		gridTotal := 0
		for i := 0; i < k; i++ {
			g := sampleGrid([3]int{i + 1, 2, 3}, float32(i))
			c.Grids = append(c.Grids, g)
			gridTotal += TopHeaderSize + GridHeaderSize + 12*g.NumControlPoints()
		}

		buf, err := enc.Encode(c)
		require.NoError(t, err)
		assert.Equal(t, TopHeaderSize+CompositeHeaderSize+linearSize+gridTotal, len(buf), "k=%d", k)
		assert.Equal(t, int32(linearSize+gridTotal), int32At(buf, 12))
		assert.Equal(t, int32(k), int32At(buf, 16))

		got, n, err := dec.DecodeAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.True(t, Equal(c, got))
	}
}

func TestComboRejectsBadMembers(t *testing.T) {
	reg := testRegistry(t)
	enc := NewEncoder(reg, EncodeOptions{})
	dec := NewDecoder(reg)
	c := &ComboTransform{Linear: Identity(), Grids: []*GridTransform{
		sampleGrid([3]int{1, 1, 2}, 1),
		sampleGrid([3]int{2, 1, 1}, 2),
	}}
	buf, err := enc.Encode(c)
	require.NoError(t, err)

	linearOff := TopHeaderSize + CompositeHeaderSize
	grid1Off := linearOff + TopHeaderSize + MatrixHeaderSize + 64 + TopHeaderSize + GridHeaderSize + 24

	t.Run("grid with wrong kind", func(t *testing.T) {
		bad := append([]byte(nil), buf...)
		putInt32(bad, grid1Off, testMagic.Vector)
		_, err := dec.Decode(bad)
		assert.ErrorIs(t, err, errors.ErrInvariantViolation)
		var e *errors.Error
		require.True(t, stderrors.As(err, &e))
		assert.Equal(t, []string{"grid[1]"}, e.Path)
	})

	t.Run("grid with bad dims", func(t *testing.T) {
		bad := append([]byte(nil), buf...)
		putInt32(bad, grid1Off+TopHeaderSize+4, 0)
		_, err := dec.Decode(bad)
		assert.ErrorIs(t, err, errors.ErrMalformedHeader)
	})

	t.Run("linear not a 4x4", func(t *testing.T) {
		bad := append([]byte(nil), buf...)
		putInt32(bad, linearOff+TopHeaderSize, 2)
		putInt32(bad, linearOff+TopHeaderSize+4, 8)
		_, err := dec.Decode(bad)
		assert.ErrorIs(t, err, errors.ErrInvariantViolation)
	})

	t.Run("descriptor disagrees with members", func(t *testing.T) {
		bad := append([]byte(nil), buf...)
		putInt32(bad, 12, int32At(buf, 12)-4)
		_, err := dec.Decode(bad)
		assert.ErrorIs(t, err, errors.ErrInvariantViolation)
	})
}

func TestCollectionHeterogeneity(t *testing.T) {
	reg := testRegistry(t)
	coll := NewCollection(
		NewVector(filled(t, dtype.Float32, ndarray.Shape{3})),
		NewMatrix(filled(t, dtype.Int32, ndarray.Shape{2, 2})),
		sampleGrid([3]int{2, 2, 1}, 4),
	)
	buf, err := NewEncoder(reg, EncodeOptions{}).Encode(coll)
	require.NoError(t, err)
	assert.Equal(t, int32(0), int32At(buf, 4))
	assert.Equal(t, int32(len(buf)-TopHeaderSize-CompositeHeaderSize), int32At(buf, 12))

	got, err := NewDecoder(reg).Decode(buf)
	require.NoError(t, err)
	items := got.(*Collection).Items
	require.Len(t, items, 3)
	assert.Equal(t, []Kind{KindVector, KindMatrix, KindGridTransform}, []Kind{items[0].Kind(), items[1].Kind(), items[2].Kind()})
	assert.True(t, Equal(coll, got))
}

func TestNestedCollection(t *testing.T) {
	reg := testRegistry(t)
	samples := sampleEntities(t)
	inner := NewCollection(samples[KindComboTransform], samples[KindImage])
	outer := NewCollection(inner, NewCollection(), samples[KindVector])

	buf, err := NewEncoder(reg, EncodeOptions{ForceLargeObjects: true}).Encode(outer)
	require.NoError(t, err)
	got, err := NewDecoder(reg).Decode(buf)
	require.NoError(t, err)
	assert.True(t, Equal(outer, got))
}

func TestCollectionUnknownMember(t *testing.T) {
	reg := testRegistry(t)
	buf, err := NewEncoder(reg, EncodeOptions{}).Encode(sampleEntities(t)[KindCollection])
	require.NoError(t, err)
	putInt32(buf, TopHeaderSize+CompositeHeaderSize, 7)

	_, err = NewDecoder(reg).Decode(buf)
	require.ErrorIs(t, err, errors.ErrUnknownEntityKind)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, []string{"item[0]"}, e.Path)
}

func TestBoundaryRejection(t *testing.T) {
	reg := testRegistry(t)
	enc := NewEncoder(reg, EncodeOptions{})
	dec := NewDecoder(reg)

	matrix, err := enc.Encode(NewMatrix(filled(t, dtype.Uint8, ndarray.Shape{2, 3})))
	require.NoError(t, err)
	vector, err := enc.Encode(NewVector(filled(t, dtype.Int32, ndarray.Shape{3})))
	require.NoError(t, err)
	image, err := enc.Encode(NewImage(filled(t, dtype.Int8, ndarray.Shape{2, 2, 2}), [5]float32{1, 1, 1, 1, 1}))
	require.NoError(t, err)

	tests := []struct {
		name  string
		buf   []byte
		patch func(b []byte) []byte
		want  error
	}{
		{"matrix zero rows", matrix, func(b []byte) []byte { putInt32(b, 16, 0); return b }, errors.ErrMalformedHeader},
		{"matrix negative rows", matrix, func(b []byte) []byte { putInt32(b, 16, -2); return b }, errors.ErrMalformedHeader},
		{"matrix truncated payload", matrix, func(b []byte) []byte { return b[:len(b)-1] }, errors.ErrMalformedHeader},
		{"matrix truncated header", matrix, func(b []byte) []byte { return b[:10] }, errors.ErrMalformedHeader},
		{"matrix descriptor mismatch", matrix, func(b []byte) []byte { putInt32(b, 12, 5); return b }, errors.ErrInvariantViolation},
		{"matrix secondary size", matrix, func(b []byte) []byte { putInt32(b, 8, 12); return b }, errors.ErrInvariantViolation},
		{"matrix unknown type", matrix, func(b []byte) []byte { putInt32(b, 4, 3); return b }, errors.ErrUnknownTypeCode},
		{"vector zero length", vector, func(b []byte) []byte { putInt32(b, 12, 0); return b[:16] }, errors.ErrMalformedHeader},
		{"vector truncated", vector, func(b []byte) []byte { return b[:len(b)-4] }, errors.ErrMalformedHeader},
		{"vector partial element", vector, func(b []byte) []byte { putInt32(b, 12, 10); return b }, errors.ErrInvariantViolation},
		{"image zero leading dim", image, func(b []byte) []byte { putInt32(b, 16, 0); return b }, errors.ErrMalformedHeader},
		{"image negative time axis", image, func(b []byte) []byte { putInt32(b, 32, -1); return b }, errors.ErrMalformedHeader},
		{"image truncated", image, func(b []byte) []byte { return b[:TopHeaderSize+20] }, errors.ErrMalformedHeader},
		{"negative secondary", image, func(b []byte) []byte { putInt32(b, 8, -40); return b }, errors.ErrMalformedHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.patch(append([]byte(nil), tt.buf...))
			_, err := dec.Decode(buf)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGridRejectsNonFloat(t *testing.T) {
	reg := testRegistry(t)
	buf, err := NewEncoder(reg, EncodeOptions{}).Encode(sampleGrid([3]int{1, 1, 1}, 1))
	require.NoError(t, err)
	putInt32(buf, 4, 64)
	_, err = NewDecoder(reg).Decode(buf)
	assert.ErrorIs(t, err, errors.ErrInvariantViolation)
}

func TestEncodeRejectsInvalidEntities(t *testing.T) {
	enc := NewEncoder(testRegistry(t), EncodeOptions{})
	tests := []struct {
		name string
		ent  Entity
	}{
		{"nil", nil},
		{"vector without data", &Vector{}},
		{"vector of rank 2", NewVector(filled(t, dtype.Uint8, ndarray.Shape{2, 2}))},
		{"matrix of rank 3", NewMatrix(filled(t, dtype.Uint8, ndarray.Shape{2, 2, 2}))},
		{"grid with short payload", &GridTransform{Dims: [3]int{2, 2, 2}, Displacements: make([]float32, 5)}},
		{"grid with zero dim", &GridTransform{Dims: [3]int{0, 2, 2}}},
		{"collection with bad member", NewCollection(&Matrix{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Encode(tt.ent)
			assert.Error(t, err)
		})
	}

	_, err := enc.EncodeTo(make([]byte, 4), NewVector(filled(t, dtype.Uint8, ndarray.Shape{8})))
	assert.Error(t, err)
}

func TestGridDisplacementLayout(t *testing.T) {
	g := NewGridTransform([3]int{2, 3, 4}, [3]float32{1, 1, 1}, [3]float32{}, false)
	assert.Equal(t, 24, g.NumControlPoints())
	g.SetDisplacement(1, 2, 3, [3]float32{7, 8, 9})
	assert.Equal(t, [3]float32{7, 8, 9}, g.Displacement(1, 2, 3))

	p := 1 + 2*2 + 3*6
	assert.Equal(t, float32(7), g.Displacements[p])
	assert.Equal(t, float32(8), g.Displacements[24+p])
	assert.Equal(t, float32(9), g.Displacements[48+p])
}

func TestRegistry(t *testing.T) {
	types := testRegistry(t).Types()

	dup := testMagic
	dup.Collection = dup.Vector
	_, err := NewRegistry(dup, types)
	assert.Error(t, err)

	_, err = NewRegistry(testMagic, nil)
	assert.Error(t, err)

	reg := testRegistry(t)
	for _, k := range Kinds {
		got, err := reg.KindOf(reg.Magic(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err = reg.KindOf(1)
	assert.ErrorIs(t, err, errors.ErrUnknownEntityKind)
}
