package dtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
)

func testCodes() map[ElementType]int32 {
	return map[ElementType]int32{
		Uint8: 2, Int16: 4, Int32: 8, Float32: 16, Float64: 64,
		Int8: 256, Uint16: 512, Uint32: 768,
	}
}

func TestElementTypeSize(t *testing.T) {
	tests := []struct {
		et   ElementType
		size int
	}{
		{Uint8, 1}, {Int8, 1}, {Int16, 2}, {Uint16, 2},
		{Int32, 4}, {Uint32, 4}, {Float32, 4}, {Float64, 8}, {Invalid, 0},
	}
	for _, tt := range tests {
		t.Run(tt.et.String(), func(t *testing.T) {
			assert.Equal(t, tt.size, tt.et.Size())
		})
	}
}

func TestOf(t *testing.T) {
	assert.Equal(t, Uint8, Of[uint8]())
	assert.Equal(t, Int8, Of[int8]())
	assert.Equal(t, Int16, Of[int16]())
	assert.Equal(t, Uint16, Of[uint16]())
	assert.Equal(t, Int32, Of[int32]())
	assert.Equal(t, Uint32, Of[uint32]())
	assert.Equal(t, Float32, Of[float32]())
	assert.Equal(t, Float64, Of[float64]())
}

func TestParse(t *testing.T) {
	for _, et := range All {
		got, ok := Parse(et.String())
		require.True(t, ok, et.String())
		assert.Equal(t, et, got)
	}
	_, ok := Parse("complex64")
	assert.False(t, ok)
}

func TestTableBijection(t *testing.T) {
	table, err := NewTable(testCodes())
	require.NoError(t, err)

	for _, et := range All {
		code, err := table.Code(et)
		require.NoError(t, err)
		back, err := table.Lookup(code)
		require.NoError(t, err)
		assert.Equal(t, et, back)
	}
}

func TestTableUnsupportedType(t *testing.T) {
	table, err := NewTable(testCodes())
	require.NoError(t, err)

	_, err = table.Code(Invalid)
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

func TestTableUnknownCode(t *testing.T) {
	table, err := NewTable(testCodes())
	require.NoError(t, err)

	_, err = table.Lookup(9999)
	assert.ErrorIs(t, err, errors.ErrUnknownTypeCode)
}

func TestNewTableRejects(t *testing.T) {
	tests := []struct {
		mutate func(map[ElementType]int32)
		name   string
	}{
		{func(m map[ElementType]int32) { delete(m, Float64) }, "missing type"},
		{func(m map[ElementType]int32) { m[Int8] = m[Uint8] }, "duplicate code"},
		{func(m map[ElementType]int32) { m[Invalid] = 1 }, "invalid type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := testCodes()
			tt.mutate(codes)
			_, err := NewTable(codes)
			assert.Error(t, err)
		})
	}
}

func TestTableCodesIsCopy(t *testing.T) {
	table, err := NewTable(testCodes())
	require.NoError(t, err)

	codes := table.Codes()
	codes[Uint8] = -1
	code, err := table.Code(Uint8)
	require.NoError(t, err)
	assert.Equal(t, int32(2), code)
	assert.Contains(t, table.String(), "uint8:2")
}
