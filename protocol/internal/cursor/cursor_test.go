package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	buf := make([]byte, 12)
	w := NewWriter(buf)
	require.NoError(t, w.Int32(-7))
	require.NoError(t, w.Float32(2.5))
	tail, err := w.Reserve(4)
	require.NoError(t, err)
	copy(tail, []byte{1, 2, 3, 4})
	assert.Equal(t, 12, w.Pos())
	assert.ErrorIs(t, w.Int32(1), ErrShort)

	r := NewReader(buf, 0)
	i, err := r.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i)
	f, err := r.Float32()
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), f)
	v, err := r.View(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, v)
	assert.Equal(t, 0, r.Remaining())

	_, err = r.Int32()
	assert.ErrorIs(t, err, ErrShort)
}

func TestReaderBounds(t *testing.T) {
	r := NewReader(make([]byte, 8), 6)
	_, err := r.Int32()
	assert.ErrorIs(t, err, ErrShort)
	assert.Equal(t, 6, r.Pos(), "failed read must not advance")

	assert.ErrorIs(t, r.Skip(3), ErrShort)
	assert.NoError(t, r.Skip(2))
	assert.Equal(t, 0, r.Remaining())

	_, err = r.View(-1)
	assert.ErrorIs(t, err, ErrShort)
}

func TestReaderOffsetPastEnd(t *testing.T) {
	r := NewReader(make([]byte, 4), 10)
	assert.Equal(t, 0, r.Remaining())
	_, err := r.Float32()
	assert.ErrorIs(t, err, ErrShort)
}
