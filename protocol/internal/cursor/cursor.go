// Package cursor provides bounds-checked sequential access to protocol buffers.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var le = binary.LittleEndian

// ErrShort is returned when a read or write would run past the end of the buffer.
var ErrShort = errors.New("cursor: buffer too short")

// Reader reads little-endian values from a byte slice, tracking position.
type Reader struct {
	buf []byte
	pos int
}

// NewReader positions a Reader at off.
func NewReader(buf []byte, off int) *Reader {
	return &Reader{buf: buf, pos: off}
}

// Bytes returns the whole underlying buffer.
func (r *Reader) Bytes() []byte {
	return r.buf
}

// Pos returns the current absolute offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.pos >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.pos
}

// Skip advances by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > r.Remaining() {
		return fmt.Errorf("%w: skip %d at %d of %d", ErrShort, n, r.pos, len(r.buf))
	}
	r.pos += n
	return nil
}

// Int32 reads one int32.
func (r *Reader) Int32() (int32, error) {
	if r.pos < 0 || r.Remaining() < 4 {
		return 0, fmt.Errorf("%w: int32 at %d of %d", ErrShort, r.pos, len(r.buf))
	}
	v := int32(le.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

// Float32 reads one float32.
func (r *Reader) Float32() (float32, error) {
	if r.pos < 0 || r.Remaining() < 4 {
		return 0, fmt.Errorf("%w: float32 at %d of %d", ErrShort, r.pos, len(r.buf))
	}
	v := math.Float32frombits(le.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

// View returns the next n bytes without copying and advances past them.
func (r *Reader) View(n int) ([]byte, error) {
	if n < 0 || r.pos < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: %d bytes at %d of %d", ErrShort, n, r.pos, len(r.buf))
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// Writer writes little-endian values into a preallocated byte slice.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter positions a Writer at the start of buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int {
	return w.pos
}

// Int32 writes one int32.
func (w *Writer) Int32(v int32) error {
	if len(w.buf)-w.pos < 4 {
		return fmt.Errorf("%w: int32 at %d of %d", ErrShort, w.pos, len(w.buf))
	}
	le.PutUint32(w.buf[w.pos:], uint32(v))
	w.pos += 4
	return nil
}

// Float32 writes one float32.
func (w *Writer) Float32(v float32) error {
	if len(w.buf)-w.pos < 4 {
		return fmt.Errorf("%w: float32 at %d of %d", ErrShort, w.pos, len(w.buf))
	}
	le.PutUint32(w.buf[w.pos:], math.Float32bits(v))
	w.pos += 4
	return nil
}

// Reserve returns the next n bytes for the caller to fill and advances past them.
func (w *Writer) Reserve(n int) ([]byte, error) {
	if n < 0 || len(w.buf)-w.pos < n {
		return nil, fmt.Errorf("%w: reserve %d at %d of %d", ErrShort, n, w.pos, len(w.buf))
	}
	v := w.buf[w.pos : w.pos+n]
	w.pos += n
	return v, nil
}
