package engine

import (
	"context"
	"sync/atomic"

	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// Buffer is a protocol encoding held in engine memory.
//
// A Buffer must be released exactly once. Releasing it twice, or reading it
// after release, is a programmer error and panics.
type Buffer struct {
	eng      *Engine
	ptr      uint32
	released atomic.Bool
}

// Ptr returns the buffer's engine address.
func (b *Buffer) Ptr() uint32 {
	b.mustBeLive()
	return b.ptr
}

func (b *Buffer) mustBeLive() {
	if b.released.Load() {
		panic("engine: use of released buffer")
	}
}

// Bytes copies the complete encoding out of engine memory. Its length is
// derived from the headers at the buffer's address.
func (b *Buffer) Bytes(ctx context.Context) ([]byte, error) {
	b.mustBeLive()
	e := b.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	mem := &memory{mem: e.module.Memory()}
	prefix, err := mem.Read(b.ptr, protocol.TopHeaderSize)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindMalformedHeader, err, "read top header")
	}
	h, err := e.dec.PeekHeader(prefix, 0)
	if err != nil {
		return nil, err
	}
	if h.LargeObject() && h.SecondaryBytes > 0 {
		if prefix, err = mem.Read(b.ptr, protocol.TopHeaderSize+uint32(h.SecondaryBytes)); err != nil {
			return nil, errors.Wrap(errors.PhaseEngine, errors.KindMalformedHeader, err, "read secondary header")
		}
	}
	n, err := e.dec.Extent(prefix)
	if err != nil {
		return nil, err
	}
	if n < 0 || uint64(b.ptr)+uint64(n) > uint64(mem.Size()) {
		return nil, errors.New(errors.PhaseEngine, errors.KindMalformedHeader).
			Offset(int(b.ptr)).
			Detail("%d byte object at %d exceeds engine memory of %d bytes", n, b.ptr, mem.Size()).
			Build()
	}
	data, err := mem.Read(b.ptr, uint32(n))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindMalformedHeader, err, "read object")
	}
	e.metrics.bytesDownloaded.Add(n)
	return data, nil
}

// Release frees the buffer in the engine.
func (b *Buffer) Release(ctx context.Context) error {
	if !b.released.CompareAndSwap(false, true) {
		panic("engine: buffer released twice")
	}
	e := b.eng
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	alloc, err := e.allocator(ctx)
	if err != nil {
		return err
	}
	if err := alloc.Free(b.ptr); err != nil {
		return err
	}
	e.metrics.buffersReleased.Inc()
	return nil
}
