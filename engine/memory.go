package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	bisweb "github.com/bioimagesuiteweb/bisweb-sub000"
	"github.com/bioimagesuiteweb/bisweb-sub000/errors"
)

const wasmPageSize = 65536

// memory adapts wazero api.Memory to bisweb.Memory.
type memory struct {
	mem api.Memory
}

var _ bisweb.Memory = (*memory)(nil)

// Read returns a copy of length bytes at offset.
func (m *memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write writes bytes to memory.
func (m *memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

// ReadI32 reads a signed 32-bit little-endian value.
func (m *memory) ReadI32(offset uint32) (int32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return int32(v), nil
}

// WriteI32 writes a signed 32-bit little-endian value.
func (m *memory) WriteI32(offset uint32, value int32) error {
	if !m.mem.WriteUint32Le(offset, uint32(value)) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

// Size returns the memory size in bytes.
func (m *memory) Size() uint32 {
	return m.mem.Size()
}

// allocator adapts the engine's exported malloc and free to bisweb.Allocator.
type allocator struct {
	ctx    context.Context
	malloc api.Function
	free   api.Function
}

var _ bisweb.Allocator = (*allocator)(nil)

// Alloc allocates size bytes with malloc. A NULL result is an error.
func (a *allocator) Alloc(size uint32) (uint32, error) {
	results, err := a.malloc.Call(a.ctx, api.EncodeU32(size))
	if err != nil {
		return 0, errors.AllocationFailed(size, err)
	}
	if len(results) == 0 || api.DecodeU32(results[0]) == 0 {
		return 0, errors.AllocationFailed(size, nil)
	}
	return api.DecodeU32(results[0]), nil
}

// Free releases ptr with free.
func (a *allocator) Free(ptr uint32) error {
	if _, err := a.free.Call(a.ctx, api.EncodeU32(ptr)); err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindCall, err, fmt.Sprintf("free(%d)", ptr))
	}
	return nil
}
