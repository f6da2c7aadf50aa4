package bisweb

// Memory is the native engine's linear memory as seen from the host.
// Offsets are engine addresses; all multi-byte values are little-endian.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadI32(offset uint32) (int32, error)
	WriteI32(offset uint32, value int32) error
	Size() uint32
}

// Allocator allocates and frees blocks on the native engine's heap.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
	Free(ptr uint32) error
}
