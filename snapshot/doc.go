// Package snapshot persists a single protocol entity to disk together with
// the code table it was encoded with.
//
// A snapshot is a 64-byte fixed header, a JSON code table and the protocol
// payload:
//
//	0x00 "BISB"
//	0x04 version      uint32
//	0x08 flags        uint32 (FlagZstd, FlagLarge)
//	0x0C reserved     uint32
//	0x10 table size   uint64
//	0x18 payload size uint64
//	0x20 SHA-256 of the stored payload
//
// All integers are little-endian. Because the code table travels with the
// payload, Read and Open do not need a running engine.
package snapshot
