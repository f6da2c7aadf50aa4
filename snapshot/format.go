package snapshot

import (
	stderrors "errors"

	"github.com/bioimagesuiteweb/bisweb-sub000/dtype"
	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// Format constants.
const (
	MagicBytes      = "BISB"
	FormatVersion   = 1
	FixedHeaderSize = 64
	ChecksumSize    = 32
	ChecksumOffset  = 0x20

	// MaxTableSize bounds the JSON code table.
	MaxTableSize = 1 << 20
)

// Flags for the snapshot header.
const (
	FlagZstd  uint32 = 1 << 0 // payload is zstd compressed
	FlagLarge uint32 = 1 << 1 // payload was written with large-object headers
)

var (
	ErrInvalidMagic       = stderrors.New("invalid magic bytes")
	ErrUnsupportedVersion = stderrors.New("unsupported format version")
	ErrChecksumMismatch   = stderrors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge     = stderrors.New("code table exceeds maximum size")
	ErrTruncated          = stderrors.New("truncated snapshot")
)

// Options controls Write.
type Options struct {
	// Compress stores the payload zstd compressed.
	Compress bool

	// ForceLargeObjects encodes every eligible object in large-object mode.
	ForceLargeObjects bool
}

// Header is the fixed-size prefix of a snapshot.
type Header struct {
	Version     uint32
	Flags       uint32
	TableSize   uint64
	PayloadSize uint64
	Checksum    [ChecksumSize]byte
}

// codeTable records the registry the payload was encoded with, so a snapshot
// can be decoded without the engine that produced it.
type codeTable struct {
	Kind  string              `json:"kind"`
	Magic protocol.MagicCodes `json:"magic"`
	Types map[string]int32    `json:"types"`
}

func newCodeTable(reg *protocol.Registry, kind protocol.Kind) codeTable {
	t := codeTable{
		Kind:  kind.String(),
		Magic: reg.Codes(),
		Types: make(map[string]int32, len(dtype.All)),
	}
	for et, code := range reg.Types().Codes() {
		t.Types[et.String()] = code
	}
	return t
}

func (t codeTable) registry() (*protocol.Registry, error) {
	codes := make(map[dtype.ElementType]int32, len(t.Types))
	for name, code := range t.Types {
		et, ok := dtype.Parse(name)
		if !ok {
			return nil, stderrors.New("unknown element type " + name + " in code table")
		}
		codes[et] = code
	}
	types, err := dtype.NewTable(codes)
	if err != nil {
		return nil, err
	}
	return protocol.NewRegistry(t.Magic, types)
}
