package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// maxDecodedSize caps zstd output.
const maxDecodedSize = 1 << 34

// ReadHeader parses the fixed header at the start of data.
func ReadHeader(data []byte) (*Header, error) {
	if len(data) < FixedHeaderSize {
		return nil, fmt.Errorf("file too small: %d bytes (minimum %d bytes required)", len(data), FixedHeaderSize)
	}
	if string(data[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	h := &Header{
		Version:     binary.LittleEndian.Uint32(data[4:8]),
		Flags:       binary.LittleEndian.Uint32(data[8:12]),
		TableSize:   binary.LittleEndian.Uint64(data[16:24]),
		PayloadSize: binary.LittleEndian.Uint64(data[24:32]),
	}
	copy(h.Checksum[:], data[ChecksumOffset:ChecksumOffset+ChecksumSize])
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.TableSize > MaxTableSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, h.TableSize)
	}
	return h, nil
}

// Read loads a snapshot from r. The payload buffer grows with the bytes
// actually read, so a header declaring more than r holds fails as truncated.
func Read(r io.Reader) (*protocol.Registry, protocol.Entity, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	h, err := ReadHeader(fixed)
	if err != nil {
		return nil, nil, err
	}
	table := make([]byte, h.TableSize)
	if _, err := io.ReadFull(r, table); err != nil {
		return nil, nil, fmt.Errorf("%w: read code table: %v", ErrTruncated, err)
	}
	limit := int64(math.MaxInt64)
	if h.PayloadSize < math.MaxInt64 {
		limit = int64(h.PayloadSize)
	}
	var payload bytes.Buffer
	n, err := payload.ReadFrom(io.LimitReader(r, limit))
	if err != nil {
		return nil, nil, fmt.Errorf("read payload: %w", err)
	}
	if uint64(n) != h.PayloadSize {
		return nil, nil, fmt.Errorf("%w: have %d payload bytes, header declares %d",
			ErrTruncated, n, h.PayloadSize)
	}
	return decodeBody(h, table, payload.Bytes())
}

// Decode loads a snapshot held entirely in data. The returned entity does not
// reference data.
func Decode(data []byte) (*protocol.Registry, protocol.Entity, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, nil, err
	}
	body := data[FixedHeaderSize:]
	if h.PayloadSize > uint64(len(body)) || uint64(len(body))-h.PayloadSize < h.TableSize {
		return nil, nil, fmt.Errorf("%w: have %d body bytes, header declares %d table and %d payload bytes",
			ErrTruncated, len(body), h.TableSize, h.PayloadSize)
	}
	return decodeBody(h, body[:h.TableSize], body[h.TableSize:h.TableSize+h.PayloadSize])
}

func decodeBody(h *Header, table, payload []byte) (*protocol.Registry, protocol.Entity, error) {
	if sha256.Sum256(payload) != h.Checksum {
		return nil, nil, ErrChecksumMismatch
	}

	var ct codeTable
	if err := json.Unmarshal(table, &ct); err != nil {
		return nil, nil, fmt.Errorf("parse code table: %w", err)
	}
	reg, err := ct.registry()
	if err != nil {
		return nil, nil, fmt.Errorf("code table: %w", err)
	}

	if h.Flags&FlagZstd != 0 {
		zr, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
		if err != nil {
			return nil, nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		payload, err = zr.DecodeAll(payload, nil)
		zr.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("decompress payload: %w", err)
		}
	}

	ent, err := protocol.NewDecoder(reg).Decode(payload)
	if err != nil {
		return nil, nil, err
	}
	if ent.Kind().String() != ct.Kind {
		return nil, nil, fmt.Errorf("payload holds a %s, code table declares %s", ent.Kind(), ct.Kind)
	}
	Logger().Debug("read snapshot",
		zap.Stringer("kind", ent.Kind()),
		zap.Uint64("stored", h.PayloadSize),
		zap.Int("encoded", len(payload)),
		zap.Uint32("flags", h.Flags))
	return reg, ent, nil
}
