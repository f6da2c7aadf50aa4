package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// Write stores ent, encoded with reg's codes, to w.
func Write(w io.Writer, reg *protocol.Registry, ent protocol.Entity, opts Options) error {
	if ent == nil {
		return fmt.Errorf("snapshot: nil entity")
	}
	enc := protocol.NewEncoder(reg, protocol.EncodeOptions{ForceLargeObjects: opts.ForceLargeObjects})
	payload, err := enc.Encode(ent)
	if err != nil {
		return err
	}

	encoded := len(payload)
	var flags uint32
	if opts.ForceLargeObjects {
		flags |= FlagLarge
	}
	if opts.Compress {
		zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		payload = zw.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		_ = zw.Close()
		flags |= FlagZstd
	}

	table, err := json.Marshal(newCodeTable(reg, ent.Kind()))
	if err != nil {
		return fmt.Errorf("marshal code table: %w", err)
	}

	hdr := Header{
		Version:     FormatVersion,
		Flags:       flags,
		TableSize:   uint64(len(table)),
		PayloadSize: uint64(len(payload)),
		Checksum:    sha256.Sum256(payload),
	}
	if _, err := w.Write(hdr.marshal()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(table); err != nil {
		return fmt.Errorf("write code table: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	Logger().Debug("wrote snapshot",
		zap.Stringer("kind", ent.Kind()),
		zap.Int("encoded", encoded),
		zap.Int("stored", len(payload)),
		zap.Uint32("flags", flags))
	return nil
}

// WriteFile writes a snapshot to path, replacing any existing file.
func WriteFile(path string, reg *protocol.Registry, ent protocol.Entity, opts Options) error {
	//nolint:gosec // G304: path is chosen by the caller
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := Write(f, reg, ent, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (h *Header) marshal() []byte {
	b := make([]byte, FixedHeaderSize)
	copy(b[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.Flags)
	// b[12:16] reserved
	binary.LittleEndian.PutUint64(b[16:24], h.TableSize)
	binary.LittleEndian.PutUint64(b[24:32], h.PayloadSize)
	copy(b[ChecksumOffset:], h.Checksum[:])
	return b
}
