package snapshot

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/bioimagesuiteweb/bisweb-sub000/protocol"
)

// Open loads the snapshot at path. On unix the file is memory-mapped for the
// duration of the decode.
func Open(path string) (*protocol.Registry, protocol.Entity, error) {
	//nolint:gosec // G304: path is chosen by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat snapshot: %w", err)
	}
	if st.Size() < FixedHeaderSize {
		return nil, nil, fmt.Errorf("file too small: %d bytes (minimum %d bytes required)", st.Size(), FixedHeaderSize)
	}

	data, err := mapFile(f, st.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("map snapshot: %w", err)
	}
	defer func() {
		if err := unmapFile(data); err != nil {
			Logger().Warn("unmap snapshot", zap.String("path", path), zap.Error(err))
		}
	}()

	return Decode(data)
}
