//go:build unix

package snapshot

import (
	"os"
	"syscall"
)

func mapFile(f *os.File, size int64) ([]byte, error) {
	return syscall.Mmap(
		int(f.Fd()), //nolint:gosec // G115: file descriptor fits in int
		0,
		int(size), //nolint:gosec // G115: size checked by caller
		syscall.PROT_READ,
		syscall.MAP_SHARED,
	)
}

func unmapFile(data []byte) error {
	return syscall.Munmap(data)
}
