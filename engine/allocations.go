package engine

import (
	"sync"

	"go.uber.org/multierr"

	bisweb "github.com/bioimagesuiteweb/bisweb-sub000"
)

// allocationList tracks the host-side allocations made for one engine call so
// they can all be freed when it returns.
type allocationList struct {
	ptrs []uint32
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &allocationList{ptrs: make([]uint32, 0, 8)}
	},
}

const maxPooledAllocationCapacity = 128

func newAllocationList() *allocationList {
	return allocationListPool.Get().(*allocationList)
}

func (al *allocationList) add(ptr uint32) {
	al.ptrs = append(al.ptrs, ptr)
}

func (al *allocationList) count() int {
	return len(al.ptrs)
}

// free releases every tracked pointer, continuing past failures.
func (al *allocationList) free(a bisweb.Allocator) error {
	var err error
	for _, p := range al.ptrs {
		if p != 0 {
			err = multierr.Append(err, a.Free(p))
		}
	}
	al.ptrs = al.ptrs[:0]
	return err
}

// settleCall frees the call's input allocations. When the call or the cleanup
// failed, a result buffer is freed too, so a non-nil error never comes with a
// live buffer.
func settleCall(a bisweb.Allocator, al *allocationList, buf *Buffer, err error) (*Buffer, error) {
	err = multierr.Append(err, al.free(a))
	if err != nil && buf != nil {
		if buf.released.CompareAndSwap(false, true) {
			err = multierr.Append(err, a.Free(buf.ptr))
		}
		buf = nil
	}
	return buf, err
}

// release returns the list to the pool. The list is invalid afterwards.
func (al *allocationList) release() {
	if cap(al.ptrs) > maxPooledAllocationCapacity {
		return
	}
	al.ptrs = al.ptrs[:0]
	allocationListPool.Put(al)
}
