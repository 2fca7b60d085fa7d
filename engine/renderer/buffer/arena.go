package buffer

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-core/common"
)

// Range is a byte range inside an arena.
type Range struct {
	Offset uint64
	Size   uint64
}

// End returns the first byte past the range.
func (r Range) End() uint64 { return r.Offset + r.Size }

// Arena is a logical byte-range allocator. It tracks which ranges of a backing buffer are in use
// but owns no GPU memory itself; Buffer pairs it with the physical buffer.
//
// Free ranges are kept ordered by (size, offset) so a best-fit lookup is a binary search.
// Adjacent free ranges are not merged. Live ranges are keyed by offset so only an exact live
// range can be freed.
type Arena struct {
	reqSize uint64
	free    []Range
	live    map[uint64]uint64
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{live: make(map[uint64]uint64)}
}

// ReqSize returns the number of bytes the backing buffer must hold to cover every live allocation.
func (a *Arena) ReqSize() uint64 {
	return a.reqSize
}

// Live returns the number of live allocations.
func (a *Arena) Live() int {
	return len(a.live)
}

// FreeRanges returns a copy of the free ranges ordered by (size, offset).
func (a *Arena) FreeRanges() []Range {
	return slices.Clone(a.free)
}

// Allocate reserves size bytes and returns their offset.
// The smallest free range that fits is used; when none fits the logical end is extended.
//
// Parameters:
//   - size: the number of bytes to reserve, must be non-zero
//
// Returns:
//   - uint64: the offset of the reserved range
//   - error: a contract violation when size is zero
func (a *Arena) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, common.Contractf("arena allocation of zero bytes")
	}

	i, _ := slices.BinarySearchFunc(a.free, Range{Size: size}, compareRange)
	if i == len(a.free) {
		offset := a.reqSize
		a.reqSize += size
		a.live[offset] = size
		return offset, nil
	}

	fit := a.free[i]
	a.free = slices.Delete(a.free, i, i+1)
	if fit.Size > size {
		a.insert(Range{Offset: fit.Offset + size, Size: fit.Size - size})
	}
	a.live[fit.Offset] = size
	return fit.Offset, nil
}

// Free releases a range previously returned by Allocate.
// Freeing the tail range shrinks ReqSize instead of recording a free range.
//
// Parameters:
//   - offset: the offset returned by Allocate
//   - size: the size passed to Allocate
//
// Returns:
//   - error: a contract violation when the range is not a live allocation, which covers double
//     frees and ranges outside the arena
func (a *Arena) Free(offset, size uint64) error {
	if size == 0 || offset+size > a.reqSize {
		return common.Contractf("free of [%d, %d) outside arena of %d bytes", offset, offset+size, a.reqSize)
	}
	if live, ok := a.live[offset]; !ok || live != size {
		return common.Contractf("free of [%d, %d) does not match a live allocation", offset, offset+size)
	}
	delete(a.live, offset)
	if offset+size == a.reqSize {
		a.reqSize = offset
		return nil
	}
	a.insert(Range{Offset: offset, Size: size})
	return nil
}

func (a *Arena) insert(r Range) {
	i, _ := slices.BinarySearchFunc(a.free, r, compareRange)
	a.free = slices.Insert(a.free, i, r)
}

func compareRange(a, b Range) int {
	switch {
	case a.Size < b.Size:
		return -1
	case a.Size > b.Size:
		return 1
	case a.Offset < b.Offset:
		return -1
	case a.Offset > b.Offset:
		return 1
	}
	return 0
}
