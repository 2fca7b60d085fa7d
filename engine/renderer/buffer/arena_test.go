package buffer

import (
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaBestFit(t *testing.T) {
	a := NewArena()
	// Lay out [10][x][50][x][30][x] and free the 10, 50 and 30 byte ranges.
	sizes := []uint64{10, 1, 50, 1, 30, 1}
	offsets := make([]uint64, len(sizes))
	for i, s := range sizes {
		off, err := a.Allocate(s)
		require.NoError(t, err)
		offsets[i] = off
	}
	for _, i := range []int{0, 2, 4} {
		require.NoError(t, a.Free(offsets[i], sizes[i]))
	}
	require.Len(t, a.FreeRanges(), 3)

	off, err := a.Allocate(20)
	require.NoError(t, err)
	assert.Equal(t, offsets[4], off, "smallest sufficient range is the 30 byte one")

	assert.Equal(t, []Range{
		{Offset: offsets[0], Size: 10},
		{Offset: offsets[4] + 20, Size: 10},
		{Offset: offsets[2], Size: 50},
	}, a.FreeRanges())
}

func TestArenaTailShrink(t *testing.T) {
	a := NewArena()
	_, err := a.Allocate(64)
	require.NoError(t, err)
	tail, err := a.Allocate(32)
	require.NoError(t, err)
	require.Equal(t, uint64(96), a.ReqSize())

	require.NoError(t, a.Free(tail, 32))
	assert.Equal(t, uint64(64), a.ReqSize())
	assert.Empty(t, a.FreeRanges())

	again, err := a.Allocate(32)
	require.NoError(t, err)
	assert.Equal(t, tail, again)
}

func TestArenaReuseFreedRange(t *testing.T) {
	const stride = 32
	a := NewArena()
	base, err := a.Allocate(1000 * stride)
	require.NoError(t, err)
	require.Equal(t, uint64(0), base)

	// Split the block so vertices [100, 200) can be released on their own.
	require.NoError(t, a.Free(0, 1000*stride))
	head, err := a.Allocate(100 * stride)
	require.NoError(t, err)
	mid, err := a.Allocate(100 * stride)
	require.NoError(t, err)
	rest, err := a.Allocate(800 * stride)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 100 * stride, 200 * stride}, []uint64{head, mid, rest})

	require.NoError(t, a.Free(mid, 100*stride))
	off, err := a.Allocate(50 * stride)
	require.NoError(t, err)
	assert.Equal(t, uint64(100*stride), off)
	assert.Equal(t, uint64(1000*stride), a.ReqSize())
}

func TestArenaErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(a *Arena) error
	}{
		{
			name: "zero allocation",
			run: func(a *Arena) error {
				_, err := a.Allocate(0)
				return err
			},
		},
		{
			name: "free past end",
			run: func(a *Arena) error {
				_, _ = a.Allocate(16)
				return a.Free(8, 16)
			},
		},
		{
			name: "zero free",
			run: func(a *Arena) error {
				_, _ = a.Allocate(16)
				return a.Free(0, 0)
			},
		},
		{
			name: "double free",
			run: func(a *Arena) error {
				x, _ := a.Allocate(16)
				_, _ = a.Allocate(16)
				_ = a.Free(x, 16)
				return a.Free(x, 16)
			},
		},
		{
			name: "stale range after tail reuse",
			run: func(a *Arena) error {
				x, _ := a.Allocate(16)
				_ = a.Free(x, 16)
				_, _ = a.Allocate(8)
				return a.Free(x, 16)
			},
		},
		{
			name: "part of a free range",
			run: func(a *Arena) error {
				x, _ := a.Allocate(32)
				_, _ = a.Allocate(16)
				_ = a.Free(x, 32)
				return a.Free(x+8, 8)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(NewArena())
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrContractViolation))
		})
	}
}

func TestArenaDoubleFreeKeepsAllocationsDisjoint(t *testing.T) {
	a := NewArena()
	x, err := a.Allocate(16)
	require.NoError(t, err)
	_, err = a.Allocate(16)
	require.NoError(t, err)

	require.NoError(t, a.Free(x, 16))
	require.Error(t, a.Free(x, 16))
	assert.Len(t, a.FreeRanges(), 1)

	y, err := a.Allocate(16)
	require.NoError(t, err)
	z, err := a.Allocate(16)
	require.NoError(t, err)
	assert.NotEqual(t, y, z)
	assert.Equal(t, 3, a.Live())
}

func TestArenaDisjointness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := NewArena()
	live := map[uint64]uint64{}

	for step := 0; step < 400; step++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			for off, size := range live {
				require.NoError(t, a.Free(off, size))
				delete(live, off)
				break
			}
		} else {
			size := uint64(rng.Intn(256) + 1)
			off, err := a.Allocate(size)
			require.NoError(t, err)
			fresh := Range{Offset: off, Size: size}
			for o, sz := range live {
				if o < fresh.End() && off < o+sz {
					t.Fatalf("step %d: %v overlaps [%d, %d)", step, fresh, o, o+sz)
				}
			}
			live[off] = size
		}

		var maxEnd uint64
		for off, size := range live {
			maxEnd = max(maxEnd, off+size)
		}
		if a.ReqSize() < maxEnd {
			t.Fatalf("step %d: req size %d below live end %d", step, a.ReqSize(), maxEnd)
		}
	}
	assert.Equal(t, len(live), a.Live())
}
