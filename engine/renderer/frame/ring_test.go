package frame

import (
	"context"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu/gputest"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitFrame(t *testing.T, dev *gputest.Device, slot *Slot) {
	t.Helper()
	require.NoError(t, dev.ResetFence(slot.Fence))
	require.NoError(t, dev.Submit(gpu.SubmitInfo{Fence: slot.Fence}))
}

func TestRingRoundRobin(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("%d frames", n), func(t *testing.T) {
			dev := gputest.NewDevice()
			ring, err := NewRing(dev, n, nil)
			require.NoError(t, err)
			require.Equal(t, n, ring.Len())

			for frame := 0; frame < 2*n+1; frame++ {
				slot, err := ring.Advance(context.Background())
				require.NoError(t, err)
				assert.Equal(t, frame%n, slot.Index)
				assert.Equal(t, frame%n, ring.FrameID())
				assert.Same(t, slot, ring.Current())
				submitFrame(t, dev, slot)
			}
		})
	}
}

func TestRingRejectsBadSize(t *testing.T) {
	for _, n := range []int{0, 4} {
		_, err := NewRing(gputest.NewDevice(), n, nil)
		assert.True(t, errors.Is(err, common.ErrContractViolation))
	}
}

func TestRingRetiredDestroyedAfterFenceWait(t *testing.T) {
	dev := gputest.NewDevice()
	dev.ManualFences = true
	ring, err := NewRing(dev, 2, nil)
	require.NoError(t, err)

	slot, err := ring.Advance(context.Background())
	require.NoError(t, err)
	submitFrame(t, dev, slot)

	slot, err = ring.Advance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, slot.Index)

	old, err := dev.CreateBuffer(gpu.BufferDescriptor{Label: "old-vertices", Size: 16, Usage: gpu.BufferUsageVertex})
	require.NoError(t, err)
	ring.RetirePrevious(old)
	submitFrame(t, dev, slot)
	assert.False(t, old.(*gputest.Buffer).Destroyed)

	// Slot 0 is next: its fence covers the frame that could still read the old buffer.
	_, err = ring.Advance(context.Background())
	require.NoError(t, err)
	assert.True(t, old.(*gputest.Buffer).Destroyed)

	var order []string
	for _, e := range dev.Events {
		if e.Op == "wait-fence" || e.Op == "destroy-buffer" {
			order = append(order, e.Op)
		}
	}
	assert.Equal(t, []string{"wait-fence", "wait-fence", "wait-fence", "destroy-buffer"}, order)
}

func TestRingAdvanceHonoursContext(t *testing.T) {
	ring, err := NewRing(gputest.NewDevice(), 2, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ring.Advance(ctx)
	assert.True(t, errors.Is(err, common.ErrFatal))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRingRelease(t *testing.T) {
	dev := gputest.NewDevice()
	ring, err := NewRing(dev, 2, nil)
	require.NoError(t, err)
	img, err := dev.CreateImage(gpu.ImageDescriptor{Label: "shadow", Width: 8, Height: 8, Layers: 1})
	require.NoError(t, err)
	ring.Retire(1, img)
	ring.Release()
	assert.True(t, img.(*gputest.Image).Destroyed)
	for _, cb := range dev.Commands {
		assert.True(t, cb.Destroyed)
	}
}
