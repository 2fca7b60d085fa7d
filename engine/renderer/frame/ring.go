// Package frame implements the ring of per-frame GPU state that lets the CPU record frame k+1
// while the GPU still executes frame k.
package frame

import (
	"context"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"go.uber.org/zap"
)

// MaxFramesInFlight is the largest supported ring size.
const MaxFramesInFlight = 3

// Slot is one set of per-frame resources. A slot is only touched after its fence was waited on.
type Slot struct {
	Index          int
	CommandBuffer  gpu.CommandBuffer
	Fence          gpu.Fence
	ImageAcquired  gpu.Semaphore
	RenderFinished gpu.Semaphore

	retired []gpu.Resource
}

// Ring is a fixed ring of frame slots selected round-robin.
type Ring struct {
	device  gpu.Device
	logger  *zap.Logger
	slots   []*Slot
	frameID int
}

// NewRing creates n slots. Each slot fence starts signalled so the first wait on it returns at once.
//
// Parameters:
//   - device: the device to create slot resources on
//   - n: frames in flight, 1 to MaxFramesInFlight
//   - logger: the logger to use, nil for none
//
// Returns:
//   - *Ring: the new ring
//   - error: a contract violation for an unsupported n, or a fatal creation error
func NewRing(device gpu.Device, n int, logger *zap.Logger) (*Ring, error) {
	if n < 1 || n > MaxFramesInFlight {
		return nil, common.Contractf("frames in flight must be between 1 and %d, got %d", MaxFramesInFlight, n)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Ring{device: device, logger: logger, frameID: n - 1}
	for i := 0; i < n; i++ {
		slot, err := newSlot(device, i)
		if err != nil {
			r.Release()
			return nil, err
		}
		r.slots = append(r.slots, slot)
	}
	return r, nil
}

func newSlot(device gpu.Device, index int) (*Slot, error) {
	s := &Slot{Index: index}
	var err error
	if s.CommandBuffer, err = device.CreateCommandBuffer("frame"); err != nil {
		return nil, common.WrapFatal(err, "failed to create frame command buffer")
	}
	if s.Fence, err = device.CreateFence(true); err != nil {
		s.destroy()
		return nil, common.WrapFatal(err, "failed to create frame fence")
	}
	if s.ImageAcquired, err = device.CreateSemaphore(); err != nil {
		s.destroy()
		return nil, common.WrapFatal(err, "failed to create image acquired semaphore")
	}
	if s.RenderFinished, err = device.CreateSemaphore(); err != nil {
		s.destroy()
		return nil, common.WrapFatal(err, "failed to create render finished semaphore")
	}
	return s, nil
}

func (s *Slot) destroy() {
	s.destroyRetired()
	for _, r := range []gpu.Resource{s.CommandBuffer, s.Fence, s.ImageAcquired, s.RenderFinished} {
		if r != nil {
			r.Destroy()
		}
	}
}

func (s *Slot) destroyRetired() int {
	n := len(s.retired)
	for _, r := range s.retired {
		r.Destroy()
	}
	clear(s.retired)
	s.retired = s.retired[:0]
	return n
}

// Len returns the number of slots.
func (r *Ring) Len() int { return len(r.slots) }

// FrameID returns the index of the current slot.
func (r *Ring) FrameID() int { return r.frameID }

// Current returns the current slot.
func (r *Ring) Current() *Slot { return r.slots[r.frameID] }

// Slot returns the slot at index i.
func (r *Ring) Slot(i int) *Slot { return r.slots[i] }

// Advance moves to the next slot, waits on its fence and destroys the resources retired to it.
// Everything retired to a slot was last referenced by a submission at or before that slot's
// previous frame, so the wait guarantees the GPU is done with it.
//
// Parameters:
//   - ctx: bounds the fence wait
//
// Returns:
//   - *Slot: the slot for the new frame
//   - error: a fatal error if the wait fails
func (r *Ring) Advance(ctx context.Context) (*Slot, error) {
	r.frameID = (r.frameID + 1) % len(r.slots)
	slot := r.slots[r.frameID]
	if err := r.device.WaitForFence(ctx, slot.Fence); err != nil {
		return nil, common.WrapFatal(err, "failed waiting for frame fence")
	}
	if n := slot.destroyRetired(); n > 0 {
		r.logger.Debug("retired resources destroyed", zap.Int("slot", slot.Index), zap.Int("count", n))
	}
	return slot, nil
}

// Retire hands resources to slot i. They are destroyed the next time Advance reaches that slot.
func (r *Ring) Retire(i int, resources ...gpu.Resource) {
	r.slots[i].retired = append(r.slots[i].retired, resources...)
}

// RetirePrevious hands resources to the slot of the previous frame. A submission recorded on any
// slot before the current frame completes no later than that slot's next fence.
func (r *Ring) RetirePrevious(resources ...gpu.Resource) {
	n := len(r.slots)
	r.Retire((r.frameID+n-1)%n, resources...)
}

// Release destroys every slot resource, retired ones included. The device must be idle.
func (r *Ring) Release() {
	for _, s := range r.slots {
		s.destroy()
	}
	r.slots = nil
}
