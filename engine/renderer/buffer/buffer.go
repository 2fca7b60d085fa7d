// Package buffer implements the arena-backed GPU buffers the renderer sub-allocates vertex, instance,
// bone, terrain and per-frame data from.
//
// A Buffer owns a device-local GPU buffer, a host-visible staging companion of the same size, and a
// dedicated upload command buffer, fence and semaphore. Every byte the GPU sees is written to the
// staging companion first, so the staging buffer is always a complete CPU image of the GPU buffer.
// This is what lets Grow move live data into a larger buffer without reading GPU memory back.
package buffer

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSize is the initial capacity of every buffer.
const DefaultSize uint64 = 65536

// copyAlignment is the granularity GPU buffer sizes and copies are rounded to.
const copyAlignment uint64 = 4

// Retirer accepts resources that may still be referenced by the previous frame and destroys them
// once that frame's slot has been waited on.
type Retirer interface {
	RetirePrevious(resources ...gpu.Resource)
}

// Write is a pending CPU to GPU write into a Buffer. Data is referenced, not copied, and must stay
// unchanged until the write has been uploaded.
type Write struct {
	Offset uint64
	Data   []byte
}

// Region returns the byte range the write covers.
func (w Write) Region() Range {
	return Range{Offset: w.Offset, Size: uint64(len(w.Data))}
}

// Allocation is an opaque token for a live range of a Buffer.
type Allocation struct {
	buf    *Buffer
	offset uint64
	size   uint64
	serial uint64
}

// Buffer returns the buffer the allocation belongs to.
func (a Allocation) Buffer() *Buffer { return a.buf }

// Size returns the allocation size in bytes.
func (a Allocation) Size() uint64 { return a.size }

// IsZero reports whether the allocation is the zero token.
func (a Allocation) IsZero() bool { return a.buf == nil }

// FirstElement returns the index of the allocation's first element for elements of stride bytes.
// This is the value shaders and draw calls use as a vertex, instance or bone offset.
func (a Allocation) FirstElement(stride uint64) uint32 {
	return uint32(a.offset / stride)
}

// Span returns the absolute byte offset of [offset, offset+length) within the allocation.
//
// Parameters:
//   - offset: byte offset relative to the start of the allocation
//   - length: number of bytes
//
// Returns:
//   - uint64: the absolute buffer offset
//   - error: a contract violation if the span leaves the allocation
func (a Allocation) Span(offset, length uint64) (uint64, error) {
	if a.buf == nil {
		return 0, common.Contractf("span of a zero allocation")
	}
	if offset+length > a.size {
		return 0, common.Contractf("span [%d, %d) outside allocation of %d bytes in %s", offset, offset+length, a.size, a.buf.label)
	}
	return a.offset + offset, nil
}

// Buffer is a GPU buffer whose bytes are sub-allocated through an Arena.
type Buffer struct {
	device gpu.Device
	logger *zap.Logger
	label  string
	usage  gpu.BufferUsage
	arena  *Arena
	size   uint64

	// live maps the offset of each live allocation to its serial, so a stale token for a
	// reused range is rejected.
	live       map[uint64]uint64
	nextSerial uint64

	gpuBuffer gpu.Buffer
	staging   gpu.Buffer

	uploadCmd       gpu.CommandBuffer
	uploadFence     gpu.Fence
	uploadSemaphore gpu.Semaphore

	// growCopies holds the full-buffer copy queued by Grow until the next Upload.
	growCopies []gpu.CopyRegion
}

// NewBuffer creates a buffer and its GPU resources. Failure to create any of them is fatal.
//
// Parameters:
//   - device: the device to create resources on
//   - name: a debug name; a unique suffix is appended for GPU labels
//   - usage: how the GPU accesses the buffer
//   - options: functional options
//
// Returns:
//   - *Buffer: the new buffer
//   - error: a fatal error if a GPU object could not be created
func NewBuffer(device gpu.Device, name string, usage gpu.BufferUsage, options ...BufferOption) (*Buffer, error) {
	b := &Buffer{
		device: device,
		logger: zap.NewNop(),
		label:  fmt.Sprintf("%s-%s", name, uuid.NewString()),
		usage:  usage | gpu.BufferUsageCopyDst,
		arena:  NewArena(),
		size:   DefaultSize,
		live:   make(map[uint64]uint64),
	}
	for _, opt := range options {
		opt(b)
	}
	b.size = common.RoundUp(b.size, copyAlignment)

	var err error
	if b.gpuBuffer, b.staging, err = b.createPair(b.size); err != nil {
		return nil, err
	}
	if b.uploadCmd, err = device.CreateCommandBuffer(b.label + "-upload"); err != nil {
		b.Destroy()
		return nil, common.WrapFatal(err, "failed to create upload command buffer for "+b.label)
	}
	if b.uploadFence, err = device.CreateFence(true); err != nil {
		b.Destroy()
		return nil, common.WrapFatal(err, "failed to create upload fence for "+b.label)
	}
	if b.uploadSemaphore, err = device.CreateSemaphore(); err != nil {
		b.Destroy()
		return nil, common.WrapFatal(err, "failed to create upload semaphore for "+b.label)
	}
	return b, nil
}

func (b *Buffer) createPair(size uint64) (gpu.Buffer, gpu.Buffer, error) {
	dst, err := b.device.CreateBuffer(gpu.BufferDescriptor{Label: b.label, Size: size, Usage: b.usage})
	if err != nil {
		return nil, nil, common.WrapFatal(err, "failed to create buffer "+b.label)
	}
	staging, err := b.device.CreateBuffer(gpu.BufferDescriptor{
		Label: b.label + "-staging",
		Size:  size,
		Usage: gpu.BufferUsageStaging | gpu.BufferUsageCopySrc,
	})
	if err != nil {
		dst.Destroy()
		return nil, nil, common.WrapFatal(err, "failed to create staging buffer for "+b.label)
	}
	return dst, staging, nil
}

// Label returns the debug label of the buffer.
func (b *Buffer) Label() string { return b.label }

// Usage returns the GPU usage of the buffer.
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }

// Size returns the physical capacity of the buffer in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// ReqSize returns the capacity needed to cover every live allocation.
func (b *Buffer) ReqSize() uint64 { return b.arena.ReqSize() }

// GPU returns the current device buffer. It changes when the buffer grows.
func (b *Buffer) GPU() gpu.Buffer { return b.gpuBuffer }

// Arena returns the allocator of the buffer.
func (b *Buffer) Arena() *Arena { return b.arena }

// Allocate reserves size bytes. The buffer grows physically on the next Grow call if needed.
func (b *Buffer) Allocate(size uint64) (Allocation, error) {
	offset, err := b.arena.Allocate(size)
	if err != nil {
		return Allocation{}, err
	}
	b.nextSerial++
	b.live[offset] = b.nextSerial
	return Allocation{buf: b, offset: offset, size: size, serial: b.nextSerial}, nil
}

// Free releases an allocation made by this buffer. Freeing a token twice, or a token whose range
// has since been handed to another allocation, is a contract violation.
func (b *Buffer) Free(a Allocation) error {
	if a.buf != b {
		return common.Contractf("allocation does not belong to %s", b.label)
	}
	if serial, ok := b.live[a.offset]; !ok || serial != a.serial {
		return common.Contractf("allocation [%d, %d) of %s is no longer live", a.offset, a.offset+a.size, b.label)
	}
	if err := b.arena.Free(a.offset, a.size); err != nil {
		return err
	}
	delete(b.live, a.offset)
	return nil
}

// Grow replaces the GPU buffer and staging companion with larger ones when live allocations no
// longer fit. Staged contents are carried over and a full copy into the new GPU buffer is queued
// for the next Upload. The old pair is handed to retirer because a command buffer already
// submitted may still read it.
//
// Parameters:
//   - retirer: receives the replaced GPU and staging buffers
//
// Returns:
//   - bool: true if the buffer was replaced
//   - error: a fatal error if the new buffers could not be created or mapped
func (b *Buffer) Grow(retirer Retirer) (bool, error) {
	reqSize := b.arena.ReqSize()
	if reqSize <= b.size {
		return false, nil
	}
	newSize := common.RoundUp(reqSize, copyAlignment)

	dst, staging, err := b.createPair(newSize)
	if err != nil {
		return false, err
	}

	oldBytes, err := b.device.MapStaging(b.staging)
	if err != nil {
		dst.Destroy()
		staging.Destroy()
		return false, common.WrapFatal(err, "failed to map staging buffer of "+b.label)
	}
	newBytes, err := b.device.MapStaging(staging)
	if err != nil {
		b.device.UnmapStaging(b.staging)
		dst.Destroy()
		staging.Destroy()
		return false, common.WrapFatal(err, "failed to map staging buffer of "+b.label)
	}
	copy(newBytes, oldBytes[:b.size])
	b.device.UnmapStaging(staging)
	b.device.UnmapStaging(b.staging)

	retirer.RetirePrevious(b.gpuBuffer, b.staging)
	b.logger.Debug("buffer grown",
		zap.String("label", b.label),
		zap.Uint64("from", b.size),
		zap.Uint64("to", newSize),
	)

	b.gpuBuffer = dst
	b.staging = staging
	// Only the full copy matters; earlier queued copies targeted the retired buffer.
	b.growCopies = []gpu.CopyRegion{{SrcOffset: 0, DstOffset: 0, Size: b.size}}
	b.size = newSize
	return true, nil
}

// HasPendingCopies reports whether Grow queued a copy that has not been uploaded yet.
func (b *Buffer) HasPendingCopies() bool {
	return len(b.growCopies) > 0
}

// Upload writes data into the staging companion in one mapping session, records one copy region
// per distinct (offset, size) plus any copy queued by Grow, and submits the copy on the buffer's
// upload queue path. The returned semaphore is signalled when the copy is done; the main frame
// submission must wait on it.
//
// The previous upload of this buffer is waited for first, since it may still be reading staging memory.
//
// Parameters:
//   - ctx: bounds the wait on the previous upload
//   - writes: the writes to apply, in request order
//
// Returns:
//   - gpu.Semaphore: the semaphore to wait on, or nil if nothing was submitted
//   - error: a contract violation for out-of-range writes, or a fatal device error
func (b *Buffer) Upload(ctx context.Context, writes []Write) (gpu.Semaphore, error) {
	if len(writes) == 0 && len(b.growCopies) == 0 {
		return nil, nil
	}
	for _, w := range writes {
		if w.Region().End() > b.size {
			return nil, common.Contractf("write [%d, %d) outside %s of %d bytes", w.Offset, w.Region().End(), b.label, b.size)
		}
	}

	if err := b.device.WaitForFence(ctx, b.uploadFence); err != nil {
		return nil, common.WrapFatal(err, "failed waiting for previous upload of "+b.label)
	}
	if err := b.device.ResetFence(b.uploadFence); err != nil {
		return nil, common.WrapFatal(err, "failed to reset upload fence of "+b.label)
	}

	regions := b.growCopies
	b.growCopies = nil
	if len(writes) > 0 {
		mapped, err := b.device.MapStaging(b.staging)
		if err != nil {
			return nil, common.WrapFatal(err, "failed to map staging buffer of "+b.label)
		}
		seen := make(map[Range]struct{}, len(writes))
		for _, w := range writes {
			copy(mapped[w.Offset:], w.Data)
			r := w.Region()
			if _, ok := seen[r]; ok || r.Size == 0 {
				continue
			}
			seen[r] = struct{}{}
			regions = append(regions, gpu.CopyRegion{SrcOffset: r.Offset, DstOffset: r.Offset, Size: r.Size})
		}
		b.device.UnmapStaging(b.staging)
	}

	if err := b.uploadCmd.Begin(); err != nil {
		return nil, common.WrapFatal(err, "failed to begin upload of "+b.label)
	}
	b.uploadCmd.CopyBuffer(b.staging, b.gpuBuffer, regions)
	if b.usage&(gpu.BufferUsageVertex|gpu.BufferUsageIndex) != 0 {
		b.uploadCmd.BufferBarrier(b.gpuBuffer, gpu.BarrierTransferToVertex)
	} else {
		b.uploadCmd.BufferBarrier(b.gpuBuffer, gpu.BarrierTransferToShader)
	}
	if err := b.uploadCmd.End(); err != nil {
		return nil, common.WrapFatal(err, "failed to end upload of "+b.label)
	}

	err := b.device.Submit(gpu.SubmitInfo{
		CommandBuffers: []gpu.CommandBuffer{b.uploadCmd},
		Signal:         []gpu.Semaphore{b.uploadSemaphore},
		Fence:          b.uploadFence,
	})
	if err != nil {
		return nil, common.WrapFatal(err, "failed to submit upload of "+b.label)
	}
	return b.uploadSemaphore, nil
}

// Destroy releases every GPU object owned by the buffer. It must only be called once the device is idle.
func (b *Buffer) Destroy() {
	for _, r := range []gpu.Resource{b.gpuBuffer, b.staging, b.uploadCmd, b.uploadFence, b.uploadSemaphore} {
		if r != nil {
			r.Destroy()
		}
	}
	b.gpuBuffer, b.staging, b.uploadCmd, b.uploadFence, b.uploadSemaphore = nil, nil, nil, nil, nil
}
