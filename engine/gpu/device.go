// Package gpu defines the explicit device model the renderer is built on: buffers and images with
// manual lifetime, command buffers recorded by the CPU, fences the CPU can wait on, and semaphores
// that order queue operations without CPU involvement.
package gpu

import (
	"context"
)

// BufferUsage describes how a buffer is accessed by the GPU.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageCopySrc
	BufferUsageCopyDst
	// BufferUsageStaging marks a host-visible buffer used only as a copy source for uploads.
	BufferUsageStaging
)

// DescriptorVisible reports whether a buffer with this usage is referenced from the binding table.
// Replacing such a buffer requires the table to be rebuilt.
func (u BufferUsage) DescriptorVisible() bool {
	return u&(BufferUsageUniform|BufferUsageStorage) != 0
}

// ImageFormat is the texel format of an image.
type ImageFormat int

const (
	ImageFormatRGBA8 ImageFormat = iota
	ImageFormatDepth16
	ImageFormatDepth32
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// ImageDescriptor describes an image to create.
type ImageDescriptor struct {
	Label       string
	Width       uint32
	Height      uint32
	Layers      uint32
	Format      ImageFormat
	SampleCount uint32
	// Cube requests a cube-compatible image; Layers must be 6.
	Cube bool
}

// Resource is any GPU object with manual lifetime.
type Resource interface {
	Destroy()
}

// Buffer is a GPU buffer with manual lifetime.
type Buffer interface {
	Label() string
	Size() uint64
	Usage() BufferUsage
	Destroy()
}

// Image is a GPU image (texture or render target) with manual lifetime.
type Image interface {
	Label() string
	Width() uint32
	Height() uint32
	Layers() uint32
	Destroy()
}

// Fence is signalled by the GPU when a submission completes and can be waited on by the CPU.
type Fence interface {
	Destroy()
}

// Semaphore orders one queue operation after another on the GPU timeline.
type Semaphore interface {
	Destroy()
}

// CopyRegion describes a single buffer-to-buffer copy.
type CopyRegion struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// BarrierScope names the consumer a write must become visible to.
type BarrierScope int

const (
	// BarrierTransferToVertex makes transfer writes visible to vertex input.
	BarrierTransferToVertex BarrierScope = iota
	// BarrierTransferToShader makes transfer writes visible to shader reads.
	BarrierTransferToShader
	// BarrierDepthToShader makes depth attachment writes visible to shader sampling.
	BarrierDepthToShader
)

// PassKind identifies the render pass being recorded.
type PassKind int

const (
	PassDirShadow PassKind = iota
	PassPointShadow
	PassMain
	PassUi
)

// PassDescriptor describes a render pass to begin.
// Target is nil for passes that render to the acquired surface image.
type PassDescriptor struct {
	Kind   PassKind
	Target Image
	Layer  uint32
	Clear  bool
}

// Viewport is the rasterization rectangle of a pass. A negative Height flips Y.
type Viewport struct {
	X, Y          float32
	Width, Height float32
}

// Scissor is a clip rectangle in framebuffer pixels.
type Scissor struct {
	X, Y          int32
	Width, Height uint32
}

// PipelineKey selects the pipeline variant for a draw.
type PipelineKey struct {
	Pass PassKind
	Mode uint32
}

// BindingKind is the shader-side type of a binding.
type BindingKind int

const (
	BindingUniform BindingKind = iota
	BindingStorage
	// BindingTextures is an array of sampled RGBA images.
	BindingTextures
	// BindingDepthArrays is an array of layered depth images.
	BindingDepthArrays
	// BindingDepthCubes is an array of cube depth images.
	BindingDepthCubes
)

// Binding is one entry of a binding table. Exactly one of the resource slices is used.
// Image arrays may hold nil entries; backends bind a placeholder in their place.
type Binding struct {
	Slot    uint32
	Kind    BindingKind
	Buffers []Buffer
	Images  []Image
}

// BindingTableDescriptor describes a binding table to create.
type BindingTableDescriptor struct {
	Label    string
	Bindings []Binding
}

// BindingTable is the GPU-visible mapping from shader slots to resources.
type BindingTable interface {
	Destroy()
}

// CommandBuffer records GPU work. A command buffer is recorded once per submission
// and must not be re-recorded until the fence of its previous submission has signalled.
type CommandBuffer interface {
	Begin() error
	CopyBuffer(src, dst Buffer, regions []CopyRegion)
	BufferBarrier(buf Buffer, scope BarrierScope)
	ImageBarrier(img Image, scope BarrierScope)
	BeginPass(desc PassDescriptor)
	SetPipeline(key PipelineKey)
	SetViewport(v Viewport)
	SetScissor(s Scissor)
	PushConstants(data []byte)
	BindTable(t BindingTable)
	Draw(vertices Buffer, firstVertex, vertexCount, firstInstance uint32)
	EndPass()
	End() error
	Destroy()
}

// SubmitInfo describes a queue submission.
type SubmitInfo struct {
	CommandBuffers []CommandBuffer
	Wait           []Semaphore
	Signal         []Semaphore
	Fence          Fence
}

// AcquireStatus is the outcome of acquiring or presenting a surface image.
type AcquireStatus int

const (
	AcquireSuccess AcquireStatus = iota
	AcquireTimeout
	AcquireNotReady
	AcquireSuboptimal
	AcquireOutOfDate
)

// Transient reports whether the status is an expected surface race that should silently drop the frame.
func (s AcquireStatus) Transient() bool {
	switch s {
	case AcquireTimeout, AcquireNotReady, AcquireSuboptimal, AcquireOutOfDate:
		return true
	}
	return false
}

// String returns the status name.
func (s AcquireStatus) String() string {
	switch s {
	case AcquireSuccess:
		return "success"
	case AcquireTimeout:
		return "timeout"
	case AcquireNotReady:
		return "not-ready"
	case AcquireSuboptimal:
		return "suboptimal"
	case AcquireOutOfDate:
		return "out-of-date"
	}
	return "unknown"
}

// SurfaceImage is a presentable image acquired from the surface.
type SurfaceImage interface {
	Index() uint32
}

// SurfaceConfig configures the presentable surface and the main render targets.
type SurfaceConfig struct {
	Width       uint32
	Height      uint32
	Vsync       bool
	SampleCount uint32
}

// Device is an explicit GPU device with a single graphics queue and a presentable surface.
// Creation failures are returned as errors; callers treat them as fatal.
type Device interface {
	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	// MapStaging returns a CPU view of a staging buffer. Writes become visible to the GPU on UnmapStaging.
	MapStaging(buf Buffer) ([]byte, error)
	UnmapStaging(buf Buffer)
	CreateImage(desc ImageDescriptor) (Image, error)
	// CreateTexture creates a sampled RGBA image initialized with pixels.
	CreateTexture(desc ImageDescriptor, pixels []byte) (Image, error)
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateCommandBuffer(label string) (CommandBuffer, error)
	CreateBindingTable(desc BindingTableDescriptor) (BindingTable, error)

	// WaitForFence blocks until the fence signals or ctx is done.
	WaitForFence(ctx context.Context, f Fence) error
	ResetFence(f Fence) error
	Submit(info SubmitInfo) error
	// WaitIdle blocks until every submitted command buffer has completed.
	WaitIdle(ctx context.Context) error

	// AcquireImage requests the next surface image without blocking. signal is signalled when the image is ready.
	AcquireImage(signal Semaphore) (SurfaceImage, AcquireStatus, error)
	Present(img SurfaceImage, wait []Semaphore) (AcquireStatus, error)
	ConfigureSurface(cfg SurfaceConfig) error
	// SupportsVsyncToggle reports whether the surface offers a non-vsync present mode.
	SupportsVsyncToggle() bool

	Release()
}
