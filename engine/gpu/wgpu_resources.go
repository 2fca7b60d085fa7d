package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBuffer is a device buffer. Staging buffers have no GPU object: WebGPU exposes no persistently
// mapped memory, so their bytes live on the host and copies out of them become queue writes.
type wgpuBuffer struct {
	label  string
	size   uint64
	usage  BufferUsage
	buf    *wgpu.Buffer
	mirror []byte
}

var _ Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string      { return b.label }
func (b *wgpuBuffer) Size() uint64       { return b.size }
func (b *wgpuBuffer) Usage() BufferUsage { return b.usage }

func (b *wgpuBuffer) Destroy() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
	b.mirror = nil
}

func (u BufferUsage) native() wgpu.BufferUsage {
	usage := wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	if u&BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if u&BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if u&BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	if u&BufferUsageStorage != 0 {
		usage |= wgpu.BufferUsageStorage
	}
	return usage
}

// wgpuImage is a texture with one sampling view and, for render targets, one view per layer.
type wgpuImage struct {
	desc   ImageDescriptor
	format wgpu.TextureFormat
	tex    *wgpu.Texture
	view   *wgpu.TextureView
	layers []*wgpu.TextureView
}

var _ Image = &wgpuImage{}

func (i *wgpuImage) Label() string  { return i.desc.Label }
func (i *wgpuImage) Width() uint32  { return i.desc.Width }
func (i *wgpuImage) Height() uint32 { return i.desc.Height }
func (i *wgpuImage) Layers() uint32 { return i.desc.Layers }

func (i *wgpuImage) Destroy() {
	for _, v := range i.layers {
		v.Release()
	}
	i.layers = nil
	if i.view != nil {
		i.view.Release()
		i.view = nil
	}
	if i.tex != nil {
		i.tex.Release()
		i.tex = nil
	}
}

func (f ImageFormat) native() wgpu.TextureFormat {
	switch f {
	case ImageFormatDepth16:
		return wgpu.TextureFormatDepth16Unorm
	case ImageFormatDepth32:
		return wgpu.TextureFormatDepth32Float
	}
	return wgpu.TextureFormatRGBA8Unorm
}

func (f ImageFormat) depth() bool {
	return f == ImageFormatDepth16 || f == ImageFormatDepth32
}

// wgpuFence tracks the queue submission that signals it.
type wgpuFence struct {
	signaled bool
	pending  bool
	index    wgpu.SubmissionIndex
}

func (f *wgpuFence) Destroy() {}

// wgpuSemaphore has no GPU object. WebGPU executes submissions and presentation in queue order,
// which is the ordering semaphores express.
type wgpuSemaphore struct{}

func (s *wgpuSemaphore) Destroy() {}

type wgpuTable struct {
	group *wgpu.BindGroup
}

func (t *wgpuTable) Destroy() {
	if t.group != nil {
		t.group.Release()
		t.group = nil
	}
}

type wgpuSurfaceImage struct {
	index uint32
}

func (s wgpuSurfaceImage) Index() uint32 { return s.index }
