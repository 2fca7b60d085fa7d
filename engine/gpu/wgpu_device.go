package gpu

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// SurfaceSource provides the platform surface the device presents to.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// wgpuDevice implements Device on WebGPU. WebGPU has no explicit synchronization: fences map to
// queue submission indices, semaphores and barriers are no-ops, and push constants are emulated
// with a dynamically offset uniform buffer in bind group 1.
type wgpuDevice struct {
	mu sync.Mutex

	logger          *zap.Logger
	label           string
	powerPreference wgpu.PowerPreference
	forceFallback   bool
	sources         map[PipelineKey]PipelineSource
	imageCapacity   map[uint32]uint32

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	sampleCount   uint32
	config        SurfaceConfig
	msaaTex       *wgpu.Texture
	msaaView      *wgpu.TextureView
	depthTex      *wgpu.Texture
	depthView     *wgpu.TextureView

	// frameTex is the acquired surface texture, held until Present.
	frameTex   *wgpu.Texture
	frameView  *wgpu.TextureView
	frameIndex uint32

	tableLayout  *wgpu.BindGroupLayout
	tableEntries []tableEntry
	pushLayout   *wgpu.BindGroupLayout
	pushStride   uint64

	placeholderColor *wgpuImage
	placeholderArray *wgpuImage
	placeholderCube  *wgpuImage
	linearSampler    *wgpu.Sampler
	shadowSampler    *wgpu.Sampler

	pipelines map[pipelineKey]*wgpu.RenderPipeline
	missing   map[PipelineKey]bool
	// pending holds fences whose submission has not been observed complete.
	pending map[*wgpuFence]struct{}
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice creates a WebGPU device presenting to the surface of source. The surface is
// unconfigured until ConfigureSurface is called.
//
// Parameters:
//   - source: the window providing the platform surface
//   - options: functional options to configure the device
//
// Returns:
//   - Device: the device
//   - error: a fatal error if no adapter or device could be obtained
func NewWGPUDevice(source SurfaceSource, options ...WGPUDeviceOption) (Device, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		logger:          zap.NewNop(),
		label:           "oxy",
		powerPreference: wgpu.PowerPreferenceHighPerformance,
		sources:         make(map[PipelineKey]PipelineSource),
		imageCapacity:   make(map[uint32]uint32),
		pipelines:       make(map[pipelineKey]*wgpu.RenderPipeline),
		missing:         make(map[PipelineKey]bool),
		pending:         make(map[*wgpuFence]struct{}),
		sampleCount:     1,
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(source.SurfaceDescriptor())

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      d.powerPreference,
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, common.WrapFatal(err, "failed to request adapter")
	}
	d.adapter = adapter

	limits := adapter.GetLimits().Limits
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          d.label,
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		d.Release()
		return nil, common.WrapFatal(err, "failed to request device")
	}
	d.device = device
	d.queue = device.GetQueue()
	d.pushStride = common.RoundUp(uint64(pushBlockSize), max(uint64(limits.MinUniformBufferOffsetAlignment), pushBlockSize))

	if d.pushLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: d.objectLabel("push-layout"),
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   pushBlockSize,
			},
		}},
	}); err != nil {
		d.Release()
		return nil, common.WrapFatal(err, "failed to create push constant layout")
	}
	if err := d.createPlaceholders(); err != nil {
		d.Release()
		return nil, err
	}

	d.logger.Info("webgpu device created",
		zap.String("label", d.label),
		zap.Uint64("push_stride", d.pushStride),
		zap.Int("pipelines", len(d.sources)),
	)
	return d, nil
}

func (d *wgpuDevice) objectLabel(format string, args ...any) string {
	return d.label + "-" + fmt.Sprintf(format, args...)
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := &wgpuBuffer{label: desc.Label, size: desc.Size, usage: desc.Usage}
	if desc.Usage&BufferUsageStaging != 0 {
		b.mirror = make([]byte, desc.Size)
		return b, nil
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.objectLabel("%s", desc.Label),
		Size:  common.RoundUp(max(desc.Size, 4), 4),
		Usage: desc.Usage.native(),
	})
	if err != nil {
		return nil, common.WrapFatal(err, "failed to create buffer "+desc.Label)
	}
	b.buf = buf
	return b, nil
}

func (d *wgpuDevice) MapStaging(buf Buffer) ([]byte, error) {
	b, ok := buf.(*wgpuBuffer)
	if !ok || b.mirror == nil {
		return nil, common.Contractf("buffer %s is not a staging buffer", buf.Label())
	}
	return b.mirror, nil
}

func (d *wgpuDevice) UnmapStaging(Buffer) {}

func (d *wgpuDevice) CreateImage(desc ImageDescriptor) (Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createImage(desc)
}

func (d *wgpuDevice) createImage(desc ImageDescriptor) (*wgpuImage, error) {
	if desc.Cube && desc.Layers != 6 {
		return nil, common.Contractf("cube image %s needs 6 layers, got %d", desc.Label, desc.Layers)
	}
	desc.Layers = max(desc.Layers, 1)
	desc.SampleCount = max(desc.SampleCount, 1)
	img := &wgpuImage{desc: desc, format: desc.Format.native()}

	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment
	if !desc.Format.depth() {
		usage |= wgpu.TextureUsageCopyDst
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: d.objectLabel("%s", desc.Label),
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.Layers,
		},
		MipLevelCount: 1,
		SampleCount:   desc.SampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        img.format,
		Usage:         usage,
	})
	if err != nil {
		return nil, common.WrapFatal(err, "failed to create image "+desc.Label)
	}
	img.tex = tex

	if !desc.Format.depth() {
		if img.view, err = tex.CreateView(nil); err != nil {
			img.Destroy()
			return nil, common.WrapFatal(err, "failed to create view of "+desc.Label)
		}
		return img, nil
	}

	dimension := wgpu.TextureViewDimension2DArray
	if desc.Cube {
		dimension = wgpu.TextureViewDimensionCube
	}
	if img.view, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           d.objectLabel("%s-sampled", desc.Label),
		Format:          img.format,
		Dimension:       dimension,
		MipLevelCount:   1,
		ArrayLayerCount: desc.Layers,
		Aspect:          wgpu.TextureAspectDepthOnly,
	}); err != nil {
		img.Destroy()
		return nil, common.WrapFatal(err, "failed to create view of "+desc.Label)
	}
	for layer := range desc.Layers {
		view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           d.objectLabel("%s-layer-%d", desc.Label, layer),
			Format:          img.format,
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   1,
			BaseArrayLayer:  layer,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectDepthOnly,
		})
		if err != nil {
			img.Destroy()
			return nil, common.WrapFatal(err, "failed to create layer view of "+desc.Label)
		}
		img.layers = append(img.layers, view)
	}
	return img, nil
}

func (d *wgpuDevice) CreateTexture(desc ImageDescriptor, pixels []byte) (Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc.Format = ImageFormatRGBA8
	desc.Layers = 1
	if uint64(len(pixels)) != uint64(desc.Width)*uint64(desc.Height)*4 {
		return nil, common.Contractf("texture %s has %d bytes for %dx%d pixels", desc.Label, len(pixels), desc.Width, desc.Height)
	}
	img, err := d.createImage(desc)
	if err != nil {
		return nil, err
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  img.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  desc.Width * 4,
			RowsPerImage: desc.Height,
		},
		&wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return img, nil
}

func (d *wgpuDevice) CreateFence(signaled bool) (Fence, error) {
	return &wgpuFence{signaled: signaled}, nil
}

func (d *wgpuDevice) CreateSemaphore() (Semaphore, error) {
	return &wgpuSemaphore{}, nil
}

func (d *wgpuDevice) CreateCommandBuffer(label string) (CommandBuffer, error) {
	return &wgpuCommandBuffer{label: label}, nil
}

func (d *wgpuDevice) WaitForFence(ctx context.Context, f Fence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	fence := f.(*wgpuFence)
	if fence.signaled {
		return nil
	}
	if !fence.pending {
		return common.Contractf("waiting on a fence that was never submitted")
	}
	d.device.Poll(true, &wgpu.WrappedSubmissionIndex{Queue: d.queue, SubmissionIndex: fence.index})
	fence.signaled, fence.pending = true, false
	delete(d.pending, fence)
	return nil
}

func (d *wgpuDevice) ResetFence(f Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fence := f.(*wgpuFence)
	if fence.pending {
		return common.Contractf("resetting a fence with an outstanding submission")
	}
	fence.signaled = false
	return nil
}

func (d *wgpuDevice) Submit(info SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: d.objectLabel("submit")})
	if err != nil {
		return common.WrapFatal(err, "failed to create command encoder")
	}
	defer enc.Release()

	for _, cb := range info.CommandBuffers {
		c := cb.(*wgpuCommandBuffer)
		if c.recording {
			return common.Contractf("command buffer %s submitted while recording", c.label)
		}
		if err := d.writeStaged(c); err != nil {
			return err
		}
		if err := d.writePushes(c); err != nil {
			return err
		}
		if err := d.encode(enc, c); err != nil {
			return err
		}
	}

	cmd, err := enc.Finish(nil)
	if err != nil {
		return common.WrapFatal(err, "failed to finish command encoder")
	}
	defer cmd.Release()
	index := d.queue.Submit(cmd)

	if info.Fence != nil {
		fence := info.Fence.(*wgpuFence)
		fence.signaled, fence.pending, fence.index = false, true, index
		d.pending[fence] = struct{}{}
	}
	return nil
}

func (d *wgpuDevice) WaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.device.Poll(true, nil)
	for f := range d.pending {
		f.signaled, f.pending = true, false
		delete(d.pending, f)
	}
	return nil
}

// AcquireImage gets the current surface texture. WebGPU reports every acquisition failure
// (timeout, outdated or lost surface) the same way, so all of them are out of date: the caller
// reconfigures the surface and drops the frame.
func (d *wgpuDevice) AcquireImage(Semaphore) (SurfaceImage, AcquireStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTex != nil {
		return nil, AcquireNotReady, nil
	}
	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		d.logger.Debug("surface texture unavailable", zap.Error(err))
		return nil, AcquireOutOfDate, nil
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, AcquireSuccess, common.WrapFatal(err, "failed to create surface view")
	}
	d.frameTex, d.frameView = tex, view
	d.frameIndex++
	return wgpuSurfaceImage{index: d.frameIndex}, AcquireSuccess, nil
}

func (d *wgpuDevice) Present(img SurfaceImage, _ []Semaphore) (AcquireStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTex == nil || img.Index() != d.frameIndex {
		return AcquireSuccess, common.Contractf("presenting surface image %d that is not acquired", img.Index())
	}
	d.surface.Present()
	d.releaseFrame()
	return AcquireSuccess, nil
}

func (d *wgpuDevice) releaseFrame() {
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameTex != nil {
		d.frameTex.Release()
		d.frameTex = nil
	}
}

// ConfigureSurface configures the surface and recreates the main depth target and, when
// SampleCount is above one, the multisampled color target. Pipelines are rebuilt on next use if
// the surface format or sample count changed.
func (d *wgpuDevice) ConfigureSurface(cfg SurfaceConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cfg.Width == 0 || cfg.Height == 0 {
		return common.Contractf("surface configured with zero extent %dx%d", cfg.Width, cfg.Height)
	}
	cfg.SampleCount = max(cfg.SampleCount, 1)

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 {
		return common.Fatalf("surface reports no formats")
	}
	format := capabilities.Formats[0]
	if format != d.surfaceFormat || cfg.SampleCount != d.sampleCount {
		d.releasePipelines()
	}
	d.surfaceFormat, d.sampleCount, d.config = format, cfg.SampleCount, cfg

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		PresentMode: d.presentMode(capabilities.PresentModes, cfg.Vsync),
		AlphaMode:   capabilities.AlphaModes[0],
	})

	d.releaseTargets()
	if cfg.SampleCount > 1 {
		tex, view, err := d.createTarget("msaa", cfg, format)
		if err != nil {
			return err
		}
		d.msaaTex, d.msaaView = tex, view
	}
	tex, view, err := d.createTarget("depth", cfg, mainDepthFormat)
	if err != nil {
		return err
	}
	d.depthTex, d.depthView = tex, view

	d.logger.Debug("surface configured",
		zap.Uint32("width", cfg.Width),
		zap.Uint32("height", cfg.Height),
		zap.Bool("vsync", cfg.Vsync),
		zap.Uint32("samples", cfg.SampleCount),
	)
	return nil
}

// presentMode picks Fifo for vsync, otherwise the first tearing mode the surface offers.
func (d *wgpuDevice) presentMode(modes []wgpu.PresentMode, vsync bool) wgpu.PresentMode {
	if vsync {
		return wgpu.PresentModeFifo
	}
	for _, m := range []wgpu.PresentMode{wgpu.PresentModeImmediate, wgpu.PresentModeMailbox} {
		if slices.Contains(modes, m) {
			return m
		}
	}
	return wgpu.PresentModeFifo
}

func (d *wgpuDevice) createTarget(name string, cfg SurfaceConfig, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: d.objectLabel("%s-target", name),
		Size: wgpu.Extent3D{
			Width:              cfg.Width,
			Height:             cfg.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   cfg.SampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, common.WrapFatal(err, "failed to create "+name+" target")
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, common.WrapFatal(err, "failed to create "+name+" target view")
	}
	return tex, view, nil
}

func (d *wgpuDevice) releaseTargets() {
	for _, v := range []**wgpu.TextureView{&d.msaaView, &d.depthView} {
		if *v != nil {
			(*v).Release()
			*v = nil
		}
	}
	for _, t := range []**wgpu.Texture{&d.msaaTex, &d.depthTex} {
		if *t != nil {
			(*t).Release()
			*t = nil
		}
	}
}

func (d *wgpuDevice) SupportsVsyncToggle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	modes := d.surface.GetCapabilities(d.adapter).PresentModes
	return slices.Contains(modes, wgpu.PresentModeImmediate) || slices.Contains(modes, wgpu.PresentModeMailbox)
}

// Release destroys every object the device owns. Resources handed out to callers must be
// destroyed before.
func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseFrame()
	d.releasePipelines()
	d.releaseTargets()
	for _, img := range []*wgpuImage{d.placeholderColor, d.placeholderArray, d.placeholderCube} {
		if img != nil {
			img.Destroy()
		}
	}
	for _, s := range []*wgpu.Sampler{d.linearSampler, d.shadowSampler} {
		if s != nil {
			s.Release()
		}
	}
	for _, l := range []*wgpu.BindGroupLayout{d.tableLayout, d.pushLayout} {
		if l != nil {
			l.Release()
		}
	}
	if d.queue != nil {
		d.queue.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
	d.placeholderColor, d.placeholderArray, d.placeholderCube = nil, nil, nil
	d.linearSampler, d.shadowSampler, d.tableLayout, d.pushLayout = nil, nil, nil, nil
	d.queue, d.device, d.adapter, d.surface, d.instance = nil, nil, nil, nil, nil
	d.logger.Debug("webgpu device released", zap.String("label", d.label))
}
