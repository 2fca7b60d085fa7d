package renderer

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/light"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/frame"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/shadow"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/upload"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// DefaultFramesInFlight is the ring size used when WithFramesInFlight is not given.
const DefaultFramesInFlight = 2

// Camera is the view the renderer culls against and partitions directional shadows for.
type Camera interface {
	shadow.View

	// Position returns the world-space eye position.
	Position() mgl32.Vec3

	// Up returns the world-space up vector.
	Up() mgl32.Vec3

	// ViewMatrix returns the world to view transform.
	ViewMatrix() mgl32.Mat4

	// ViewProjection returns the world to clip transform.
	ViewProjection() mgl32.Mat4
}

// VertexFormat identifies a vertex buffer. Allocations of one format share a buffer, so their
// offsets are always multiples of Stride.
type VertexFormat struct {
	Name   string
	Stride uint64
}

// FrameStats counts frames handled by UpdateAndRender.
type FrameStats struct {
	// Rendered is the number of submitted frames.
	Rendered uint64
	// Dropped is the number of frames abandoned on a transient surface status or a minimized window.
	Dropped uint64
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns every GPU resource: callers only hold allocation tokens and integer ids.
// It is driven from a single goroutine; all methods must be called from the goroutine that calls UpdateAndRender.
type Renderer interface {
	// RequestVertexAllocation reserves room for count vertices of the given format.
	//
	// Parameters:
	//   - format: the vertex format, which selects the buffer
	//   - count: number of vertices
	//
	// Returns:
	//   - buffer.Allocation: the allocation; its FirstElement(format.Stride) is the vertex offset for Draw
	//   - error: a contract violation for a zero count or stride, or a fatal creation error
	RequestVertexAllocation(format VertexFormat, count uint32) (buffer.Allocation, error)

	// RequestInstanceAllocation reserves count instance records.
	//
	// Parameters:
	//   - count: number of instances
	//
	// Returns:
	//   - buffer.Allocation: the allocation; its FirstElement(InstanceDataSize) is the instance id for Draw
	//   - error: a contract violation for a zero count
	RequestInstanceAllocation(count uint32) (buffer.Allocation, error)

	// RequestBoneAllocation reserves count bone transforms.
	//
	// Parameters:
	//   - count: number of bones
	//
	// Returns:
	//   - buffer.Allocation: the allocation; its FirstElement(64) is the bone offset of InstanceData
	//   - error: a contract violation for a zero count
	RequestBoneAllocation(count uint32) (buffer.Allocation, error)

	// RequestTerrainAllocation reserves size bytes of terrain data.
	//
	// Parameters:
	//   - size: number of bytes
	//
	// Returns:
	//   - buffer.Allocation: the allocation
	//   - error: a contract violation for a zero size
	RequestTerrainAllocation(size uint64) (buffer.Allocation, error)

	// FreeVertexAllocation releases a vertex allocation.
	FreeVertexAllocation(alloc buffer.Allocation) error

	// FreeInstanceAllocation releases an instance allocation.
	FreeInstanceAllocation(alloc buffer.Allocation) error

	// FreeBoneAllocation releases a bone allocation.
	FreeBoneAllocation(alloc buffer.Allocation) error

	// FreeTerrainAllocation releases a terrain allocation.
	FreeTerrainAllocation(alloc buffer.Allocation) error

	// UpdateVertexData queues a write of raw vertex bytes into an allocation.
	// data is referenced, not copied, and must stay unchanged until the next UpdateAndRender.
	//
	// Parameters:
	//   - alloc: the vertex allocation
	//   - offset: byte offset within the allocation
	//   - data: the vertex bytes
	//
	// Returns:
	//   - error: a contract violation if the write leaves the allocation
	UpdateVertexData(alloc buffer.Allocation, offset uint64, data []byte) error

	// UpdateInstanceData queues a write of one instance record.
	//
	// Parameters:
	//   - alloc: the instance allocation
	//   - index: the instance index within the allocation
	//   - data: the record
	//
	// Returns:
	//   - error: a contract violation if index is outside the allocation
	UpdateInstanceData(alloc buffer.Allocation, index uint32, data InstanceData) error

	// UpdateBoneData queues a write of bone transforms starting at bone first of the allocation.
	//
	// Parameters:
	//   - alloc: the bone allocation
	//   - first: the first bone index within the allocation
	//   - transforms: the bone matrices
	//
	// Returns:
	//   - error: a contract violation if the write leaves the allocation
	UpdateBoneData(alloc buffer.Allocation, first uint32, transforms []mgl32.Mat4) error

	// UpdateTerrainData queues a write of terrain bytes. data is referenced, not copied.
	//
	// Parameters:
	//   - alloc: the terrain allocation
	//   - offset: byte offset within the allocation
	//   - data: the terrain bytes
	//
	// Returns:
	//   - error: a contract violation if the write leaves the allocation
	UpdateTerrainData(alloc buffer.Allocation, offset uint64, data []byte) error

	// LoadTexture loads one texture. See LoadTextures.
	LoadTexture(name string) (uint32, error)

	// LoadTextures loads textures relative to the texture root and returns their ids.
	// Files already loaded return their existing id. Adding new files rebuilds the binding table on the next frame.
	//
	// Parameters:
	//   - names: the file names
	//
	// Returns:
	//   - []uint32: one texture id per name
	//   - error: a decode error, or a fatal error if an image could not be created
	LoadTextures(names []string) ([]uint32, error)

	// LoadNormalMap loads one normal map. See LoadNormalMaps.
	LoadNormalMap(name string) (uint32, error)

	// LoadNormalMaps loads normal maps relative to the texture root and returns their ids.
	LoadNormalMaps(names []string) ([]uint32, error)

	// AddDirLight adds a directional light and, if it casts a shadow, its shadow map.
	//
	// Parameters:
	//   - l: the light; ShadowMapID is assigned by the renderer
	//
	// Returns:
	//   - int: the light id
	//   - error: a contract violation when a table is full or the cascade count is unsupported
	AddDirLight(l light.Directional) (int, error)

	// UpdateDirLight replaces a directional light. A changed shadow configuration retires the old
	// shadow map and creates a new one.
	UpdateDirLight(id int, l light.Directional) error

	// RemoveDirLight removes a directional light and retires its shadow map.
	RemoveDirLight(id int) error

	// AddPointLight adds a point light and, if it casts a shadow, its cube shadow map.
	//
	// Parameters:
	//   - l: the light; ShadowMapID is assigned by the renderer
	//
	// Returns:
	//   - int: the light id
	//   - error: a contract violation when a table is full or the range is too short for a shadow
	AddPointLight(l light.Point) (int, error)

	// UpdatePointLight replaces a point light and recomputes its cube faces.
	UpdatePointLight(id int, l light.Point) error

	// RemovePointLight removes a point light and retires its shadow map.
	RemovePointLight(id int) error

	// DirLight returns a live directional light.
	DirLight(id int) (light.Directional, bool)

	// PointLight returns a live point light.
	PointLight(id int) (light.Point, bool)

	// Draw queues a 3D batch for the current frame.
	//
	// Returns:
	//   - error: a contract violation when the batch queue is full
	Draw(b batch.RenderBatch) error

	// DrawUi queues a UI batch for the current frame.
	//
	// Returns:
	//   - error: a contract violation when the UI batch queue is full
	DrawUi(b batch.RenderBatchUi) error

	// UpdateAndRender renders one frame: it advances the frame ring, applies queued uploads and
	// resource changes, records the shadow, main and UI passes, submits and presents.
	// A frame the surface cannot take right now is dropped without an error.
	//
	// Parameters:
	//   - ctx: bounds every CPU wait of the frame
	//   - data: per-frame shader values
	//   - cam: the camera to render from
	//
	// Returns:
	//   - error: a fatal error or contract violation; the renderer must not be used afterwards
	UpdateAndRender(ctx context.Context, data RenderData, cam Camera) error

	// OnWindowResize reconfigures the surface. A zero size drops frames until a non-zero size arrives.
	OnWindowResize(ctx context.Context, width, height uint32) error

	// OnSceneLoad waits for the device to go idle, replaces the font atlases and heightmaps and
	// rebuilds the binding table.
	OnSceneLoad(ctx context.Context, data SceneInitData) error

	// SetSampleCount changes the MSAA sample count of the main targets.
	//
	// Parameters:
	//   - ctx: bounds the device idle wait
	//   - n: 1, 2, 4 or 8
	//
	// Returns:
	//   - error: a contract violation for an unsupported count, or a fatal configuration error
	SetSampleCount(ctx context.Context, n uint32) error

	// EnableVsync switches vsync.
	//
	// Returns:
	//   - bool: false if the surface cannot present without vsync
	//   - error: a fatal configuration error
	EnableVsync(enable bool) (bool, error)

	// Stats returns the frame counters.
	Stats() FrameStats

	// Close waits for the device to go idle and destroys every resource the renderer owns.
	Close(ctx context.Context) error
}

// slotData is the per-slot mirror of the light and shadow buffers plus their upload scratch.
// Scratch memory is referenced by queued uploads until the frame's flush returns.
type slotData struct {
	common      *buffer.Buffer
	dirLights   *buffer.Buffer
	dirValid    *buffer.Buffer
	pointLights *buffer.Buffer
	pointValid  *buffer.Buffer
	dirShadow   *buffer.Buffer
	pointShadow *buffer.Buffer

	commonBytes      []byte
	dirLightBytes    []byte
	pointLightBytes  []byte
	dirShadowBytes   []byte
	pointShadowBytes []byte
}

func (s *slotData) buffers() []*buffer.Buffer {
	return []*buffer.Buffer{s.common, s.dirLights, s.dirValid, s.pointLights, s.pointValid, s.dirShadow, s.pointShadow}
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	device gpu.Device
	logger *zap.Logger

	framesInFlight  int
	sampleCount     uint32
	vsync           bool
	width, height   uint32
	minimized       bool
	batchCapacity   int
	uiBatchCapacity int
	textureRoot     string
	decodeWorkers   int

	ring     *frame.Ring
	uploads  *upload.Queue
	shadows  *shadow.Manager
	bindings bind_group_provider.BindGroupProvider
	batches  *batch.Queue

	dirLights   *light.Table[light.Directional]
	pointLights *light.Table[light.Point]

	vertexBuffers map[VertexFormat]*buffer.Buffer
	vertexOrder   []VertexFormat
	instances     *buffer.Buffer
	bones         *buffer.Buffer
	terrain       *buffer.Buffer
	slots         []slotData

	textures   *texture.Collection
	normalMaps *texture.Collection
	fonts      []gpu.Image
	heightmaps []gpu.Image
	terrainX   float32
	terrainZ   float32

	// pendingWaits holds upload semaphores of abandoned frames; the next submission waits on them.
	pendingWaits []gpu.Semaphore
	stats        FrameStats
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on device and configures its surface.
//
// Parameters:
//   - device: the GPU device, typically created with gpu.NewWGPUDevice
//   - width, height: the initial surface size in pixels
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the new renderer
//   - error: a contract violation for bad options, or a fatal error if a GPU object could not be created
func NewRenderer(device gpu.Device, width, height uint32, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		device:          device,
		logger:          zap.NewNop(),
		framesInFlight:  DefaultFramesInFlight,
		sampleCount:     1,
		vsync:           true,
		width:           width,
		height:          height,
		minimized:       width == 0 || height == 0,
		batchCapacity:   batch.DefaultCapacity,
		uiBatchCapacity: batch.DefaultUiCapacity,
		decodeWorkers:   4,
		vertexBuffers:   make(map[VertexFormat]*buffer.Buffer),
	}
	for _, opt := range options {
		opt(r)
	}
	if err := validSampleCount(r.sampleCount); err != nil {
		return nil, err
	}

	var err error
	if r.ring, err = frame.NewRing(device, r.framesInFlight, r.logger); err != nil {
		return nil, err
	}
	r.uploads = upload.NewQueue(r.logger)
	r.shadows = shadow.NewManager(device, r.framesInFlight, r.logger)
	r.bindings = bind_group_provider.NewBindGroupProvider(device, r.framesInFlight,
		bind_group_provider.WithLabel("frame-bindings"),
		bind_group_provider.WithLogger(r.logger),
	)
	r.batches = batch.NewQueue(r.batchCapacity, r.uiBatchCapacity)
	r.dirLights = light.NewTable[light.Directional]("directional", light.MaxDirLights, r.framesInFlight)
	r.pointLights = light.NewTable[light.Point]("point", light.MaxPointLights, r.framesInFlight)
	r.textures = texture.NewCollection(device, "texture",
		texture.WithRoot(r.textureRoot),
		texture.WithWorkers(r.decodeWorkers),
		texture.WithLogger(r.logger),
	)
	r.normalMaps = texture.NewCollection(device, "normal-map",
		texture.WithRoot(r.textureRoot),
		texture.WithWorkers(r.decodeWorkers),
		texture.WithLogger(r.logger),
	)

	if err := r.createBuffers(); err != nil {
		r.release()
		return nil, err
	}
	if !r.minimized {
		if err := r.configureSurface(); err != nil {
			r.release()
			return nil, err
		}
	}

	r.logger.Info("renderer created",
		zap.Int("frames_in_flight", r.framesInFlight),
		zap.Uint32("width", width),
		zap.Uint32("height", height),
		zap.Uint32("sample_count", r.sampleCount),
		zap.Bool("vsync", r.vsync),
	)
	return r, nil
}

func (r *renderer) createBuffers() error {
	var err error
	shared := func(name string, usage gpu.BufferUsage) (*buffer.Buffer, error) {
		b, err := buffer.NewBuffer(r.device, name, usage, buffer.WithLogger(r.logger))
		if err != nil {
			return nil, err
		}
		r.uploads.Track(b)
		return b, nil
	}
	if r.instances, err = shared("instances", gpu.BufferUsageStorage); err != nil {
		return err
	}
	if r.bones, err = shared("bones", gpu.BufferUsageStorage); err != nil {
		return err
	}
	if r.terrain, err = shared("terrain", gpu.BufferUsageStorage); err != nil {
		return err
	}

	dirLightSize := light.MaxDirLights * light.DirectionalSize
	pointLightSize := light.MaxPointLights * light.PointSize
	dirShadowSize := shadow.MaxDirMaps * shadow.DirDataSize
	pointShadowSize := shadow.MaxPointMaps * shadow.PointDataSize

	r.slots = make([]slotData, r.framesInFlight)
	for i := range r.slots {
		s := &r.slots[i]
		fixed := func(name string, usage gpu.BufferUsage, size int) *buffer.Buffer {
			if err != nil {
				return nil
			}
			var b *buffer.Buffer
			b, err = buffer.NewBuffer(r.device, fmt.Sprintf("%s-slot-%d", name, i), usage,
				buffer.WithInitialSize(uint64(size)),
				buffer.WithLogger(r.logger),
			)
			return b
		}
		s.common = fixed("common", gpu.BufferUsageUniform, commonDataSize)
		s.dirLights = fixed("dir-lights", gpu.BufferUsageStorage, dirLightSize)
		s.dirValid = fixed("dir-lights-valid", gpu.BufferUsageStorage, common.RoundUp(light.MaxDirLights, 4))
		s.pointLights = fixed("point-lights", gpu.BufferUsageStorage, pointLightSize)
		s.pointValid = fixed("point-lights-valid", gpu.BufferUsageStorage, common.RoundUp(light.MaxPointLights, 4))
		s.dirShadow = fixed("dir-shadow-data", gpu.BufferUsageStorage, dirShadowSize)
		s.pointShadow = fixed("point-shadow-data", gpu.BufferUsageStorage, pointShadowSize)
		if err != nil {
			return err
		}
		s.commonBytes = make([]byte, commonDataSize)
		s.dirLightBytes = make([]byte, dirLightSize)
		s.pointLightBytes = make([]byte, pointLightSize)
		s.dirShadowBytes = make([]byte, dirShadowSize)
		s.pointShadowBytes = make([]byte, pointShadowSize)
	}
	return nil
}

func validSampleCount(n uint32) error {
	switch n {
	case 1, 2, 4, 8:
		return nil
	}
	return common.Contractf("unsupported sample count %d", n)
}

func (r *renderer) configureSurface() error {
	err := r.device.ConfigureSurface(gpu.SurfaceConfig{
		Width:       r.width,
		Height:      r.height,
		Vsync:       r.vsync,
		SampleCount: r.sampleCount,
	})
	if err != nil {
		r.logger.Error("surface configuration failed", zap.Error(err))
		return common.WrapFatal(err, "failed to configure surface")
	}
	r.logger.Info("surface configured",
		zap.Uint32("width", r.width),
		zap.Uint32("height", r.height),
		zap.Uint32("sample_count", r.sampleCount),
		zap.Bool("vsync", r.vsync),
	)
	return nil
}

func (r *renderer) OnWindowResize(ctx context.Context, width, height uint32) error {
	r.width, r.height = width, height
	if width == 0 || height == 0 {
		r.minimized = true
		return nil
	}
	r.minimized = false
	if err := r.device.WaitIdle(ctx); err != nil {
		return common.WrapFatal(err, "failed waiting for device idle before resize")
	}
	return r.configureSurface()
}

func (r *renderer) SetSampleCount(ctx context.Context, n uint32) error {
	if err := validSampleCount(n); err != nil {
		return err
	}
	if n == r.sampleCount {
		return nil
	}
	if err := r.device.WaitIdle(ctx); err != nil {
		return common.WrapFatal(err, "failed waiting for device idle before sample count change")
	}
	r.sampleCount = n
	if r.minimized {
		return nil
	}
	return r.configureSurface()
}

func (r *renderer) EnableVsync(enable bool) (bool, error) {
	if !r.device.SupportsVsyncToggle() {
		return false, nil
	}
	if enable == r.vsync {
		return true, nil
	}
	r.vsync = enable
	if r.minimized {
		return true, nil
	}
	return true, r.configureSurface()
}

func (r *renderer) OnSceneLoad(ctx context.Context, data SceneInitData) error {
	if err := r.device.WaitIdle(ctx); err != nil {
		return common.WrapFatal(err, "failed waiting for device idle before scene load")
	}
	destroyImages(r.fonts)
	destroyImages(r.heightmaps)
	r.fonts, r.heightmaps = nil, nil

	for i, f := range data.Fonts {
		img, err := r.createImage(fmt.Sprintf("font-%d-%s", i, f.Name), f.Atlas)
		if err != nil {
			return err
		}
		r.fonts = append(r.fonts, img)
	}
	for i, h := range data.Heightmaps {
		img, err := r.createImage(fmt.Sprintf("heightmap-%d", i), h)
		if err != nil {
			return err
		}
		r.heightmaps = append(r.heightmaps, img)
	}
	r.terrainX = data.TerrainPatchSizeX
	r.terrainZ = data.TerrainPatchSizeZ

	r.bindings.MarkDirty()
	if _, err := r.bindings.Rebuild(ctx, r); err != nil {
		return err
	}
	r.logger.Debug("scene loaded", zap.Int("fonts", len(r.fonts)), zap.Int("heightmaps", len(r.heightmaps)))
	return nil
}

func (r *renderer) createImage(label string, data common.TextureStagingData) (gpu.Image, error) {
	img, err := r.device.CreateTexture(gpu.ImageDescriptor{
		Label:       label,
		Width:       data.Width,
		Height:      data.Height,
		Layers:      1,
		Format:      gpu.ImageFormatRGBA8,
		SampleCount: 1,
	}, data.Pixels)
	if err != nil {
		return nil, common.WrapFatal(err, "failed to create "+label)
	}
	return img, nil
}

func destroyImages(images []gpu.Image) {
	for _, img := range images {
		img.Destroy()
	}
}

func (r *renderer) Draw(b batch.RenderBatch) error {
	if b.Buffer == nil {
		return common.Contractf("%s batch without a vertex buffer", b.Mode)
	}
	return r.batches.Draw(b)
}

func (r *renderer) DrawUi(b batch.RenderBatchUi) error {
	if b.Buffer == nil {
		return common.Contractf("%s ui batch without a vertex buffer", b.Mode)
	}
	return r.batches.DrawUi(b)
}

func (r *renderer) Stats() FrameStats {
	return r.stats
}

func (r *renderer) Close(ctx context.Context) error {
	if err := r.device.WaitIdle(ctx); err != nil {
		return common.WrapFatal(err, "failed waiting for device idle on close")
	}
	r.release()
	r.logger.Info("renderer closed", zap.Uint64("frames", r.stats.Rendered), zap.Uint64("dropped", r.stats.Dropped))
	return nil
}

// release destroys everything created so far. The device must be idle.
func (r *renderer) release() {
	if r.bindings != nil {
		r.bindings.Release()
	}
	if r.shadows != nil {
		r.shadows.Release()
	}
	for _, s := range r.slots {
		for _, b := range s.buffers() {
			if b != nil {
				b.Destroy()
			}
		}
	}
	r.slots = nil
	for _, f := range r.vertexOrder {
		r.vertexBuffers[f].Destroy()
	}
	clear(r.vertexBuffers)
	r.vertexOrder = nil
	for _, b := range []*buffer.Buffer{r.instances, r.bones, r.terrain} {
		if b != nil {
			b.Destroy()
		}
	}
	r.instances, r.bones, r.terrain = nil, nil, nil
	if r.textures != nil {
		r.textures.Release()
	}
	if r.normalMaps != nil {
		r.normalMaps.Release()
	}
	destroyImages(r.fonts)
	destroyImages(r.heightmaps)
	r.fonts, r.heightmaps = nil, nil
	if r.ring != nil {
		r.ring.Release()
	}
}
