// Package shadow manages the lifetime of directional and point shadow maps.
//
// Every shadow map id owns one depth image per frame slot. Marking an id for destruction makes it
// invalid immediately but defers the teardown of each slot's image until that slot comes around in
// the frame ring again. The id itself is recycled only after the last slot has torn down its image.
package shadow

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	// MaxDirMaps is the maximum number of directional shadow maps alive at once.
	MaxDirMaps = 4
	// MaxPointMaps is the maximum number of point shadow maps alive at once.
	MaxPointMaps = 64
)

// Kind distinguishes directional from point shadow maps.
type Kind int

const (
	KindDirectional Kind = iota
	KindPoint
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindPoint {
		return "point"
	}
	return "directional"
}

// MapInfo describes the images of a shadow map.
type MapInfo struct {
	Width  uint32
	Height uint32
	// Layers is the partition count for directional maps and 6 for point maps.
	Layers uint32
}

const noFrame = -1

// pool tracks the ids, images and GPU records of one kind of shadow map.
type pool[T any] struct {
	kind  Kind
	max   int
	count int
	// free is a FIFO of recycled ids.
	free []int
	// freeFrame is the frame id at which a marked id's last slot image is torn down.
	freeFrame []int
	valid     []bool
	info      []MapInfo
	data      []T
	// images is indexed by slot, then id.
	images [][]gpu.Image
	// destroy lists the ids whose image each slot must tear down on its next turn.
	destroy [][]int
}

func newPool[T any](kind Kind, max, frames int) pool[T] {
	p := pool[T]{
		kind:      kind,
		max:       max,
		freeFrame: make([]int, max),
		valid:     make([]bool, max),
		info:      make([]MapInfo, max),
		data:      make([]T, max),
		images:    make([][]gpu.Image, frames),
		destroy:   make([][]int, frames),
	}
	for i := range p.freeFrame {
		p.freeFrame[i] = noFrame
	}
	for s := range p.images {
		p.images[s] = make([]gpu.Image, max)
	}
	return p
}

func (p *pool[T]) checkID(id int) error {
	if id < 0 || id >= p.count || !p.valid[id] {
		return common.Contractf("no valid %s shadow map with id %d", p.kind, id)
	}
	return nil
}

// abandon undoes a partially created map: images already built for earlier slots are destroyed and
// the id goes back where it came from.
func (p *pool[T]) abandon(id int, recycled bool) {
	for slot := range p.images {
		if img := p.images[slot][id]; img != nil {
			img.Destroy()
			p.images[slot][id] = nil
		}
	}
	if recycled {
		p.free = append([]int{id}, p.free...)
		return
	}
	p.count--
}

// Manager owns every shadow map image and the CPU copy of their GPU records.
type Manager struct {
	device gpu.Device
	logger *zap.Logger
	frames int
	dirty  bool

	dir   pool[DirData]
	point pool[PointData]
}

// NewManager creates an empty shadow map manager for a ring of frames slots.
//
// Parameters:
//   - device: the device images are created on
//   - frames: number of frame slots
//   - logger: the logger to use, nil for none
//
// Returns:
//   - *Manager: the new manager
func NewManager(device gpu.Device, frames int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		device: device,
		logger: logger,
		frames: frames,
		dir:    newPool[DirData](KindDirectional, MaxDirMaps, frames),
		point:  newPool[PointData](KindPoint, MaxPointMaps, frames),
	}
}

// CreateDirectional creates a directional shadow map with one layer per cascade.
//
// Parameters:
//   - width, height: resolution of each cascade
//   - partitions: cascade count, 1 to MaxDirPartitions
//
// Returns:
//   - int: the shadow map id
//   - error: a contract violation for a bad partition count or too many maps, or a fatal creation error
func (m *Manager) CreateDirectional(width, height uint32, partitions int) (int, error) {
	if partitions < 1 || partitions > MaxDirPartitions {
		return 0, common.Contractf("directional shadow map needs 1 to %d partitions, got %d", MaxDirPartitions, partitions)
	}
	return create(m, &m.dir, MapInfo{Width: width, Height: height, Layers: uint32(partitions)})
}

// CreatePoint creates a cube shadow map.
//
// Parameters:
//   - resolution: width and height of each cube face
//
// Returns:
//   - int: the shadow map id
//   - error: a contract violation for too many maps, or a fatal creation error
func (m *Manager) CreatePoint(resolution uint32) (int, error) {
	return create(m, &m.point, MapInfo{Width: resolution, Height: resolution, Layers: 6})
}

func create[T any](m *Manager, p *pool[T], info MapInfo) (int, error) {
	if info.Width == 0 || info.Height == 0 {
		return 0, common.Contractf("%s shadow map resolution must be non-zero", p.kind)
	}

	var id int
	recycled := false
	switch {
	case len(p.free) > 0:
		id = p.free[0]
		p.free = p.free[1:]
		recycled = true
	case p.count < p.max:
		id = p.count
		p.count++
	default:
		return 0, common.Contractf("more than %d %s shadow maps", p.max, p.kind)
	}

	for slot := 0; slot < m.frames; slot++ {
		img, err := m.device.CreateImage(gpu.ImageDescriptor{
			Label:       fmt.Sprintf("%s-shadow-%d-slot-%d", p.kind, id, slot),
			Width:       info.Width,
			Height:      info.Height,
			Layers:      info.Layers,
			Format:      gpu.ImageFormatDepth32,
			SampleCount: 1,
			Cube:        p.kind == KindPoint,
		})
		if err != nil {
			p.abandon(id, recycled)
			return 0, common.WrapFatal(err, fmt.Sprintf("failed to create %s shadow map %d", p.kind, id))
		}
		p.images[slot][id] = img
	}

	var zero T
	p.data[id] = zero
	p.info[id] = info
	p.valid[id] = true
	p.freeFrame[id] = noFrame
	m.dirty = true

	m.logger.Debug("shadow map created",
		zap.Stringer("kind", p.kind),
		zap.Int("id", id),
		zap.Uint32("width", info.Width),
		zap.Uint32("height", info.Height),
		zap.Uint32("layers", info.Layers),
	)
	return id, nil
}

// MarkDirectionalForDestroy invalidates a directional shadow map and schedules its teardown.
//
// Parameters:
//   - id: the shadow map id
//   - frameID: the current frame ring slot
//
// Returns:
//   - error: a contract violation if id is not a valid map
func (m *Manager) MarkDirectionalForDestroy(id, frameID int) error {
	return mark(m, &m.dir, id, frameID)
}

// MarkPointForDestroy invalidates a point shadow map and schedules its teardown.
//
// Parameters:
//   - id: the shadow map id
//   - frameID: the current frame ring slot
//
// Returns:
//   - error: a contract violation if id is not a valid map
func (m *Manager) MarkPointForDestroy(id, frameID int) error {
	return mark(m, &m.point, id, frameID)
}

func mark[T any](m *Manager, p *pool[T], id, frameID int) error {
	if err := p.checkID(id); err != nil {
		return err
	}
	p.valid[id] = false
	p.freeFrame[id] = frameID
	for slot := range p.destroy {
		p.destroy[slot] = append(p.destroy[slot], id)
	}
	m.logger.Debug("shadow map marked for destroy", zap.Stringer("kind", p.kind), zap.Int("id", id), zap.Int("frame", frameID))
	return nil
}

// Retire tears down the images scheduled for slot. It must be called right after the slot's fence
// was waited on. An id becomes reusable when the slot that tears down its last image is the slot
// that was current when it was marked, i.e. after a full trip around the ring.
//
// Parameters:
//   - slot: the slot whose fence was just waited on, equal to the current frame id
func (m *Manager) Retire(slot int) {
	retire(m, &m.dir, slot)
	retire(m, &m.point, slot)
}

func retire[T any](m *Manager, p *pool[T], slot int) {
	if len(p.destroy[slot]) == 0 {
		return
	}
	for _, id := range p.destroy[slot] {
		if img := p.images[slot][id]; img != nil {
			img.Destroy()
			p.images[slot][id] = nil
		}
		if p.freeFrame[id] != slot {
			continue
		}
		p.freeFrame[id] = noFrame
		if id == p.count-1 {
			p.count--
		} else {
			p.free = append(p.free, id)
		}
		m.logger.Debug("shadow map id released", zap.Stringer("kind", p.kind), zap.Int("id", id))
	}
	p.destroy[slot] = p.destroy[slot][:0]
	// The slot's binding table still references the destroyed images.
	m.dirty = true
}

// UpdateDirectional recomputes the cascades of a directional shadow map for the current view.
//
// Parameters:
//   - id: the shadow map id
//   - dir: the light direction
//   - view: the camera to partition
//
// Returns:
//   - error: a contract violation if id is not a valid map
func (m *Manager) UpdateDirectional(id int, dir mgl32.Vec3, view View) error {
	if err := m.dir.checkID(id); err != nil {
		return err
	}
	m.dir.data[id] = Cascades(dir, view, int(m.dir.info[id].Layers))
	return nil
}

// UpdatePoint recomputes the cube faces of a point shadow map.
//
// Parameters:
//   - id: the shadow map id
//   - pos: the light position
//   - maxDistance: the light range, must exceed PointNear
//
// Returns:
//   - error: a contract violation if id is not a valid map or the range is too short
func (m *Manager) UpdatePoint(id int, pos mgl32.Vec3, maxDistance float32) error {
	if err := m.point.checkID(id); err != nil {
		return err
	}
	if maxDistance <= PointNear {
		return common.Contractf("point shadow map range %.3f must exceed the near plane %.1f", maxDistance, PointNear)
	}
	m.point.data[id] = CubeFaces(pos, maxDistance)
	return nil
}

// Dirty reports whether images were created or destroyed since the last ClearDirty.
func (m *Manager) Dirty() bool { return m.dirty }

// ClearDirty resets the dirty flag once the binding table was rebuilt.
func (m *Manager) ClearDirty() { m.dirty = false }

// DirCount returns one past the highest directional id in use.
func (m *Manager) DirCount() int { return m.dir.count }

// PointCount returns one past the highest point id in use.
func (m *Manager) PointCount() int { return m.point.count }

// DirValid reports whether id is a live directional shadow map.
func (m *Manager) DirValid(id int) bool { return id >= 0 && id < m.dir.count && m.dir.valid[id] }

// PointValid reports whether id is a live point shadow map.
func (m *Manager) PointValid(id int) bool {
	return id >= 0 && id < m.point.count && m.point.valid[id]
}

// DirInfo returns the image description of a directional shadow map.
func (m *Manager) DirInfo(id int) MapInfo { return m.dir.info[id] }

// PointInfo returns the image description of a point shadow map.
func (m *Manager) PointInfo(id int) MapInfo { return m.point.info[id] }

// DirData returns the GPU record of a directional shadow map.
func (m *Manager) DirData(id int) DirData { return m.dir.data[id] }

// PointData returns the GPU record of a point shadow map.
func (m *Manager) PointData(id int) PointData { return m.point.data[id] }

// DirImage returns the image of a directional shadow map for slot, or nil if torn down.
func (m *Manager) DirImage(slot, id int) gpu.Image { return m.dir.images[slot][id] }

// PointImage returns the image of a point shadow map for slot, or nil if torn down.
func (m *Manager) PointImage(slot, id int) gpu.Image { return m.point.images[slot][id] }

// DirImages returns the directional images of slot for ids [0, DirCount). Torn down entries are nil.
func (m *Manager) DirImages(slot int) []gpu.Image { return m.dir.images[slot][:m.dir.count] }

// PointImages returns the point images of slot for ids [0, PointCount). Torn down entries are nil.
func (m *Manager) PointImages(slot int) []gpu.Image { return m.point.images[slot][:m.point.count] }

// MarshalDir serializes the records of ids [0, DirCount) into buf and returns the written prefix.
func (m *Manager) MarshalDir(buf []byte) []byte {
	n := m.dir.count * DirDataSize
	for id := 0; id < m.dir.count; id++ {
		m.dir.data[id].Marshal(buf[id*DirDataSize:])
	}
	return buf[:n]
}

// MarshalPoint serializes the records of ids [0, PointCount) into buf and returns the written prefix.
func (m *Manager) MarshalPoint(buf []byte) []byte {
	n := m.point.count * PointDataSize
	for id := 0; id < m.point.count; id++ {
		m.point.data[id].Marshal(buf[id*PointDataSize:])
	}
	return buf[:n]
}

// Release destroys every image still alive, marked ones included. The device must be idle.
func (m *Manager) Release() {
	release(&m.dir)
	release(&m.point)
}

func release[T any](p *pool[T]) {
	for slot := range p.images {
		for id, img := range p.images[slot] {
			if img != nil {
				img.Destroy()
				p.images[slot][id] = nil
			}
		}
		p.destroy[slot] = p.destroy[slot][:0]
	}
	p.count = 0
	p.free = nil
	clear(p.valid)
}
