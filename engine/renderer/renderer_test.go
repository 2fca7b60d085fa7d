package renderer

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-core/engine/light"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/buffer"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCamera struct {
	pos  mgl32.Vec3
	view mgl32.Mat4
	proj mgl32.Mat4
}

func newTestCamera() *testCamera {
	pos := mgl32.Vec3{0, 0, -10}
	return &testCamera{
		pos:  pos,
		view: common.LookAtLH(pos, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
		proj: common.PerspectiveLHZO(common.DegToRad(60), 800.0/600.0, 0.1, 100),
	}
}

func (c *testCamera) Near() float32                { return 0.1 }
func (c *testCamera) Far() float32                 { return 100 }
func (c *testCamera) Position() mgl32.Vec3         { return c.pos }
func (c *testCamera) Up() mgl32.Vec3               { return mgl32.Vec3{0, 1, 0} }
func (c *testCamera) ViewMatrix() mgl32.Mat4       { return c.view }
func (c *testCamera) ViewProjection() mgl32.Mat4   { return c.proj.Mul4(c.view) }
func (c *testCamera) FrustumPoints() [8]mgl32.Vec3 { return common.FrustumCorners(c.ViewProjection().Inv()) }

var defaultVertex = VertexFormat{Name: "default", Stride: 32}

func newTestRenderer(t *testing.T, dev *gputest.Device, options ...RendererBuilderOption) *renderer {
	t.Helper()
	r, err := NewRenderer(dev, 800, 600, options...)
	require.NoError(t, err)
	return r.(*renderer)
}

func frameSubmissions(dev *gputest.Device) []gputest.Submission {
	var out []gputest.Submission
	for _, s := range dev.Submissions {
		if len(s.CommandBuffers) == 1 && s.CommandBuffers[0].Label == "frame" {
			out = append(out, s)
		}
	}
	return out
}

func ops(cmds []gputest.Command, op string) []gputest.Command {
	var out []gputest.Command
	for _, c := range cmds {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func vertexBatch(t *testing.T, r *renderer, mode batch.RenderMode, sphere *common.Sphere) batch.RenderBatch {
	t.Helper()
	alloc, err := r.RequestVertexAllocation(defaultVertex, 3)
	require.NoError(t, err)
	require.NoError(t, r.UpdateVertexData(alloc, 0, make([]byte, 96)))
	return batch.RenderBatch{
		Mode:         mode,
		Buffer:       alloc.Buffer(),
		VertexOffset: alloc.FirstElement(defaultVertex.Stride),
		VertexCount:  3,
		Sphere:       sphere,
	}
}

func TestFrameRecordsPassesInOrder(t *testing.T) {
	ctx := context.Background()
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)

	_, err := r.AddDirLight(light.NewDirectional(light.WithDirection(0.3, -1, 0.2), light.WithCascades(2, 1024, 512)))
	require.NoError(t, err)
	_, err = r.AddPointLight(light.NewPoint(light.WithPosition(0, 5, 0), light.WithRange(20), light.WithShadow(256)))
	require.NoError(t, err)

	require.NoError(t, r.Draw(vertexBatch(t, r, batch.RenderModeDefault, &common.Sphere{Radius: 1})))
	require.NoError(t, r.Draw(vertexBatch(t, r, batch.RenderModeDefault, &common.Sphere{Center: mgl32.Vec3{0, 0, -50}, Radius: 1})))
	require.NoError(t, r.Draw(vertexBatch(t, r, batch.RenderModeTerrain, nil)))
	require.NoError(t, r.Draw(vertexBatch(t, r, batch.RenderModeSky, nil)))
	uiAlloc, err := r.RequestVertexAllocation(VertexFormat{Name: "ui", Stride: 16}, 6)
	require.NoError(t, err)
	require.NoError(t, r.DrawUi(batch.RenderBatchUi{
		Mode:        batch.RenderModeUiFont,
		Buffer:      uiAlloc.Buffer(),
		VertexCount: 6,
		Scissor:     &gpu.Scissor{X: 700, Y: -5, Width: 500, Height: 100},
	}))

	require.NoError(t, r.UpdateAndRender(ctx, RenderData{SunRadius: 3}, newTestCamera()))

	frames := frameSubmissions(dev)
	require.Len(t, frames, 1)
	sub := frames[0]
	cmds := sub.Commands[0]
	require.NotEmpty(t, cmds)
	assert.Equal(t, "bind-table", cmds[0].Op)

	passes := ops(cmds, "begin-pass")
	require.Len(t, passes, 2+6+1+1)
	assert.Equal(t, gpu.PassDirShadow, passes[0].Pass.Kind)
	assert.Equal(t, uint32(1), passes[1].Pass.Layer)
	for i := 2; i < 8; i++ {
		assert.Equal(t, gpu.PassPointShadow, passes[i].Pass.Kind)
		assert.Equal(t, uint32(i-2), passes[i].Pass.Layer)
	}
	assert.Equal(t, gpu.PassMain, passes[8].Pass.Kind)
	assert.Equal(t, gpu.PassUi, passes[9].Pass.Kind)
	assert.Len(t, ops(cmds, "image-barrier"), 2)

	// Shadow passes redraw the two default batches (culled included) and the terrain batch;
	// the main pass skips the culled batch.
	assert.Len(t, ops(cmds, "draw"), 8*3+3+1)

	push := ops(cmds, "push")[1]
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(push.Data[0:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(push.Data[4:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(push.Data[8:]))

	viewport := ops(cmds, "viewport")[0].Viewport
	assert.Equal(t, gpu.Viewport{Y: 512, Width: 1024, Height: -512}, viewport)

	scissors := ops(cmds, "scissor")
	require.Len(t, scissors, 1)
	assert.Equal(t, gpu.Scissor{X: 700, Y: 0, Width: 100, Height: 100}, scissors[0].Scissor)

	slot := r.ring.Slot(0)
	require.NotEmpty(t, sub.Wait)
	assert.Same(t, slot.ImageAcquired, sub.Wait[0])
	assert.Greater(t, len(sub.Wait), 1, "frame waits on the upload semaphores")
	assert.Equal(t, []gpu.Semaphore{slot.RenderFinished}, sub.Signal)
	assert.Equal(t, 1, dev.Presented)
	assert.Zero(t, r.batches.Len())
	assert.Equal(t, FrameStats{Rendered: 1}, r.Stats())
}

func TestCommonBlockUpload(t *testing.T) {
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)
	_, err := r.AddPointLight(light.NewPoint(light.WithPosition(1, 2, 3), light.WithRange(10)))
	require.NoError(t, err)

	cam := newTestCamera()
	require.NoError(t, r.UpdateAndRender(context.Background(), RenderData{SunRadius: 7, CurTerrainIntersection: true}, cam))

	gpuBytes := r.slots[0].common.GPU().(*gputest.Buffer).Bytes
	vp := cam.ViewProjection()
	assert.Equal(t, vp[0], mathFloat(gpuBytes[0:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(gpuBytes[156:]), "point light count")
	assert.Equal(t, float32(7), mathFloat(gpuBytes[172:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(gpuBytes[188:]))
	assert.Equal(t, float32(2.0/800), mathFloat(gpuBytes[208:]))

	valid := r.slots[0].pointValid.GPU().(*gputest.Buffer).Bytes
	assert.Equal(t, []byte{1, 0, 0, 0}, valid[:4])
}

func mathFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func TestAbandonedFrameKeepsSlotUpdates(t *testing.T) {
	ctx := context.Background()
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)
	cam := newTestCamera()

	l := light.NewPoint(light.WithPosition(4, 5, 6), light.WithRange(12))
	id, err := r.AddPointLight(l)
	require.NoError(t, err)
	require.NoError(t, r.Draw(vertexBatch(t, r, batch.RenderModeDefault, nil)))

	dev.ScriptAcquire(gpu.AcquireOutOfDate)
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	assert.Empty(t, frameSubmissions(dev))
	assert.Zero(t, dev.Presented)
	assert.Zero(t, r.batches.Len(), "batches of a dropped frame are discarded")
	assert.NotEmpty(t, r.pendingWaits, "upload semaphores carry over")

	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	frames := frameSubmissions(dev)
	require.Len(t, frames, 2)
	assert.Empty(t, r.pendingWaits)
	assert.Equal(t, FrameStats{Rendered: 2, Dropped: 1}, r.Stats())

	want := make([]byte, light.PointSize)
	stored, ok := r.PointLight(id)
	require.True(t, ok)
	stored.Marshal(want)
	for slot := range r.slots {
		got := r.slots[slot].pointLights.GPU().(*gputest.Buffer).Bytes[:light.PointSize]
		assert.Equal(t, want, got, "slot %d", slot)
	}
}

func TestShadowMapOutlivesInFlightFrames(t *testing.T) {
	ctx := context.Background()
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev, WithFramesInFlight(2))
	cam := newTestCamera()

	id, err := r.AddPointLight(light.NewPoint(light.WithRange(20), light.WithShadow(128)))
	require.NoError(t, err)
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	rebuilds := r.bindings.Rebuilds()

	image := func(slot int) *gputest.Image {
		for _, img := range dev.Images {
			if img.Desc.Label == fmt.Sprintf("point-shadow-0-slot-%d", slot) {
				return img
			}
		}
		t.Fatalf("no shadow image for slot %d", slot)
		return nil
	}

	require.NoError(t, r.RemovePointLight(id))
	assert.False(t, r.shadows.PointValid(0))
	assert.False(t, image(0).Destroyed)
	assert.False(t, image(1).Destroyed)

	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	assert.True(t, image(0).Destroyed)
	assert.False(t, image(1).Destroyed, "slot 1 may still be sampling it")
	assert.Equal(t, 1, r.shadows.PointCount(), "id is not reusable yet")
	assert.Greater(t, r.bindings.Rebuilds(), rebuilds)
	assert.Empty(t, ops(frameSubmissions(dev)[2].Commands[0], "image-barrier"), "no shadow pass for an invalid map")

	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	assert.True(t, image(1).Destroyed)
	assert.Zero(t, r.shadows.PointCount())
}

func TestInstanceGrowthRebuildsTable(t *testing.T) {
	ctx := context.Background()
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)
	cam := newTestCamera()
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	require.Equal(t, 1, r.bindings.Rebuilds())
	old := r.instances.GPU()

	alloc, err := r.RequestInstanceAllocation(1000)
	require.NoError(t, err)
	data := InstanceData{World: mgl32.Translate3D(1, 2, 3), TextureID: 4, NormalMapID: NormalMapNone}
	require.NoError(t, r.UpdateInstanceData(alloc, 999, data))
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))

	assert.Equal(t, 2, r.bindings.Rebuilds())
	assert.NotSame(t, old, r.instances.GPU())
	assert.GreaterOrEqual(t, r.instances.Size(), uint64(1000*InstanceDataSize))
	got := r.instances.GPU().(*gputest.Buffer).Bytes[999*InstanceDataSize : 1000*InstanceDataSize]
	assert.Equal(t, data.Marshal(), got)

	table := dev.Tables[len(dev.Tables)-1]
	for _, b := range table.Desc.Bindings {
		if b.Slot == bind_group_provider.BindingInstances {
			assert.Same(t, r.instances.GPU(), b.Buffers[0])
		}
	}

	// The replaced buffer is destroyed once the previous slot comes around again.
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	assert.True(t, old.(*gputest.Buffer).Destroyed)
}

func TestMinimizedWindowDropsFrames(t *testing.T) {
	ctx := context.Background()
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)
	cam := newTestCamera()

	require.NoError(t, r.OnWindowResize(ctx, 0, 600))
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	assert.Empty(t, dev.EventsOf("acquire"))
	assert.Equal(t, uint64(1), r.Stats().Dropped)

	require.NoError(t, r.OnWindowResize(ctx, 1024, 768))
	configures := dev.EventsOf("configure-surface")
	assert.Equal(t, "1024x768", configures[len(configures)-1].Label)
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, cam))
	assert.Equal(t, 1, dev.Presented)
}

func TestTransientPresentIsAbsorbed(t *testing.T) {
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)
	dev.ScriptPresent(gpu.AcquireSuboptimal)
	require.NoError(t, r.UpdateAndRender(context.Background(), RenderData{}, newTestCamera()))
	assert.Equal(t, uint64(1), r.Stats().Rendered)
}

func TestSampleCountAndVsync(t *testing.T) {
	ctx := context.Background()
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)

	err := r.SetSampleCount(ctx, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrContractViolation))

	idle := dev.WaitIdleCount
	require.NoError(t, r.SetSampleCount(ctx, 4))
	assert.Equal(t, uint32(4), dev.Surface[len(dev.Surface)-1].SampleCount)
	assert.Equal(t, idle+1, dev.WaitIdleCount)
	configures := len(dev.Surface)
	require.NoError(t, r.SetSampleCount(ctx, 4))
	assert.Len(t, dev.Surface, configures, "unchanged count is a no-op")

	ok, err := r.EnableVsync(false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dev.Surface[len(dev.Surface)-1].Vsync)

	dev.VsyncToggle = false
	ok, err = r.EnableVsync(true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewRenderer(gputest.NewDevice(), 800, 600, WithSampleCount(5))
	assert.True(t, errors.Is(err, common.ErrContractViolation))
	_, err = NewRenderer(gputest.NewDevice(), 800, 600, WithFramesInFlight(4))
	assert.True(t, errors.Is(err, common.ErrContractViolation))
}

func TestSceneLoadReplacesFonts(t *testing.T) {
	ctx := context.Background()
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)
	atlas := common.TextureStagingData{Pixels: make([]byte, 2*2*4), Width: 2, Height: 2}

	require.NoError(t, r.OnSceneLoad(ctx, SceneInitData{
		Fonts:             []Font{{Name: "mono", Atlas: atlas}, {Name: "sans", Atlas: atlas}},
		Heightmaps:        []common.TextureStagingData{atlas},
		TerrainPatchSizeX: 64,
		TerrainPatchSizeZ: 32,
	}))
	first := r.fonts
	require.Len(t, first, 2)
	assert.Equal(t, 1, r.bindings.Rebuilds())
	assert.False(t, r.bindings.Dirty())

	table := dev.Tables[len(dev.Tables)-1]
	for _, b := range table.Desc.Bindings {
		switch b.Slot {
		case bind_group_provider.BindingFonts:
			assert.Len(t, b.Images, 2)
		case bind_group_provider.BindingHeightmaps:
			assert.Len(t, b.Images, 1)
		}
	}

	require.NoError(t, r.OnSceneLoad(ctx, SceneInitData{Fonts: []Font{{Name: "mono", Atlas: atlas}}}))
	assert.True(t, first[0].(*gputest.Image).Destroyed)
	assert.True(t, first[1].(*gputest.Image).Destroyed)
	assert.Len(t, r.fonts, 1)
	assert.Empty(t, r.heightmaps)
}

func TestLightShadowTransitions(t *testing.T) {
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)

	_, err := r.AddDirLight(light.NewDirectional(light.WithCascades(5, 512, 512)))
	assert.True(t, errors.Is(err, common.ErrContractViolation))
	assert.Zero(t, r.dirLights.Count())

	id, err := r.AddDirLight(light.NewDirectional(light.WithCascades(2, 512, 512)))
	require.NoError(t, err)
	l, _ := r.DirLight(id)
	assert.Equal(t, uint32(0), l.ShadowMapID)

	l.Color = mgl32.Vec3{1, 0, 0}
	l.ShadowMapID = 42
	require.NoError(t, r.UpdateDirLight(id, l))
	l, _ = r.DirLight(id)
	assert.Equal(t, uint32(0), l.ShadowMapID, "same shadow configuration keeps the map")

	l.ShadowMapResX = 1024
	require.NoError(t, r.UpdateDirLight(id, l))
	l, _ = r.DirLight(id)
	assert.Equal(t, uint32(1), l.ShadowMapID, "a marked id is not reused before its teardown")
	assert.False(t, r.shadows.DirValid(0))

	l.ShadowMapCount = 0
	require.NoError(t, r.UpdateDirLight(id, l))
	l, _ = r.DirLight(id)
	assert.Equal(t, light.NoShadowMap, l.ShadowMapID)
	assert.False(t, r.shadows.DirValid(1))

	require.NoError(t, r.RemoveDirLight(id))
	_, ok := r.DirLight(id)
	assert.False(t, ok)
	assert.True(t, errors.Is(r.RemoveDirLight(id), common.ErrContractViolation))

	pid, err := r.AddPointLight(light.NewPoint(light.WithRange(0.5), light.WithShadow(64)))
	assert.True(t, errors.Is(err, common.ErrContractViolation), "range inside the near plane")
	assert.Zero(t, pid)
	assert.Zero(t, r.pointLights.Count())
}

func TestAllocationContracts(t *testing.T) {
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev, WithBatchCapacity(1))

	inst, err := r.RequestInstanceAllocation(2)
	require.NoError(t, err)
	assert.True(t, errors.Is(r.UpdateInstanceData(inst, 2, InstanceData{}), common.ErrContractViolation))
	assert.True(t, errors.Is(r.FreeBoneAllocation(inst), common.ErrContractViolation))
	assert.True(t, errors.Is(r.UpdateBoneData(inst, 0, []mgl32.Mat4{mgl32.Ident4()}), common.ErrContractViolation))
	require.NoError(t, r.FreeInstanceAllocation(inst))
	assert.True(t, errors.Is(r.FreeInstanceAllocation(inst), common.ErrContractViolation), "double free")

	_, err = r.RequestVertexAllocation(VertexFormat{Name: "bad"}, 3)
	assert.True(t, errors.Is(err, common.ErrContractViolation))

	a, err := r.RequestVertexAllocation(defaultVertex, 1000)
	require.NoError(t, err)
	b, err := r.RequestVertexAllocation(defaultVertex, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), b.FirstElement(defaultVertex.Stride))
	require.NoError(t, r.FreeVertexAllocation(a))
	c, err := r.RequestVertexAllocation(defaultVertex, 50)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), c.FirstElement(defaultVertex.Stride))
	assert.True(t, errors.Is(r.FreeVertexAllocation(inst), common.ErrContractViolation))

	bones, err := r.RequestBoneAllocation(4)
	require.NoError(t, err)
	assert.True(t, errors.Is(r.UpdateVertexData(bones, 0, []byte{1}), common.ErrContractViolation))
	assert.True(t, errors.Is(r.UpdateVertexData(buffer.Allocation{}, 0, []byte{1}), common.ErrContractViolation))

	require.NoError(t, r.Draw(batch.RenderBatch{Buffer: c.Buffer(), VertexCount: 3}))
	assert.True(t, errors.Is(r.Draw(batch.RenderBatch{Buffer: c.Buffer(), VertexCount: 3}), common.ErrContractViolation))
	assert.True(t, errors.Is(r.DrawUi(batch.RenderBatchUi{}), common.ErrContractViolation))
}

func TestCloseReleasesResources(t *testing.T) {
	ctx := context.Background()
	dev := gputest.NewDevice()
	r := newTestRenderer(t, dev)
	_, err := r.AddPointLight(light.NewPoint(light.WithRange(20), light.WithShadow(64)))
	require.NoError(t, err)
	_, err = r.RequestInstanceAllocation(2000)
	require.NoError(t, err)
	require.NoError(t, r.Draw(vertexBatch(t, r, batch.RenderModeDefault, nil)))
	require.NoError(t, r.UpdateAndRender(ctx, RenderData{}, newTestCamera()))

	require.NoError(t, r.Close(ctx))
	assert.Empty(t, dev.LiveImages())
	for _, b := range dev.Buffers {
		assert.True(t, b.Destroyed, b.Label())
	}
	for _, tbl := range dev.Tables {
		assert.True(t, tbl.Destroyed)
	}
	for _, c := range dev.Commands {
		assert.True(t, c.Destroyed, c.Label)
	}
}
