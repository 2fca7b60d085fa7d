package renderer

import (
	"context"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/light"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/batch"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/frame"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

func (r *renderer) UpdateAndRender(ctx context.Context, data RenderData, cam Camera) error {
	slot, err := r.ring.Advance(ctx)
	if err != nil {
		r.logger.Error("frame slot wait failed", zap.Error(err))
		return err
	}
	r.shadows.Retire(slot.Index)
	if r.shadows.Dirty() {
		r.bindings.MarkDirty()
		r.shadows.ClearDirty()
	}

	res, err := r.uploads.Flush(ctx, r.ring)
	if err != nil {
		return err
	}
	r.addWaits(res.Wait)
	if res.Rebuild {
		r.bindings.MarkDirty()
	}
	if _, err := r.bindings.Rebuild(ctx, r); err != nil {
		r.logger.Error("binding table rebuild failed", zap.Error(err))
		return err
	}

	frustum := common.ExtractFrustumFromMatrix(cam.ViewProjection())
	r.batches.Cull(&frustum)

	var updateErr error
	r.dirLights.Each(func(_ int, l light.Directional) {
		if updateErr == nil && l.ShadowMapID != light.NoShadowMap {
			updateErr = r.shadows.UpdateDirectional(int(l.ShadowMapID), l.Dir, cam)
		}
	})
	if updateErr != nil {
		return updateErr
	}

	if r.minimized {
		r.abandon("minimized")
		return nil
	}
	img, status, err := r.device.AcquireImage(slot.ImageAcquired)
	if err != nil {
		r.logger.Error("image acquisition failed", zap.Error(err))
		return common.WrapFatal(err, "failed to acquire surface image")
	}
	if status != gpu.AcquireSuccess {
		r.abandon(status.String())
		return nil
	}

	if err := r.writeSlot(ctx, slot.Index, data, cam); err != nil {
		return err
	}
	if err := r.record(slot); err != nil {
		return err
	}
	r.batches.Reset()

	if err := r.device.ResetFence(slot.Fence); err != nil {
		return common.WrapFatal(err, "failed to reset frame fence")
	}
	wait := append([]gpu.Semaphore{slot.ImageAcquired}, r.pendingWaits...)
	err = r.device.Submit(gpu.SubmitInfo{
		CommandBuffers: []gpu.CommandBuffer{slot.CommandBuffer},
		Wait:           wait,
		Signal:         []gpu.Semaphore{slot.RenderFinished},
		Fence:          slot.Fence,
	})
	if err != nil {
		r.logger.Error("frame submission failed", zap.Error(err))
		return common.WrapFatal(err, "failed to submit frame")
	}
	r.pendingWaits = r.pendingWaits[:0]
	r.stats.Rendered++

	status, err = r.device.Present(img, []gpu.Semaphore{slot.RenderFinished})
	if err != nil {
		r.logger.Error("present failed", zap.Error(err))
		return common.WrapFatal(err, "failed to present")
	}
	if status != gpu.AcquireSuccess {
		r.logger.Debug("present status", zap.Stringer("status", status))
	}
	return nil
}

// abandon drops the frame. Per-slot light updates stay queued and upload semaphores are carried
// into the next submission.
func (r *renderer) abandon(reason string) {
	r.batches.Reset()
	r.stats.Dropped++
	r.logger.Debug("frame dropped", zap.String("reason", reason), zap.Int("slot", r.ring.FrameID()))
}

func (r *renderer) addWaits(sems []gpu.Semaphore) {
	for _, s := range sems {
		dup := false
		for _, p := range r.pendingWaits {
			if p == s {
				dup = true
				break
			}
		}
		if !dup {
			r.pendingWaits = append(r.pendingWaits, s)
		}
	}
}

// writeSlot queues the slot's common block, changed light records, valid bitmaps and shadow
// records, then flushes them.
func (r *renderer) writeSlot(ctx context.Context, index int, data RenderData, cam Camera) error {
	s := &r.slots[index]

	cd := commonData{
		VP:                cam.ViewProjection(),
		V:                 cam.ViewMatrix(),
		CameraPos:         cam.Position(),
		CameraUp:          cam.Up(),
		DirLightCount:     uint32(r.dirLights.Count()),
		PointLightCount:   uint32(r.pointLights.Count()),
		VisualSunPos:      data.VisualSunPos,
		SunRadius:         data.SunRadius,
		EffectiveSunPos:   data.EffectiveSunPos,
		CurTerrainPos:     data.CurTerrainPos,
		UiScale:           mgl32.Vec2{2 / float32(r.width), 2 / float32(r.height)},
		TerrainPatchSizeX: r.terrainX,
		TerrainPatchSizeZ: r.terrainZ,
		HighlightColor:    data.EditorHighlightColor,
		ToolInnerRadius:   data.EditorToolInnerRadius,
		ToolOuterRadius:   data.EditorToolOuterRadius,
	}
	if data.CurTerrainIntersection {
		cd.TerrainIntersection = 1
	}
	cd.marshal(s.commonBytes)
	r.uploads.Request(s.common, 0, s.commonBytes)

	for _, id := range r.dirLights.TakePending(index) {
		off := id * light.DirectionalSize
		rec := s.dirLightBytes[off : off+light.DirectionalSize]
		r.dirLights.Marshal(id, rec)
		r.uploads.Request(s.dirLights, uint64(off), rec)
	}
	for _, id := range r.pointLights.TakePending(index) {
		off := id * light.PointSize
		rec := s.pointLightBytes[off : off+light.PointSize]
		r.pointLights.Marshal(id, rec)
		r.uploads.Request(s.pointLights, uint64(off), rec)
	}
	if valid := r.dirLights.ValidBytes(); len(valid) > 0 {
		r.uploads.Request(s.dirValid, 0, valid)
	}
	if valid := r.pointLights.ValidBytes(); len(valid) > 0 {
		r.uploads.Request(s.pointValid, 0, valid)
	}
	if b := r.shadows.MarshalDir(s.dirShadowBytes); len(b) > 0 {
		r.uploads.Request(s.dirShadow, 0, b)
	}
	if b := r.shadows.MarshalPoint(s.pointShadowBytes); len(b) > 0 {
		r.uploads.Request(s.pointShadow, 0, b)
	}

	res, err := r.uploads.Flush(ctx, r.ring)
	if err != nil {
		return err
	}
	r.addWaits(res.Wait)
	return nil
}

// record encodes the frame: directional shadow passes, point shadow passes, the main pass and the UI pass.
func (r *renderer) record(slot *frame.Slot) error {
	cmd := slot.CommandBuffer
	if err := cmd.Begin(); err != nil {
		return common.WrapFatal(err, "failed to begin frame command buffer")
	}
	cmd.BindTable(r.bindings.BindGroup(slot.Index))

	for id := 0; id < r.shadows.DirCount(); id++ {
		if !r.shadows.DirValid(id) {
			continue
		}
		info := r.shadows.DirInfo(id)
		img := r.shadows.DirImage(slot.Index, id)
		for layer := uint32(0); layer < info.Layers; layer++ {
			cmd.BeginPass(gpu.PassDescriptor{Kind: gpu.PassDirShadow, Target: img, Layer: layer, Clear: true})
			cmd.SetViewport(flippedViewport(info.Width, info.Height))
			cmd.PushConstants(shadowPushConstants{Count: info.Layers, Offset: uint32(id), Layer: layer}.marshal())
			r.drawShadowCasters(cmd, gpu.PassDirShadow, batch.RenderMode.DirShadowMode)
			cmd.EndPass()
		}
		cmd.ImageBarrier(img, gpu.BarrierDepthToShader)
	}

	for id := 0; id < r.shadows.PointCount(); id++ {
		if !r.shadows.PointValid(id) {
			continue
		}
		info := r.shadows.PointInfo(id)
		img := r.shadows.PointImage(slot.Index, id)
		for face := uint32(0); face < info.Layers; face++ {
			cmd.BeginPass(gpu.PassDescriptor{Kind: gpu.PassPointShadow, Target: img, Layer: face, Clear: true})
			cmd.SetViewport(flippedViewport(info.Width, info.Height))
			cmd.PushConstants(shadowPushConstants{Count: info.Layers, Offset: uint32(id), Layer: face}.marshal())
			r.drawShadowCasters(cmd, gpu.PassPointShadow, batch.RenderMode.PointShadowMode)
			cmd.EndPass()
		}
		cmd.ImageBarrier(img, gpu.BarrierDepthToShader)
	}

	cmd.BeginPass(gpu.PassDescriptor{Kind: gpu.PassMain, Clear: true})
	cmd.SetViewport(flippedViewport(r.width, r.height))
	current := batch.RenderMode(batch.RenderModeCount)
	for i := range r.batches.Batches() {
		b := &r.batches.Batches()[i]
		if b.Culled() {
			continue
		}
		if b.Mode != current {
			cmd.SetPipeline(gpu.PipelineKey{Pass: gpu.PassMain, Mode: uint32(b.Mode)})
			current = b.Mode
		}
		cmd.Draw(b.Buffer.GPU(), b.VertexOffset, b.VertexCount, b.InstanceID)
	}
	cmd.EndPass()

	cmd.BeginPass(gpu.PassDescriptor{Kind: gpu.PassUi})
	cmd.SetViewport(gpu.Viewport{Width: float32(r.width), Height: float32(r.height)})
	for _, b := range r.batches.UiBatches() {
		cmd.SetPipeline(gpu.PipelineKey{Pass: gpu.PassUi, Mode: uint32(b.Mode)})
		cmd.SetScissor(r.clampScissor(b.Scissor))
		cmd.Draw(b.Buffer.GPU(), b.VertexOffset, b.VertexCount, 0)
	}
	cmd.EndPass()

	if err := cmd.End(); err != nil {
		return common.WrapFatal(err, "failed to end frame command buffer")
	}
	return nil
}

// drawShadowCasters redraws every shadow casting batch, culled ones included, with its shadow mode.
func (r *renderer) drawShadowCasters(cmd gpu.CommandBuffer, pass gpu.PassKind, shadowMode func(batch.RenderMode) (batch.RenderMode, bool)) {
	current := batch.RenderMode(batch.RenderModeCount)
	for i := range r.batches.Batches() {
		b := &r.batches.Batches()[i]
		mode, ok := shadowMode(b.Mode)
		if !ok {
			continue
		}
		if mode != current {
			cmd.SetPipeline(gpu.PipelineKey{Pass: pass, Mode: uint32(mode)})
			current = mode
		}
		cmd.Draw(b.Buffer.GPU(), b.VertexOffset, b.VertexCount, b.InstanceID)
	}
}

// clampScissor limits s to the surface. A nil scissor covers the whole surface.
func (r *renderer) clampScissor(s *gpu.Scissor) gpu.Scissor {
	if s == nil {
		return gpu.Scissor{Width: r.width, Height: r.height}
	}
	x := common.Clamp(s.X, 0, int32(r.width))
	y := common.Clamp(s.Y, 0, int32(r.height))
	return gpu.Scissor{
		X:      x,
		Y:      y,
		Width:  common.Clamp(s.Width, 0, r.width-uint32(x)),
		Height: common.Clamp(s.Height, 0, r.height-uint32(y)),
	}
}

// flippedViewport covers a w by h target with Y pointing up.
func flippedViewport(w, h uint32) gpu.Viewport {
	return gpu.Viewport{Y: float32(h), Width: float32(w), Height: -float32(h)}
}
