package gpu

import (
	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuOp int

const (
	opCopy wgpuOp = iota
	opBeginPass
	opPipeline
	opViewport
	opScissor
	opPush
	opBindTable
	opDraw
	opEndPass
)

type wgpuCommand struct {
	op       wgpuOp
	src, dst *wgpuBuffer
	regions  []CopyRegion
	pass     PassDescriptor
	key      PipelineKey
	viewport Viewport
	scissor  Scissor
	// push indexes the command buffer's push constant blocks.
	push     int
	table    *wgpuTable
	vertices *wgpuBuffer
	first    uint32
	count    uint32
	instance uint32
}

// wgpuCommandBuffer records commands on the host and encodes them into a WebGPU command encoder
// at submission. Barriers are dropped because WebGPU tracks resource hazards itself.
type wgpuCommandBuffer struct {
	label     string
	commands  []wgpuCommand
	pushes    [][pushBlockSize]byte
	recording bool

	// pushRing holds one 256 byte aligned block per PushConstants call, bound with a dynamic offset.
	pushRing  *wgpu.Buffer
	pushGroup *wgpu.BindGroup
	pushCap   int
}

var _ CommandBuffer = &wgpuCommandBuffer{}

func (c *wgpuCommandBuffer) Begin() error {
	if c.recording {
		return errors.Newf("command buffer %s already recording", c.label)
	}
	c.commands = c.commands[:0]
	c.pushes = c.pushes[:0]
	c.recording = true
	return nil
}

func (c *wgpuCommandBuffer) CopyBuffer(src, dst Buffer, regions []CopyRegion) {
	c.commands = append(c.commands, wgpuCommand{
		op:      opCopy,
		src:     src.(*wgpuBuffer),
		dst:     dst.(*wgpuBuffer),
		regions: append([]CopyRegion(nil), regions...),
	})
}

func (c *wgpuCommandBuffer) BufferBarrier(Buffer, BarrierScope) {}

func (c *wgpuCommandBuffer) ImageBarrier(Image, BarrierScope) {}

func (c *wgpuCommandBuffer) BeginPass(desc PassDescriptor) {
	c.commands = append(c.commands, wgpuCommand{op: opBeginPass, pass: desc})
}

func (c *wgpuCommandBuffer) SetPipeline(key PipelineKey) {
	c.commands = append(c.commands, wgpuCommand{op: opPipeline, key: key})
}

func (c *wgpuCommandBuffer) SetViewport(v Viewport) {
	c.commands = append(c.commands, wgpuCommand{op: opViewport, viewport: v})
}

func (c *wgpuCommandBuffer) SetScissor(s Scissor) {
	c.commands = append(c.commands, wgpuCommand{op: opScissor, scissor: s})
}

func (c *wgpuCommandBuffer) PushConstants(data []byte) {
	var block [pushBlockSize]byte
	copy(block[:], data)
	c.pushes = append(c.pushes, block)
	c.commands = append(c.commands, wgpuCommand{op: opPush, push: len(c.pushes) - 1})
}

func (c *wgpuCommandBuffer) BindTable(t BindingTable) {
	c.commands = append(c.commands, wgpuCommand{op: opBindTable, table: t.(*wgpuTable)})
}

func (c *wgpuCommandBuffer) Draw(vertices Buffer, firstVertex, vertexCount, firstInstance uint32) {
	c.commands = append(c.commands, wgpuCommand{
		op:       opDraw,
		vertices: vertices.(*wgpuBuffer),
		first:    firstVertex,
		count:    vertexCount,
		instance: firstInstance,
	})
}

func (c *wgpuCommandBuffer) EndPass() {
	c.commands = append(c.commands, wgpuCommand{op: opEndPass})
}

func (c *wgpuCommandBuffer) End() error {
	if !c.recording {
		return errors.Newf("command buffer %s not recording", c.label)
	}
	c.recording = false
	return nil
}

func (c *wgpuCommandBuffer) Destroy() {
	if c.pushGroup != nil {
		c.pushGroup.Release()
		c.pushGroup = nil
	}
	if c.pushRing != nil {
		c.pushRing.Release()
		c.pushRing = nil
	}
	c.commands = nil
}

// writeStaged turns copies out of staging buffers into queue writes. Queue writes land before the
// submission's work on the queue timeline, so staged copies must precede the passes that read them.
func (d *wgpuDevice) writeStaged(c *wgpuCommandBuffer) error {
	for _, cmd := range c.commands {
		if cmd.op != opCopy || cmd.src.buf != nil {
			continue
		}
		for _, r := range cmd.regions {
			if r.SrcOffset+r.Size > uint64(len(cmd.src.mirror)) {
				return common.Contractf("copy out of %s exceeds its size", cmd.src.label)
			}
			d.queue.WriteBuffer(cmd.dst.buf, r.DstOffset, cmd.src.mirror[r.SrcOffset:r.SrcOffset+r.Size])
		}
	}
	return nil
}

// writePushes grows the push ring to fit the recording and uploads every block.
func (d *wgpuDevice) writePushes(c *wgpuCommandBuffer) error {
	n := max(len(c.pushes), 1)
	if n > c.pushCap {
		if c.pushGroup != nil {
			c.pushGroup.Release()
		}
		if c.pushRing != nil {
			c.pushRing.Release()
		}
		ring, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: d.objectLabel("%s-push", c.label),
			Size:  uint64(n) * d.pushStride,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return common.WrapFatal(err, "failed to create push constant ring")
		}
		group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  d.objectLabel("%s-push", c.label),
			Layout: d.pushLayout,
			Entries: []wgpu.BindGroupEntry{{
				Binding: 0,
				Buffer:  ring,
				Size:    pushBlockSize,
			}},
		})
		if err != nil {
			ring.Release()
			return common.WrapFatal(err, "failed to create push constant bind group")
		}
		c.pushRing, c.pushGroup, c.pushCap = ring, group, n
	}
	if len(c.pushes) == 0 {
		return nil
	}
	data := make([]byte, uint64(len(c.pushes))*d.pushStride)
	for i, block := range c.pushes {
		copy(data[uint64(i)*d.pushStride:], block[:])
	}
	d.queue.WriteBuffer(c.pushRing, 0, data)
	return nil
}

// encode replays the recording into enc. Bind groups are reapplied at every pass start since
// WebGPU pass state does not carry over between passes.
func (d *wgpuDevice) encode(enc *wgpu.CommandEncoder, c *wgpuCommandBuffer) error {
	var (
		pass       *wgpu.RenderPassEncoder
		table      *wgpuTable
		target     *wgpuImage
		pipelineOK bool
	)
	for _, cmd := range c.commands {
		switch cmd.op {
		case opCopy:
			if cmd.src.buf == nil {
				continue
			}
			for _, r := range cmd.regions {
				enc.CopyBufferToBuffer(cmd.src.buf, r.SrcOffset, cmd.dst.buf, r.DstOffset, r.Size)
			}
		case opBindTable:
			table = cmd.table
			if pass != nil {
				pass.SetBindGroup(0, table.group, nil)
			}
		case opBeginPass:
			var err error
			target, _ = cmd.pass.Target.(*wgpuImage)
			if pass, err = d.beginPass(enc, cmd.pass, target); err != nil {
				return err
			}
			if table != nil {
				pass.SetBindGroup(0, table.group, nil)
			}
			pass.SetBindGroup(1, c.pushGroup, []uint32{0})
			pipelineOK = false
		case opPipeline:
			format := wgpu.TextureFormatDepth32Float
			if target != nil {
				format = target.format
			}
			p, err := d.pipeline(cmd.key, format)
			if err != nil {
				return err
			}
			pipelineOK = p != nil
			if pipelineOK {
				pass.SetPipeline(p)
			}
		case opViewport:
			v := cmd.viewport
			// WebGPU clip space is already Y-up, so a flipped viewport maps to its plain rectangle.
			if v.Height < 0 {
				v.Y += v.Height
				v.Height = -v.Height
			}
			pass.SetViewport(v.X, v.Y, v.Width, v.Height, 0, 1)
		case opScissor:
			s := cmd.scissor
			pass.SetScissorRect(uint32(max(s.X, 0)), uint32(max(s.Y, 0)), s.Width, s.Height)
		case opPush:
			pass.SetBindGroup(1, c.pushGroup, []uint32{uint32(uint64(cmd.push) * d.pushStride)})
		case opDraw:
			if !pipelineOK || cmd.count == 0 {
				continue
			}
			pass.SetVertexBuffer(0, cmd.vertices.buf, 0, wgpu.WholeSize)
			pass.Draw(cmd.count, 1, cmd.first, cmd.instance)
		case opEndPass:
			pass.End()
			pass.Release()
			pass, target = nil, nil
		}
	}
	if pass != nil {
		return common.Contractf("command buffer %s ended inside a render pass", c.label)
	}
	return nil
}

// beginPass opens a render pass. Shadow passes render depth only into one layer of target. The
// main pass renders into the multisampled target when MSAA is on; the UI pass loads it and
// resolves into the acquired surface image.
func (d *wgpuDevice) beginPass(enc *wgpu.CommandEncoder, desc PassDescriptor, target *wgpuImage) (*wgpu.RenderPassEncoder, error) {
	load := wgpu.LoadOpLoad
	if desc.Clear {
		load = wgpu.LoadOpClear
	}

	switch desc.Kind {
	case PassDirShadow, PassPointShadow:
		if target == nil || int(desc.Layer) >= len(target.layers) {
			return nil, common.Contractf("shadow pass without a target layer %d", desc.Layer)
		}
		return enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            target.layers[desc.Layer],
				DepthLoadOp:     load,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1.0,
			},
		}), nil
	}

	if d.frameView == nil {
		return nil, common.Contractf("pass %d recorded without an acquired surface image", desc.Kind)
	}
	color := wgpu.RenderPassColorAttachment{
		View:       d.frameView,
		LoadOp:     load,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}
	if d.msaaView != nil {
		color.View = d.msaaView
		if desc.Kind == PassUi {
			color.ResolveTarget = d.frameView
		}
	}
	rp := &wgpu.RenderPassDescriptor{ColorAttachments: []wgpu.RenderPassColorAttachment{color}}
	if desc.Kind == PassMain {
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     load,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}
	return enc.BeginRenderPass(rp), nil
}
