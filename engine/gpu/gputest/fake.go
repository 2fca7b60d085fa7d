// Package gputest provides an in-memory gpu.Device for tests. It records every call, executes
// buffer copies on submit so uploaded bytes can be inspected, and lets tests script surface
// acquisition results and fence completion.
package gputest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/cockroachdb/errors"
)

// Event is a single observable device call, in call order.
type Event struct {
	Op    string
	Label string
}

// Command is a single recorded command buffer entry.
type Command struct {
	Op          string
	Src, Dst    *Buffer
	Regions     []gpu.CopyRegion
	Scope       gpu.BarrierScope
	Pass        gpu.PassDescriptor
	Pipeline    gpu.PipelineKey
	Viewport    gpu.Viewport
	Scissor     gpu.Scissor
	Data        []byte
	Table       gpu.BindingTable
	Image       gpu.Image
	Vertices    gpu.Buffer
	FirstVertex uint32
	VertexCount uint32
	Instance    uint32
}

// Buffer is a fake buffer backed by host memory.
type Buffer struct {
	label     string
	usage     gpu.BufferUsage
	Bytes     []byte
	Destroyed bool
	MapCount  int
	mapped    bool
	dev       *Device
}

var _ gpu.Buffer = &Buffer{}

func (b *Buffer) Label() string          { return b.label }
func (b *Buffer) Size() uint64           { return uint64(len(b.Bytes)) }
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }
func (b *Buffer) Destroy() {
	b.Destroyed = true
	b.dev.record("destroy-buffer", b.label)
}

// Image is a fake image.
type Image struct {
	Desc      gpu.ImageDescriptor
	Pixels    []byte
	Destroyed bool
	dev       *Device
}

var _ gpu.Image = &Image{}

func (i *Image) Label() string  { return i.Desc.Label }
func (i *Image) Width() uint32  { return i.Desc.Width }
func (i *Image) Height() uint32 { return i.Desc.Height }
func (i *Image) Layers() uint32 { return i.Desc.Layers }
func (i *Image) Destroy() {
	i.Destroyed = true
	i.dev.record("destroy-image", i.Desc.Label)
}

// Fence is a fake fence.
type Fence struct {
	ID        int
	Signaled  bool
	Destroyed bool
}

func (f *Fence) Destroy() { f.Destroyed = true }

// Semaphore is a fake semaphore.
type Semaphore struct {
	ID        int
	Destroyed bool
}

func (s *Semaphore) Destroy() { s.Destroyed = true }

// BindingTable is a fake binding table that keeps its descriptor.
type BindingTable struct {
	Desc      gpu.BindingTableDescriptor
	Destroyed bool
	dev       *Device
}

func (t *BindingTable) Destroy() {
	t.Destroyed = true
	t.dev.record("destroy-table", t.Desc.Label)
}

// CommandBuffer is a fake command buffer that keeps the commands of its latest recording.
type CommandBuffer struct {
	Label     string
	Commands  []Command
	Recording bool
	Destroyed bool
}

var _ gpu.CommandBuffer = &CommandBuffer{}

func (c *CommandBuffer) add(cmd Command) { c.Commands = append(c.Commands, cmd) }

func (c *CommandBuffer) Begin() error {
	if c.Recording {
		return errors.Newf("command buffer %s already recording", c.Label)
	}
	c.Commands = nil
	c.Recording = true
	return nil
}

func (c *CommandBuffer) CopyBuffer(src, dst gpu.Buffer, regions []gpu.CopyRegion) {
	c.add(Command{Op: "copy", Src: src.(*Buffer), Dst: dst.(*Buffer), Regions: append([]gpu.CopyRegion(nil), regions...)})
}

func (c *CommandBuffer) BufferBarrier(buf gpu.Buffer, scope gpu.BarrierScope) {
	c.add(Command{Op: "buffer-barrier", Dst: buf.(*Buffer), Scope: scope})
}

func (c *CommandBuffer) ImageBarrier(img gpu.Image, scope gpu.BarrierScope) {
	c.add(Command{Op: "image-barrier", Image: img, Scope: scope})
}

func (c *CommandBuffer) BeginPass(desc gpu.PassDescriptor) {
	c.add(Command{Op: "begin-pass", Pass: desc})
}

func (c *CommandBuffer) SetPipeline(key gpu.PipelineKey) {
	c.add(Command{Op: "pipeline", Pipeline: key})
}

func (c *CommandBuffer) SetViewport(v gpu.Viewport) {
	c.add(Command{Op: "viewport", Viewport: v})
}

func (c *CommandBuffer) SetScissor(s gpu.Scissor) {
	c.add(Command{Op: "scissor", Scissor: s})
}

func (c *CommandBuffer) PushConstants(data []byte) {
	c.add(Command{Op: "push", Data: append([]byte(nil), data...)})
}

func (c *CommandBuffer) BindTable(t gpu.BindingTable) {
	c.add(Command{Op: "bind-table", Table: t})
}

func (c *CommandBuffer) Draw(vertices gpu.Buffer, firstVertex, vertexCount, firstInstance uint32) {
	c.add(Command{Op: "draw", Vertices: vertices, FirstVertex: firstVertex, VertexCount: vertexCount, Instance: firstInstance})
}

func (c *CommandBuffer) EndPass() { c.add(Command{Op: "end-pass"}) }

func (c *CommandBuffer) End() error {
	if !c.Recording {
		return errors.Newf("command buffer %s not recording", c.Label)
	}
	c.Recording = false
	return nil
}

func (c *CommandBuffer) Destroy() { c.Destroyed = true }

// Filter returns the recorded commands with the given op.
func (c *CommandBuffer) Filter(op string) []Command {
	var out []Command
	for _, cmd := range c.Commands {
		if cmd.Op == op {
			out = append(out, cmd)
		}
	}
	return out
}

// Submission is a recorded queue submission.
type Submission struct {
	CommandBuffers []*CommandBuffer
	// Commands is a snapshot of each command buffer's commands at submit time.
	Commands [][]Command
	Wait     []gpu.Semaphore
	Signal   []gpu.Semaphore
	Fence    *Fence
}

type surfaceImage uint32

func (s surfaceImage) Index() uint32 { return uint32(s) }

// Device is the fake gpu.Device.
type Device struct {
	mu sync.Mutex

	// ManualFences keeps submitted fences unsignalled until WaitForFence or WaitIdle is called.
	ManualFences bool
	// VsyncToggle is returned from SupportsVsyncToggle.
	VsyncToggle bool
	// FailBufferCreation makes CreateBuffer return an error.
	FailBufferCreation bool
	// ImageBudget, when positive, is the number of further CreateImage calls that succeed.
	// Once it runs out CreateImage returns an error.
	ImageBudget int

	Events        []Event
	Submissions   []Submission
	Buffers       []*Buffer
	Images        []*Image
	Tables        []*BindingTable
	Commands      []*CommandBuffer
	Surface       []gpu.SurfaceConfig
	WaitIdleCount int
	Presented     int

	acquireScript []gpu.AcquireStatus
	presentScript []gpu.AcquireStatus
	pending       []*Fence
	nextID        int
	imageIndex    uint32
}

var _ gpu.Device = &Device{}

// NewDevice creates a fake device whose fences signal on submit.
func NewDevice() *Device {
	return &Device{VsyncToggle: true}
}

func (d *Device) record(op, label string) {
	d.Events = append(d.Events, Event{Op: op, Label: label})
}

// ScriptAcquire queues statuses returned by subsequent AcquireImage calls.
func (d *Device) ScriptAcquire(statuses ...gpu.AcquireStatus) {
	d.acquireScript = append(d.acquireScript, statuses...)
}

// ScriptPresent queues statuses returned by subsequent Present calls.
func (d *Device) ScriptPresent(statuses ...gpu.AcquireStatus) {
	d.presentScript = append(d.presentScript, statuses...)
}

// EventsOf returns the events with the given op.
func (d *Device) EventsOf(op string) []Event {
	var out []Event
	for _, e := range d.Events {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// LiveImages returns the images that have not been destroyed.
func (d *Device) LiveImages() []*Image {
	var out []*Image
	for _, img := range d.Images {
		if !img.Destroyed {
			out = append(out, img)
		}
	}
	return out
}

// LastSubmission returns the most recent submission.
func (d *Device) LastSubmission() Submission {
	return d.Submissions[len(d.Submissions)-1]
}

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	if d.FailBufferCreation {
		return nil, errors.Newf("out of device memory creating %s", desc.Label)
	}
	b := &Buffer{label: desc.Label, usage: desc.Usage, Bytes: make([]byte, desc.Size), dev: d}
	d.Buffers = append(d.Buffers, b)
	d.record("create-buffer", desc.Label)
	return b, nil
}

func (d *Device) MapStaging(buf gpu.Buffer) ([]byte, error) {
	b := buf.(*Buffer)
	if b.usage&gpu.BufferUsageStaging == 0 {
		return nil, errors.Newf("buffer %s is not host visible", b.label)
	}
	if b.mapped {
		return nil, errors.Newf("buffer %s already mapped", b.label)
	}
	b.mapped = true
	b.MapCount++
	d.record("map", b.label)
	return b.Bytes, nil
}

func (d *Device) UnmapStaging(buf gpu.Buffer) {
	b := buf.(*Buffer)
	b.mapped = false
	d.record("unmap", b.label)
}

func (d *Device) CreateImage(desc gpu.ImageDescriptor) (gpu.Image, error) {
	if d.ImageBudget > 0 {
		d.ImageBudget--
		if d.ImageBudget == 0 {
			d.ImageBudget = -1
		}
	} else if d.ImageBudget < 0 {
		return nil, errors.Newf("out of device memory creating %s", desc.Label)
	}
	img := &Image{Desc: desc, dev: d}
	d.Images = append(d.Images, img)
	d.record("create-image", desc.Label)
	return img, nil
}

func (d *Device) CreateTexture(desc gpu.ImageDescriptor, pixels []byte) (gpu.Image, error) {
	if uint64(len(pixels)) != uint64(desc.Width)*uint64(desc.Height)*4 {
		return nil, errors.Newf("texture %s: %d bytes for %dx%d", desc.Label, len(pixels), desc.Width, desc.Height)
	}
	img := &Image{Desc: desc, Pixels: pixels, dev: d}
	d.Images = append(d.Images, img)
	d.record("create-texture", desc.Label)
	return img, nil
}

func (d *Device) CreateFence(signaled bool) (gpu.Fence, error) {
	d.nextID++
	return &Fence{ID: d.nextID, Signaled: signaled}, nil
}

func (d *Device) CreateSemaphore() (gpu.Semaphore, error) {
	d.nextID++
	return &Semaphore{ID: d.nextID}, nil
}

func (d *Device) CreateCommandBuffer(label string) (gpu.CommandBuffer, error) {
	c := &CommandBuffer{Label: label}
	d.Commands = append(d.Commands, c)
	return c, nil
}

func (d *Device) CreateBindingTable(desc gpu.BindingTableDescriptor) (gpu.BindingTable, error) {
	t := &BindingTable{Desc: desc, dev: d}
	d.Tables = append(d.Tables, t)
	d.record("create-table", desc.Label)
	return t, nil
}

func (d *Device) WaitForFence(ctx context.Context, f gpu.Fence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fence := f.(*Fence)
	d.record("wait-fence", fmt.Sprint(fence.ID))
	// Queue completion is in order: everything submitted before this fence is done too.
	for i, p := range d.pending {
		if p == fence {
			for _, done := range d.pending[:i+1] {
				done.Signaled = true
			}
			d.pending = d.pending[i+1:]
			break
		}
	}
	if !fence.Signaled {
		return errors.Newf("fence %d would block forever", fence.ID)
	}
	return nil
}

func (d *Device) ResetFence(f gpu.Fence) error {
	f.(*Fence).Signaled = false
	return nil
}

func (d *Device) Submit(info gpu.SubmitInfo) error {
	sub := Submission{Wait: info.Wait, Signal: info.Signal}
	for _, cb := range info.CommandBuffers {
		c := cb.(*CommandBuffer)
		if c.Recording {
			return errors.Newf("command buffer %s submitted while recording", c.Label)
		}
		sub.CommandBuffers = append(sub.CommandBuffers, c)
		sub.Commands = append(sub.Commands, append([]Command(nil), c.Commands...))
		for _, cmd := range c.Commands {
			if cmd.Op != "copy" {
				continue
			}
			for _, r := range cmd.Regions {
				copy(cmd.Dst.Bytes[r.DstOffset:r.DstOffset+r.Size], cmd.Src.Bytes[r.SrcOffset:r.SrcOffset+r.Size])
			}
		}
	}
	if info.Fence != nil {
		fence := info.Fence.(*Fence)
		if fence.Signaled {
			return errors.Newf("fence %d submitted while signaled", fence.ID)
		}
		sub.Fence = fence
		if d.ManualFences {
			d.pending = append(d.pending, fence)
		} else {
			fence.Signaled = true
		}
	}
	d.Submissions = append(d.Submissions, sub)
	d.record("submit", "")
	return nil
}

func (d *Device) WaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, p := range d.pending {
		p.Signaled = true
	}
	d.pending = nil
	d.WaitIdleCount++
	d.record("wait-idle", "")
	return nil
}

func (d *Device) AcquireImage(signal gpu.Semaphore) (gpu.SurfaceImage, gpu.AcquireStatus, error) {
	status := gpu.AcquireSuccess
	if len(d.acquireScript) > 0 {
		status = d.acquireScript[0]
		d.acquireScript = d.acquireScript[1:]
	}
	d.record("acquire", status.String())
	if status != gpu.AcquireSuccess {
		return nil, status, nil
	}
	img := surfaceImage(d.imageIndex)
	d.imageIndex = (d.imageIndex + 1) % 3
	return img, status, nil
}

func (d *Device) Present(img gpu.SurfaceImage, wait []gpu.Semaphore) (gpu.AcquireStatus, error) {
	status := gpu.AcquireSuccess
	if len(d.presentScript) > 0 {
		status = d.presentScript[0]
		d.presentScript = d.presentScript[1:]
	}
	d.Presented++
	d.record("present", status.String())
	return status, nil
}

func (d *Device) ConfigureSurface(cfg gpu.SurfaceConfig) error {
	d.Surface = append(d.Surface, cfg)
	d.record("configure-surface", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	return nil
}

func (d *Device) SupportsVsyncToggle() bool { return d.VsyncToggle }

func (d *Device) Release() { d.record("release", "") }
