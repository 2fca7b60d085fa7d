package bind_group_provider

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"go.uber.org/zap"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// device creates the binding tables.
	device gpu.Device
	// logger receives rebuild diagnostics.
	logger *zap.Logger
	// frames is the number of frame slots, one table each.
	frames int
	// dirty is set by any structural change and cleared by Rebuild.
	dirty bool
	// rebuilds counts completed rebuilds.
	rebuilds int

	// tables holds the GPU binding table of each slot, nil until the first Rebuild.
	tables []gpu.BindingTable
}

// BindGroupProvider owns the single binding table of each frame slot. The table covers every
// resource shaders read (see the Binding* slots) and is rebuilt lazily and as a whole.
//
// Usage pattern:
//  1. Any structural change (new texture, new shadow map, a descriptor-visible buffer replaced
//     by growth) calls MarkDirty
//  2. Before recording a frame the renderer calls Rebuild, which is a no-op unless dirty
//  3. The frame binds BindGroup(slot)
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// MarkDirty schedules a rebuild before the next frame is recorded.
	MarkDirty()

	// Dirty reports whether a rebuild is pending.
	//
	// Returns:
	//   - bool: true if Rebuild will recreate the tables
	Dirty() bool

	// Rebuild waits for the device to go idle, then destroys and recreates the table of every slot
	// from source. It does nothing unless the provider is dirty. Waiting for idle makes the rebuild
	// safe for tables still referenced by in-flight frames.
	//
	// Parameters:
	//   - ctx: bounds the idle wait
	//   - source: supplies the bindings of each slot
	//
	// Returns:
	//   - bool: true if the tables were rebuilt
	//   - error: a fatal error if the wait or a table creation fails
	Rebuild(ctx context.Context, source Source) (bool, error)

	// BindGroup returns the binding table of a slot, or nil before the first rebuild.
	//
	// Parameters:
	//   - slot: the frame slot index
	//
	// Returns:
	//   - gpu.BindingTable: the slot's table
	BindGroup(slot int) gpu.BindingTable

	// Rebuilds returns the number of completed rebuilds.
	//
	// Returns:
	//   - int: rebuild count
	Rebuilds() int

	// Release destroys every table. The device must be idle.
	Release()
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a provider for frames slots. It starts dirty so the first frame
// builds the tables.
//
// Parameters:
//   - device: the device tables are created on
//   - frames: the number of frame slots
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(device gpu.Device, frames int, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:  "binding-table",
		device: device,
		logger: zap.NewNop(),
		frames: frames,
		dirty:  true,
		tables: make([]gpu.BindingTable, frames),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) MarkDirty() {
	p.dirty = true
}

func (p *bindGroupProvider) Dirty() bool {
	return p.dirty
}

func (p *bindGroupProvider) Rebuilds() int {
	return p.rebuilds
}

func (p *bindGroupProvider) BindGroup(slot int) gpu.BindingTable {
	return p.tables[slot]
}

func (p *bindGroupProvider) Rebuild(ctx context.Context, source Source) (bool, error) {
	if !p.dirty {
		return false, nil
	}
	if err := p.device.WaitIdle(ctx); err != nil {
		return false, common.WrapFatal(err, "failed waiting for device idle before binding table rebuild")
	}

	for slot := 0; slot < p.frames; slot++ {
		if p.tables[slot] != nil {
			p.tables[slot].Destroy()
			p.tables[slot] = nil
		}
		table, err := p.device.CreateBindingTable(gpu.BindingTableDescriptor{
			Label:    fmt.Sprintf("%s-slot-%d", p.label, slot),
			Bindings: source.Bindings(slot),
		})
		if err != nil {
			return false, common.WrapFatal(err, "failed to create binding table")
		}
		p.tables[slot] = table
	}

	p.dirty = false
	p.rebuilds++
	p.logger.Debug("binding tables rebuilt", zap.String("label", p.label), zap.Int("rebuilds", p.rebuilds))
	return true, nil
}

func (p *bindGroupProvider) Release() {
	for i, t := range p.tables {
		if t != nil {
			t.Destroy()
			p.tables[i] = nil
		}
	}
}
