package gpu

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultImageArrayCapacity is the array length of image bindings without an explicit capacity.
const DefaultImageArrayCapacity = 16

// tableEntry is one binding of the table layout. Image bindings expand into count consecutive
// WGSL bindings starting at first.
type tableEntry struct {
	slot    uint32
	kind    BindingKind
	uniform bool
	first   uint32
	count   uint32
}

// tableLayout numbers the bindings in slot order. Buffers take one WGSL binding, image arrays take
// their capacity; the filtering and comparison samplers follow the last entry.
//
// Parameters:
//   - bindings: the table contents
//   - capacity: image array capacities by slot
//
// Returns:
//   - []tableEntry: the layout entries in slot order
//   - uint32: the binding number of the filtering sampler
func tableLayout(bindings []Binding, capacity map[uint32]uint32) ([]tableEntry, uint32) {
	sorted := slices.Clone(bindings)
	slices.SortFunc(sorted, func(a, b Binding) int { return int(a.Slot) - int(b.Slot) })

	entries := make([]tableEntry, 0, len(sorted))
	next := uint32(0)
	for _, b := range sorted {
		e := tableEntry{slot: b.Slot, kind: b.Kind, first: next, count: 1}
		switch b.Kind {
		case BindingUniform:
			e.uniform = true
		case BindingTextures, BindingDepthArrays, BindingDepthCubes:
			e.count = common.Coalesce(capacity[b.Slot], DefaultImageArrayCapacity)
		}
		entries = append(entries, e)
		next += e.count
	}
	return entries, next
}

func (e tableEntry) layoutEntries() []wgpu.BindGroupLayoutEntry {
	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	out := make([]wgpu.BindGroupLayoutEntry, 0, e.count)
	for i := range e.count {
		entry := wgpu.BindGroupLayoutEntry{Binding: e.first + i, Visibility: visibility}
		switch e.kind {
		case BindingUniform:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		case BindingStorage:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}
		case BindingTextures:
			entry.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		case BindingDepthArrays:
			entry.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: wgpu.TextureViewDimension2DArray,
			}
		case BindingDepthCubes:
			entry.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: wgpu.TextureViewDimensionCube,
			}
		}
		out = append(out, entry)
	}
	return out
}

// createTableLayout builds the group 0 layout from the first table. Later tables must match it.
func (d *wgpuDevice) createTableLayout(entries []tableEntry, samplers uint32) error {
	layoutEntries := make([]wgpu.BindGroupLayoutEntry, 0, samplers+2)
	for _, e := range entries {
		layoutEntries = append(layoutEntries, e.layoutEntries()...)
	}
	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	layoutEntries = append(layoutEntries,
		wgpu.BindGroupLayoutEntry{
			Binding:    samplers,
			Visibility: visibility,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		},
		wgpu.BindGroupLayoutEntry{
			Binding:    samplers + 1,
			Visibility: visibility,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
		},
	)

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   d.objectLabel("table-layout"),
		Entries: layoutEntries,
	})
	if err != nil {
		return common.WrapFatal(err, "failed to create binding table layout")
	}
	d.tableLayout = layout
	d.tableEntries = entries
	return nil
}

func (d *wgpuDevice) CreateBindingTable(desc BindingTableDescriptor) (BindingTable, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, samplers := tableLayout(desc.Bindings, d.imageCapacity)
	if d.tableLayout == nil {
		if err := d.createTableLayout(entries, samplers); err != nil {
			return nil, err
		}
	} else if !slices.Equal(entries, d.tableEntries) {
		return nil, common.Contractf("binding table %s does not match the layout of the first table", desc.Label)
	}

	bySlot := make(map[uint32]Binding, len(desc.Bindings))
	for _, b := range desc.Bindings {
		bySlot[b.Slot] = b
	}

	groupEntries := make([]wgpu.BindGroupEntry, 0, samplers+2)
	for _, e := range entries {
		b := bySlot[e.slot]
		switch e.kind {
		case BindingUniform, BindingStorage:
			if len(b.Buffers) != 1 {
				return nil, common.Contractf("binding %d of %s needs exactly one buffer", e.slot, desc.Label)
			}
			buf := b.Buffers[0].(*wgpuBuffer)
			groupEntries = append(groupEntries, wgpu.BindGroupEntry{
				Binding: e.first,
				Buffer:  buf.buf,
				Size:    wgpu.WholeSize,
			})
		default:
			if uint32(len(b.Images)) > e.count {
				return nil, common.Contractf("binding %d of %s holds %d images, capacity is %d", e.slot, desc.Label, len(b.Images), e.count)
			}
			for i := range e.count {
				view := d.placeholderView(e.kind)
				if int(i) < len(b.Images) && b.Images[i] != nil {
					view = b.Images[i].(*wgpuImage).view
				}
				groupEntries = append(groupEntries, wgpu.BindGroupEntry{
					Binding:     e.first + i,
					TextureView: view,
				})
			}
		}
	}
	groupEntries = append(groupEntries,
		wgpu.BindGroupEntry{Binding: samplers, Sampler: d.linearSampler},
		wgpu.BindGroupEntry{Binding: samplers + 1, Sampler: d.shadowSampler},
	)

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   d.objectLabel("%s", desc.Label),
		Layout:  d.tableLayout,
		Entries: groupEntries,
	})
	if err != nil {
		return nil, common.WrapFatal(err, "failed to create binding table "+desc.Label)
	}
	return &wgpuTable{group: group}, nil
}

func (d *wgpuDevice) placeholderView(kind BindingKind) *wgpu.TextureView {
	switch kind {
	case BindingDepthArrays:
		return d.placeholderArray.view
	case BindingDepthCubes:
		return d.placeholderCube.view
	}
	return d.placeholderColor.view
}

// createPlaceholders creates the images bound in place of missing array entries and the two samplers.
func (d *wgpuDevice) createPlaceholders() error {
	var err error
	if d.placeholderColor, err = d.createImage(ImageDescriptor{
		Label: "placeholder-color", Width: 1, Height: 1, Layers: 1, Format: ImageFormatRGBA8,
	}); err != nil {
		return err
	}
	if d.placeholderArray, err = d.createImage(ImageDescriptor{
		Label: "placeholder-depth-array", Width: 1, Height: 1, Layers: 1, Format: ImageFormatDepth32,
	}); err != nil {
		return err
	}
	if d.placeholderCube, err = d.createImage(ImageDescriptor{
		Label: "placeholder-depth-cube", Width: 1, Height: 1, Layers: 6, Format: ImageFormatDepth32, Cube: true,
	}); err != nil {
		return err
	}

	if d.linearSampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         d.objectLabel("sampler-linear"),
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	}); err != nil {
		return common.WrapFatal(err, "failed to create sampler")
	}
	if d.shadowSampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         d.objectLabel("sampler-shadow"),
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
		Compare:       wgpu.CompareFunctionLessEqual,
	}); err != nil {
		return common.WrapFatal(err, "failed to create comparison sampler")
	}
	return nil
}
