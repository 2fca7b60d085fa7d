package gpu

import (
	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// PipelineState is the fixed-function state of a render pipeline.
type PipelineState struct {
	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	CullMode  wgpu.CullMode

	// DepthTest compares against the depth attachment with Less; when false every fragment passes.
	DepthTest           bool
	DepthWrite          bool
	DepthBias           int32
	DepthBiasSlopeScale float32

	// Blend is nil when blending is disabled.
	Blend     *wgpu.BlendState
	WriteMask wgpu.ColorWriteMask
}

// PipelineSource describes a render pipeline for the WebGPU device. The device supplies the
// attachment formats, the sample count and the pipeline layout: group 0 is the binding table and
// group 1 holds the 16 byte push constant block at binding 0.
type PipelineSource interface {
	// Key returns the pass and mode the pipeline is selected by.
	Key() PipelineKey
	// VertexStage returns the WGSL source and entry point of the vertex stage.
	VertexStage() (source, entryPoint string)
	// FragmentStage returns the WGSL source and entry point of the fragment stage.
	// An empty source makes a depth-only pipeline.
	FragmentStage() (source, entryPoint string)
	VertexLayouts() []wgpu.VertexBufferLayout
	State() PipelineState
}

const (
	mainDepthFormat = wgpu.TextureFormatDepth24Plus
	pushBlockSize   = 16
)

type pipelineKey struct {
	key   PipelineKey
	depth wgpu.TextureFormat
}

// pipeline returns the compiled pipeline for key, building it on first use. A nil pipeline means
// no source is registered for key.
func (d *wgpuDevice) pipeline(key PipelineKey, shadowFormat wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	depth := mainDepthFormat
	switch key.Pass {
	case PassDirShadow, PassPointShadow:
		depth = shadowFormat
	case PassUi:
		depth = wgpu.TextureFormatUndefined
	}
	ck := pipelineKey{key: key, depth: depth}
	if p, ok := d.pipelines[ck]; ok {
		return p, nil
	}
	src, ok := d.sources[key]
	if !ok {
		if !d.missing[key] {
			d.missing[key] = true
			d.logger.Warn("no pipeline registered, draws skipped", zap.Int("pass", int(key.Pass)), zap.Uint32("mode", key.Mode))
		}
		return nil, nil
	}
	if d.tableLayout == nil {
		return nil, common.Contractf("pipeline %d/%d used before any binding table was created", key.Pass, key.Mode)
	}

	p, err := d.buildPipeline(src, depth)
	if err != nil {
		d.logger.Error("pipeline creation failed", zap.Int("pass", int(key.Pass)), zap.Uint32("mode", key.Mode), zap.Error(err))
		return nil, common.WrapFatal(err, "failed to create render pipeline")
	}
	d.pipelines[ck] = p
	d.logger.Debug("pipeline created", zap.Int("pass", int(key.Pass)), zap.Uint32("mode", key.Mode))
	return p, nil
}

func (d *wgpuDevice) buildPipeline(src PipelineSource, depth wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	key := src.Key()
	label := d.objectLabel("pipeline-%d-%d", key.Pass, key.Mode)

	vsSource, vsEntry := src.VertexStage()
	vs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label + "-vs",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: vsSource},
	})
	if err != nil {
		return nil, err
	}
	defer vs.Release()

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label + "-layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.tableLayout, d.pushLayout},
	})
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	state := src.State()
	shadow := key.Pass == PassDirShadow || key.Pass == PassPointShadow
	samples := d.sampleCount
	if shadow {
		samples = 1
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vsEntry,
			Buffers:    src.VertexLayouts(),
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  state.Topology,
			FrontFace: state.FrontFace,
			CullMode:  state.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
	}

	if fsSource, fsEntry := src.FragmentStage(); fsSource != "" {
		fs, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          label + "-fs",
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: fsSource},
		})
		if err != nil {
			return nil, err
		}
		defer fs.Release()
		desc.Fragment = &wgpu.FragmentState{Module: fs, EntryPoint: fsEntry}
		if !shadow {
			desc.Fragment.Targets = []wgpu.ColorTargetState{{
				Format:    d.surfaceFormat,
				Blend:     state.Blend,
				WriteMask: state.WriteMask,
			}}
		}
	}

	if depth != wgpu.TextureFormatUndefined {
		compare := wgpu.CompareFunctionLess
		if !state.DepthTest {
			compare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              depth,
			DepthWriteEnabled:   state.DepthWrite,
			DepthCompare:        compare,
			DepthBias:           state.DepthBias,
			DepthBiasSlopeScale: state.DepthBiasSlopeScale,
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	return d.device.CreateRenderPipeline(desc)
}

// releasePipelines drops every compiled pipeline; they are rebuilt on next use.
func (d *wgpuDevice) releasePipelines() {
	for k, p := range d.pipelines {
		p.Release()
		delete(d.pipelines, k)
	}
}
