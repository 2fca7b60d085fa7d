// Package pipeline describes the render pipeline variants the device compiles for each pass and
// render mode.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// AlphaBlend is straight alpha blending: color uses source alpha, alpha accumulates coverage.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// Pipeline describes one render pipeline variant. The device compiles it on first use of its Key
// and owns the resulting GPU object.
type Pipeline interface {
	gpu.PipelineSource
}

type stage struct {
	source, entry string
}

type pipeline struct {
	key      gpu.PipelineKey
	vertex   stage
	fragment stage
	layouts  []wgpu.VertexBufferLayout
	state    gpu.PipelineState
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline for one pass and render mode. Without options it draws opaque
// triangle lists with depth test and write, no culling and counter-clockwise front faces.
// Leaving out the fragment stage makes a depth-only pipeline, which is what shadow passes use.
//
// Parameters:
//   - pass: the pass the pipeline runs in
//   - mode: the render mode the pipeline draws
//   - opts: options configuring stages and fixed-function state
//
// Returns:
//   - Pipeline: the pipeline description
func NewPipeline(pass gpu.PassKind, mode uint32, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:      gpu.PipelineKey{Pass: pass, Mode: mode},
		vertex:   stage{entry: "vs_main"},
		fragment: stage{entry: "fs_main"},
		state: gpu.PipelineState{
			Topology:   wgpu.PrimitiveTopologyTriangleList,
			FrontFace:  wgpu.FrontFaceCCW,
			CullMode:   wgpu.CullModeNone,
			DepthTest:  true,
			DepthWrite: true,
			WriteMask:  wgpu.ColorWriteMaskAll,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Key() gpu.PipelineKey {
	return p.key
}

func (p *pipeline) VertexStage() (string, string) {
	return p.vertex.source, p.vertex.entry
}

func (p *pipeline) FragmentStage() (string, string) {
	return p.fragment.source, p.fragment.entry
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	return p.layouts
}

func (p *pipeline) State() gpu.PipelineState {
	return p.state
}
