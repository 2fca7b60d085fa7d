package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexStage sets the WGSL source and entry point of the vertex stage.
//
// Parameters:
//   - source: the WGSL module source
//   - entryPoint: the vertex entry point, or "" to keep "vs_main"
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithVertexStage(source, entryPoint string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertex.source = source
		if entryPoint != "" {
			p.vertex.entry = entryPoint
		}
	}
}

// WithFragmentStage sets the WGSL source and entry point of the fragment stage.
//
// Parameters:
//   - source: the WGSL module source
//   - entryPoint: the fragment entry point, or "" to keep "fs_main"
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithFragmentStage(source, entryPoint string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragment.source = source
		if entryPoint != "" {
			p.fragment.entry = entryPoint
		}
	}
}

// WithVertexLayouts sets the vertex buffer layouts. Draws bind a single vertex buffer at slot 0.
func WithVertexLayouts(layouts ...wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.layouts = layouts
	}
}

// WithDepth sets depth testing and depth writes.
//
// Parameters:
//   - test: compare fragments against the depth attachment
//   - write: store fragment depth
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepth(test, write bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthTest = test
		p.state.DepthWrite = write
	}
}

// WithDepthBias offsets written depth, mostly to fight shadow acne in shadow passes.
//
// Parameters:
//   - bias: constant bias in depth units
//   - slopeScale: bias scaled by the polygon slope
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.DepthBias = bias
		p.state.DepthBiasSlopeScale = slopeScale
	}
}

// WithRasterizer sets primitive assembly and face culling.
//
// Parameters:
//   - topology: the primitive topology
//   - frontFace: the winding of front faces
//   - cull: which faces to discard
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithRasterizer(topology wgpu.PrimitiveTopology, frontFace wgpu.FrontFace, cull wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.Topology = topology
		p.state.FrontFace = frontFace
		p.state.CullMode = cull
	}
}

// WithBlend sets the color blend state. A nil state disables blending.
// AlphaBlend covers UI and font passes.
//
// Parameters:
//   - blend: the blend state, or nil
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithBlend(blend *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		if blend == nil {
			p.state.Blend = nil
			return
		}
		b := *blend
		p.state.Blend = &b
	}
}

// WithWriteMask sets which color channels are written.
func WithWriteMask(mask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.state.WriteMask = mask
	}
}
