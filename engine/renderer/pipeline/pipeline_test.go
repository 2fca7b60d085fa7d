package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline(gpu.PassMain, 3, WithVertexStage("vs", ""))

	assert.Equal(t, gpu.PipelineKey{Pass: gpu.PassMain, Mode: 3}, p.Key())
	src, entry := p.VertexStage()
	assert.Equal(t, "vs", src)
	assert.Equal(t, "vs_main", entry)
	src, _ = p.FragmentStage()
	assert.Empty(t, src)

	state := p.State()
	assert.True(t, state.DepthTest)
	assert.True(t, state.DepthWrite)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, state.Topology)
	assert.Equal(t, wgpu.ColorWriteMaskAll, state.WriteMask)
	assert.Nil(t, state.Blend)
}

func TestPipelineOptions(t *testing.T) {
	layout := wgpu.VertexBufferLayout{ArrayStride: 32, StepMode: wgpu.VertexStepModeVertex}
	p := NewPipeline(gpu.PassDirShadow, 0,
		WithFragmentStage("fs", "main_fs"),
		WithVertexLayouts(layout),
		WithDepth(true, false),
		WithDepthBias(2, 1.5),
		WithRasterizer(wgpu.PrimitiveTopologyLineList, wgpu.FrontFaceCW, wgpu.CullModeBack),
		WithBlend(&AlphaBlend),
	)

	src, entry := p.FragmentStage()
	assert.Equal(t, "fs", src)
	assert.Equal(t, "main_fs", entry)
	assert.Equal(t, []wgpu.VertexBufferLayout{layout}, p.VertexLayouts())

	state := p.State()
	assert.False(t, state.DepthWrite)
	assert.Equal(t, int32(2), state.DepthBias)
	assert.Equal(t, float32(1.5), state.DepthBiasSlopeScale)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, state.Topology)
	assert.Equal(t, wgpu.FrontFaceCW, state.FrontFace)
	assert.Equal(t, wgpu.CullModeBack, state.CullMode)
	require.NotNil(t, state.Blend)
	assert.Equal(t, AlphaBlend, *state.Blend)
}

func TestWithBlendCopiesState(t *testing.T) {
	blend := AlphaBlend
	p := NewPipeline(gpu.PassUi, 0, WithBlend(&blend))
	blend.Color.Operation = wgpu.BlendOperationMax

	assert.Equal(t, wgpu.BlendOperationAdd, p.State().Blend.Color.Operation)
	assert.Nil(t, NewPipeline(gpu.PassUi, 0, WithBlend(&blend), WithBlend(nil)).State().Blend)
}
