package batch

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrustum() common.Frustum {
	view := common.LookAtLH(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0})
	proj := common.PerspectiveLHZO(common.DegToRad(90), 1, 1, 100)
	return common.ExtractFrustumFromMatrix(proj.Mul4(view))
}

func sphere(x, y, z, r float32) *common.Sphere {
	return &common.Sphere{Center: mgl32.Vec3{x, y, z}, Radius: r}
}

func TestCull(t *testing.T) {
	tests := []struct {
		name   string
		batch  RenderBatch
		culled bool
	}{
		{"inside", RenderBatch{Sphere: sphere(0, 0, 10, 1)}, false},
		{"behind camera", RenderBatch{Sphere: sphere(0, 0, -10, 1)}, true},
		{"past far plane", RenderBatch{Sphere: sphere(0, 0, 150, 10)}, true},
		{"straddles far plane", RenderBatch{Sphere: sphere(0, 0, 105, 10)}, false},
		{"outside left", RenderBatch{Sphere: sphere(-30, 0, 10, 1)}, true},
		{"straddles left plane", RenderBatch{Sphere: sphere(-10.5, 0, 10, 1)}, false},
		{"outside top", RenderBatch{Sphere: sphere(0, 40, 20, 2)}, true},
		{"no sphere", RenderBatch{}, false},
		{"terrain is never culled", RenderBatch{Mode: RenderModeTerrain, Sphere: sphere(0, 0, -10, 1)}, false},
		{"sky is never culled", RenderBatch{Mode: RenderModeSky, Sphere: sphere(0, 0, -10, 1)}, false},
	}

	f := testFrustum()
	q := NewQueue(len(tests), 1)
	for _, tt := range tests {
		require.NoError(t, q.Draw(tt.batch))
	}
	culled := q.Cull(&f)

	want := 0
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.culled, q.Batches()[i].Culled())
		})
		if tt.culled {
			want++
		}
	}
	assert.Equal(t, want, culled)
}

func TestQueueKeepsSubmissionOrderAndResets(t *testing.T) {
	q := NewQueue(4, 2)
	for i := uint32(0); i < 3; i++ {
		require.NoError(t, q.Draw(RenderBatch{InstanceID: i, VertexCount: 3}))
	}
	require.NoError(t, q.DrawUi(RenderBatchUi{Mode: RenderModeUiFont, Scissor: &gpu.Scissor{Width: 10, Height: 10}}))

	ids := []uint32{}
	for _, b := range q.Batches() {
		ids = append(ids, b.InstanceID)
	}
	assert.Equal(t, []uint32{0, 1, 2}, ids)
	assert.Equal(t, 1, q.UiLen())

	q.Reset()
	assert.Zero(t, q.Len())
	assert.Empty(t, q.UiBatches())

	f := testFrustum()
	require.NoError(t, q.Draw(RenderBatch{Sphere: sphere(0, 0, -10, 1)}))
	q.Cull(&f)
	require.True(t, q.Batches()[0].Culled())
	require.NoError(t, q.Draw(RenderBatch{}))
	q.Reset()
	require.NoError(t, q.Draw(RenderBatch{}))
	assert.False(t, q.Batches()[0].Culled(), "reused storage does not carry the culled flag")
}

func TestQueueCapacity(t *testing.T) {
	q := NewQueue(1, 1)
	require.NoError(t, q.Draw(RenderBatch{}))
	assert.True(t, errors.Is(q.Draw(RenderBatch{}), common.ErrContractViolation))
	require.NoError(t, q.DrawUi(RenderBatchUi{}))
	assert.True(t, errors.Is(q.DrawUi(RenderBatchUi{}), common.ErrContractViolation))
}

func TestShadowModes(t *testing.T) {
	mode, ok := RenderModeDefault.DirShadowMode()
	assert.True(t, ok)
	assert.Equal(t, RenderModeDirShadowMap, mode)
	mode, ok = RenderModeTerrain.PointShadowMode()
	assert.True(t, ok)
	assert.Equal(t, RenderModeTerrainPointShadowMap, mode)
	_, ok = RenderModeBillboard.DirShadowMode()
	assert.False(t, ok)
	assert.Equal(t, "terrain-wireframe", RenderModeTerrainWireframe.String())
}
