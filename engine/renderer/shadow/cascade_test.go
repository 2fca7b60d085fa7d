package shadow

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testView struct {
	near, far float32
	points    [8]mgl32.Vec3
}

func (v testView) Near() float32                { return v.near }
func (v testView) Far() float32                 { return v.far }
func (v testView) FrustumPoints() [8]mgl32.Vec3 { return v.points }

func newTestView(eye, center mgl32.Vec3, near, far float32) testView {
	view := common.LookAtLH(eye, center, mgl32.Vec3{0, 1, 0})
	proj := common.PerspectiveLHZO(common.DegToRad(60), 16.0/9.0, near, far)
	return testView{near: near, far: far, points: common.FrustumCorners(proj.Mul4(view).Inv())}
}

// assertVec3Near compares component-wise with an absolute tolerance.
func assertVec3Near(t *testing.T, want, got mgl32.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], delta, msgAndArgs...)
	}
}

func TestCascadeSplitEndpoints(t *testing.T) {
	assert.InDelta(t, 0.5, CascadeSplit(0.5, 500, 0, 4), 1e-4)
	assert.InDelta(t, 500, CascadeSplit(0.5, 500, 4, 4), 1e-2)

	prev := float32(0.5)
	for i := 1; i <= 4; i++ {
		z := CascadeSplit(0.5, 500, i, 4)
		assert.Greater(t, z, prev)
		prev = z
	}
	// Mostly logarithmic: the first cascade covers far less than a uniform quarter.
	assert.Less(t, CascadeSplit(0.5, 500, 1, 4), float32(125))
}

func TestWorldToLightAlignsDirection(t *testing.T) {
	dirs := []mgl32.Vec3{
		{0, -1, 0},
		{0.3, -0.8, 0.5},
		{0, 0, 1},
		{0, 0, -1},
	}
	for _, dir := range dirs {
		m := WorldToLight(dir)
		got := m.Mul4x1(dir.Normalize().Vec4(0)).Vec3()
		assertVec3Near(t, mgl32.Vec3{0, 0, 1}, got, 1e-4, "dir %v maps to %v", dir, got)

		lightPos := dir.Normalize().Mul(-LightDistance)
		origin := common.TransformPoint(m, lightPos)
		assertVec3Near(t, mgl32.Vec3{}, origin, 1e-2, "light position maps to %v", origin)
	}
}

func TestCascadesContainTheirPartition(t *testing.T) {
	view := newTestView(mgl32.Vec3{5, 3, -10}, mgl32.Vec3{6, 2, 10}, 0.5, 200)
	dir := mgl32.Vec3{0.4, -1, 0.2}

	for partitions := 1; partitions <= MaxDirPartitions; partitions++ {
		data := Cascades(dir, view, partitions)
		assert.InDelta(t, 200, data.Z[partitions-1], 1e-3)

		nearZ := view.near
		for i := 0; i < partitions; i++ {
			farZ := data.Z[i]
			require.Greater(t, farZ, nearZ)
			for _, z := range []float32{nearZ, farZ} {
				d := (z - view.near) / (view.far - view.near)
				for j := 0; j < 4; j++ {
					p := common.LerpVec3(view.points[j], view.points[4+j], d)
					clip := data.P[i].Mul4x1(p.Vec4(1))
					assert.InDelta(t, 1, clip.W(), 1e-5)
					assert.True(t, clip.X() >= -1.001 && clip.X() <= 1.001, "x %f", clip.X())
					assert.True(t, clip.Y() >= -1.001 && clip.Y() <= 1.001, "y %f", clip.Y())
					assert.True(t, clip.Z() >= 0 && clip.Z() <= 1.001, "z %f", clip.Z())

					tex := data.TexP[i].Mul4x1(p.Vec4(1))
					assert.True(t, tex.X() >= -0.001 && tex.X() <= 1.001)
					assert.True(t, tex.Y() >= -0.001 && tex.Y() <= 1.001)
				}
			}
			nearZ = farZ
		}
		for i := partitions; i < MaxDirPartitions; i++ {
			assert.Equal(t, mgl32.Mat4{}, data.P[i], "unused cascades stay zero")
		}
	}
}

func TestCubeFacesLookDownEachAxis(t *testing.T) {
	pos := mgl32.Vec3{2, 4, -3}
	data := CubeFaces(pos, 50)
	assert.Equal(t, pos, data.Pos)
	assert.Equal(t, float32(50), data.MaxDistance)

	for i, face := range cubeFaces {
		target := pos.Add(face[0].Mul(10))
		clip := data.P[i].Mul4x1(target.Vec4(1))
		ndc := clip.Vec3().Mul(1 / clip.W())
		assert.InDelta(t, 0, ndc.X(), 1e-4, "face %d", i)
		assert.InDelta(t, 0, ndc.Y(), 1e-4, "face %d", i)
		assert.True(t, ndc.Z() > 0 && ndc.Z() < 1, "face %d depth %f", i, ndc.Z())

		behind := pos.Sub(face[0].Mul(10))
		assert.Less(t, data.P[i].Mul4x1(behind.Vec4(1)).W(), float32(0), "face %d sees behind the light", i)
	}
}
