package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViewProj() mgl32.Mat4 {
	view := LookAtLH(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0})
	proj := PerspectiveLHZO(DegToRad(90), 1, 1, 100)
	return proj.Mul4(view)
}

func TestFrustumIntersectsSphere(t *testing.T) {
	f := ExtractFrustumFromMatrix(testViewProj())

	tests := []struct {
		name   string
		sphere Sphere
		want   bool
	}{
		{"inside", Sphere{Center: mgl32.Vec3{0, 0, 50}, Radius: 1}, true},
		{"behind camera", Sphere{Center: mgl32.Vec3{0, 0, -10}, Radius: 1}, false},
		{"straddles near plane", Sphere{Center: mgl32.Vec3{0, 0, 0.5}, Radius: 1}, true},
		{"beyond far plane", Sphere{Center: mgl32.Vec3{0, 0, 150}, Radius: 10}, false},
		{"straddles far plane", Sphere{Center: mgl32.Vec3{0, 0, 105}, Radius: 10}, true},
		{"outside right plane", Sphere{Center: mgl32.Vec3{55, 0, 50}, Radius: 1}, false},
		{"straddles right plane", Sphere{Center: mgl32.Vec3{50.5, 0, 50}, Radius: 1}, true},
		{"outside top plane", Sphere{Center: mgl32.Vec3{0, 60, 50}, Radius: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IntersectsSphere(tt.sphere))
		})
	}
}

func TestExtractFrustumPlanesAreNormalized(t *testing.T) {
	f := ExtractFrustumFromMatrix(testViewProj())
	for i, p := range f.Planes {
		n := mgl32.Vec3(p.Normal)
		assert.InDelta(t, 1.0, n.Len(), 1e-5, "plane %d", i)
	}
	assert.InDelta(t, -1.0, f.Planes[FrustumNear].Distance, 1e-4)
	assert.InDelta(t, 100.0, f.Planes[FrustumFar].Distance, 1e-2)
}

func TestFrustumCorners(t *testing.T) {
	inv := testViewProj().Inv()
	corners := FrustumCorners(inv)

	require.Len(t, corners, 8)
	assertVec3Near(t, mgl32.Vec3{-1, -1, 1}, corners[0], 1e-3, "near (-,-): %v", corners[0])
	assertVec3Near(t, mgl32.Vec3{1, 1, 1}, corners[2], 1e-3, "near (+,+): %v", corners[2])
	assertVec3Near(t, mgl32.Vec3{-100, 100, 100}, corners[5], 0.5, "far (-,+): %v", corners[5])
	assertVec3Near(t, mgl32.Vec3{100, -100, 100}, corners[7], 0.5, "far (+,-): %v", corners[7])
}
