package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space as a unit normal and signed distance from origin.
// A point p is on the inner side of the plane when dot(Normal, p) + Distance >= 0.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum holds the six inward-facing planes of a view frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// Plane indices within Frustum.Planes.
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// Sphere is a bounding volume used for visibility tests.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// ExtractFrustumFromMatrix extracts the six frustum planes from a view-projection matrix
// using the Gribb/Hartmann method. The matrix is column-major and clip depth is [0, 1].
//
// Parameters:
//   - viewProj: the combined view-projection matrix
//
// Returns:
//   - Frustum: the six normalized, inward-facing planes
func ExtractFrustumFromMatrix(viewProj mgl32.Mat4) Frustum {
	var f Frustum

	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(index int, v [4]float32) {
		f.Planes[index] = Plane{Normal: [3]float32{v[0], v[1], v[2]}, Distance: v[3]}
	}

	set(FrustumLeft, add4(r3, r0))
	set(FrustumRight, sub4(r3, r0))
	set(FrustumBottom, add4(r3, r1))
	set(FrustumTop, sub4(r3, r1))
	// Near plane is row 2 alone because clip depth starts at 0, not -w.
	set(FrustumNear, r2)
	set(FrustumFar, sub4(r3, r2))

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// FrustumCorners returns the eight world-space corners of the volume described by invViewProj.
// Corners 0..3 lie on the near plane and 4..7 on the far plane, each wall ordered
// (-x,-y), (-x,+y), (+x,+y), (+x,-y) so that corner i and corner i+4 share an edge.
//
// Parameters:
//   - invViewProj: the inverse of the view-projection matrix
//
// Returns:
//   - [8]mgl32.Vec3: the frustum corners in world space
func FrustumCorners(invViewProj mgl32.Mat4) [8]mgl32.Vec3 {
	ndc := [4][2]float32{{-1, -1}, {-1, 1}, {1, 1}, {1, -1}}

	var corners [8]mgl32.Vec3
	for i, xy := range ndc {
		for layer, z := range [2]float32{0, 1} {
			p := invViewProj.Mul4x1(mgl32.Vec4{xy[0], xy[1], z, 1})
			corners[layer*4+i] = p.Vec3().Mul(1 / p.W())
		}
	}
	return corners
}

// IntersectsSphere reports whether the sphere is at least partially inside the frustum.
// A sphere is rejected only when it lies entirely behind one of the planes.
//
// Parameters:
//   - s: the bounding sphere to test
//
// Returns:
//   - bool: false if the sphere is fully outside any plane
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	for _, p := range f.Planes {
		d := p.Normal[0]*s.Center[0] + p.Normal[1]*s.Center[1] + p.Normal[2]*s.Center[2] + p.Distance
		if d < -s.Radius {
			return false
		}
	}
	return true
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}

func add4(a, b [4]float32) [4]float32 {
	return [4]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func sub4(a, b [4]float32) [4]float32 {
	return [4]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}
