package shadow

import (
	"math"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/go-gl/mathgl/mgl32"
)

// SplitLambda blends logarithmic and uniform cascade splits. 1 is fully logarithmic.
const SplitLambda float32 = 0.97

// LightDistance is how far behind the view the virtual directional light position is placed.
const LightDistance float32 = 1000

// PointNear is the near plane of every point light cube face.
const PointNear float32 = 1

// View is what cascade partitioning needs from the camera.
type View interface {
	// Near returns the near plane distance.
	Near() float32
	// Far returns the far plane distance.
	Far() float32
	// FrustumPoints returns the world-space frustum corners: the four near corners followed by
	// the four far corners in matching order.
	FrustumPoints() [8]mgl32.Vec3
}

// CascadeSplit returns the view depth of cascade boundary i of n, blending a logarithmic and a
// uniform split with SplitLambda. Boundary 0 is near and boundary n is far.
func CascadeSplit(near, far float32, i, n int) float32 {
	t := float32(i) / float32(n)
	logSplit := near * float32(math.Pow(float64(far/near), float64(t)))
	uniform := near + t*(far-near)
	return SplitLambda*logSplit + (1-SplitLambda)*uniform
}

// WorldToLight returns the view matrix of a directional light: the scene is rotated so dir points
// along +Z and translated so the virtual light position LightDistance behind the origin is at zero.
func WorldToLight(dir mgl32.Vec3) mgl32.Mat4 {
	dir = dir.Normalize()
	lightPos := dir.Mul(-LightDistance)
	rot := mgl32.QuatBetweenVectors(dir, mgl32.Vec3{0, 0, 1}).Mat4()
	return rot.Mul4(mgl32.Translate3D(-lightPos[0], -lightPos[1], -lightPos[2]))
}

// Cascades partitions the view frustum along depth and fits one orthographic light projection
// around each partition.
//
// Parameters:
//   - dir: light direction in world space
//   - view: the camera to partition
//   - partitions: number of cascades, 1 to MaxDirPartitions
//
// Returns:
//   - DirData: the per-cascade projections, texture-space projections and far split depths
func Cascades(dir mgl32.Vec3, view View, partitions int) DirData {
	var data DirData
	near, far := view.Near(), view.Far()
	points := view.FrustumPoints()
	worldToLight := WorldToLight(dir)

	var nearWall [4]mgl32.Vec3
	copy(nearWall[:], points[:4])

	for i := 0; i < partitions; i++ {
		var farWall [4]mgl32.Vec3
		z := far
		if i < partitions-1 {
			z = CascadeSplit(near, far, i+1, partitions)
			d := (z - near) / (far - near)
			for j := range farWall {
				farWall[j] = common.LerpVec3(points[j], points[4+j], d)
			}
		} else {
			copy(farWall[:], points[4:])
		}

		bbMin := common.TransformPoint(worldToLight, nearWall[0])
		bbMax := bbMin
		for j := 0; j < 4; j++ {
			for _, p := range []mgl32.Vec3{nearWall[j], farWall[j]} {
				lp := common.TransformPoint(worldToLight, p)
				bbMin = common.MinVec3(bbMin, lp)
				bbMax = common.MaxVec3(bbMax, lp)
			}
		}

		p := common.OrthoLHZO(bbMin[0], bbMax[0], bbMin[1], bbMax[1], 0, bbMax[2]).Mul4(worldToLight)
		data.P[i] = p
		data.TexP[i] = common.TexCoordsFromClip.Mul4(p)
		data.Z[i] = z

		nearWall = farWall
	}
	return data
}

// cubeFaces lists the look direction and up vector of each cube face in +X, -X, +Y, -Y, +Z, -Z order.
var cubeFaces = [6][2]mgl32.Vec3{
	{{1, 0, 0}, {0, 1, 0}},
	{{-1, 0, 0}, {0, 1, 0}},
	{{0, 1, 0}, {0, 0, -1}},
	{{0, -1, 0}, {0, 0, 1}},
	{{0, 0, 1}, {0, 1, 0}},
	{{0, 0, -1}, {0, 1, 0}},
}

// CubeFaces returns the six view-projections of a point light's cube shadow map.
//
// Parameters:
//   - pos: light position
//   - maxDistance: light range, used as the far plane; must exceed PointNear
//
// Returns:
//   - PointData: the face view-projections with the position and range
func CubeFaces(pos mgl32.Vec3, maxDistance float32) PointData {
	proj := common.PerspectiveLHZO(common.DegToRad(90), 1, PointNear, maxDistance)
	data := PointData{Pos: pos, MaxDistance: maxDistance}
	for i, face := range cubeFaces {
		data.P[i] = proj.Mul4(common.LookAtLH(pos, pos.Add(face[0]), face[1]))
	}
	return data
}
