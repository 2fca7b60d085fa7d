// Package light defines the directional and point light records the renderer uploads to the GPU and
// the fixed-capacity tables that hold them.
package light

import "github.com/go-gl/mathgl/mgl32"

const (
	// MaxDirLights is the capacity of the directional light table.
	MaxDirLights = 1364
	// MaxPointLights is the capacity of the point light table.
	MaxPointLights = 1364
	// DefaultShadowMapResolution is the shadow map resolution used by the builders when shadows
	// are enabled without an explicit resolution.
	DefaultShadowMapResolution = 2048
)

// NoShadowMap is the shadow map id of a light that casts no shadow.
const NoShadowMap = ^uint32(0)

// Directional is a light with a direction and no position, such as the sun.
type Directional struct {
	Color mgl32.Vec3
	// Dir is the direction the light travels in.
	Dir mgl32.Vec3
	// ShadowMapCount is the number of shadow cascades, 0 if the light casts no shadow.
	ShadowMapCount uint32
	// ShadowMapResX is the width of each cascade.
	ShadowMapResX uint32
	// ShadowMapResY is the height of each cascade.
	ShadowMapResY uint32
	// ShadowMapID is assigned by the renderer; values set by callers are ignored.
	ShadowMapID uint32
}

// CastsShadow reports whether the light needs a shadow map.
func (d Directional) CastsShadow() bool {
	return d.ShadowMapCount != 0
}

// SameShadow reports whether o needs the same shadow map as d.
func (d Directional) SameShadow(o Directional) bool {
	return d.ShadowMapCount == o.ShadowMapCount && d.ShadowMapResX == o.ShadowMapResX && d.ShadowMapResY == o.ShadowMapResY
}

// Point is a light that emits in all directions from a position with distance attenuation
// 1 / (A0 + A1*d + A2*d*d) up to MaxDistance.
type Point struct {
	Color       mgl32.Vec3
	MaxDistance float32
	Pos         mgl32.Vec3
	// ShadowMapRes is the cube face resolution, 0 if the light casts no shadow.
	ShadowMapRes uint32
	A0           float32
	A1           float32
	A2           float32
	Power        float32
	// ShadowMapID is assigned by the renderer; values set by callers are ignored.
	ShadowMapID uint32
}

// CastsShadow reports whether the light needs a shadow map.
func (p Point) CastsShadow() bool {
	return p.ShadowMapRes != 0
}

// SameShadow reports whether o needs the same shadow map as p.
func (p Point) SameShadow(o Point) bool {
	return p.ShadowMapRes == o.ShadowMapRes
}
