package light

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DirectionalOption configures a Directional light built with NewDirectional.
type DirectionalOption func(*Directional)

// PointOption configures a Point light built with NewPoint.
type PointOption func(*Point)

// NewDirectional builds a white directional light pointing straight down with no shadow.
//
// Parameters:
//   - opts: functional options
//
// Returns:
//   - Directional: the light record
func NewDirectional(opts ...DirectionalOption) Directional {
	d := Directional{
		Color:       mgl32.Vec3{1, 1, 1},
		Dir:         mgl32.Vec3{0, -1, 0},
		ShadowMapID: NoShadowMap,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - DirectionalOption: a function that applies the direction option
func WithDirection(x, y, z float32) DirectionalOption {
	return func(d *Directional) {
		d.Dir = normalize3(x, y, z)
	}
}

// WithDirectionalColor is an option builder that sets the RGB color of a directional light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - DirectionalOption: a function that applies the color option
func WithDirectionalColor(r, g, b float32) DirectionalOption {
	return func(d *Directional) {
		d.Color = mgl32.Vec3{r, g, b}
	}
}

// WithCascades is an option builder that enables shadows with the given cascade count and resolution.
//
// Parameters:
//   - count: number of cascades
//   - resX: width of each cascade
//   - resY: height of each cascade
//
// Returns:
//   - DirectionalOption: a function that applies the shadow option
func WithCascades(count, resX, resY uint32) DirectionalOption {
	return func(d *Directional) {
		d.ShadowMapCount = count
		d.ShadowMapResX = resX
		d.ShadowMapResY = resY
	}
}

// NewPoint builds a white point light at the origin with quadratic attenuation and no shadow.
//
// Parameters:
//   - opts: functional options
//
// Returns:
//   - Point: the light record
func NewPoint(opts ...PointOption) Point {
	p := Point{
		Color:       mgl32.Vec3{1, 1, 1},
		MaxDistance: 10,
		A0:          1,
		A2:          1,
		Power:       1,
		ShadowMapID: NoShadowMap,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - PointOption: a function that applies the position option
func WithPosition(x, y, z float32) PointOption {
	return func(p *Point) {
		p.Pos = mgl32.Vec3{x, y, z}
	}
}

// WithPointColor is an option builder that sets the RGB color of a point light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - PointOption: a function that applies the color option
func WithPointColor(r, g, b float32) PointOption {
	return func(p *Point) {
		p.Color = mgl32.Vec3{r, g, b}
	}
}

// WithRange is an option builder that sets the maximum attenuation distance.
//
// Parameters:
//   - lightRange: the range value
//
// Returns:
//   - PointOption: a function that applies the range option
func WithRange(lightRange float32) PointOption {
	return func(p *Point) {
		p.MaxDistance = lightRange
	}
}

// WithAttenuation is an option builder that sets the constant, linear and quadratic attenuation terms.
//
// Parameters:
//   - a0: constant term
//   - a1: linear term
//   - a2: quadratic term
//
// Returns:
//   - PointOption: a function that applies the attenuation option
func WithAttenuation(a0, a1, a2 float32) PointOption {
	return func(p *Point) {
		p.A0, p.A1, p.A2 = a0, a1, a2
	}
}

// WithPower is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - power: the intensity value
//
// Returns:
//   - PointOption: a function that applies the power option
func WithPower(power float32) PointOption {
	return func(p *Point) {
		p.Power = power
	}
}

// WithShadow is an option builder that enables a cube shadow map of the given face resolution.
//
// Parameters:
//   - resolution: face width and height in texels
//
// Returns:
//   - PointOption: a function that applies the shadow option
func WithShadow(resolution uint32) PointOption {
	return func(p *Point) {
		p.ShadowMapRes = resolution
	}
}

// normalize3 normalizes a 3-component vector. Returns a zero vector if the input
// has zero length.
func normalize3(x, y, z float32) mgl32.Vec3 {
	length := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	if length == 0 {
		return mgl32.Vec3{}
	}
	inv := 1.0 / length
	return mgl32.Vec3{x * inv, y * inv, z * inv}
}
