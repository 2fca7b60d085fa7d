package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/go-gl/mathgl/mgl32"
)

var worldUp = mgl32.Vec3{0, 1, 0}

// orbitController is the CameraController implementation.
type orbitController struct {
	mu *sync.Mutex

	target mgl32.Vec3
	// position is derived from target and the spherical coordinates.
	position mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	speeds ControllerSpeeds
}

var _ CameraController = &orbitController{}

var defaultSpeeds = ControllerSpeeds{
	Orbit: 0.03,
	Mouse: 0.005,
	Zoom:  15,
	Pan:   20,
}

// NewCameraController creates an orbit controller looking at the origin.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &orbitController{
		mu:           &sync.Mutex{},
		radius:       250,
		elevation:    math.Pi / 6,
		minRadius:    20,
		maxRadius:    2000,
		minElevation: 0.05,
		maxElevation: math.Pi/2 - 0.1,
		speeds:       defaultSpeeds,
	}
	for _, option := range options {
		option(cc)
	}
	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
	cc.place()
	return cc
}

// place recomputes the eye from the target and spherical coordinates. Caller must hold the mutex.
func (cc *orbitController) place() {
	sinE, cosE := math.Sincos(float64(cc.elevation))
	sinA, cosA := math.Sincos(float64(cc.azimuth))
	offset := mgl32.Vec3{float32(cosE * sinA), float32(sinE), float32(-cosE * cosA)}
	cc.position = cc.target.Add(offset.Mul(cc.radius))
}

// axes returns the right, up and forward axes of the left-handed view common.LookAtLH builds.
// All axes are zero when the eye looks straight along the world up axis. Caller must hold the mutex.
func (cc *orbitController) axes() (right, up, forward mgl32.Vec3) {
	f := cc.target.Sub(cc.position)
	if f.Len() < 1e-8 {
		return
	}
	f = f.Normalize()
	r := worldUp.Cross(f)
	if r.Len() < 1e-8 {
		return
	}
	r = r.Normalize()
	return r, f.Cross(r), f
}

func (cc *orbitController) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *orbitController) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.place()
}

func (cc *orbitController) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = float32(math.Remainder(float64(cc.azimuth+dAzimuth), 2*math.Pi))
	cc.elevation = common.Clamp(cc.elevation+dElevation, cc.minElevation, cc.maxElevation)
	cc.place()
}

func (cc *orbitController) SetOrbit(radius, azimuth, elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(radius, cc.minRadius, cc.maxRadius)
	cc.azimuth = azimuth
	cc.elevation = common.Clamp(elevation, cc.minElevation, cc.maxElevation)
	cc.place()
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = common.Clamp(cc.radius-delta*cc.speeds.Zoom, cc.minRadius, cc.maxRadius)
	cc.place()
}

func (cc *orbitController) Pan(right, up, forward float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	r, u, f := cc.axes()
	offset := r.Mul(right).Add(u.Mul(up)).Add(f.Mul(forward))
	cc.target = cc.target.Add(offset)
	cc.position = cc.position.Add(offset)
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *orbitController) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *orbitController) Speeds() ControllerSpeeds {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.speeds
}
