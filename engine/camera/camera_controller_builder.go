package camera

import (
	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*orbitController)

// WithOrbit sets the initial spherical coordinates of the eye around the target.
// Radius and elevation are clamped to the bounds once all options are applied.
//
// Parameters:
//   - radius: distance from the target
//   - azimuth: horizontal angle in radians
//   - elevation: vertical angle in radians
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithOrbit(radius, azimuth, elevation float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.radius, cc.azimuth, cc.elevation = radius, azimuth, elevation
	}
}

// WithTarget sets the point the eye orbits around.
//
// Parameters:
//   - target: world-space orbit center
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithTarget(target mgl32.Vec3) CameraControllerOption {
	return func(cc *orbitController) {
		cc.target = target
	}
}

// WithRadiusBounds limits how close and how far zooming can move the eye.
//
// Parameters:
//   - minRadius: closest distance to the target
//   - maxRadius: farthest distance from the target
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithRadiusBounds(minRadius, maxRadius float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.minRadius, cc.maxRadius = minRadius, maxRadius
	}
}

// WithElevationBounds limits the vertical angle. Keep both bounds strictly inside (-pi/2, pi/2):
// the view is undefined when looking straight up or down.
//
// Parameters:
//   - minElevation: lowest angle in radians
//   - maxElevation: highest angle in radians
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithElevationBounds(minElevation, maxElevation float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.minElevation, cc.maxElevation = minElevation, maxElevation
	}
}

// WithSpeeds sets the input scaling. Zero fields keep their defaults.
//
// Parameters:
//   - speeds: orbit step, mouse sensitivity, zoom and pan speeds
//
// Returns:
//   - CameraControllerOption: option function to apply
func WithSpeeds(speeds ControllerSpeeds) CameraControllerOption {
	return func(cc *orbitController) {
		cc.speeds = ControllerSpeeds{
			Orbit: common.Coalesce(speeds.Orbit, cc.speeds.Orbit),
			Mouse: common.Coalesce(speeds.Mouse, cc.speeds.Mouse),
			Zoom:  common.Coalesce(speeds.Zoom, cc.speeds.Zoom),
			Pan:   common.Coalesce(speeds.Pan, cc.speeds.Pan),
		}
	}
}
