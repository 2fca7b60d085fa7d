package camera

import "github.com/go-gl/mathgl/mgl32"

// ControllerSpeeds scales input into controller motion.
type ControllerSpeeds struct {
	// Orbit is the angle in radians of one keyboard orbit step.
	Orbit float32
	// Mouse is the angle in radians per pixel of mouse drag.
	Mouse float32
	// Zoom is the radius change per scroll unit.
	Zoom float32
	// Pan is the distance in world units per second of held pan key.
	Pan float32
}

// CameraController places the eye on a sphere around a target point.
// Orbit and zoom move the eye over the sphere; pan translates eye and target together so the
// orbit is kept. Radius and elevation stay within the configured bounds.
//
// Azimuth 0 puts the eye on the -Z side of the target looking toward +Z; positive azimuth turns
// it toward +X. Elevation is the angle above the XZ plane.
type CameraController interface {
	// Position returns the eye position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space eye position
	Position() mgl32.Vec3

	// Target returns the point the eye looks at and orbits around.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target
	Target() mgl32.Vec3

	// SetTarget moves the orbit center. The eye follows at the same radius and angles.
	//
	// Parameters:
	//   - target: the new world-space target
	SetTarget(target mgl32.Vec3)

	// Orbit turns the eye around the target.
	//
	// Parameters:
	//   - dAzimuth: azimuth change in radians
	//   - dElevation: elevation change in radians, clamped to the elevation bounds
	Orbit(dAzimuth, dElevation float32)

	// SetOrbit places the eye at absolute spherical coordinates around the target.
	// Radius and elevation are clamped to their bounds.
	SetOrbit(radius, azimuth, elevation float32)

	// Zoom moves the eye toward the target by delta times the zoom speed.
	//
	// Parameters:
	//   - delta: scroll amount, positive moves closer
	Zoom(delta float32)

	// Pan translates eye and target along the view's right, up and forward axes.
	//
	// Parameters:
	//   - right, up, forward: distances in world units
	Pan(right, up, forward float32)

	// Radius returns the distance between eye and target.
	Radius() float32

	// Azimuth returns the horizontal angle in radians.
	Azimuth() float32

	// Elevation returns the vertical angle in radians.
	Elevation() float32

	// Speeds returns the input scaling of the controller.
	Speeds() ControllerSpeeds
}
