package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*perspectiveCamera)

// WithPerspective sets the field of view and clip planes. NewCamera rejects invalid values.
//
// Parameters:
//   - p: the projection parameters
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithPerspective(p Perspective) CameraBuilderOption {
	return func(c *perspectiveCamera) {
		c.perspective = p
	}
}

// WithAspect sets the initial aspect ratio (width / height). Non-positive ratios are ignored.
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *perspectiveCamera) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithUp sets the world up vector the view is built with.
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *perspectiveCamera) {
		c.up = up
	}
}

// WithController attaches the controller that positions the camera.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *perspectiveCamera) {
		c.controller = ctrl
	}
}
