// Package camera provides the perspective camera the renderer draws from and the orbit
// controller that moves it.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Perspective describes the projection of a camera.
type Perspective struct {
	// FovY is the vertical field of view in radians.
	FovY float32
	// Near and Far are the clip plane distances. Cascaded shadow maps split the range between them.
	Near, Far float32
}

func (p Perspective) validate() error {
	if p.FovY <= 0 || p.FovY >= math.Pi {
		return common.Contractf("field of view %f is outside (0, pi)", p.FovY)
	}
	if p.Near <= 0 || p.Far <= p.Near {
		return common.Contractf("clip planes near %f far %f need 0 < near < far", p.Near, p.Far)
	}
	return nil
}

// Camera is a left-handed perspective camera with zero-to-one depth.
// Update copies the eye from the attached CameraController and recomputes the matrices and the
// world-space frustum corners. It satisfies the renderer's camera contract.
type Camera interface {
	// Up returns the world up vector the view is built with.
	Up() mgl32.Vec3

	// Position returns the eye position of the last Update.
	Position() mgl32.Vec3

	// Perspective returns the projection parameters.
	Perspective() Perspective

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clip distance.
	Near() float32

	// Far returns the far clip distance.
	Far() float32

	// ViewMatrix returns the world to view transform.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the view to clip transform.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjection returns the world to clip transform.
	ViewProjection() mgl32.Mat4

	// FrustumPoints returns the world-space corners of the view frustum, near corners first.
	//
	// Returns:
	//   - [8]mgl32.Vec3: the frustum corners
	FrustumPoints() [8]mgl32.Vec3

	// Controller returns the attached controller, or nil.
	Controller() CameraController

	// Update recomputes the view from the controller. Call it once per frame before rendering.
	// Without a controller the view keeps its last value.
	Update()

	// SetAspect sets the aspect ratio and recomputes the projection.
	// Non-positive ratios, as reported by a minimized window, are ignored.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)

	// SetPerspective replaces the projection parameters.
	//
	// Parameters:
	//   - p: the new projection
	//
	// Returns:
	//   - error: a contract violation when the field of view or clip planes are invalid
	SetPerspective(p Perspective) error

	// SetController attaches a controller and updates the view from it.
	SetController(ctrl CameraController)
}

type perspectiveCamera struct {
	mu *sync.Mutex

	up          mgl32.Vec3
	perspective Perspective
	aspect      float32
	controller  CameraController

	position   mgl32.Vec3
	view       mgl32.Mat4
	projection mgl32.Mat4
	viewProj   mgl32.Mat4
	frustum    [8]mgl32.Vec3
}

var _ Camera = &perspectiveCamera{}

// DefaultPerspective is a 45 degree field of view with clip planes at 0.1 and 1000.
var DefaultPerspective = Perspective{FovY: common.DegToRad(45), Near: 0.1, Far: 1000}

// NewCamera creates a camera with DefaultPerspective, a square aspect ratio and +Y up.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
//   - error: a contract violation when the configured perspective is invalid
func NewCamera(options ...CameraBuilderOption) (Camera, error) {
	c := &perspectiveCamera{
		mu:          &sync.Mutex{},
		up:          worldUp,
		perspective: DefaultPerspective,
		aspect:      1,
		view:        mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	if err := c.perspective.validate(); err != nil {
		return nil, err
	}
	c.project()
	c.look()
	return c, nil
}

// project recomputes the projection. Caller must hold the mutex.
func (c *perspectiveCamera) project() {
	c.projection = common.PerspectiveLHZO(c.perspective.FovY, c.aspect, c.perspective.Near, c.perspective.Far)
	c.combine()
}

// look recomputes the view from the controller, if any. Caller must hold the mutex.
func (c *perspectiveCamera) look() {
	if c.controller == nil {
		return
	}
	c.position = c.controller.Position()
	c.view = common.LookAtLH(c.position, c.controller.Target(), c.up)
	c.combine()
}

func (c *perspectiveCamera) combine() {
	c.viewProj = c.projection.Mul4(c.view)
	c.frustum = common.FrustumCorners(c.viewProj.Inv())
}

func (c *perspectiveCamera) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *perspectiveCamera) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *perspectiveCamera) Perspective() Perspective {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perspective
}

func (c *perspectiveCamera) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *perspectiveCamera) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perspective.Near
}

func (c *perspectiveCamera) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perspective.Far
}

func (c *perspectiveCamera) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *perspectiveCamera) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *perspectiveCamera) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *perspectiveCamera) FrustumPoints() [8]mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frustum
}

func (c *perspectiveCamera) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *perspectiveCamera) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.look()
}

func (c *perspectiveCamera) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.project()
}

func (c *perspectiveCamera) SetPerspective(p Perspective) error {
	if err := p.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perspective = p
	c.project()
	return nil
}

func (c *perspectiveCamera) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.look()
}
