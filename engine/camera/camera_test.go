package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(options ...CameraControllerOption) CameraController {
	return NewCameraController(append([]CameraControllerOption{
		WithRadiusBounds(1, 50),
		WithElevationBounds(-1, 1),
		WithOrbit(10, 0, 0),
	}, options...)...)
}

func assertVec3(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], 1e-4, "want %v, got %v", want, got)
	}
}

func assertMat4(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range 16 {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d: want %v, got %v", i, want, got)
	}
}

func TestControllerPlacesEyeOnOrbit(t *testing.T) {
	cc := newTestController()
	assertVec3(t, mgl32.Vec3{0, 0, -10}, cc.Position())
	assertVec3(t, mgl32.Vec3{}, cc.Target())

	cc.Orbit(math.Pi/2, 0)
	assertVec3(t, mgl32.Vec3{10, 0, 0}, cc.Position())

	cc.SetTarget(mgl32.Vec3{1, 2, 3})
	assertVec3(t, mgl32.Vec3{11, 2, 3}, cc.Position())
}

func TestControllerClampsToBounds(t *testing.T) {
	cc := newTestController(WithSpeeds(ControllerSpeeds{Zoom: 1}))

	cc.Zoom(100)
	assert.Equal(t, float32(1), cc.Radius())
	cc.SetOrbit(1000, 0, 0)
	assert.Equal(t, float32(50), cc.Radius())

	cc.Orbit(0, 5)
	assert.Equal(t, float32(1), cc.Elevation())
	cc.Orbit(0, -5)
	assert.Equal(t, float32(-1), cc.Elevation())
}

func TestControllerWrapsAzimuth(t *testing.T) {
	cc := newTestController()
	for range 10 {
		cc.Orbit(1, 0)
	}
	assert.LessOrEqual(t, math.Abs(float64(cc.Azimuth())), math.Pi)
	assert.InDelta(t, math.Remainder(10, 2*math.Pi), cc.Azimuth(), 1e-4)
}

func TestControllerPanKeepsOrbit(t *testing.T) {
	cc := newTestController()

	cc.Pan(2, 0, 0)
	assertVec3(t, mgl32.Vec3{2, 0, -10}, cc.Position())
	assertVec3(t, mgl32.Vec3{2, 0, 0}, cc.Target())

	cc.Pan(0, 1, 3)
	assertVec3(t, mgl32.Vec3{2, 1, -7}, cc.Position())
	assertVec3(t, mgl32.Vec3{2, 1, 3}, cc.Target())
	assert.Equal(t, float32(10), cc.Radius())
}

func TestWithSpeedsKeepsDefaultsForZeroFields(t *testing.T) {
	cc := NewCameraController(WithSpeeds(ControllerSpeeds{Pan: 3}))
	assert.Equal(t, ControllerSpeeds{Orbit: defaultSpeeds.Orbit, Mouse: defaultSpeeds.Mouse, Zoom: defaultSpeeds.Zoom, Pan: 3}, cc.Speeds())
}

func TestCameraMatrices(t *testing.T) {
	p := Perspective{FovY: common.DegToRad(60), Near: 0.1, Far: 100}
	c, err := NewCamera(
		WithController(newTestController()),
		WithPerspective(p),
		WithAspect(800.0/600.0),
	)
	require.NoError(t, err)

	view := common.LookAtLH(mgl32.Vec3{0, 0, -10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := common.PerspectiveLHZO(p.FovY, 800.0/600.0, p.Near, p.Far)
	assertMat4(t, view, c.ViewMatrix())
	assertMat4(t, proj, c.ProjectionMatrix())
	assertMat4(t, proj.Mul4(view), c.ViewProjection())
	assertVec3(t, mgl32.Vec3{0, 0, -10}, c.Position())
	assert.Equal(t, p.Near, c.Near())
	assert.Equal(t, p.Far, c.Far())

	points := c.FrustumPoints()
	for i := range 4 {
		assert.InDelta(t, -9.9, points[i].Z(), 1e-3, "near corner %d", i)
		assert.InDelta(t, 90, points[4+i].Z(), 0.05, "far corner %d", i)
	}
}

func TestCameraUpdateFollowsController(t *testing.T) {
	cc := newTestController()
	c, err := NewCamera(WithController(cc))
	require.NoError(t, err)

	cc.Pan(5, 0, 0)
	assertVec3(t, mgl32.Vec3{0, 0, -10}, c.Position())
	c.Update()
	assertVec3(t, mgl32.Vec3{5, 0, -10}, c.Position())
}

func TestCameraIgnoresEmptyAspect(t *testing.T) {
	c, err := NewCamera()
	require.NoError(t, err)

	c.SetAspect(2)
	before := c.ProjectionMatrix()
	c.SetAspect(0)
	assert.Equal(t, float32(2), c.Aspect())
	assert.Equal(t, before, c.ProjectionMatrix())
}

func TestCameraWithoutControllerUsesIdentityView(t *testing.T) {
	c, err := NewCamera()
	require.NoError(t, err)
	c.Update()

	assert.Equal(t, mgl32.Ident4(), c.ViewMatrix())
	assert.Equal(t, c.ProjectionMatrix(), c.ViewProjection())
	assert.Nil(t, c.Controller())
}

func TestPerspectiveValidation(t *testing.T) {
	tests := []struct {
		name string
		p    Perspective
	}{
		{"zero fov", Perspective{FovY: 0, Near: 0.1, Far: 10}},
		{"fov of pi", Perspective{FovY: math.Pi, Near: 0.1, Far: 10}},
		{"zero near", Perspective{FovY: 1, Near: 0, Far: 10}},
		{"far before near", Perspective{FovY: 1, Near: 10, Far: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCamera(WithPerspective(tt.p))
			assert.True(t, errors.Is(err, common.ErrContractViolation))

			c, err := NewCamera()
			require.NoError(t, err)
			assert.True(t, errors.Is(c.SetPerspective(tt.p), common.ErrContractViolation))
			assert.Equal(t, DefaultPerspective, c.Perspective())
		})
	}
}
