package engine

import (
	"context"
	"time"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/camera"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/profiler"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer"
	"github.com/Carmen-Shannon/oxy-core/engine/window"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var _ renderer.Camera = camera.Camera(nil)

// UpdateFunc is called once per frame before rendering. It queues draws, uploads and light
// changes on the renderer and returns the per-frame shader values.
type UpdateFunc func(dt float32, r renderer.Renderer) (renderer.RenderData, error)

// engine implements the Engine interface.
// Everything runs on the goroutine that calls Run: window events, input, the update callback and rendering.
type engine struct {
	logger *zap.Logger

	windowOptions     []window.WindowBuilderOption
	deviceOptions     []gpu.WGPUDeviceOption
	rendererOptions   []renderer.RendererBuilderOption
	controllerOptions []camera.CameraControllerOption

	window   window.Window
	device   gpu.Device
	renderer renderer.Renderer
	camera   camera.Camera
	input    *input

	profiler        *profiler.Profiler
	profileInterval time.Duration
	vsync           bool

	tickRate     time.Duration
	tickCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It owns the window, the device and the renderer and drives them from a single loop.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer driven by Run.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Camera returns the camera the frames are rendered from.
	//
	// Returns:
	//   - camera.Camera: the camera instance
	Camera() camera.Camera

	// SetTickCallback registers a function called at the fixed tick rate from within Run.
	// Use this for game logic that must not depend on the frame rate.
	//
	// Parameters:
	//   - callback: function receiving the tick duration in seconds
	SetTickCallback(callback func(deltaTime float32))

	// Run drives the frame loop until the window closes, Esc is pressed or ctx is cancelled.
	// Each frame polls window events, applies input, calls update and renders.
	//
	// Parameters:
	//   - ctx: bounds every CPU wait of the loop
	//   - update: per-frame callback; may be nil
	//
	// Returns:
	//   - error: the first fatal error or contract violation, or the context error
	Run(ctx context.Context, update UpdateFunc) error

	// Close destroys the renderer, releases the device and closes the window.
	//
	// Parameters:
	//   - ctx: bounds the device idle wait
	//
	// Returns:
	//   - error: error if the renderer could not be closed
	Close(ctx context.Context) error
}

// NewEngine creates the window, the WebGPU device presenting to it, the renderer and an orbit camera.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the window, device or renderer could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := newEngine(options...)

	win, err := window.NewWindow(append([]window.WindowBuilderOption{window.WithLogger(e.logger)}, e.windowOptions...)...)
	if err != nil {
		return nil, err
	}

	dev, err := gpu.NewWGPUDevice(win, append([]gpu.WGPUDeviceOption{gpu.WithLogger(e.logger)}, e.deviceOptions...)...)
	if err != nil {
		_ = win.Close()
		return nil, err
	}

	rendererOptions := append([]renderer.RendererBuilderOption{
		renderer.WithLogger(e.logger),
		renderer.WithVsync(e.vsync),
	}, e.rendererOptions...)
	r, err := renderer.NewRenderer(dev, win.Width(), win.Height(), rendererOptions...)
	if err != nil {
		dev.Release()
		_ = win.Close()
		return nil, err
	}

	if err := e.attach(win, dev, r); err != nil {
		_ = e.Close(context.Background())
		return nil, err
	}
	return e, nil
}

func newEngine(options ...EngineBuilderOption) *engine {
	e := &engine{
		logger:   zap.NewNop(),
		vsync:    true,
		tickRate: time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profileInterval > 0 {
		e.profiler = profiler.NewProfiler(e.logger.Named("profiler"), e.profileInterval)
	}
	return e
}

// attach wires window events to the input state and the camera to the window's aspect ratio.
func (e *engine) attach(win window.Window, dev gpu.Device, r renderer.Renderer) error {
	e.window = win
	e.device = dev
	e.renderer = r

	if e.camera == nil {
		cam, err := camera.NewCamera(camera.WithController(camera.NewCameraController(e.controllerOptions...)))
		if err != nil {
			return err
		}
		e.camera = cam
	}
	if h := win.Height(); h > 0 {
		e.camera.SetAspect(float32(win.Width()) / float32(h))
	}

	e.input = newInput(e.camera.Controller())
	win.SetResizeCallback(e.input.resize)
	win.SetScrollCallback(e.input.scroll)
	win.SetKeyDownCallback(e.input.keyDown)
	win.SetKeyUpCallback(e.input.keyUp)
	win.SetMiddleMouseDownCallback(e.input.middleDown)
	win.SetMiddleMouseUpCallback(e.input.middleUp)
	win.SetMouseMoveCallback(e.input.mouseMove)
	return nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) Run(ctx context.Context, update UpdateFunc) error {
	lastFrame := time.Now()
	var accumulator time.Duration

	for e.window.PollEvents() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.input.quit {
			e.logger.Info("quit requested")
			return nil
		}

		frameStart := time.Now()
		elapsed := frameStart.Sub(lastFrame)
		lastFrame = frameStart
		dt := float32(elapsed.Seconds())

		if e.tickCallback != nil && e.tickRate > 0 {
			accumulator += elapsed
			for accumulator >= e.tickRate {
				e.tickCallback(float32(e.tickRate.Seconds()))
				accumulator -= e.tickRate
			}
		}

		if err := e.applyInput(ctx, dt); err != nil {
			return e.fail(err)
		}
		e.camera.Update()

		var data renderer.RenderData
		if update != nil {
			var err error
			if data, err = update(dt, e.renderer); err != nil {
				return e.fail(errors.Wrap(err, "update callback failed"))
			}
		}

		if err := e.renderer.UpdateAndRender(ctx, data, e.camera); err != nil {
			return e.fail(err)
		}

		if e.profiler != nil {
			e.profiler.Tick(e.renderer.Stats())
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return nil
}

// applyInput applies the input gathered since the previous frame: held pan keys, then the
// pending resize, sample count and vsync changes.
func (e *engine) applyInput(ctx context.Context, dt float32) error {
	in := e.input
	in.pan(dt)

	if in.resized {
		in.resized = false
		if err := e.renderer.OnWindowResize(ctx, in.width, in.height); err != nil {
			return err
		}
		if in.height > 0 {
			e.camera.SetAspect(float32(in.width) / float32(in.height))
		}
	}

	if n := in.sampleCount; n != 0 {
		in.sampleCount = 0
		if err := e.renderer.SetSampleCount(ctx, n); err != nil {
			return err
		}
		e.logger.Info("sample count changed", zap.Uint32("samples", n))
	}

	if in.toggleVsync {
		in.toggleVsync = false
		ok, err := e.renderer.EnableVsync(!e.vsync)
		if err != nil {
			return err
		}
		if !ok {
			e.logger.Warn("surface cannot present without vsync")
			return nil
		}
		e.vsync = !e.vsync
		e.logger.Info("vsync changed", zap.Bool("vsync", e.vsync))
	}
	return nil
}

// fail logs a loop-ending error once, at error level for fatal errors.
func (e *engine) fail(err error) error {
	if common.IsFatal(err) {
		e.logger.Error("fatal renderer error", zap.Error(err))
	} else {
		e.logger.Warn("frame loop stopped", zap.Error(err))
	}
	return err
}

func (e *engine) Close(ctx context.Context) error {
	var err error
	if e.renderer != nil {
		err = e.renderer.Close(ctx)
	}
	if e.device != nil {
		e.device.Release()
	}
	if e.window != nil {
		err = errors.CombineErrors(err, e.window.Close())
	}
	return err
}
