package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-core/engine/camera"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer"
	"github.com/Carmen-Shannon/oxy-core/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLogger sets the logger shared by the engine, window, device and renderer.
// A nil logger is ignored.
//
// Parameters:
//   - logger: the zap logger to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProfiler enables periodic frame statistics logged through the engine logger.
// Pass a non-positive interval to disable profiling (default).
//
// Parameters:
//   - interval: the time between two reports
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(interval time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.profileInterval = max(interval, 0)
	}
}

// WithWindowOptions adds options applied when the engine creates its window.
//
// Parameters:
//   - options: window options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindowOptions(options ...window.WindowBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.windowOptions = append(e.windowOptions, options...)
	}
}

// WithDeviceOptions adds options applied when the engine creates its WebGPU device.
// Pipelines are registered here with gpu.WithPipelines.
//
// Parameters:
//   - options: device options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDeviceOptions(options ...gpu.WGPUDeviceOption) EngineBuilderOption {
	return func(e *engine) {
		e.deviceOptions = append(e.deviceOptions, options...)
	}
}

// WithRendererOptions adds options applied when the engine creates its renderer.
// Use the engine's WithVsync rather than renderer.WithVsync so the V key toggles from the right state.
//
// Parameters:
//   - options: renderer options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithCamera sets the camera frames are rendered from. Input drives the camera's controller.
//
// Parameters:
//   - c: a configured camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithControllerOptions configures the orbit controller of the default camera.
// Ignored when WithCamera is given.
//
// Parameters:
//   - options: camera controller options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithControllerOptions(options ...camera.CameraControllerOption) EngineBuilderOption {
	return func(e *engine) {
		e.controllerOptions = append(e.controllerOptions, options...)
	}
}

// WithVsync sets the initial vsync state (default on).
//
// Parameters:
//   - enable: whether presentation waits for vertical blank
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithVsync(enable bool) EngineBuilderOption {
	return func(e *engine) {
		e.vsync = enable
	}
}

// WithTickRate sets the fixed tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.tickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
