package renderer

import "go.uber.org/zap"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithFramesInFlight sets how many frames the CPU may record ahead of the GPU.
//
// Parameters:
//   - n: the ring size, 1 to 3
//
// Returns:
//   - RendererBuilderOption: a function that applies the frames in flight option to a renderer
func WithFramesInFlight(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.framesInFlight = n
	}
}

// WithSampleCount sets the initial multisample count of the main render targets.
// When not specified, the default is 1 (no MSAA).
//
// Parameters:
//   - n: 1, 2, 4 or 8
//
// Returns:
//   - RendererBuilderOption: a function that applies the sample count option to a renderer
func WithSampleCount(n uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.sampleCount = n
	}
}

// WithVsync sets whether presentation waits for vertical blank. The default is true.
// Disabling vsync has no effect when the surface has no non-vsync present mode.
//
// Parameters:
//   - enable: true to wait for vertical blank
//
// Returns:
//   - RendererBuilderOption: a function that applies the vsync option to a renderer
func WithVsync(enable bool) RendererBuilderOption {
	return func(r *renderer) {
		r.vsync = enable
	}
}

// WithBatchCapacity sets the maximum number of 3D batches per frame.
//
// Parameters:
//   - n: the capacity
//
// Returns:
//   - RendererBuilderOption: a function that applies the batch capacity option to a renderer
func WithBatchCapacity(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.batchCapacity = n
		}
	}
}

// WithUiBatchCapacity sets the maximum number of UI batches per frame.
//
// Parameters:
//   - n: the capacity
//
// Returns:
//   - RendererBuilderOption: a function that applies the UI batch capacity option to a renderer
func WithUiBatchCapacity(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.uiBatchCapacity = n
		}
	}
}

// WithTextureRoot sets the directory texture and normal map names are resolved against.
//
// Parameters:
//   - root: the texture directory
//
// Returns:
//   - RendererBuilderOption: a function that applies the texture root option to a renderer
func WithTextureRoot(root string) RendererBuilderOption {
	return func(r *renderer) {
		r.textureRoot = root
	}
}

// WithDecodeWorkers sets the number of goroutines decoding texture files.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the decode worker option to a renderer
func WithDecodeWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.decodeWorkers = n
		}
	}
}

// WithLogger sets the logger of the renderer and every component it creates.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *zap.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
