package window

import (
	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
// All methods must be called from the goroutine that created the window.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	// A minimized window reports a zero size.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height uint32))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(key common.Key))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(key common.Key))

	// SetMiddleMouseDownCallback sets the callback for middle mouse button press.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseDownCallback(callback func(x, y int32))

	// SetMiddleMouseUpCallback sets the callback for middle mouse button release.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseUpCallback(callback func(x, y int32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// PollEvents dispatches pending window events to the callbacks without blocking.
	//
	// Returns:
	//   - bool: false once the window has been asked to close
	PollEvents() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was already closed
	Close() error

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - uint32: width in pixels
	Width() uint32

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - uint32: height in pixels
	Height() uint32
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// logger receives window lifecycle events.
	logger *zap.Logger

	// resizable allows the user to resize the window within the size limits.
	resizable           bool
	minWidth, minHeight uint32
	maxWidth, maxHeight uint32

	// width and height are the current framebuffer size in pixels.
	width, height uint32

	// internalWindow is nil until the platform window opens and after Close.
	internalWindow *glfwWindow

	onResize          func(width, height uint32)
	onScroll          func(delta float32)
	onKeyDown         func(key common.Key)
	onKeyUp           func(key common.Key)
	onMiddleMouseDown func(x, y int32)
	onMiddleMouseUp   func(x, y int32)
	onMouseMove       func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
//   - error: a contract violation for an empty size or inverted limits, or an error if GLFW could not
//     be initialized or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy",
		logger:    zap.NewNop(),
		resizable: true,
		minWidth:  320,
		minHeight: 200,
		maxWidth:  3840,
		maxHeight: 2160,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.width == 0 || w.height == 0 {
		return nil, common.Contractf("window size %dx%d has a zero extent", w.width, w.height)
	}
	if w.minWidth > w.maxWidth || w.minHeight > w.maxHeight {
		return nil, common.Contractf("window size limits %dx%d..%dx%d are inverted", w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)
	}

	gw, err := openGLFW(w)
	if err != nil {
		return nil, err
	}
	w.internalWindow = gw
	w.logger.Info("window created",
		zap.String("title", w.title),
		zap.Uint32("width", w.width),
		zap.Uint32("height", w.height),
	)
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height uint32)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key common.Key)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key common.Key)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMiddleMouseDownCallback(callback func(x, y int32)) {
	w.onMiddleMouseDown = callback
}

func (w *engineWindow) SetMiddleMouseUpCallback(callback func(x, y int32)) {
	w.onMiddleMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.internalWindow == nil {
		return nil
	}
	return w.internalWindow.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.internalWindow != nil && w.internalWindow.running()
}

func (w *engineWindow) PollEvents() bool {
	if w.internalWindow == nil {
		return false
	}
	return w.internalWindow.poll()
}

func (w *engineWindow) Close() error {
	if w.internalWindow == nil {
		return errors.New("window is not open")
	}
	w.internalWindow.destroy()
	w.internalWindow = nil
	w.logger.Info("window closed", zap.String("title", w.title))
	return nil
}

func (w *engineWindow) Width() uint32 {
	return w.width
}

func (w *engineWindow) Height() uint32 {
	return w.height
}

// resized records a new framebuffer size and notifies the resize callback.
func (w *engineWindow) resized(width, height int) {
	w.width, w.height = uint32(max(width, 0)), uint32(max(height, 0))
	w.logger.Debug("framebuffer resized", zap.Uint32("width", w.width), zap.Uint32("height", w.height))
	if w.onResize != nil {
		w.onResize(w.width, w.height)
	}
}
