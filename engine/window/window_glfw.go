package window

import (
	"runtime"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the GLFW window backing an engineWindow.
// GLFW must be driven from the thread that initialized it, so creation locks the calling goroutine to its thread.
type glfwWindow struct {
	parent *engineWindow
	window *glfw.Window
	closed bool
}

// openGLFW initializes GLFW and creates a window without a client API; WebGPU creates its own surface.
//
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func openGLFW(w *engineWindow) (*glfwWindow, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize GLFW")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfwBool(w.resizable))

	win, err := glfw.CreateWindow(int(w.width), int(w.height), w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "failed to create GLFW window")
	}
	win.SetSizeLimits(int(w.minWidth), int(w.minHeight), int(w.maxWidth), int(w.maxHeight))

	gw := &glfwWindow{parent: w, window: win}
	win.SetKeyCallback(gw.onKey)
	win.SetScrollCallback(gw.onScroll)
	win.SetMouseButtonCallback(gw.onMouseButton)
	win.SetCursorPosCallback(gw.onCursorPos)
	// Framebuffer size, not window size: they differ on high-DPI displays and the surface is sized in pixels.
	win.SetFramebufferSizeCallback(gw.onFramebufferSize)
	win.SetIconifyCallback(gw.onIconify)

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width, w.height = uint32(max(fbWidth, 0)), uint32(max(fbHeight, 0))
	return gw, nil
}

func glfwBool(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

func (gw *glfwWindow) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if key == glfw.KeyUnknown {
		return
	}
	w := gw.parent
	switch action {
	case glfw.Press, glfw.Repeat:
		if w.onKeyDown != nil {
			w.onKeyDown(common.Key(key))
		}
	case glfw.Release:
		if w.onKeyUp != nil {
			w.onKeyUp(common.Key(key))
		}
	}
}

func (gw *glfwWindow) onScroll(_ *glfw.Window, _, yoff float64) {
	if gw.parent.onScroll != nil {
		gw.parent.onScroll(float32(yoff))
	}
}

func (gw *glfwWindow) onMouseButton(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	if button != glfw.MouseButtonMiddle {
		return
	}
	w := gw.parent
	x, y := gw.window.GetCursorPos()
	switch {
	case action == glfw.Press && w.onMiddleMouseDown != nil:
		w.onMiddleMouseDown(int32(x), int32(y))
	case action == glfw.Release && w.onMiddleMouseUp != nil:
		w.onMiddleMouseUp(int32(x), int32(y))
	}
}

func (gw *glfwWindow) onCursorPos(_ *glfw.Window, x, y float64) {
	if gw.parent.onMouseMove != nil {
		gw.parent.onMouseMove(int32(x), int32(y))
	}
}

func (gw *glfwWindow) onFramebufferSize(_ *glfw.Window, width, height int) {
	gw.parent.resized(width, height)
}

// onIconify reports a minimized window as a zero-sized framebuffer. Not every platform
// sends a framebuffer size event on minimize.
func (gw *glfwWindow) onIconify(_ *glfw.Window, iconified bool) {
	if iconified {
		gw.parent.resized(0, 0)
		return
	}
	gw.parent.resized(gw.window.GetFramebufferSize())
}

// surfaceDescriptor uses the wgpuglfw bridge, which has per-platform implementations (Windows, X11, Wayland, macOS).
func (gw *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func (gw *glfwWindow) running() bool {
	return !gw.closed && !gw.window.ShouldClose()
}

func (gw *glfwWindow) poll() bool {
	glfw.PollEvents()
	return gw.running()
}

func (gw *glfwWindow) destroy() {
	gw.closed = true
	gw.window.Destroy()
	glfw.Terminate()
}
