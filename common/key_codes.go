package common

// Key is a virtual key code. Values match GLFW key codes, which use ASCII for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type Key uint32

const (
	KeyW     Key = 87
	KeyA     Key = 65
	KeyS     Key = 83
	KeyD     Key = 68
	KeyQ     Key = 81
	KeyE     Key = 69
	KeyM     Key = 77
	KeyV     Key = 86
	KeySpace Key = 32
	KeyEsc   Key = 256

	KeyRight Key = 262
	KeyLeft  Key = 263
	KeyDown  Key = 264
	KeyUp    Key = 265

	Key1 Key = 49
	Key2 Key = 50
	Key4 Key = 52
	Key8 Key = 56
)

// Additional non-printable keys
const (
	KeyLeftShift  Key = 340 // Left Shift (GLFW)
	KeyRightShift Key = 344 // Right Shift (GLFW)
)
