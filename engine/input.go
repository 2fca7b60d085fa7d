package engine

import (
	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/camera"
)

// input collects window events between two frames. Camera motion is applied directly to the
// controller; renderer changes are kept pending until the loop applies them with its context.
type input struct {
	controller camera.CameraController

	held     map[common.Key]bool
	dragging bool
	lastX    int32
	lastY    int32

	resized     bool
	width       uint32
	height      uint32
	sampleCount uint32
	toggleVsync bool
	quit        bool
}

var sampleCounts = map[common.Key]uint32{
	common.Key1: 1,
	common.Key2: 2,
	common.Key4: 4,
	common.Key8: 8,
}

func newInput(controller camera.CameraController) *input {
	return &input{
		controller: controller,
		held:       make(map[common.Key]bool),
	}
}

func (in *input) keyDown(key common.Key) {
	switch key {
	case common.KeyEsc:
		in.quit = true
		return
	case common.KeyV:
		in.toggleVsync = !in.toggleVsync
		return
	case common.Key1, common.Key2, common.Key4, common.Key8:
		in.sampleCount = sampleCounts[key]
		return
	}

	if in.controller == nil {
		return
	}
	step := in.controller.Speeds().Orbit
	switch key {
	case common.KeyLeft:
		in.controller.Orbit(-step, 0)
	case common.KeyRight:
		in.controller.Orbit(step, 0)
	case common.KeyUp:
		in.controller.Orbit(0, step)
	case common.KeyDown:
		in.controller.Orbit(0, -step)
	case common.KeyW, common.KeyA, common.KeyS, common.KeyD, common.KeyQ, common.KeyE:
		in.held[key] = true
	}
}

func (in *input) keyUp(key common.Key) {
	delete(in.held, key)
}

func (in *input) scroll(delta float32) {
	if in.controller != nil {
		in.controller.Zoom(delta)
	}
}

func (in *input) middleDown(x, y int32) {
	in.dragging = true
	in.lastX, in.lastY = x, y
}

func (in *input) middleUp(_, _ int32) {
	in.dragging = false
}

func (in *input) mouseMove(x, y int32) {
	if !in.dragging || in.controller == nil {
		return
	}
	s := in.controller.Speeds().Mouse
	dx, dy := float32(x-in.lastX), float32(y-in.lastY)
	in.lastX, in.lastY = x, y
	in.controller.Orbit(-dx*s, dy*s)
}

func (in *input) resize(width, height uint32) {
	in.resized = true
	in.width, in.height = width, height
}

// pan moves the controller along its view axes for every held movement key.
func (in *input) pan(dt float32) {
	if in.controller == nil || len(in.held) == 0 {
		return
	}
	step := in.controller.Speeds().Pan * dt
	axis := func(pos, neg common.Key) float32 {
		var v float32
		if in.held[pos] {
			v += step
		}
		if in.held[neg] {
			v -= step
		}
		return v
	}
	in.controller.Pan(axis(common.KeyD, common.KeyA), axis(common.KeyE, common.KeyQ), axis(common.KeyW, common.KeyS))
}
