package batch

// RenderMode selects the pipeline a 3D batch is drawn with.
type RenderMode uint32

const (
	RenderModeDefault RenderMode = iota
	RenderModeSky
	RenderModeTerrain
	RenderModeDirShadowMap
	RenderModePointShadowMap
	RenderModeTerrainDirShadowMap
	RenderModeTerrainPointShadowMap
	RenderModeHighlight
	RenderModeBillboard
	RenderModeTerrainWireframe
	renderModeCount
)

// RenderModeCount is the number of 3D render modes.
const RenderModeCount = int(renderModeCount)

var renderModeNames = [...]string{
	"default",
	"sky",
	"terrain",
	"dir-shadow-map",
	"point-shadow-map",
	"terrain-dir-shadow-map",
	"terrain-point-shadow-map",
	"highlight",
	"billboard",
	"terrain-wireframe",
}

// String returns the mode name.
func (m RenderMode) String() string {
	if int(m) < len(renderModeNames) {
		return renderModeNames[m]
	}
	return "unknown"
}

// DirShadowMode returns the mode a batch is redrawn with in directional shadow passes.
// Only default and terrain batches cast shadows.
func (m RenderMode) DirShadowMode() (RenderMode, bool) {
	switch m {
	case RenderModeDefault:
		return RenderModeDirShadowMap, true
	case RenderModeTerrain:
		return RenderModeTerrainDirShadowMap, true
	}
	return 0, false
}

// PointShadowMode returns the mode a batch is redrawn with in point shadow passes.
func (m RenderMode) PointShadowMode() (RenderMode, bool) {
	switch m {
	case RenderModeDefault:
		return RenderModePointShadowMap, true
	case RenderModeTerrain:
		return RenderModeTerrainPointShadowMap, true
	}
	return 0, false
}

// RenderModeUi selects the pipeline a UI batch is drawn with.
type RenderModeUi uint32

const (
	RenderModeUiDefault RenderModeUi = iota
	RenderModeUiFont
)

// String returns the mode name.
func (m RenderModeUi) String() string {
	if m == RenderModeUiFont {
		return "font"
	}
	return "ui"
}
