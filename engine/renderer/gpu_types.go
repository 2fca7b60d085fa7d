package renderer

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/go-gl/mathgl/mgl32"
)

// NormalMapNone is the normal map id of an instance without a normal map.
const NormalMapNone = ^uint32(0)

// RenderData holds the per-frame values shaders read from the common block. None of them affect
// resource scheduling.
type RenderData struct {
	VisualSunPos    mgl32.Vec3
	EffectiveSunPos mgl32.Vec3
	SunRadius       float32
	// CurTerrainPos is the terrain point under the cursor, valid when CurTerrainIntersection is set.
	CurTerrainPos          mgl32.Vec3
	CurTerrainIntersection bool
	EditorHighlightColor   mgl32.Vec4
	EditorToolInnerRadius  float32
	EditorToolOuterRadius  float32
}

// Font is a named glyph atlas.
type Font struct {
	Name  string
	Atlas common.TextureStagingData
}

// SceneInitData replaces the scene-wide images and terrain parameters on scene load.
type SceneInitData struct {
	Fonts             []Font
	Heightmaps        []common.TextureStagingData
	TerrainPatchSizeX float32
	TerrainPatchSizeZ float32
}

// InstanceData is the per-instance record read by vertex shaders.
// Size: 80 bytes.
type InstanceData struct {
	World       mgl32.Mat4 // offset  0
	TextureID   uint32     // offset 64
	NormalMapID uint32     // offset 68: NormalMapNone for none
	BoneOffset  uint32     // offset 72: first bone transform of a skinned instance
}

// InstanceDataSize is the stride of the instance buffer.
const InstanceDataSize = 80

// Size returns the size of the InstanceData record in bytes.
//
// Returns:
//   - int: the record size in bytes (80)
func (d *InstanceData) Size() int {
	return InstanceDataSize
}

// Marshal serializes the InstanceData record into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (d *InstanceData) Marshal() []byte {
	buf := make([]byte, d.Size())
	putMat4(buf[0:], d.World)
	binary.LittleEndian.PutUint32(buf[64:], d.TextureID)
	binary.LittleEndian.PutUint32(buf[68:], d.NormalMapID)
	binary.LittleEndian.PutUint32(buf[72:], d.BoneOffset)
	return buf
}

// boneSize is the stride of the bone transform buffer.
const boneSize = 64

// commonData is the GPU layout of the per-frame common uniform block.
// Size: 256 bytes.
type commonData struct {
	VP              mgl32.Mat4 // offset   0
	V               mgl32.Mat4 // offset  64
	CameraPos       mgl32.Vec3 // offset 128
	DirLightCount   uint32     // offset 140
	CameraUp        mgl32.Vec3 // offset 144
	PointLightCount uint32     // offset 156
	VisualSunPos    mgl32.Vec3 // offset 160
	SunRadius       float32    // offset 172
	EffectiveSunPos mgl32.Vec3 // offset 176
	// TerrainIntersection is 1 when CurTerrainPos is valid.
	TerrainIntersection uint32     // offset 188
	CurTerrainPos       mgl32.Vec3 // offset 192
	UiScale             mgl32.Vec2 // offset 208: 2 / surface size
	TerrainPatchSizeX   float32    // offset 216
	TerrainPatchSizeZ   float32    // offset 220
	HighlightColor      mgl32.Vec4 // offset 224
	ToolInnerRadius     float32    // offset 240
	ToolOuterRadius     float32    // offset 244
}

const commonDataSize = 256

func (c *commonData) marshal(buf []byte) {
	putMat4(buf[0:], c.VP)
	putMat4(buf[64:], c.V)
	putVec(buf[128:], c.CameraPos[:])
	binary.LittleEndian.PutUint32(buf[140:], c.DirLightCount)
	putVec(buf[144:], c.CameraUp[:])
	binary.LittleEndian.PutUint32(buf[156:], c.PointLightCount)
	putVec(buf[160:], c.VisualSunPos[:])
	putFloat(buf[172:], c.SunRadius)
	putVec(buf[176:], c.EffectiveSunPos[:])
	binary.LittleEndian.PutUint32(buf[188:], c.TerrainIntersection)
	putVec(buf[192:], c.CurTerrainPos[:])
	putVec(buf[208:], c.UiScale[:])
	putFloat(buf[216:], c.TerrainPatchSizeX)
	putFloat(buf[220:], c.TerrainPatchSizeZ)
	putVec(buf[224:], c.HighlightColor[:])
	putFloat(buf[240:], c.ToolInnerRadius)
	putFloat(buf[244:], c.ToolOuterRadius)
	clear(buf[248:commonDataSize])
}

// shadowPushConstants selects the shadow map records a shadow pass reads.
type shadowPushConstants struct {
	// Count is the cascade count of a directional map, or 6 for a point map.
	Count uint32
	// Offset is the index of the pass's first record in the shadow data array.
	Offset uint32
	// Layer is the cascade or cube face rendered by the pass.
	Layer uint32
}

func (p shadowPushConstants) marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], p.Count)
	binary.LittleEndian.PutUint32(buf[4:], p.Offset)
	binary.LittleEndian.PutUint32(buf[8:], p.Layer)
	return buf
}

func putMat4(buf []byte, m mgl32.Mat4) {
	putVec(buf, m[:])
}

func putVec(buf []byte, v []float32) {
	for i, f := range v {
		putFloat(buf[i*4:], f)
	}
}

func putFloat(buf []byte, f float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
}
