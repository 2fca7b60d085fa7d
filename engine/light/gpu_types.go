package light

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DirectionalSize is the GPU size of a Directional record.
// Layout: color vec3 @0, dir vec3 @16, shadow_map_count u32 @28, res_x u32 @32, res_y u32 @36,
// shadow_map_id u32 @40, padding to 48 bytes (std430 / WGSL aligned).
const DirectionalSize = 48

// PointSize is the GPU size of a Point record.
// Layout: color vec3 @0, max_d f32 @12, pos vec3 @16, shadow_map_res u32 @28, a0 @32, a1 @36,
// a2 @40, power @44, shadow_map_id u32 @48, padding to 64 bytes.
const PointSize = 64

// Size returns the size of the GPU record in bytes.
//
// Returns:
//   - int: the record size in bytes (48)
func (d Directional) Size() int {
	return DirectionalSize
}

// Marshal serializes the light into buf, which must hold at least DirectionalSize bytes.
//
// Parameters:
//   - buf: destination slice
func (d Directional) Marshal(buf []byte) {
	putVec3(buf[0:], d.Color)
	binary.LittleEndian.PutUint32(buf[12:16], 0) // padding
	putVec3(buf[16:], d.Dir)
	binary.LittleEndian.PutUint32(buf[28:32], d.ShadowMapCount)
	binary.LittleEndian.PutUint32(buf[32:36], d.ShadowMapResX)
	binary.LittleEndian.PutUint32(buf[36:40], d.ShadowMapResY)
	binary.LittleEndian.PutUint32(buf[40:44], d.ShadowMapID)
	binary.LittleEndian.PutUint32(buf[44:48], 0) // padding
}

// Size returns the size of the GPU record in bytes.
//
// Returns:
//   - int: the record size in bytes (64)
func (p Point) Size() int {
	return PointSize
}

// Marshal serializes the light into buf, which must hold at least PointSize bytes.
//
// Parameters:
//   - buf: destination slice
func (p Point) Marshal(buf []byte) {
	putVec3(buf[0:], p.Color)
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.MaxDistance))
	putVec3(buf[16:], p.Pos)
	binary.LittleEndian.PutUint32(buf[28:32], p.ShadowMapRes)
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(p.A0))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(p.A1))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(p.A2))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(p.Power))
	binary.LittleEndian.PutUint32(buf[48:52], p.ShadowMapID)
	clear(buf[52:64]) // padding
}

func putVec3(buf []byte, v mgl32.Vec3) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v[2]))
}
