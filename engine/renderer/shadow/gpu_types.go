package shadow

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxDirPartitions is the maximum number of cascades per directional shadow map.
const MaxDirPartitions = 4

// DirData is the GPU record of one directional shadow map.
// Size: 528 bytes (4 mat4 projections, 4 mat4 texture projections, 4 split depths).
type DirData struct {
	P    [MaxDirPartitions]mgl32.Mat4
	TexP [MaxDirPartitions]mgl32.Mat4
	Z    [MaxDirPartitions]float32
}

// DirDataSize is the marshaled size of DirData.
const DirDataSize = 2*MaxDirPartitions*64 + MaxDirPartitions*4

// Size returns the size of the DirData record in bytes.
//
// Returns:
//   - int: the record size in bytes (528)
func (d *DirData) Size() int {
	return DirDataSize
}

// Marshal serializes the record into buf, which must hold at least DirDataSize bytes.
//
// Parameters:
//   - buf: destination slice
func (d *DirData) Marshal(buf []byte) {
	off := 0
	for _, m := range d.P {
		off = putMat4(buf, off, m)
	}
	for _, m := range d.TexP {
		off = putMat4(buf, off, m)
	}
	for _, z := range d.Z {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(z))
		off += 4
	}
}

// PointData is the GPU record of one point shadow map.
// Size: 400 bytes (6 mat4 face projections, vec3 position, f32 range).
type PointData struct {
	P           [6]mgl32.Mat4
	Pos         mgl32.Vec3
	MaxDistance float32
}

// PointDataSize is the marshaled size of PointData.
const PointDataSize = 6*64 + 16

// Size returns the size of the PointData record in bytes.
//
// Returns:
//   - int: the record size in bytes (400)
func (p *PointData) Size() int {
	return PointDataSize
}

// Marshal serializes the record into buf, which must hold at least PointDataSize bytes.
//
// Parameters:
//   - buf: destination slice
func (p *PointData) Marshal(buf []byte) {
	off := 0
	for _, m := range p.P {
		off = putMat4(buf, off, m)
	}
	for _, v := range p.Pos {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.MaxDistance))
}

func putMat4(buf []byte, off int, m mgl32.Mat4) int {
	for _, v := range m {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	return off
}
