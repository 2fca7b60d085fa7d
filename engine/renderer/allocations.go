package renderer

import (
	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/buffer"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

func (r *renderer) RequestVertexAllocation(format VertexFormat, count uint32) (buffer.Allocation, error) {
	if format.Stride == 0 || count == 0 {
		return buffer.Allocation{}, common.Contractf("vertex allocation of %d vertices with stride %d", count, format.Stride)
	}
	buf, ok := r.vertexBuffers[format]
	if !ok {
		var err error
		buf, err = buffer.NewBuffer(r.device, "vertices-"+format.Name, gpu.BufferUsageVertex,
			buffer.WithInitialSize(common.RoundUp(buffer.DefaultSize, format.Stride)),
			buffer.WithLogger(r.logger),
		)
		if err != nil {
			return buffer.Allocation{}, err
		}
		r.vertexBuffers[format] = buf
		r.vertexOrder = append(r.vertexOrder, format)
		r.uploads.Track(buf)
		r.logger.Debug("vertex buffer created", zap.String("format", format.Name), zap.Uint64("stride", format.Stride))
	}
	return buf.Allocate(uint64(count) * format.Stride)
}

func (r *renderer) RequestInstanceAllocation(count uint32) (buffer.Allocation, error) {
	return r.instances.Allocate(uint64(count) * InstanceDataSize)
}

func (r *renderer) RequestBoneAllocation(count uint32) (buffer.Allocation, error) {
	return r.bones.Allocate(uint64(count) * boneSize)
}

func (r *renderer) RequestTerrainAllocation(size uint64) (buffer.Allocation, error) {
	return r.terrain.Allocate(size)
}

func (r *renderer) FreeVertexAllocation(alloc buffer.Allocation) error {
	for _, buf := range r.vertexBuffers {
		if alloc.Buffer() == buf {
			return buf.Free(alloc)
		}
	}
	return common.Contractf("allocation is not a vertex allocation")
}

func (r *renderer) FreeInstanceAllocation(alloc buffer.Allocation) error {
	return r.instances.Free(alloc)
}

func (r *renderer) FreeBoneAllocation(alloc buffer.Allocation) error {
	return r.bones.Free(alloc)
}

func (r *renderer) FreeTerrainAllocation(alloc buffer.Allocation) error {
	return r.terrain.Free(alloc)
}

// request queues data at offset within alloc after checking alloc belongs to want.
func (r *renderer) request(want *buffer.Buffer, alloc buffer.Allocation, offset uint64, data []byte) error {
	if want != nil && alloc.Buffer() != want {
		return common.Contractf("allocation does not belong to %s", want.Label())
	}
	abs, err := alloc.Span(offset, uint64(len(data)))
	if err != nil {
		return err
	}
	r.uploads.Request(alloc.Buffer(), abs, data)
	return nil
}

func (r *renderer) UpdateVertexData(alloc buffer.Allocation, offset uint64, data []byte) error {
	if alloc.IsZero() || alloc.Buffer().Usage()&gpu.BufferUsageVertex == 0 {
		return common.Contractf("allocation is not a vertex allocation")
	}
	return r.request(nil, alloc, offset, data)
}

func (r *renderer) UpdateInstanceData(alloc buffer.Allocation, index uint32, data InstanceData) error {
	return r.request(r.instances, alloc, uint64(index)*InstanceDataSize, data.Marshal())
}

func (r *renderer) UpdateBoneData(alloc buffer.Allocation, first uint32, transforms []mgl32.Mat4) error {
	buf := make([]byte, len(transforms)*boneSize)
	for i, m := range transforms {
		putMat4(buf[i*boneSize:], m)
	}
	return r.request(r.bones, alloc, uint64(first)*boneSize, buf)
}

func (r *renderer) UpdateTerrainData(alloc buffer.Allocation, offset uint64, data []byte) error {
	return r.request(r.terrain, alloc, offset, data)
}
