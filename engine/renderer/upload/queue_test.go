package upload

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/buffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retired struct {
	resources []gpu.Resource
}

func (r *retired) RetirePrevious(resources ...gpu.Resource) {
	r.resources = append(r.resources, resources...)
}

func TestFlushCoalescesPerDestination(t *testing.T) {
	dev := gputest.NewDevice()
	lights, err := buffer.NewBuffer(dev, "point-lights", gpu.BufferUsageStorage, buffer.WithInitialSize(1024))
	require.NoError(t, err)
	_, err = lights.Allocate(1024)
	require.NoError(t, err)

	q := NewQueue(nil)
	requests := []struct {
		offset uint64
		data   []byte
	}{
		{0, []byte{1, 1, 1, 1}},
		{64, []byte{2, 2, 2, 2, 2, 2, 2, 2}},
		{0, []byte{3, 3, 3, 3}},
		{128, []byte{4, 4, 4, 4}},
		{64, []byte{5, 5, 5, 5, 5, 5, 5, 5}},
		{64, []byte{6, 6, 6, 6}},
	}
	for _, r := range requests {
		q.Request(lights, r.offset, r.data)
	}
	require.Equal(t, 1, q.Pending())

	res, err := q.Flush(context.Background(), &retired{})
	require.NoError(t, err)
	require.Len(t, res.Wait, 1)
	assert.False(t, res.Rebuild)

	staging := dev.Buffers[1]
	assert.Equal(t, 1, staging.MapCount, "one mapped session for the destination")
	require.Len(t, dev.Submissions, 1)
	copies := dev.Submissions[0].CommandBuffers[0].Filter("copy")
	require.Len(t, copies, 1, "one copy command batch")
	assert.Len(t, copies[0].Regions, 4, "one region per distinct (offset, size)")

	gpuBytes := lights.GPU().(*gputest.Buffer).Bytes
	assert.Equal(t, []byte{3, 3, 3, 3}, gpuBytes[0:4])
	assert.Equal(t, []byte{6, 6, 6, 6, 5, 5, 5, 5}, gpuBytes[64:72])
	assert.Equal(t, []byte{4, 4, 4, 4}, gpuBytes[128:132])

	assert.Zero(t, q.Pending())
	res, err = q.Flush(context.Background(), &retired{})
	require.NoError(t, err)
	assert.Empty(t, res.Wait, "queue carries nothing across flushes")
}

func TestFlushGrowsTrackedBuffers(t *testing.T) {
	dev := gputest.NewDevice()
	vertices, err := buffer.NewBuffer(dev, "vertices", gpu.BufferUsageVertex, buffer.WithInitialSize(16))
	require.NoError(t, err)
	bones, err := buffer.NewBuffer(dev, "bones", gpu.BufferUsageStorage, buffer.WithInitialSize(16))
	require.NoError(t, err)
	frame, err := buffer.NewBuffer(dev, "common", gpu.BufferUsageUniform, buffer.WithInitialSize(16))
	require.NoError(t, err)

	q := NewQueue(nil)
	q.Track(vertices)
	q.Track(bones)

	_, err = vertices.Allocate(32)
	require.NoError(t, err)
	q.Request(frame, 0, []byte{9, 9, 9, 9})

	r := &retired{}
	res, err := q.Flush(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, res.Rebuild, "vertex buffers are not in the binding table")
	assert.Len(t, r.resources, 2)
	require.Len(t, res.Wait, 2, "grown vertex buffer and the requested frame buffer")
	assert.Equal(t, uint64(32), vertices.Size())
	assert.Equal(t, uint64(16), bones.Size())

	_, err = bones.Allocate(64)
	require.NoError(t, err)
	res, err = q.Flush(context.Background(), r)
	require.NoError(t, err)
	assert.True(t, res.Rebuild, "storage buffers are referenced by the binding table")
	assert.Len(t, res.Wait, 1)

	q.Untrack(bones)
	_, err = bones.Allocate(64)
	require.NoError(t, err)
	_, err = q.Flush(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), bones.Size(), "untracked buffers are left alone")
}
