// Package batch collects the draw requests of one frame and decides which of them reach each pass.
package batch

import (
	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/buffer"
)

const (
	// DefaultCapacity is the default number of 3D batches per frame.
	DefaultCapacity = 65536
	// DefaultUiCapacity is the default number of UI batches per frame.
	DefaultUiCapacity = 4096
)

// RenderBatch is one 3D draw request.
type RenderBatch struct {
	Mode RenderMode
	// Buffer holds the vertices. Its GPU buffer is resolved when the pass is recorded since growth may replace it.
	Buffer       *buffer.Buffer
	VertexOffset uint32
	VertexCount  uint32
	InstanceID   uint32
	// Sphere is the world-space bounding volume, nil to never cull the batch.
	Sphere *common.Sphere

	culled bool
}

// Culled reports whether the batch was rejected by the last Cull.
func (b *RenderBatch) Culled() bool { return b.culled }

// RenderBatchUi is one UI draw request.
type RenderBatchUi struct {
	Mode         RenderModeUi
	Buffer       *buffer.Buffer
	VertexOffset uint32
	VertexCount  uint32
	// Scissor clips the batch in surface pixels, nil for the full surface.
	Scissor *gpu.Scissor
}

// Queue is a pre-sized list of batches. Reset only rewinds the counts; the storage is reused.
type Queue struct {
	batches   []RenderBatch
	count     int
	uiBatches []RenderBatchUi
	uiCount   int
}

// NewQueue creates a queue with fixed capacities.
//
// Parameters:
//   - capacity: maximum 3D batches per frame
//   - uiCapacity: maximum UI batches per frame
//
// Returns:
//   - *Queue: the new queue
func NewQueue(capacity, uiCapacity int) *Queue {
	return &Queue{
		batches:   make([]RenderBatch, capacity),
		uiBatches: make([]RenderBatchUi, uiCapacity),
	}
}

// Draw appends a 3D batch.
//
// Returns:
//   - error: a contract violation when the frame's capacity is exhausted
func (q *Queue) Draw(b RenderBatch) error {
	if q.count == len(q.batches) {
		return common.Contractf("render batch queue full at %d batches", len(q.batches))
	}
	b.culled = false
	q.batches[q.count] = b
	q.count++
	return nil
}

// DrawUi appends a UI batch.
//
// Returns:
//   - error: a contract violation when the frame's capacity is exhausted
func (q *Queue) DrawUi(b RenderBatchUi) error {
	if q.uiCount == len(q.uiBatches) {
		return common.Contractf("ui batch queue full at %d batches", len(q.uiBatches))
	}
	q.uiBatches[q.uiCount] = b
	q.uiCount++
	return nil
}

// Cull marks default-mode batches whose bounding sphere lies fully outside any frustum plane.
// Batches of other modes and batches without a sphere are always kept.
//
// Parameters:
//   - f: the camera frustum
//
// Returns:
//   - int: the number of culled batches
func (q *Queue) Cull(f *common.Frustum) int {
	culled := 0
	for i := range q.batches[:q.count] {
		b := &q.batches[i]
		b.culled = b.Mode == RenderModeDefault && b.Sphere != nil && !f.IntersectsSphere(*b.Sphere)
		if b.culled {
			culled++
		}
	}
	return culled
}

// Batches returns the 3D batches of the frame in submission order. The slice aliases queue storage.
func (q *Queue) Batches() []RenderBatch {
	return q.batches[:q.count]
}

// UiBatches returns the UI batches of the frame in submission order. The slice aliases queue storage.
func (q *Queue) UiBatches() []RenderBatchUi {
	return q.uiBatches[:q.uiCount]
}

// Len returns the number of queued 3D batches.
func (q *Queue) Len() int { return q.count }

// UiLen returns the number of queued UI batches.
func (q *Queue) UiLen() int { return q.uiCount }

// Reset empties the queue for the next frame.
func (q *Queue) Reset() {
	q.count = 0
	q.uiCount = 0
}
