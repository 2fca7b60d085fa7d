// Package upload batches CPU to GPU writes per destination buffer and applies them once per frame.
package upload

import (
	"context"

	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/renderer/buffer"
	"go.uber.org/zap"
)

// Result describes the outcome of a Flush.
type Result struct {
	// Wait holds the upload semaphores the next frame submission must wait on.
	Wait []gpu.Semaphore
	// Rebuild is true when a buffer referenced by the binding table was replaced.
	Rebuild bool
}

// Queue collects writes keyed by destination buffer. It holds no state across a Flush.
//
// Request does not copy the data it is given. Callers must keep the bytes unchanged until the
// next Flush returns.
type Queue struct {
	logger  *zap.Logger
	tracked []*buffer.Buffer
	order   []*buffer.Buffer
	pending map[*buffer.Buffer][]buffer.Write
}

// NewQueue creates an empty upload queue.
//
// Parameters:
//   - logger: the logger to use, nil for none
//
// Returns:
//   - *Queue: the new queue
func NewQueue(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		logger:  logger,
		pending: make(map[*buffer.Buffer][]buffer.Write),
	}
}

// Track registers a growable buffer. Tracked buffers are grown on every Flush whether or not they
// have pending writes, since draws may reference allocations that were never written.
func (q *Queue) Track(buf *buffer.Buffer) {
	q.tracked = append(q.tracked, buf)
}

// Untrack removes a buffer registered with Track.
func (q *Queue) Untrack(buf *buffer.Buffer) {
	for i, b := range q.tracked {
		if b == buf {
			q.tracked = append(q.tracked[:i], q.tracked[i+1:]...)
			return
		}
	}
}

// Request queues a write of data at offset into dst.
//
// Parameters:
//   - dst: the destination buffer
//   - offset: absolute byte offset in dst
//   - data: the bytes to write, referenced until the next Flush
func (q *Queue) Request(dst *buffer.Buffer, offset uint64, data []byte) {
	if _, ok := q.pending[dst]; !ok {
		q.order = append(q.order, dst)
	}
	q.pending[dst] = append(q.pending[dst], buffer.Write{Offset: offset, Data: data})
}

// Pending returns the number of destinations with queued writes.
func (q *Queue) Pending() int {
	return len(q.order)
}

// Flush grows every tracked buffer that outgrew its capacity, then uploads each destination with
// queued writes or copies queued by growth. Destinations are processed in a fixed order: tracked
// buffers in registration order, then the remaining destinations in first-request order.
// The queue is empty afterwards, also when an error is returned.
//
// Parameters:
//   - ctx: bounds the waits on previous uploads
//   - retirer: receives buffers replaced by growth
//
// Returns:
//   - Result: semaphores to chain into the frame submission and whether the binding table is stale
//   - error: a fatal or contract violation error from a destination
func (q *Queue) Flush(ctx context.Context, retirer buffer.Retirer) (Result, error) {
	defer q.reset()

	var res Result
	for _, buf := range q.tracked {
		grown, err := buf.Grow(retirer)
		if err != nil {
			return res, err
		}
		if grown && buf.Usage().DescriptorVisible() {
			res.Rebuild = true
		}
	}

	for _, buf := range q.destinations() {
		sem, err := buf.Upload(ctx, q.pending[buf])
		if err != nil {
			return res, err
		}
		if sem != nil {
			res.Wait = append(res.Wait, sem)
		}
	}
	if len(res.Wait) > 0 {
		q.logger.Debug("uploads flushed", zap.Int("destinations", len(res.Wait)))
	}
	return res, nil
}

func (q *Queue) destinations() []*buffer.Buffer {
	seen := make(map[*buffer.Buffer]struct{}, len(q.tracked)+len(q.order))
	var out []*buffer.Buffer
	for _, buf := range q.tracked {
		if _, ok := q.pending[buf]; ok || buf.HasPendingCopies() {
			seen[buf] = struct{}{}
			out = append(out, buf)
		}
	}
	for _, buf := range q.order {
		if _, ok := seen[buf]; !ok {
			out = append(out, buf)
		}
	}
	return out
}

func (q *Queue) reset() {
	q.order = q.order[:0]
	clear(q.pending)
}
