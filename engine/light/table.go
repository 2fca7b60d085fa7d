package light

import (
	"github.com/Carmen-Shannon/oxy-core/common"
)

// Record is a light record with a fixed GPU layout.
type Record interface {
	Size() int
	Marshal(buf []byte)
}

// Table is a fixed-capacity array of lights indexed by stable ids. Removing a light clears its
// valid byte and recycles the id later instead of compacting the array, so ids held by callers
// never change.
type Table[T Record] struct {
	name  string
	count int
	// valid holds one byte per id, padded to a multiple of 4 for upload.
	valid []uint8
	free  []int
	data  []T
	// pending lists, per frame slot, the ids whose record must be uploaded to that slot's buffer.
	pending [][]int
}

// NewTable creates an empty table.
//
// Parameters:
//   - name: used in error messages
//   - capacity: the maximum number of lights
//   - frames: number of frame slots that mirror the table on the GPU
//
// Returns:
//   - *Table[T]: the new table
func NewTable[T Record](name string, capacity, frames int) *Table[T] {
	return &Table[T]{
		name:    name,
		valid:   make([]uint8, common.RoundUp(capacity, 4)),
		data:    make([]T, capacity),
		pending: make([][]int, frames),
	}
}

// Capacity returns the maximum number of lights.
func (t *Table[T]) Capacity() int { return len(t.data) }

// Count returns one past the highest id in use.
func (t *Table[T]) Count() int { return t.count }

// Add stores a light under a recycled or new id and schedules its upload to every slot.
//
// Parameters:
//   - v: the light record
//
// Returns:
//   - int: the light id
//   - error: a contract violation when the table is full
func (t *Table[T]) Add(v T) (int, error) {
	var id int
	switch {
	case len(t.free) > 0:
		id = t.free[0]
		t.free = t.free[1:]
	case t.count < len(t.data):
		id = t.count
		t.count++
	default:
		return 0, common.Contractf("more than %d %s lights", len(t.data), t.name)
	}
	t.valid[id] = 1
	t.data[id] = v
	t.schedule(id)
	return id, nil
}

// Set replaces the record of a live light and schedules its upload to every slot.
//
// Parameters:
//   - id: the light id
//   - v: the new record
//
// Returns:
//   - error: a contract violation if id is not a live light
func (t *Table[T]) Set(id int, v T) error {
	if !t.Valid(id) {
		return common.Contractf("no %s light with id %d", t.name, id)
	}
	t.data[id] = v
	t.schedule(id)
	return nil
}

// Remove invalidates a light. The id can be handed out again right away since lights own no GPU
// objects; the cleared valid byte reaches the GPU with the next frame's bitmap upload.
//
// Parameters:
//   - id: the light id
//
// Returns:
//   - error: a contract violation if id is not a live light
func (t *Table[T]) Remove(id int) error {
	if !t.Valid(id) {
		return common.Contractf("no %s light with id %d", t.name, id)
	}
	t.valid[id] = 0
	if id == t.count-1 {
		t.count--
	} else {
		t.free = append(t.free, id)
	}
	return nil
}

// Valid reports whether id is a live light.
func (t *Table[T]) Valid(id int) bool {
	return id >= 0 && id < t.count && t.valid[id] != 0
}

// Get returns the record of id.
func (t *Table[T]) Get(id int) T {
	return t.data[id]
}

// Each calls fn for every live light in id order.
func (t *Table[T]) Each(fn func(id int, v T)) {
	for id := 0; id < t.count; id++ {
		if t.valid[id] != 0 {
			fn(id, t.data[id])
		}
	}
}

// ValidBytes returns the valid bitmap for ids [0, Count), padded to a multiple of 4 bytes.
// The slice aliases table storage.
func (t *Table[T]) ValidBytes() []uint8 {
	return t.valid[:common.RoundUp(t.count, 4)]
}

// TakePending returns and clears the ids scheduled for upload to slot. An id may appear more than once.
func (t *Table[T]) TakePending(slot int) []int {
	ids := t.pending[slot]
	t.pending[slot] = nil
	return ids
}

// Marshal serializes the record of id into buf.
func (t *Table[T]) Marshal(id int, buf []byte) {
	t.data[id].Marshal(buf)
}

func (t *Table[T]) schedule(id int) {
	for slot := range t.pending {
		t.pending[slot] = append(t.pending[slot], id)
	}
}
