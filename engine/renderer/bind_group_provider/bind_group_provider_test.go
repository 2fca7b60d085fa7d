package bind_group_provider

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-core/engine/gpu"
	"github.com/Carmen-Shannon/oxy-core/engine/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildIsLazyAndStopTheWorld(t *testing.T) {
	dev := gputest.NewDevice()
	p := NewBindGroupProvider(dev, 2, WithLabel("frame-table"))
	assert.True(t, p.Dirty(), "first frame builds the tables")
	assert.Nil(t, p.BindGroup(0))

	calls := 0
	source := SourceFunc(func(slot int) []gpu.Binding {
		calls++
		return []gpu.Binding{{Slot: BindingCommon}, {Slot: BindingTextures}}
	})

	rebuilt, err := p.Rebuild(context.Background(), source)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, dev.WaitIdleCount)
	first := [2]gpu.BindingTable{p.BindGroup(0), p.BindGroup(1)}
	require.NotNil(t, first[0])
	assert.Equal(t, "frame-table-slot-1", first[1].(*gputest.BindingTable).Desc.Label)

	rebuilt, err = p.Rebuild(context.Background(), source)
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Equal(t, 1, dev.WaitIdleCount, "a clean provider never waits for idle")

	p.MarkDirty()
	rebuilt, err = p.Rebuild(context.Background(), source)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, 2, p.Rebuilds())
	for _, old := range first {
		assert.True(t, old.(*gputest.BindingTable).Destroyed)
	}

	// The idle wait comes before any table is touched.
	var ops []string
	for _, e := range dev.Events {
		ops = append(ops, e.Op)
	}
	assert.Equal(t, []string{
		"wait-idle", "create-table", "create-table",
		"wait-idle", "destroy-table", "create-table", "destroy-table", "create-table",
	}, ops)

	p.Release()
	assert.True(t, p.BindGroup(0) == nil)
}
