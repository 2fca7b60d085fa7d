package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableLayoutNumbersBindingsInSlotOrder(t *testing.T) {
	bindings := []Binding{
		{Slot: 3, Kind: BindingStorage},
		{Slot: 0, Kind: BindingUniform},
		{Slot: 1, Kind: BindingTextures},
		{Slot: 2, Kind: BindingDepthCubes},
	}

	entries, samplers := tableLayout(bindings, map[uint32]uint32{2: 4})

	assert.Equal(t, []tableEntry{
		{slot: 0, kind: BindingUniform, uniform: true, first: 0, count: 1},
		{slot: 1, kind: BindingTextures, first: 1, count: DefaultImageArrayCapacity},
		{slot: 2, kind: BindingDepthCubes, first: 17, count: 4},
		{slot: 3, kind: BindingStorage, first: 21, count: 1},
	}, entries)
	assert.Equal(t, uint32(22), samplers)
}

func TestTableLayoutEntries(t *testing.T) {
	e := tableEntry{slot: 5, kind: BindingDepthArrays, first: 7, count: 3}
	out := e.layoutEntries()

	assert.Len(t, out, 3)
	for i, entry := range out {
		assert.Equal(t, uint32(7+i), entry.Binding)
	}
}
