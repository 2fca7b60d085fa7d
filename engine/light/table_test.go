package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-core/common"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableIdsAreStable(t *testing.T) {
	tbl := NewTable[Point]("point", 8, 2)
	ids := make([]int, 4)
	for i := range ids {
		id, err := tbl.Add(NewPoint(WithPosition(float32(i), 0, 0)))
		require.NoError(t, err)
		ids[i] = id
	}
	assert.Equal(t, []int{0, 1, 2, 3}, ids)

	require.NoError(t, tbl.Remove(1))
	assert.False(t, tbl.Valid(1))
	assert.Equal(t, 4, tbl.Count(), "removal does not compact")
	assert.Equal(t, float32(2), tbl.Get(2).Pos.X(), "other ids keep their records")

	id, err := tbl.Add(NewPoint())
	require.NoError(t, err)
	assert.Equal(t, 1, id, "lights recycle ids immediately")

	require.NoError(t, tbl.Remove(3))
	assert.Equal(t, 3, tbl.Count(), "removing the tail id shrinks the count")

	live := map[int]bool{}
	tbl.Each(func(id int, _ Point) { live[id] = true })
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, live)
}

func TestTableValidBytes(t *testing.T) {
	tbl := NewTable[Directional]("directional", 10, 1)
	for i := 0; i < 5; i++ {
		_, err := tbl.Add(NewDirectional())
		require.NoError(t, err)
	}
	require.NoError(t, tbl.Remove(2))
	assert.Equal(t, []uint8{1, 1, 0, 1, 1, 0, 0, 0}, tbl.ValidBytes())
}

func TestTablePendingPerSlot(t *testing.T) {
	tbl := NewTable[Point]("point", 4, 3)
	a, err := tbl.Add(NewPoint())
	require.NoError(t, err)
	b, err := tbl.Add(NewPoint())
	require.NoError(t, err)
	require.NoError(t, tbl.Set(a, NewPoint(WithPower(3))))

	assert.Equal(t, []int{a, b, a}, tbl.TakePending(0))
	assert.Empty(t, tbl.TakePending(0))
	assert.Equal(t, []int{a, b, a}, tbl.TakePending(2), "each slot keeps its own list")
	assert.Equal(t, float32(3), tbl.Get(a).Power)
}

func TestTableContractViolations(t *testing.T) {
	tbl := NewTable[Point]("point", 2, 1)
	for i := 0; i < 2; i++ {
		_, err := tbl.Add(NewPoint())
		require.NoError(t, err)
	}
	_, err := tbl.Add(NewPoint())
	assert.True(t, errors.Is(err, common.ErrContractViolation), "full table")

	require.NoError(t, tbl.Remove(0))
	assert.True(t, errors.Is(tbl.Remove(0), common.ErrContractViolation), "double remove")
	assert.True(t, errors.Is(tbl.Set(0, NewPoint()), common.ErrContractViolation), "update removed")
	assert.True(t, errors.Is(tbl.Set(7, NewPoint()), common.ErrContractViolation), "update unknown")
}

func TestLightMarshalLayout(t *testing.T) {
	d := NewDirectional(WithDirection(0, -2, 0), WithCascades(3, 1024, 512))
	d.ShadowMapID = 2
	buf := make([]byte, DirectionalSize)
	d.Marshal(buf)
	assert.Equal(t, float32(-1), math.Float32frombits(binary.LittleEndian.Uint32(buf[20:24])))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[28:32]))
	assert.Equal(t, uint32(1024), binary.LittleEndian.Uint32(buf[32:36]))
	assert.Equal(t, uint32(512), binary.LittleEndian.Uint32(buf[36:40]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[40:44]))

	p := NewPoint(WithPosition(1, 2, 3), WithRange(25), WithShadow(256))
	assert.Equal(t, NoShadowMap, p.ShadowMapID)
	pbuf := make([]byte, PointSize)
	p.Marshal(pbuf)
	assert.Equal(t, float32(25), math.Float32frombits(binary.LittleEndian.Uint32(pbuf[12:16])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(pbuf[24:28])))
	assert.Equal(t, uint32(256), binary.LittleEndian.Uint32(pbuf[28:32]))
	assert.Equal(t, NoShadowMap, binary.LittleEndian.Uint32(pbuf[48:52]))
}

func TestSameShadow(t *testing.T) {
	base := NewDirectional(WithCascades(2, 512, 512))
	moved := base
	moved.Dir = mgl32.Vec3{1, 0, 0}
	assert.True(t, base.SameShadow(moved))
	assert.False(t, base.SameShadow(NewDirectional(WithCascades(3, 512, 512))))
	assert.True(t, NewDirectional().SameShadow(NewDirectional()))
	assert.False(t, NewPoint().CastsShadow())
	assert.True(t, NewPoint(WithShadow(64)).CastsShadow())
}
