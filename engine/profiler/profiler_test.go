package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-core/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTickReportsPerInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewProfiler(zap.New(core), time.Second)
	start := time.Unix(100, 0)
	p.lastTime = start

	clock := start.Add(500 * time.Millisecond)
	p.now = func() time.Time { return clock }
	assert.False(t, p.Tick(renderer.FrameStats{Rendered: 30}))
	assert.Zero(t, logs.Len())

	clock = start.Add(2 * time.Second)
	assert.True(t, p.Tick(renderer.FrameStats{Rendered: 120, Dropped: 3}))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.InDelta(t, 60.0, fields["fps"], 1e-9)
	assert.Equal(t, uint64(3), fields["dropped"])

	clock = start.Add(3 * time.Second)
	assert.True(t, p.Tick(renderer.FrameStats{Rendered: 150, Dropped: 3}))
	fields = logs.All()[1].ContextMap()
	assert.InDelta(t, 30.0, fields["fps"], 1e-9)
	assert.Equal(t, uint64(0), fields["dropped"])
}

func TestNewProfilerDefaults(t *testing.T) {
	p := NewProfiler(nil, 0)
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
}
