package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilecraft/internal/world"
)

func TestSimMetrics_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSimMetrics(reg)

	m.OnWorldEvent(world.Event{Type: world.EventTileBroken})
	m.OnWorldEvent(world.Event{Type: world.EventTileBroken})
	m.OnWorldEvent(world.Event{Type: world.EventItemPickedUp})
	m.OnWorldEvent(world.Event{Type: world.EventPlayerRespawned})
	m.OnWorldEvent(world.Event{Type: world.EventInteractionRejected, Reason: world.ReasonToolRequired})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("tile_broken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pickups))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.respawns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues(world.ReasonToolRequired.String())))
}

func TestSimMetrics_Observer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSimMetrics(reg)

	observe := m.Observer(func() int { return 3 }, func() int { return 12 })
	observe(world.TickReport{Tick: 1, DT: 1.0 / 60}, time.Millisecond)
	observe(world.TickReport{Tick: 2}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.drops))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.chunks))

	// Плоский мир не сообщает количество чанков
	m.Observer(nil, nil)(world.TickReport{Tick: 3}, time.Millisecond)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ticks))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["tilecraft_tick_duration_seconds"])
	assert.True(t, names["tilecraft_frame_delta_seconds"])
	assert.True(t, names["tilecraft_chunks_generated"])
}

func TestSimMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSimMetrics(reg)
	assert.Panics(t, func() { NewSimMetrics(reg) })
}
