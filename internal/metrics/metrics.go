// Package metrics экспортирует метрики симуляции в Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/tilecraft/internal/world"
)

// SimMetrics собирает метрики тиков и событий мира.
// Реализует world.EventSink.
type SimMetrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	frameDelta   prometheus.Histogram
	events       *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	pickups      prometheus.Counter
	drops        prometheus.Gauge
	chunks       prometheus.Gauge
	respawns     prometheus.Counter
}

// NewSimMetrics создаёт метрики и регистрирует их в reg.
// nil означает глобальный регистр Prometheus.
func NewSimMetrics(reg prometheus.Registerer) *SimMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &SimMetrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tilecraft",
			Name:      "ticks_total",
			Help:      "Количество выполненных тиков.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tilecraft",
			Name:      "tick_duration_seconds",
			Help:      "Время выполнения одного тика.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02},
		}),
		frameDelta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tilecraft",
			Name:      "frame_delta_seconds",
			Help:      "Шаг времени, переданный в физику.",
			Buckets:   []float64{0.008, 0.016, 0.017, 0.025, 0.034, 0.05, 0.1},
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tilecraft",
			Name:      "world_events_total",
			Help:      "События мира по типу.",
		}, []string{"type"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tilecraft",
			Name:      "interactions_rejected_total",
			Help:      "Отклонённые взаимодействия по причине.",
		}, []string{"reason"}),
		pickups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tilecraft",
			Name:      "pickups_total",
			Help:      "Подобранные предметы.",
		}),
		drops: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tilecraft",
			Name:      "drops_active",
			Help:      "Предметы, лежащие в мире.",
		}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tilecraft",
			Name:      "chunks_generated",
			Help:      "Сгенерированные и закэшированные чанки мира.",
		}),
		respawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tilecraft",
			Name:      "respawns_total",
			Help:      "Возвраты игрока в точку появления.",
		}),
	}
	reg.MustRegister(m.ticks, m.tickDuration, m.frameDelta, m.events, m.rejected, m.pickups, m.drops, m.chunks, m.respawns)
	return m
}

// OnWorldEvent считает событие мира
func (m *SimMetrics) OnWorldEvent(ev world.Event) {
	m.events.WithLabelValues(ev.Type.String()).Inc()
	switch ev.Type {
	case world.EventInteractionRejected:
		m.rejected.WithLabelValues(ev.Reason.String()).Inc()
	case world.EventItemPickedUp:
		m.pickups.Inc()
	case world.EventPlayerRespawned:
		m.respawns.Inc()
	}
}

// ObserveTick учитывает итог тика
func (m *SimMetrics) ObserveTick(report world.TickReport, elapsed time.Duration) {
	m.ticks.Inc()
	m.tickDuration.Observe(elapsed.Seconds())
	if report.DT > 0 {
		m.frameDelta.Observe(report.DT)
	}
}

// SetDrops обновляет количество предметов в мире
func (m *SimMetrics) SetDrops(n int) {
	m.drops.Set(float64(n))
}

// SetChunks обновляет количество сгенерированных чанков
func (m *SimMetrics) SetChunks(n int) {
	m.chunks.Set(float64(n))
}

// Observer возвращает наблюдателя тиков; drops и chunks вызываются
// в потоке тика, nil пропускается
func (m *SimMetrics) Observer(drops, chunks func() int) func(world.TickReport, time.Duration) {
	return func(report world.TickReport, elapsed time.Duration) {
		m.ObserveTick(report, elapsed)
		if drops != nil {
			m.SetDrops(drops())
		}
		if chunks != nil {
			m.SetChunks(chunks())
		}
	}
}
