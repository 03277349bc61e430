package api

import (
	"context"
	"sync"

	"github.com/annel0/tilecraft/internal/eventbus"
)

// DefaultEventLogSize - сколько последних событий хранит журнал
const DefaultEventLogSize = 512

// EventLog - кольцевой журнал последних событий шины для /api/events
type EventLog struct {
	mu   sync.RWMutex
	buf  []eventbus.Envelope
	next int
	full bool
	seq  uint64
}

// NewEventLog создаёт журнал на size записей
func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = DefaultEventLogSize
	}
	return &EventLog{buf: make([]eventbus.Envelope, size)}
}

// Attach подписывает журнал на события мира
func (l *EventLog) Attach(ctx context.Context, bus eventbus.EventBus) (eventbus.Subscription, error) {
	return bus.Subscribe(ctx, eventbus.Filter{Sources: []string{eventbus.SourceWorld}}, func(_ context.Context, ev *eventbus.Envelope) {
		l.Append(*ev)
	})
}

// Append добавляет событие, вытесняя самое старое
func (l *EventLog) Append(ev eventbus.Envelope) {
	l.mu.Lock()
	l.buf[l.next] = ev
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
	l.seq++
	l.mu.Unlock()
}

// Total - сколько событий прошло через журнал
func (l *EventLog) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// Recent возвращает до limit последних событий типа eventType
// (пустой тип - любые), от старых к новым
func (l *EventLog) Recent(eventType string, limit int) []eventbus.Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.next
	start := 0
	if l.full {
		n = len(l.buf)
		start = l.next
	}

	out := make([]eventbus.Envelope, 0, n)
	for i := 0; i < n; i++ {
		ev := l.buf[(start+i)%len(l.buf)]
		if eventType != "" && ev.EventType != eventType {
			continue
		}
		out = append(out, ev)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
