package stats

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/tilecraft/internal/logging"
)

// DefaultHookBuffer - размер очереди записей по умолчанию
const DefaultHookBuffer = 256

// recordTimeout ограничивает одну запись в хранилище
const recordTimeout = 2 * time.Second

type record struct {
	kind EventKind
	name string
}

// Hook передаёт события мира в Recorder из отдельной горутины.
// Переполнение очереди и ошибки хранилища логируются и проглатываются,
// поток тика никогда не ждёт хранилище.
type Hook struct {
	rec    Recorder
	logger *logging.Logger
	queue  chan record

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Uint64
	failed  atomic.Uint64
	written atomic.Uint64
}

// NewHook запускает воркер записи. buffer <= 0 означает DefaultHookBuffer.
func NewHook(rec Recorder, buffer int, logger *logging.Logger) *Hook {
	if buffer <= 0 {
		buffer = DefaultHookBuffer
	}
	if logger == nil {
		logger = logging.GetStatsLogger()
	}
	h := &Hook{
		rec:    rec,
		logger: logger,
		queue:  make(chan record, buffer),
		done:   make(chan struct{}),
	}
	go h.run()
	return h
}

// ItemDestroyed ставит в очередь учёт разрушенного предмета
func (h *Hook) ItemDestroyed(name string) {
	h.enqueue(KindDestroyed, name)
}

// ItemCrafted ставит в очередь учёт скрафченного предмета
func (h *Hook) ItemCrafted(name string) {
	h.enqueue(KindCrafted, name)
}

func (h *Hook) enqueue(kind EventKind, name string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.queue <- record{kind: kind, name: name}:
	default:
		h.dropped.Add(1)
		h.logger.Warn("очередь статистики заполнена, %s/%s отброшен", kind, name)
	}
}

func (h *Hook) run() {
	defer close(h.done)
	for r := range h.queue {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err := h.rec.Record(ctx, r.kind, r.name)
		cancel()
		if err != nil {
			h.failed.Add(1)
			h.logger.Warn("не удалось записать %s/%s: %v", r.kind, r.name, err)
			continue
		}
		h.written.Add(1)
		h.logger.Debug("записан %s/%s", r.kind, r.name)
	}
}

// Recorder возвращает хранилище, в которое пишет хук
func (h *Hook) Recorder() *RecorderView {
	return &RecorderView{rec: h.rec}
}

// Dropped - число записей, отброшенных из-за переполнения
func (h *Hook) Dropped() uint64 { return h.dropped.Load() }

// Failed - число записей, отклонённых хранилищем
func (h *Hook) Failed() uint64 { return h.failed.Load() }

// Written - число успешных записей
func (h *Hook) Written() uint64 { return h.written.Load() }

// Close дожидается записи очереди и закрывает хранилище
func (h *Hook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.queue)
	h.mu.Unlock()

	<-h.done
	return h.rec.Close()
}

// RecorderView - доступ только на чтение к счётчикам хука
type RecorderView struct {
	rec Recorder
}

// Counts возвращает счётчики вида kind
func (v *RecorderView) Counts(ctx context.Context, kind EventKind) (map[string]int, error) {
	return v.rec.Counts(ctx, kind)
}
