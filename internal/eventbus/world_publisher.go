package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/world"
)

// SourceWorld - имя источника событий симуляции
const SourceWorld = "tilecraft"

// WorldEventVersion - версия схемы WorldEventPayload
const WorldEventVersion = 1

// WorldEventPayload - полезная нагрузка события мира в шине
type WorldEventPayload struct {
	Tick     uint64 `json:"tick"`
	PlayerID uint64 `json:"player_id"`
	TX       int    `json:"tx"`
	TY       int    `json:"ty"`
	Tile     string `json:"tile,omitempty"`
	Item     string `json:"item,omitempty"`
	Recipe   string `json:"recipe,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// NewWorldEnvelope упаковывает событие мира в Envelope
func NewWorldEnvelope(ev world.Event) (*Envelope, error) {
	p := WorldEventPayload{
		Tick:     ev.Tick,
		PlayerID: ev.PlayerID,
		TX:       ev.TX,
		TY:       ev.TY,
		Recipe:   ev.Recipe,
	}
	switch ev.Type {
	case world.EventTileBroken, world.EventTilePlaced:
		p.Tile = ev.Tile.String()
		p.Item = ev.Item.String()
	case world.EventItemPickedUp, world.EventItemCrafted:
		p.Item = ev.Item.String()
	case world.EventInteractionRejected:
		p.Reason = ev.Reason.String()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal world event: %w", err)
	}

	prio := 1
	if ev.Type == world.EventItemCrafted || ev.Type == world.EventPlayerRespawned {
		prio = 5
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    SourceWorld,
		EventType: ev.Type.String(),
		Version:   WorldEventVersion,
		Priority:  prio,
		Payload:   data,
	}, nil
}

// DecodeWorldEvent достаёт полезную нагрузку события мира
func DecodeWorldEvent(env *Envelope) (WorldEventPayload, error) {
	var p WorldEventPayload
	if env.Source != SourceWorld {
		return p, fmt.Errorf("unexpected source %q", env.Source)
	}
	if env.Version != WorldEventVersion {
		return p, fmt.Errorf("unsupported world event version %d", env.Version)
	}
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return p, fmt.Errorf("decode world event: %w", err)
	}
	return p, nil
}

// WorldPublisher пересылает события мира в шину.
// OnWorldEvent вызывается из потока тика и не блокируется:
// публикация выполняется отдельным воркером.
type WorldPublisher struct {
	bus    EventBus
	queue  chan world.Event
	logger *logging.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewWorldPublisher запускает воркер публикации
func NewWorldPublisher(bus EventBus, buffer int, logger *logging.Logger) *WorldPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = logging.GetComponentLogger("eventbus")
	}
	wp := &WorldPublisher{
		bus:    bus,
		queue:  make(chan world.Event, buffer),
		logger: logger,
	}
	wp.wg.Add(1)
	go wp.run()
	return wp
}

// OnWorldEvent реализует world.EventSink
func (wp *WorldPublisher) OnWorldEvent(ev world.Event) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		wp.dropped.Add(1)
		return
	}
	select {
	case wp.queue <- ev:
	default:
		wp.dropped.Add(1)
		wp.logger.Warn("очередь публикации переполнена, событие %s отброшено", ev.Type)
	}
}

func (wp *WorldPublisher) run() {
	defer wp.wg.Done()
	ctx := context.Background()
	for ev := range wp.queue {
		env, err := NewWorldEnvelope(ev)
		if err == nil {
			err = wp.bus.Publish(ctx, env)
		}
		if err != nil {
			wp.failed.Add(1)
			wp.logger.Warn("публикация %s: %v", ev.Type, err)
		}
	}
}

// Dropped - события, отброшенные при переполнении или после Close
func (wp *WorldPublisher) Dropped() uint64 { return wp.dropped.Load() }

// Failed - события, которые не удалось опубликовать
func (wp *WorldPublisher) Failed() uint64 { return wp.failed.Load() }

// Close дожидается публикации очереди. Шину не закрывает.
func (wp *WorldPublisher) Close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.queue)
	wp.mu.Unlock()
	wp.wg.Wait()
}
