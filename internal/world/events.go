package world

import (
	"fmt"

	"github.com/annel0/tilecraft/internal/item"
)

// EventType определяет тип события мира
type EventType uint8

const (
	EventTileBroken          EventType = iota // Тайл сломан, предмет выпал
	EventTilePlaced                           // Блок поставлен
	EventItemPickedUp                         // Предмет подобран
	EventItemCrafted                          // Предмет скрафчен
	EventPlayerRespawned                      // Игрок вернулся в точку появления
	EventInteractionRejected                  // Взаимодействие отклонено
)

// String возвращает имя типа события (используется как тип в шине)
func (t EventType) String() string {
	switch t {
	case EventTileBroken:
		return "tile_broken"
	case EventTilePlaced:
		return "tile_placed"
	case EventItemPickedUp:
		return "item_picked_up"
	case EventItemCrafted:
		return "item_crafted"
	case EventPlayerRespawned:
		return "player_respawned"
	case EventInteractionRejected:
		return "interaction_rejected"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event - событие, произошедшее за тик
type Event struct {
	Type     EventType `json:"-"`
	Tick     uint64    `json:"tick"`
	PlayerID uint64    `json:"player_id"`
	TX       int       `json:"tx,omitempty"`
	TY       int       `json:"ty,omitempty"`
	Tile     Tile      `json:"-"`
	Item     item.Kind `json:"-"`
	Recipe   string    `json:"recipe,omitempty"`
	Reason   Reason    `json:"-"`
}

// EventSink получает события мира. Вызывается из потока тика,
// поэтому реализация не должна блокироваться.
type EventSink interface {
	OnWorldEvent(ev Event)
}

// StatsHook - крючок для внешней статистики разрушений и крафта.
// Ошибки хранилища реализация обязана проглатывать сама.
type StatsHook interface {
	ItemDestroyed(name string)
	ItemCrafted(name string)
}
