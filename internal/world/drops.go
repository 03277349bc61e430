package world

import (
	"math"

	"github.com/google/uuid"

	"github.com/annel0/tilecraft/internal/item"
	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/vec"
	"github.com/annel0/tilecraft/internal/world/entity"
)

// Параметры выпавших предметов по умолчанию (пиксели, за тик)
const (
	DefaultAttractRadius = 40.0
	DefaultPickupRadius  = 20.0
	DefaultAttractSpeed  = 5.0
	DefaultFallStep      = 5.0
	DefaultCollectRadius = 100.0
)

// DropHandle - идентификатор выпавшего предмета
type DropHandle = uuid.UUID

// Drop - предмет, лежащий в мире. Pos - левый верхний угол квадрата
// со стороной в тайл.
type Drop struct {
	Handle DropHandle
	Pos    vec.Vec2Float
	Item   item.Item
	Age    int // Количество прошедших обновлений
}

// Pickup описывает подобранный игроком предмет
type Pickup struct {
	Handle DropHandle
	Item   item.Item
}

// DropConfig описывает поведение выпавших предметов
type DropConfig struct {
	AttractRadius float64
	PickupRadius  float64
	AttractSpeed  float64
	FallStep      float64
	CollectRadius float64
	DespawnTicks  int // 0 - предметы не исчезают
}

// DefaultDropConfig возвращает параметры по умолчанию
func DefaultDropConfig() DropConfig {
	return DropConfig{
		AttractRadius: DefaultAttractRadius,
		PickupRadius:  DefaultPickupRadius,
		AttractSpeed:  DefaultAttractSpeed,
		FallStep:      DefaultFallStep,
		CollectRadius: DefaultCollectRadius,
	}
}

// DropRegistry хранит выпавшие предметы в порядке появления.
// Используется только из потока тика.
type DropRegistry struct {
	cfg      DropConfig
	tileSize float64
	drops    []*Drop
	index    map[DropHandle]*Drop
	expired  int
}

// NewDropRegistry создаёт реестр для мира с тайлом tileSize
func NewDropRegistry(cfg DropConfig, tileSize int) *DropRegistry {
	return &DropRegistry{
		cfg:      cfg,
		tileSize: float64(tileSize),
		index:    make(map[DropHandle]*Drop),
	}
}

// Spawn кладёт предмет в мир
func (r *DropRegistry) Spawn(pos vec.Vec2Float, it item.Item) DropHandle {
	d := &Drop{Handle: uuid.New(), Pos: pos, Item: it}
	r.drops = append(r.drops, d)
	r.index[d.Handle] = d
	return d.Handle
}

// Len возвращает количество предметов в мире
func (r *DropRegistry) Len() int {
	return len(r.drops)
}

// Expired возвращает количество исчезнувших по таймеру предметов
func (r *DropRegistry) Expired() int {
	return r.expired
}

// Get возвращает копию предмета по идентификатору
func (r *DropRegistry) Get(h DropHandle) (Drop, bool) {
	d, ok := r.index[h]
	if !ok {
		return Drop{}, false
	}
	return *d, true
}

// Remove убирает предмет из мира
func (r *DropRegistry) Remove(h DropHandle) bool {
	if _, ok := r.index[h]; !ok {
		return false
	}
	delete(r.index, h)
	r.drops = filterDrops(r.drops, func(d *Drop) bool { return d.Handle != h })
	return true
}

// Snapshot возвращает копии всех предметов в порядке появления
func (r *DropRegistry) Snapshot() []Drop {
	out := make([]Drop, len(r.drops))
	for i, d := range r.drops {
		out[i] = *d
	}
	return out
}

// centre возвращает центр квадрата предмета
func (r *DropRegistry) centre(d *Drop) vec.Vec2Float {
	half := r.tileSize / 2
	return vec.Vec2Float{X: d.Pos.X + half, Y: d.Pos.Y + half}
}

// Update выполняет один тик для всех предметов: падение, притяжение
// к игроку и подбор. Порядок обхода - порядок появления, инвентарь
// проверяется по живому состоянию.
func (r *DropRegistry) Update(grid TileGrid, p *entity.Player) []Pickup {
	var picked []Pickup
	kept := r.drops[:0]

	for _, d := range r.drops {
		d.Age++
		if r.cfg.DespawnTicks > 0 && d.Age >= r.cfg.DespawnTicks {
			delete(r.index, d.Handle)
			r.expired++
			logging.Trace("Предмет %s исчез по таймеру", d.Item.Name())
			continue
		}

		r.fall(grid, d)

		if p != nil && r.attractAndPick(d, p) {
			delete(r.index, d.Handle)
			picked = append(picked, Pickup{Handle: d.Handle, Item: d.Item})
			continue
		}
		kept = append(kept, d)
	}

	clearTail(r.drops, len(kept))
	r.drops = kept
	return picked
}

// fall роняет предмет на FallStep, привязываясь к верху тайла
func (r *DropRegistry) fall(grid TileGrid, d *Drop) {
	if grid.IsSolid(d.Pos.X, d.Pos.Y+r.tileSize) {
		return
	}
	newY := d.Pos.Y + r.cfg.FallStep
	bottom := newY + r.tileSize
	row := math.Floor(bottom / r.tileSize)
	if bottom > row*r.tileSize && grid.IsSolid(d.Pos.X, row*r.tileSize) {
		newY = row*r.tileSize - r.tileSize
	}
	d.Pos.Y = newY
}

// attractAndPick тянет предмет к игроку и пытается его подобрать
func (r *DropRegistry) attractAndPick(d *Drop, p *entity.Player) bool {
	target := p.Centre()
	c := r.centre(d)
	dist := c.DistanceTo(target)
	if dist >= r.cfg.AttractRadius {
		return false
	}

	step := math.Min(r.cfg.AttractSpeed, dist)
	d.Pos = d.Pos.Add(target.Sub(c).Normalized().Mul(step))

	// Подбор решает расстояние до сдвига
	if dist >= r.cfg.PickupRadius {
		return false
	}
	return p.Inventory.AddItem(d.Item)
}

// CollectNearby сразу подбирает всё, что лежит не дальше radius от центра
// игрока. Падение и притяжение не выполняются. radius <= 0 - радиус по умолчанию.
func (r *DropRegistry) CollectNearby(p *entity.Player, radius float64) []Pickup {
	if radius <= 0 {
		radius = r.cfg.CollectRadius
	}
	var picked []Pickup
	kept := r.drops[:0]
	target := p.Centre()

	for _, d := range r.drops {
		if r.centre(d).DistanceTo(target) <= radius && p.Inventory.AddItem(d.Item) {
			delete(r.index, d.Handle)
			picked = append(picked, Pickup{Handle: d.Handle, Item: d.Item})
			continue
		}
		kept = append(kept, d)
	}

	clearTail(r.drops, len(kept))
	r.drops = kept
	return picked
}

func filterDrops(drops []*Drop, keep func(*Drop) bool) []*Drop {
	out := drops[:0]
	for _, d := range drops {
		if keep(d) {
			out = append(out, d)
		}
	}
	clearTail(drops, len(out))
	return out
}

// clearTail обнуляет хвост слайса после фильтрации на месте
func clearTail(drops []*Drop, from int) {
	for i := from; i < len(drops); i++ {
		drops[i] = nil
	}
}
