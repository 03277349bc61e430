package entity

import (
	"github.com/annel0/tilecraft/internal/inventory"
	"github.com/annel0/tilecraft/internal/physics"
	"github.com/annel0/tilecraft/internal/vec"
)

// Player - управляемый персонаж. Ничего не знает о мире:
// мир передаётся ему только через контроллер.
type Player struct {
	ID        uint64
	Name      string
	Body      physics.Body
	Inventory *inventory.Inventory
}

// NewPlayer создаёт игрока в точке spawn со стандартным размером тела
func NewPlayer(id uint64, name string, spawn vec.Vec2Float, inventorySize int) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Body:      physics.NewBody(spawn, physics.DefaultPlayerWidth, physics.DefaultPlayerHeight),
		Inventory: inventory.New(inventorySize),
	}
}

// Bounds возвращает прямоугольник тела
func (p *Player) Bounds() physics.AABB {
	return p.Body.Box
}

// Centre возвращает центр тела
func (p *Player) Centre() vec.Vec2Float {
	return p.Body.Box.Centre()
}

// Position возвращает левый верхний угол тела
func (p *Player) Position() vec.Vec2Float {
	return p.Body.Position()
}

// Facing возвращает направление взгляда (-1 или +1)
func (p *Player) Facing() int {
	return p.Body.Facing
}

// Grounded сообщает, стоит ли игрок на земле после последнего шага
func (p *Player) Grounded() bool {
	return p.Body.Grounded
}

// Snapshot - копия состояния игрока для внешних наблюдателей
type Snapshot struct {
	ID       uint64           `json:"id"`
	Name     string           `json:"name"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	VX       float64          `json:"vx"`
	VY       float64          `json:"vy"`
	Grounded bool             `json:"grounded"`
	Jumping  bool             `json:"jumping"`
	Facing   int              `json:"facing"`
	Selected int              `json:"selected"`
	Slots    []inventory.Slot `json:"-"`
}

// Snapshot снимает копию состояния
func (p *Player) Snapshot() Snapshot {
	return Snapshot{
		ID:       p.ID,
		Name:     p.Name,
		X:        p.Body.Box.X,
		Y:        p.Body.Box.Y,
		VX:       p.Body.Velocity.X,
		VY:       p.Body.Velocity.Y,
		Grounded: p.Body.Grounded,
		Jumping:  p.Body.Jumping,
		Facing:   p.Body.Facing,
		Selected: p.Inventory.Selected(),
		Slots:    p.Inventory.Slots(),
	}
}
