// Package render рисует видимую часть мира через абстрактный Renderer.
package render

import (
	"math"

	"github.com/annel0/tilecraft/internal/item"
	"github.com/annel0/tilecraft/internal/physics"
	"github.com/annel0/tilecraft/internal/vec"
	"github.com/annel0/tilecraft/internal/world"
	"github.com/annel0/tilecraft/internal/world/entity"
)

// DefaultSmoothing - доля пути до цели, проходимая камерой за кадр
const DefaultSmoothing = 0.1

// PlayerSprite - ресурс спрайта игрока
var PlayerSprite = [2]string{item.CategoryPlayer, "idle"}

// Renderer - примитивы рисования в экранных пикселях
type Renderer interface {
	DrawTile(t world.Tile, px, py, size float64)
	DrawSprite(h Handle, px, py, w, hgt float64, flipX bool)
}

// Camera следует за целью с линейной интерполяцией.
// Pos - левый верхний угол видимой области в мировых пикселях.
type Camera struct {
	Pos       vec.Vec2Float
	Width     float64
	Height    float64
	Smoothing float64
}

// NewCamera создаёт камеру с областью width x height пикселей
func NewCamera(width, height float64) *Camera {
	return &Camera{Width: width, Height: height, Smoothing: DefaultSmoothing}
}

// SetViewport меняет размер видимой области
func (c *Camera) SetViewport(width, height float64) {
	c.Width = width
	c.Height = height
}

func (c *Camera) desired(target vec.Vec2Float) vec.Vec2Float {
	return vec.Vec2Float{X: target.X - c.Width/2, Y: target.Y - c.Height/2}
}

// Follow сдвигает камеру к цели на долю Smoothing
func (c *Camera) Follow(target vec.Vec2Float) {
	t := c.Smoothing
	if t <= 0 || t > 1 {
		t = 1
	}
	c.Pos = c.Pos.Lerp(c.desired(target), t)
}

// Snap мгновенно центрирует камеру на цели
func (c *Camera) Snap(target vec.Vec2Float) {
	c.Pos = c.desired(target)
}

// ToScreen переводит мировые координаты в экранные
func (c *Camera) ToScreen(p vec.Vec2Float) vec.Vec2Float {
	return p.Sub(c.Pos)
}

// ToWorld переводит экранные координаты в мировые
func (c *Camera) ToWorld(p vec.Vec2Float) vec.Vec2Float {
	return p.Add(c.Pos)
}

// Visible возвращает диапазон видимых тайлов включительно
func (c *Camera) Visible(tileSize int) (minTX, minTY, maxTX, maxTY int) {
	ts := float64(tileSize)
	minTX = int(math.Floor(c.Pos.X / ts))
	minTY = int(math.Floor(c.Pos.Y / ts))
	maxTX = int(math.Floor((c.Pos.X + c.Width) / ts))
	maxTY = int(math.Floor((c.Pos.Y + c.Height) / ts))
	return
}

// FrameStats - что было нарисовано за кадр
type FrameStats struct {
	Tiles   int
	Drops   int
	Missing int // ресурсы, не найденные в Resolver
}

// Frame рисует видимые тайлы, выпавшие предметы и игрока
func Frame(r Renderer, res Resolver, cam *Camera, grid world.TileGrid, drops []world.Drop, p *entity.Player) FrameStats {
	var stats FrameStats
	ts := grid.TileSize()
	size := float64(ts)

	minTX, minTY, maxTX, maxTY := cam.Visible(ts)
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			t := grid.GetTile(tx, ty)
			if t == world.TileEmpty {
				continue
			}
			s := cam.ToScreen(vec.Vec2Float{X: float64(tx * ts), Y: float64(ty * ts)})
			r.DrawTile(t, s.X, s.Y, size)
			stats.Tiles++
		}
	}

	for _, d := range drops {
		category, name := d.Item.ResourceName()
		h, ok := res.Resolve(category, name)
		if !ok {
			stats.Missing++
			continue
		}
		s := cam.ToScreen(d.Pos)
		r.DrawSprite(h, s.X, s.Y, size, size, false)
		stats.Drops++
	}

	if p != nil {
		h, ok := res.Resolve(PlayerSprite[0], PlayerSprite[1])
		if !ok {
			stats.Missing++
			return stats
		}
		box := p.Bounds()
		s := cam.ToScreen(vec.Vec2Float{X: box.X, Y: box.Y})
		r.DrawSprite(h, s.X, s.Y, box.W, box.H, p.Facing() == physics.FacingLeft)
	}
	return stats
}
