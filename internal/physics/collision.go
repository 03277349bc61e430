package physics

import (
	"math"

	"github.com/annel0/tilecraft/internal/vec"
)

// Solidity отвечает на вопрос "можно ли пройти через эту точку".
// Мир передаётся в физику только через этот интерфейс.
type Solidity interface {
	IsSolid(px, py float64) bool
	TileSize() int
}

// AABB - прямоугольник, выровненный по осям; X,Y - левый верхний угол в пикселях
type AABB struct {
	X, Y float64
	W, H float64
}

// Left возвращает левую границу
func (b AABB) Left() float64 { return b.X }

// Right возвращает правую границу
func (b AABB) Right() float64 { return b.X + b.W }

// Top возвращает верхнюю границу
func (b AABB) Top() float64 { return b.Y }

// Bottom возвращает нижнюю границу
func (b AABB) Bottom() float64 { return b.Y + b.H }

// Centre возвращает центр прямоугольника
func (b AABB) Centre() vec.Vec2Float {
	return vec.Vec2Float{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Shrink уменьшает прямоугольник на inset с каждой стороны
func (b AABB) Shrink(inset float64) AABB {
	return AABB{X: b.X + inset, Y: b.Y + inset, W: b.W - 2*inset, H: b.H - 2*inset}
}

// Intersects проверяет строгое пересечение двух прямоугольников
func (b AABB) Intersects(o AABB) bool {
	return b.X < o.X+o.W && o.X < b.X+b.W &&
		b.Y < o.Y+o.H && o.Y < b.Y+b.H
}

// TileBox возвращает прямоугольник тайла (tx, ty)
func TileBox(tx, ty, tileSize int) AABB {
	ts := float64(tileSize)
	return AABB{X: float64(tx) * ts, Y: float64(ty) * ts, W: ts, H: ts}
}

// TileSpan возвращает диапазон тайлов, которые пересекает прямоугольник.
// Правая и нижняя границы не включаются.
func TileSpan(b AABB, tileSize int) (minTX, minTY, maxTX, maxTY int) {
	ts := float64(tileSize)
	minTX = int(math.Floor(b.Left() / ts))
	minTY = int(math.Floor(b.Top() / ts))
	maxTX = int(math.Ceil(b.Right()/ts)) - 1
	maxTY = int(math.Ceil(b.Bottom()/ts)) - 1
	return minTX, minTY, maxTX, maxTY
}

// OverlapsSolid проверяет, пересекает ли прямоугольник хотя бы один твёрдый тайл
func OverlapsSolid(b AABB, world Solidity) bool {
	ts := world.TileSize()
	minTX, minTY, maxTX, maxTY := TileSpan(b, ts)
	half := float64(ts) / 2
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			if world.IsSolid(float64(tx*ts)+half, float64(ty*ts)+half) {
				return true
			}
		}
	}
	return false
}

// EdgeSamples раскладывает точки по отрезку [from, to] включительно так,
// чтобы расстояние между соседними было меньше тайла. Тогда ни один тайл
// вдоль ребра не проскакивает между проверками.
func EdgeSamples(from, to float64, tileSize int) []float64 {
	if to <= from {
		return []float64{from}
	}
	step := float64(tileSize - 1)
	if step < 1 {
		step = 1
	}
	n := int(math.Ceil((to - from) / step))
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, from+(to-from)*float64(i)/float64(n))
	}
	return out
}

// anySolidColumn проверяет вертикальный ряд точек на столбце x
func anySolidColumn(world Solidity, x float64, ys []float64) bool {
	for _, y := range ys {
		if world.IsSolid(x, y) {
			return true
		}
	}
	return false
}

// anySolidRow проверяет горизонтальный ряд точек на строке y
func anySolidRow(world Solidity, y float64, xs []float64) bool {
	for _, x := range xs {
		if world.IsSolid(x, y) {
			return true
		}
	}
	return false
}
