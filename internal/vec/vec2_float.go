package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой (пиксели мира)
type Vec2Float struct {
	X, Y float64
}

// ToTile переводит пиксельные координаты в тайловые с округлением вниз
func (v Vec2Float) ToTile(tileSize int) Vec2 {
	ts := float64(tileSize)
	return Vec2{X: int(math.Floor(v.X / ts)), Y: int(math.Floor(v.Y / ts))}
}

// FromTile возвращает пиксельную позицию левого верхнего угла тайла
func FromTile(v Vec2, tileSize int) Vec2Float {
	return Vec2Float{X: float64(v.X * tileSize), Y: float64(v.Y * tileSize)}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Normalized возвращает нормализованный вектор
func (v Vec2Float) Normalized() Vec2Float {
	length := v.Length()
	if length == 0 {
		return Vec2Float{X: 0, Y: 0}
	}
	return Vec2Float{X: v.X / length, Y: v.Y / length}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return math.Hypot(v.X-other.X, v.Y-other.Y)
}

// Lerp линейно интерполирует к цели на долю t
func (v Vec2Float) Lerp(target Vec2Float, t float64) Vec2Float {
	return Vec2Float{X: v.X + (target.X-v.X)*t, Y: v.Y + (target.Y-v.Y)*t}
}
