package vec

import "math"

// ChunkShift задаёт размер чанка как степень двойки (16 = 1<<4)
const ChunkShift = 4

// ChunkSize - сторона чанка в тайлах
const ChunkSize = 1 << ChunkShift

// Vec2 представляет 2D координаты в тайлах
type Vec2 struct {
	X, Y int
}

// ToChunkCoords преобразует тайловые координаты в координаты чанка.
// Арифметический сдвиг округляет вниз и для отрицательных значений.
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> ChunkShift, Y: v.Y >> ChunkShift}
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & (ChunkSize - 1), Y: v.Y & (ChunkSize - 1)}
}

// ChunkOrigin возвращает тайловые координаты левого верхнего угла чанка
func (v Vec2) ChunkOrigin() Vec2 {
	return Vec2{X: v.X << ChunkShift, Y: v.Y << ChunkShift}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
