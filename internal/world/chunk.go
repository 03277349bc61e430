package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/tilecraft/internal/vec"
)

// ErrCorruptChunk - чанк не соответствует ожидаемой геометрии или содержит
// недопустимые значения. Это фатальная ошибка генерации.
var ErrCorruptChunk = errors.New("повреждённый чанк")

// Chunk представляет участок мира размером ChunkSize x ChunkSize тайлов
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире

	// Tiles[y][x], строки сверху вниз
	Tiles [][]Tile

	Mu sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(coords vec.Vec2) *Chunk {
	rows := make([][]Tile, vec.ChunkSize)
	for y := range rows {
		rows[y] = make([]Tile, vec.ChunkSize)
	}
	return &Chunk{
		Coords: coords,
		Tiles:  rows,
	}
}

// GetTile возвращает тайл по локальным координатам
func (c *Chunk) GetTile(local vec.Vec2) Tile {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	return c.Tiles[local.Y][local.X]
}

// SetTile устанавливает тайл по локальным координатам
func (c *Chunk) SetTile(local vec.Vec2, t Tile) {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.Tiles[local.Y][local.X] = t
}

// Rows возвращает копию тайлов чанка
func (c *Chunk) Rows() [][]Tile {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	out := make([][]Tile, len(c.Tiles))
	for y, row := range c.Tiles {
		out[y] = append([]Tile(nil), row...)
	}
	return out
}

// validate проверяет геометрию и содержимое чанка
func (c *Chunk) validate() error {
	if len(c.Tiles) != vec.ChunkSize {
		return fmt.Errorf("%w %v: %d строк вместо %d", ErrCorruptChunk, c.Coords, len(c.Tiles), vec.ChunkSize)
	}
	for y, row := range c.Tiles {
		if len(row) != vec.ChunkSize {
			return fmt.Errorf("%w %v: строка %d длиной %d вместо %d", ErrCorruptChunk, c.Coords, y, len(row), vec.ChunkSize)
		}
		for x, t := range row {
			if !t.Valid() {
				return fmt.Errorf("%w %v: недопустимый тайл %d в (%d,%d)", ErrCorruptChunk, c.Coords, t, x, y)
			}
		}
	}
	return nil
}
