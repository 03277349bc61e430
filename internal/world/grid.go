package world

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/vec"
)

// DefaultTileSize - сторона тайла в пикселях
const DefaultTileSize = 32

// TileGrid хранит рельеф и отвечает на запросы твёрдости.
// Все записи в мир идут только через SetTile.
type TileGrid interface {
	// GetTile возвращает тайл; за пределами мира - TileEmpty
	GetTile(tx, ty int) Tile
	// SetTile меняет тайл; за пределами мира - тихий no-op
	SetTile(tx, ty int, t Tile)
	// IsSolid переводит пиксели в тайлы и проверяет твёрдость
	IsSolid(px, py float64) bool
	// TileSize возвращает сторону тайла в пикселях
	TileSize() int
	// Contains сообщает, лежит ли тайл внутри мира
	Contains(tx, ty int) bool
}

// GridConfig описывает хранилище тайлов
type GridConfig struct {
	TileSize  int
	Width     int // > 0 вместе с Height - плоский массив, иначе бесконечные чанки
	Height    int
	Generator GeneratorConfig
}

// NewGrid выбирает реализацию хранилища по конфигурации
func NewGrid(cfg GridConfig) TileGrid {
	if cfg.TileSize <= 0 {
		cfg.TileSize = DefaultTileSize
	}
	gen := NewTerrainGenerator(cfg.Generator)
	if cfg.Width > 0 && cfg.Height > 0 {
		return NewFlatGrid(cfg.Width, cfg.Height, cfg.TileSize, gen)
	}
	return NewChunkedGrid(cfg.TileSize, gen)
}

// PixelToTile переводит пиксельную координату в тайловую (деление с округлением вниз)
func PixelToTile(p float64, tileSize int) int {
	return int(math.Floor(p / float64(tileSize)))
}

// ChunkedGrid - разреженное хранилище чанков с ленивой генерацией.
// Сгенерированный чанк публикуется в кэш под блокировкой записи
// и живёт до конца жизни мира.
type ChunkedGrid struct {
	tileSize  int
	generator *TerrainGenerator

	mu     sync.RWMutex
	chunks map[vec.Vec2]*Chunk
}

// NewChunkedGrid создаёт бесконечный мир из чанков
func NewChunkedGrid(tileSize int, gen *TerrainGenerator) *ChunkedGrid {
	return &ChunkedGrid{
		tileSize:  tileSize,
		generator: gen,
		chunks:    make(map[vec.Vec2]*Chunk, 256),
	}
}

// TileSize возвращает сторону тайла в пикселях
func (g *ChunkedGrid) TileSize() int {
	return g.tileSize
}

// Contains всегда true: мир из чанков не ограничен
func (g *ChunkedGrid) Contains(tx, ty int) bool {
	return true
}

// Chunk возвращает чанк, генерируя его при первом обращении
func (g *ChunkedGrid) Chunk(coords vec.Vec2) *Chunk {
	g.mu.RLock()
	chunk, ok := g.chunks[coords]
	g.mu.RUnlock()
	if ok {
		return chunk
	}

	// Генерируем вне блокировки: результат детерминирован, так что
	// проигравший гонку просто выбросит свою копию.
	generated := g.generator.GenerateChunk(coords)
	if err := generated.validate(); err != nil {
		panic(fmt.Sprintf("world: генерация чанка %v: %v", coords, err))
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.chunks[coords]; ok {
		return existing
	}
	g.chunks[coords] = generated
	logging.Trace("Чанк %v сгенерирован (seed=%d)", coords, g.generator.Seed())
	return generated
}

// GetTile возвращает тайл по глобальным координатам
func (g *ChunkedGrid) GetTile(tx, ty int) Tile {
	pos := vec.Vec2{X: tx, Y: ty}
	return g.Chunk(pos.ToChunkCoords()).GetTile(pos.LocalInChunk())
}

// SetTile устанавливает тайл по глобальным координатам
func (g *ChunkedGrid) SetTile(tx, ty int, t Tile) {
	if !t.Valid() {
		return
	}
	pos := vec.Vec2{X: tx, Y: ty}
	g.Chunk(pos.ToChunkCoords()).SetTile(pos.LocalInChunk(), t)
}

// IsSolid проверяет твёрдость тайла под пиксельной точкой
func (g *ChunkedGrid) IsSolid(px, py float64) bool {
	return g.GetTile(PixelToTile(px, g.tileSize), PixelToTile(py, g.tileSize)).Solid()
}

// cached возвращает чанк, только если он уже сгенерирован
func (g *ChunkedGrid) cached(coords vec.Vec2) (*Chunk, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	chunk, ok := g.chunks[coords]
	return chunk, ok
}

// HasChunk сообщает, сгенерирован ли чанк
func (g *ChunkedGrid) HasChunk(coords vec.Vec2) bool {
	_, ok := g.cached(coords)
	return ok
}

// PeekTile возвращает тайл; для несгенерированного чанка отвечает
// генератор, и кэш не растёт
func (g *ChunkedGrid) PeekTile(tx, ty int) Tile {
	pos := vec.Vec2{X: tx, Y: ty}
	if chunk, ok := g.cached(pos.ToChunkCoords()); ok {
		return chunk.GetTile(pos.LocalInChunk())
	}
	return g.generator.TileAt(tx, ty)
}

// ChunkSnapshot возвращает копию чанка; несгенерированный чанк строится
// заново и в кэш не попадает
func (g *ChunkedGrid) ChunkSnapshot(coords vec.Vec2) *Chunk {
	if chunk, ok := g.cached(coords); ok {
		snap := NewChunk(coords)
		snap.Tiles = chunk.Rows()
		return snap
	}
	return g.generator.GenerateChunk(coords)
}

// ChunkCount возвращает количество сгенерированных чанков
func (g *ChunkedGrid) ChunkCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.chunks)
}

// Pregenerate заранее генерирует прямоугольник чанков [from, to].
// Безопасен для вызова из фоновой горутины.
func (g *ChunkedGrid) Pregenerate(ctx context.Context, from, to vec.Vec2) error {
	for cy := from.Y; cy <= to.Y; cy++ {
		for cx := from.X; cx <= to.X; cx++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			g.Chunk(vec.Vec2{X: cx, Y: cy})
		}
	}
	return nil
}
