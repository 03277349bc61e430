package world

import (
	"fmt"

	"github.com/annel0/tilecraft/internal/vec"
)

// FlatGrid - ограниченный мир в виде плотного массива, сгенерированного
// целиком при создании. Всё за границами считается пустым.
type FlatGrid struct {
	width, height int
	tileSize      int
	tiles         []Tile // строками: tiles[y*width+x]
}

// NewFlatGrid создаёт и заполняет плоский мир
func NewFlatGrid(width, height, tileSize int, gen *TerrainGenerator) *FlatGrid {
	g := &FlatGrid{
		width:    width,
		height:   height,
		tileSize: tileSize,
		tiles:    make([]Tile, width*height),
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			g.tiles[y*width+x] = gen.TileAt(x, y)
		}
	}
	if err := g.validate(); err != nil {
		panic(fmt.Sprintf("world: генерация плоского мира: %v", err))
	}
	return g
}

// Size возвращает размеры мира в тайлах
func (g *FlatGrid) Size() (width, height int) {
	return g.width, g.height
}

// TileSize возвращает сторону тайла в пикселях
func (g *FlatGrid) TileSize() int {
	return g.tileSize
}

// Contains проверяет, лежит ли тайл внутри мира
func (g *FlatGrid) Contains(tx, ty int) bool {
	return tx >= 0 && ty >= 0 && tx < g.width && ty < g.height
}

// GetTile возвращает тайл или TileEmpty за пределами мира
func (g *FlatGrid) GetTile(tx, ty int) Tile {
	if !g.Contains(tx, ty) {
		return TileEmpty
	}
	return g.tiles[ty*g.width+tx]
}

// SetTile меняет тайл; за пределами мира ничего не делает
func (g *FlatGrid) SetTile(tx, ty int, t Tile) {
	if !g.Contains(tx, ty) || !t.Valid() {
		return
	}
	g.tiles[ty*g.width+tx] = t
}

// IsSolid проверяет твёрдость тайла под пиксельной точкой
func (g *FlatGrid) IsSolid(px, py float64) bool {
	return g.GetTile(PixelToTile(px, g.tileSize), PixelToTile(py, g.tileSize)).Solid()
}

// PeekTile совпадает с GetTile: плоский мир сгенерирован целиком
func (g *FlatGrid) PeekTile(tx, ty int) Tile {
	return g.GetTile(tx, ty)
}

// ChunkSnapshot возвращает копию участка мира в виде чанка
func (g *FlatGrid) ChunkSnapshot(coords vec.Vec2) *Chunk {
	chunk := NewChunk(coords)
	origin := coords.ChunkOrigin()
	for y := 0; y < vec.ChunkSize; y++ {
		for x := 0; x < vec.ChunkSize; x++ {
			chunk.Tiles[y][x] = g.GetTile(origin.X+x, origin.Y+y)
		}
	}
	return chunk
}

func (g *FlatGrid) validate() error {
	if len(g.tiles) != g.width*g.height {
		return fmt.Errorf("%w: %d тайлов вместо %d", ErrCorruptChunk, len(g.tiles), g.width*g.height)
	}
	for i, t := range g.tiles {
		if !t.Valid() {
			return fmt.Errorf("%w: недопустимый тайл %d в (%d,%d)", ErrCorruptChunk, t, i%g.width, i/g.width)
		}
	}
	return nil
}

// ChunkSource - хранилище, отвечающее на запросы чтения без генерации
// и кэширования новых чанков
type ChunkSource interface {
	// PeekTile возвращает тайл, не сохраняя несгенерированный чанк
	PeekTile(tx, ty int) Tile
	// ChunkSnapshot возвращает независимую копию чанка
	ChunkSnapshot(coords vec.Vec2) *Chunk
}

var (
	_ ChunkSource = (*ChunkedGrid)(nil)
	_ ChunkSource = (*FlatGrid)(nil)
)
