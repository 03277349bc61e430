package world

import (
	"errors"
	"testing"

	"github.com/annel0/tilecraft/internal/vec"
)

func TestChunkCreateAndGetTile(t *testing.T) {
	coords := vec.Vec2{X: 5, Y: -10}
	chunk := NewChunk(coords)

	if chunk.Coords != coords {
		t.Errorf("Ожидались координаты %v, получено %v", coords, chunk.Coords)
	}

	pos := vec.Vec2{X: 3, Y: 4}
	if tile := chunk.GetTile(pos); tile != TileEmpty {
		t.Errorf("Ожидался пустой тайл, получен %s", tile)
	}

	chunk.SetTile(pos, TileStone)
	if tile := chunk.GetTile(pos); tile != TileStone {
		t.Errorf("Ожидался камень, получен %s", tile)
	}

	rows := chunk.Rows()
	rows[4][3] = TileWater
	if chunk.GetTile(pos) != TileStone {
		t.Error("Rows должен возвращать копию")
	}
}

func TestChunkValidate(t *testing.T) {
	chunk := NewChunk(vec.Vec2{})
	if err := chunk.validate(); err != nil {
		t.Fatalf("Корректный чанк не прошёл проверку: %v", err)
	}

	short := NewChunk(vec.Vec2{})
	short.Tiles = short.Tiles[:vec.ChunkSize-1]
	if err := short.validate(); !errors.Is(err, ErrCorruptChunk) {
		t.Errorf("Ожидалась ErrCorruptChunk для неполного чанка, получено %v", err)
	}

	ragged := NewChunk(vec.Vec2{})
	ragged.Tiles[7] = ragged.Tiles[7][:3]
	if err := ragged.validate(); !errors.Is(err, ErrCorruptChunk) {
		t.Errorf("Ожидалась ErrCorruptChunk для рваной строки, получено %v", err)
	}

	bad := NewChunk(vec.Vec2{})
	bad.Tiles[0][0] = Tile(200)
	if err := bad.validate(); !errors.Is(err, ErrCorruptChunk) {
		t.Errorf("Ожидалась ErrCorruptChunk для неизвестного тайла, получено %v", err)
	}
}
