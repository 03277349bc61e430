package world

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilecraft/internal/vec"
)

const testSeed = 12345

func newTestChunkedGrid() *ChunkedGrid {
	return NewChunkedGrid(DefaultTileSize, NewTerrainGenerator(DefaultGeneratorConfig(testSeed)))
}

func TestPixelToTile_Floor(t *testing.T) {
	assert.Equal(t, 0, PixelToTile(0, 32))
	assert.Equal(t, 0, PixelToTile(31.9, 32))
	assert.Equal(t, 1, PixelToTile(32, 32))
	assert.Equal(t, -1, PixelToTile(-0.5, 32), "отрицательные координаты округляются вниз")
	assert.Equal(t, -2, PixelToTile(-33, 32))
}

func TestChunkedGrid_DeterministicUnderShuffledAccess(t *testing.T) {
	type cell struct{ x, y int }
	cells := make([]cell, 0, 64*40)
	for x := -32; x < 32; x++ {
		for y := -4; y < 36; y++ {
			cells = append(cells, cell{x, y})
		}
	}

	first := newTestChunkedGrid()
	want := make(map[cell]Tile, len(cells))
	for _, c := range cells {
		want[c] = first.GetTile(c.x, c.y)
	}

	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })

	second := newTestChunkedGrid()
	for _, c := range cells {
		require.Equal(t, want[c], second.GetTile(c.x, c.y), "тайл (%d,%d) зависит от порядка обращений", c.x, c.y)
	}
}

func TestTerrainGenerator_Strata(t *testing.T) {
	gen := NewTerrainGenerator(DefaultGeneratorConfig(testSeed))

	for x := -200; x < 200; x++ {
		h := gen.SurfaceHeight(x)
		require.GreaterOrEqual(t, h, DefaultSurfaceLevel-DefaultAmplitude)
		require.LessOrEqual(t, h, DefaultSurfaceLevel+DefaultAmplitude)

		submerged := h > DefaultWaterLevel
		if submerged {
			assert.Equal(t, TileDirt, gen.TileAt(x, h), "затопленная поверхность - земля")
			assert.Equal(t, TileWater, gen.TileAt(x, DefaultWaterLevel))
		} else {
			assert.Equal(t, TileGrass, gen.TileAt(x, h))
			assert.Equal(t, TileEmpty, gen.TileAt(x, h-1))
		}
		for d := 1; d <= DefaultDirtDepth; d++ {
			assert.Equal(t, TileDirt, gen.TileAt(x, h+d))
		}
		assert.Equal(t, TileStone, gen.TileAt(x, h+DefaultDirtDepth+1))
		assert.Equal(t, TileEmpty, gen.TileAt(x, -5), "небо всегда пустое")
	}
}

func TestTerrainGenerator_Continuity(t *testing.T) {
	gen := NewTerrainGenerator(DefaultGeneratorConfig(testSeed))
	prev := gen.SurfaceHeight(-1000)
	for x := -999; x < 1000; x++ {
		h := gen.SurfaceHeight(x)
		diff := h - prev
		if diff < 0 {
			diff = -diff
		}
		require.LessOrEqual(t, diff, MaxColumnStep, "обрыв между колонками %d и %d", x-1, x)
		prev = h
	}
}

func TestTerrainGenerator_ChunkMatchesTileAt(t *testing.T) {
	gen := NewTerrainGenerator(DefaultGeneratorConfig(testSeed))
	coords := vec.Vec2{X: -3, Y: 0}
	chunk := gen.GenerateChunk(coords)
	require.NoError(t, chunk.validate())

	origin := coords.ChunkOrigin()
	for y := 0; y < vec.ChunkSize; y++ {
		for x := 0; x < vec.ChunkSize; x++ {
			assert.Equal(t, gen.TileAt(origin.X+x, origin.Y+y), chunk.Tiles[y][x])
		}
	}
}

func TestChunkedGrid_SetTileAndNegativeCoords(t *testing.T) {
	g := newTestChunkedGrid()

	g.SetTile(-1, -1, TileStone)
	assert.Equal(t, TileStone, g.GetTile(-1, -1))
	assert.True(t, g.IsSolid(-0.5, -0.5))
	assert.True(t, g.IsSolid(-32, -32))
	assert.False(t, g.IsSolid(-33, -0.5), "соседний тайл остаётся пустым небом")

	// Чанк (-1,-1) хранит тайл в локальных (15,15)
	chunk := g.Chunk(vec.Vec2{X: -1, Y: -1})
	assert.Equal(t, TileStone, chunk.GetTile(vec.Vec2{X: 15, Y: 15}))

	g.SetTile(0, 0, Tile(99))
	assert.Equal(t, TileEmpty, g.GetTile(0, 0), "недопустимый тайл не записывается")
}

func TestChunkedGrid_ConcurrentPregenerate(t *testing.T) {
	g := newTestChunkedGrid()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.Pregenerate(ctx, vec.Vec2{X: -2, Y: 0}, vec.Vec2{X: 2, Y: 1}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, g.ChunkCount())
	ref := NewTerrainGenerator(DefaultGeneratorConfig(testSeed))
	assert.Equal(t, ref.TileAt(-20, 12), g.GetTile(-20, 12))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, g.Pregenerate(cancelled, vec.Vec2{X: 10}, vec.Vec2{X: 12}), context.Canceled)
}

func TestFlatGrid_Bounds(t *testing.T) {
	gen := NewTerrainGenerator(DefaultGeneratorConfig(testSeed))
	g := NewFlatGrid(40, 30, DefaultTileSize, gen)

	w, h := g.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)

	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			require.Equal(t, gen.TileAt(x, y), g.GetTile(x, y))
		}
	}

	assert.Equal(t, TileEmpty, g.GetTile(-1, 20))
	assert.Equal(t, TileEmpty, g.GetTile(40, 20))
	assert.Equal(t, TileEmpty, g.GetTile(5, 30))
	assert.False(t, g.IsSolid(-1, 25*32))

	g.SetTile(-1, 5, TileStone)
	g.SetTile(100, 100, TileStone)
	assert.Equal(t, TileEmpty, g.GetTile(-1, 5), "запись за границей - no-op")

	g.SetTile(3, 0, TileDirt)
	assert.Equal(t, TileDirt, g.GetTile(3, 0))
	assert.True(t, g.IsSolid(3*32+1, 1))

	chunk := g.ChunkSnapshot(vec.Vec2{X: 0, Y: 0})
	assert.Equal(t, TileDirt, chunk.GetTile(vec.Vec2{X: 3, Y: 0}))
	assert.Equal(t, TileDirt, g.PeekTile(3, 0))
}

func TestChunkedGrid_ReadsDoNotGrowCache(t *testing.T) {
	g := newTestChunkedGrid()
	ref := NewTerrainGenerator(DefaultGeneratorConfig(testSeed))

	assert.Equal(t, ref.TileAt(1000, 12), g.PeekTile(1000, 12))
	far := g.ChunkSnapshot(vec.Vec2{X: 5000, Y: -3})
	assert.Equal(t, ref.TileAt(5000*vec.ChunkSize+2, -3*vec.ChunkSize+7), far.GetTile(vec.Vec2{X: 2, Y: 7}))
	assert.Zero(t, g.ChunkCount(), "чтение не генерирует чанки в кэш")
	assert.False(t, g.HasChunk(vec.Vec2{X: 5000, Y: -3}))

	// Сгенерированный чанк отдаётся с правками игрока, копией
	g.SetTile(3, 4, TileWater)
	require.Equal(t, 1, g.ChunkCount())
	assert.Equal(t, TileWater, g.PeekTile(3, 4))
	snap := g.ChunkSnapshot(vec.Vec2{})
	assert.Equal(t, TileWater, snap.GetTile(vec.Vec2{X: 3, Y: 4}))
	snap.SetTile(vec.Vec2{X: 3, Y: 4}, TileStone)
	assert.Equal(t, TileWater, g.GetTile(3, 4))
}

func TestNewGrid_PicksBackend(t *testing.T) {
	flat := NewGrid(GridConfig{Width: 10, Height: 10, Generator: DefaultGeneratorConfig(1)})
	_, ok := flat.(*FlatGrid)
	assert.True(t, ok)
	assert.Equal(t, DefaultTileSize, flat.TileSize())

	chunked := NewGrid(GridConfig{TileSize: 16, Generator: DefaultGeneratorConfig(1)})
	_, ok = chunked.(*ChunkedGrid)
	assert.True(t, ok)
	assert.Equal(t, 16, chunked.TileSize())
}

func TestTile_Properties(t *testing.T) {
	for tile := TileEmpty; tile < tileCount; tile++ {
		parsed, ok := ParseTile(tile.String())
		require.True(t, ok)
		assert.Equal(t, tile, parsed)
		assert.Equal(t, tile != TileEmpty, tile.Solid())

		if kind, ok := tile.ItemKind(); ok {
			back, ok := TileForItem(kind)
			require.True(t, ok)
			assert.Equal(t, tile, back, "блок %s должен ставить тот же тайл", kind)
		}
	}
	assert.False(t, Tile(42).Valid())
	_, needed := TileDirt.RequiredTool()
	assert.False(t, needed)
	_, needed = TileStone.RequiredTool()
	assert.True(t, needed)
}
