package world

import (
	"math"

	"github.com/annel0/tilecraft/internal/util"
	"github.com/annel0/tilecraft/internal/vec"
)

// Параметры рельефа по умолчанию (в тайлах)
const (
	DefaultSurfaceLevel = 10    // Средняя строка поверхности
	DefaultAmplitude    = 6     // Максимальное отклонение поверхности
	DefaultNoiseScale   = 0.025 // Сглаженность рельефа
	DefaultDirtDepth    = 4     // Слой земли под травой
	DefaultWaterLevel   = 13    // Низины ниже этой строки затапливаются

	// MaxColumnStep - максимальная разница высот соседних колонок
	// при параметрах по умолчанию
	MaxColumnStep = 2
)

// GeneratorConfig описывает параметры рельефа
type GeneratorConfig struct {
	Seed         int64
	SurfaceLevel int
	Amplitude    float64
	NoiseScale   float64
	DirtDepth    int
	WaterLevel   int
}

// DefaultGeneratorConfig возвращает параметры генерации по умолчанию
func DefaultGeneratorConfig(seed int64) GeneratorConfig {
	return GeneratorConfig{
		Seed:         seed,
		SurfaceLevel: DefaultSurfaceLevel,
		Amplitude:    DefaultAmplitude,
		NoiseScale:   DefaultNoiseScale,
		DirtDepth:    DefaultDirtDepth,
		WaterLevel:   DefaultWaterLevel,
	}
}

// TerrainGenerator генерирует ландшафт мира. Результат зависит только
// от сида и координат, но не от порядка обращений.
type TerrainGenerator struct {
	cfg   GeneratorConfig
	noise *util.Noise
}

// NewTerrainGenerator создаёт новый генератор мира
func NewTerrainGenerator(cfg GeneratorConfig) *TerrainGenerator {
	if cfg.NoiseScale <= 0 {
		cfg.NoiseScale = DefaultNoiseScale
	}
	if cfg.DirtDepth < 0 {
		cfg.DirtDepth = 0
	}
	return &TerrainGenerator{
		cfg:   cfg,
		noise: util.NewNoise(cfg.Seed),
	}
}

// Seed возвращает сид генератора
func (g *TerrainGenerator) Seed() int64 {
	return g.cfg.Seed
}

// SurfaceHeight возвращает строку поверхности для колонки x
func (g *TerrainGenerator) SurfaceHeight(x int) int {
	n := g.noise.Noise1D(float64(x) * g.cfg.NoiseScale)
	return g.cfg.SurfaceLevel + int(math.Round(n*g.cfg.Amplitude))
}

// TileAt вычисляет тайл по глобальным тайловым координатам
func (g *TerrainGenerator) TileAt(x, y int) Tile {
	return g.tileForColumn(y, g.SurfaceHeight(x))
}

// tileForColumn раскладывает слои по высоте поверхности колонки
func (g *TerrainGenerator) tileForColumn(y, surface int) Tile {
	submerged := surface > g.cfg.WaterLevel
	switch {
	case y < surface:
		if submerged && y >= g.cfg.WaterLevel {
			return TileWater
		}
		return TileEmpty
	case y == surface:
		if submerged {
			return TileDirt
		}
		return TileGrass
	case y <= surface+g.cfg.DirtDepth:
		return TileDirt
	default:
		return TileStone
	}
}

// GenerateChunk генерирует чанк по его координатам
func (g *TerrainGenerator) GenerateChunk(coords vec.Vec2) *Chunk {
	chunk := NewChunk(coords)
	origin := coords.ChunkOrigin()

	for x := 0; x < vec.ChunkSize; x++ {
		surface := g.SurfaceHeight(origin.X + x)
		for y := 0; y < vec.ChunkSize; y++ {
			chunk.Tiles[y][x] = g.tileForColumn(origin.Y+y, surface)
		}
	}

	return chunk
}
