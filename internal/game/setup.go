package game

import (
	"context"
	"fmt"

	"github.com/annel0/tilecraft/internal/config"
	"github.com/annel0/tilecraft/internal/crafting"
	"github.com/annel0/tilecraft/internal/item"
	"github.com/annel0/tilecraft/internal/physics"
	"github.com/annel0/tilecraft/internal/vec"
	"github.com/annel0/tilecraft/internal/world"
	"github.com/annel0/tilecraft/internal/world/entity"
)

// PlayerID - идентификатор единственного локального игрока
const PlayerID uint64 = 1

// GridConfig переводит секцию world в параметры хранилища тайлов
func GridConfig(cfg config.WorldConfig) world.GridConfig {
	gen := world.DefaultGeneratorConfig(cfg.Seed)
	if cfg.SurfaceLevel != 0 {
		gen.SurfaceLevel = cfg.SurfaceLevel
	}
	if cfg.Amplitude > 0 {
		gen.Amplitude = float64(cfg.Amplitude)
	}
	if cfg.Frequency > 0 {
		gen.NoiseScale = cfg.Frequency
	}
	if cfg.DirtDepth > 0 {
		gen.DirtDepth = cfg.DirtDepth
	}
	if cfg.WaterLevel != 0 {
		gen.WaterLevel = cfg.WaterLevel
	}
	return world.GridConfig{
		TileSize:  cfg.TileSize,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Generator: gen,
	}
}

// PhysicsConfig переводит секцию player в параметры движения
func PhysicsConfig(cfg config.PlayerConfig) physics.Config {
	pc := physics.DefaultConfig()
	setPositive(&pc.MoveSpeed, cfg.MoveSpeed)
	setPositive(&pc.JumpSpeed, cfg.JumpSpeed)
	setPositive(&pc.Gravity, cfg.Gravity)
	setPositive(&pc.MaxFallSpeed, cfg.MaxFallSpeed)
	setPositive(&pc.MaxFrameDelta, cfg.MaxFrameDelta)
	setPositive(&pc.CollisionInset, cfg.Inset)
	setPositive(&pc.FallLimitY, cfg.FallLimitY)
	pc.Spawn = vec.Vec2Float{X: cfg.SpawnX, Y: cfg.SpawnY}
	return pc
}

// DropConfig переводит секцию drops в параметры выпавших предметов
func DropConfig(cfg config.DropsConfig) world.DropConfig {
	dc := world.DefaultDropConfig()
	setPositive(&dc.FallStep, cfg.FallSpeed)
	setPositive(&dc.AttractRadius, cfg.AttractRadius)
	setPositive(&dc.AttractSpeed, cfg.AttractSpeed)
	setPositive(&dc.PickupRadius, cfg.PickupRadius)
	setPositive(&dc.CollectRadius, cfg.CollectRadius)
	if cfg.DespawnTicks > 0 {
		dc.DespawnTicks = cfg.DespawnTicks
	}
	return dc
}

func setPositive(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

// NewSession собирает контроллер мира и игрока по конфигурации
func NewSession(cfg *config.Config, opts ...world.Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	grid := world.NewGrid(GridConfig(cfg.World))
	catalog := item.NewCatalog()
	book := crafting.NewBook(catalog)
	kin := physics.NewKinematics(PhysicsConfig(cfg.Player))
	drops := world.NewDropRegistry(DropConfig(cfg.Drops), grid.TileSize())

	if cfg.Drops.CraftKeyRecipe != "" {
		if _, ok := book.Recipe(cfg.Drops.CraftKeyRecipe); !ok {
			return nil, fmt.Errorf("%w: craft_key_recipe %q", crafting.ErrUnknownRecipe, cfg.Drops.CraftKeyRecipe)
		}
		opts = append(opts, world.WithCraftKeyRecipe(cfg.Drops.CraftKeyRecipe))
	}
	ctrl := world.NewController(grid, drops, catalog, kin, book, opts...)

	player := entity.NewPlayer(PlayerID, cfg.Player.Name, kin.Config().Spawn, cfg.Inventory.Size)
	player.Body.Box.W = cfg.Player.Width
	player.Body.Box.H = cfg.Player.Height

	return &Session{Controller: ctrl, Player: player}, nil
}

// Pregenerate заранее генерирует чанки вокруг точки появления
func Pregenerate(ctx context.Context, s *Session, radius int) error {
	chunked, ok := s.Controller.Grid().(*world.ChunkedGrid)
	if !ok || radius <= 0 {
		return nil
	}
	ts := chunked.TileSize()
	spawn := s.Player.Position()
	centre := vec.Vec2{
		X: world.PixelToTile(spawn.X, ts),
		Y: world.PixelToTile(spawn.Y, ts),
	}.ToChunkCoords()

	from := vec.Vec2{X: centre.X - radius, Y: 0}
	to := vec.Vec2{X: centre.X + radius, Y: 2}
	return chunked.Pregenerate(ctx, from, to)
}
