package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilecraft/internal/crafting"
	"github.com/annel0/tilecraft/internal/input"
	"github.com/annel0/tilecraft/internal/item"
	"github.com/annel0/tilecraft/internal/physics"
	"github.com/annel0/tilecraft/internal/world/entity"
)

type recordingSink struct {
	events []Event
}

func (s *recordingSink) OnWorldEvent(ev Event) {
	s.events = append(s.events, ev)
}

func (s *recordingSink) types() []EventType {
	out := make([]EventType, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingStats struct {
	destroyed []string
	crafted   []string
}

func (s *recordingStats) ItemDestroyed(name string) { s.destroyed = append(s.destroyed, name) }
func (s *recordingStats) ItemCrafted(name string)   { s.crafted = append(s.crafted, name) }

type controllerFixture struct {
	grid    *FlatGrid
	ctrl    *Controller
	player  *entity.Player
	sink    *recordingSink
	stats   *recordingStats
	catalog *item.Catalog
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		grid:    newTestWorld(t),
		player:  newTestPlayer(100),
		sink:    &recordingSink{},
		stats:   &recordingStats{},
		catalog: item.NewCatalog(),
	}
	f.ctrl = NewController(
		f.grid,
		NewDropRegistry(DefaultDropConfig(), DefaultTileSize),
		f.catalog,
		physics.NewKinematics(physics.DefaultConfig()),
		crafting.NewBook(f.catalog),
		WithEventSink(f.sink),
		WithStatsHook(f.stats),
	)
	return f
}

// tileCentre возвращает пиксельный центр тайла
func tileCentre(tx, ty int) (float64, float64) {
	return float64(tx*DefaultTileSize + DefaultTileSize/2), float64(ty*DefaultTileSize + DefaultTileSize/2)
}

func (f *controllerFixture) give(t *testing.T, kind item.Kind, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.True(t, f.player.Inventory.AddItem(f.catalog.MustLookup(kind)))
	}
}

func requireReason(t *testing.T, err error, reason Reason) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInteractionRejected))
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, reason, rejected.Reason)
}

func TestController_BreakSpawnsDrop(t *testing.T) {
	f := newControllerFixture(t)
	x, y := tileCentre(8, floorRow)

	require.NoError(t, f.ctrl.Interact(x, y, ModeBreak, f.player))

	assert.Equal(t, TileEmpty, f.grid.GetTile(8, floorRow))
	drops := f.ctrl.Drops().Snapshot()
	require.Len(t, drops, 1)
	assert.Equal(t, item.KindGrass, drops[0].Item.Kind)
	assert.Equal(t, float64(8*DefaultTileSize), drops[0].Pos.X, "предмет появляется в левом верхнем углу тайла")
	assert.Equal(t, float64(floorRow*DefaultTileSize), drops[0].Pos.Y)
	assert.Equal(t, []string{"grass"}, f.stats.destroyed)
	assert.Equal(t, []EventType{EventTileBroken}, f.sink.types())
}

func TestController_BreakRejections(t *testing.T) {
	f := newControllerFixture(t)

	x, y := tileCentre(8, 3)
	requireReason(t, f.ctrl.Interact(x, y, ModeBreak, f.player), ReasonNothingToBreak)

	x, y = tileCentre(8, floorRow+2)
	requireReason(t, f.ctrl.Interact(x, y, ModeBreak, f.player), ReasonToolRequired)
	assert.Equal(t, TileStone, f.grid.GetTile(8, floorRow+2), "отказ ничего не меняет")
	assert.Zero(t, f.ctrl.Drops().Len())
	assert.Empty(t, f.stats.destroyed)

	// С киркой в выбранном слоте камень ломается
	f.give(t, item.KindPickaxe, 1)
	require.NoError(t, f.player.Inventory.Select(0))
	require.NoError(t, f.ctrl.Interact(x, y, ModeBreak, f.player))
	assert.Equal(t, TileEmpty, f.grid.GetTile(8, floorRow+2))

	assert.False(t, f.ctrl.HandleInteraction(x, y, ModeBreak, f.player))
	requireReason(t, f.ctrl.Interact(x, y, Mode(9), f.player), ReasonUnknownMode)
}

func TestController_Place(t *testing.T) {
	f := newControllerFixture(t)
	x, y := tileCentre(8, 5)

	requireReason(t, f.ctrl.Interact(x, y, ModePlace, f.player), ReasonNoBlock)

	f.give(t, item.KindPickaxe, 1)
	requireReason(t, f.ctrl.Interact(x, y, ModePlace, f.player), ReasonNoBlock)

	_, err := f.player.Inventory.SwapItem(0, f.catalog.MustLookup(item.KindDirt))
	require.NoError(t, err)
	f.give(t, item.KindDirt, 1)

	require.NoError(t, f.ctrl.Interact(x, y, ModePlace, f.player))
	assert.Equal(t, TileDirt, f.grid.GetTile(8, 5))
	slot := f.player.Inventory.SelectedSlot()
	assert.Equal(t, 1, slot.Quantity)

	requireReason(t, f.ctrl.Interact(x, y, ModePlace, f.player), ReasonTileOccupied)

	// Тайл внутри тела игрока занимать нельзя
	px, py := tileCentre(3, floorRow-1)
	requireReason(t, f.ctrl.Interact(px, py, ModePlace, f.player), ReasonOccupied)
	assert.Equal(t, TileEmpty, f.grid.GetTile(3, floorRow-1))

	require.True(t, f.ctrl.HandleInteraction(x+DefaultTileSize, y, ModePlace, f.player))
	assert.True(t, f.player.Inventory.SelectedSlot().IsEmpty(), "последний блок освобождает слот")
}

func TestController_PlaceOutsideBoundedWorld(t *testing.T) {
	f := newControllerFixture(t)
	f.give(t, item.KindDirt, 3)

	x, y := tileCentre(5, -1)
	requireReason(t, f.ctrl.Interact(x, y, ModePlace, f.player), ReasonOutOfBounds)

	assert.Equal(t, TileEmpty, f.grid.GetTile(5, -1))
	assert.Equal(t, 3, f.player.Inventory.CountItem(item.KindDirt), "блок не списан")
	assert.Equal(t, []EventType{EventInteractionRejected}, f.sink.types())
	assert.Equal(t, ReasonOutOfBounds, f.sink.events[0].Reason)
}

func TestChunkedGrid_ContainsEverything(t *testing.T) {
	g := NewChunkedGrid(DefaultTileSize, NewTerrainGenerator(DefaultGeneratorConfig(1)))
	assert.True(t, g.Contains(-1000, -1000))
	assert.True(t, g.Contains(1<<20, 5))
	assert.Zero(t, g.ChunkCount(), "проверка границ не генерирует чанки")
}

func TestController_BreakPlaceSymmetry(t *testing.T) {
	f := newControllerFixture(t)
	tx, ty := 8, floorRow
	before := f.grid.GetTile(tx, ty)
	x, y := tileCentre(tx, ty)

	require.NoError(t, f.ctrl.Interact(x, y, ModeBreak, f.player))
	picked := f.ctrl.Drops().CollectNearby(f.player, 1000)
	require.Len(t, picked, 1)

	require.NoError(t, f.player.Inventory.Select(0))
	require.NoError(t, f.ctrl.Interact(x, y, ModePlace, f.player))
	assert.Equal(t, before, f.grid.GetTile(tx, ty))
	assert.Zero(t, f.player.Inventory.CountItem(item.KindGrass))
}

func TestController_UpdateOrder(t *testing.T) {
	f := newControllerFixture(t)
	f.player.Body.Box.X = 240
	x, y := tileCentre(8, floorRow)

	report := f.ctrl.Update(f.player, input.Frame{
		Clicks:     []input.PointerEvent{{X: x, Y: y, Button: input.ButtonLeft}},
		Pickup:     true,
		SelectSlot: -1,
	}, 1.0/60)

	assert.Equal(t, uint64(1), report.Tick)
	require.Len(t, report.Interactions, 1)
	assert.NoError(t, report.Interactions[0].Err)
	assert.Equal(t, ModeBreak, report.Interactions[0].Mode)

	// Клик обработан после движения, а подбор по клавише - после клика
	require.Len(t, report.Pickups, 1)
	assert.Equal(t, 1, f.player.Inventory.CountItem(item.KindGrass))
	assert.Equal(t, []EventType{EventTileBroken, EventItemPickedUp}, eventTypes(report.Events))
	for _, ev := range report.Events {
		assert.Equal(t, uint64(1), ev.Tick)
		assert.Equal(t, f.player.ID, ev.PlayerID)
	}
	assert.True(t, f.player.Grounded(), "игрок стоит на соседнем тайле")
}

func TestController_CraftKeyAndSlotSelection(t *testing.T) {
	f := newControllerFixture(t)
	f.give(t, item.KindDirt, 3)
	f.give(t, item.KindGrass, 2)

	report := f.ctrl.Update(f.player, input.Frame{Craft: true, SelectSlot: 4}, 1.0/60)

	require.NoError(t, report.CraftErr)
	assert.Equal(t, 1, f.player.Inventory.CountItem(item.KindPickaxe))
	assert.Equal(t, 4, f.player.Inventory.Selected())
	assert.Equal(t, []string{"pickaxe"}, f.stats.crafted)
	assert.Contains(t, eventTypes(report.Events), EventItemCrafted)

	report = f.ctrl.Update(f.player, input.Frame{Craft: true, SelectSlot: -1}, 1.0/60)
	assert.True(t, errors.Is(report.CraftErr, crafting.ErrMissingInputs))
	assert.Equal(t, []string{"pickaxe"}, f.stats.crafted, "неудачный крафт не попадает в статистику")

	// Трава ушла на кирку
	assert.ErrorIs(t, f.ctrl.Craft(f.player, crafting.RecipeDirt), crafting.ErrMissingInputs)
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}
