package world

import (
	"errors"
	"fmt"

	"github.com/annel0/tilecraft/internal/crafting"
	"github.com/annel0/tilecraft/internal/input"
	"github.com/annel0/tilecraft/internal/item"
	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/physics"
	"github.com/annel0/tilecraft/internal/vec"
	"github.com/annel0/tilecraft/internal/world/entity"
)

// ErrInteractionRejected - взаимодействие с тайлом не выполнено
var ErrInteractionRejected = errors.New("взаимодействие отклонено")

// Mode - режим взаимодействия с тайлом
type Mode uint8

const (
	ModeBreak Mode = iota
	ModePlace
)

// String возвращает имя режима
func (m Mode) String() string {
	switch m {
	case ModeBreak:
		return "break"
	case ModePlace:
		return "place"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode разбирает имя режима
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "break":
		return ModeBreak, true
	case "place":
		return ModePlace, true
	default:
		return ModeBreak, false
	}
}

// ModeForButton сопоставляет кнопку указателя режиму
func ModeForButton(b input.Button) Mode {
	if b == input.ButtonRight {
		return ModePlace
	}
	return ModeBreak
}

// Reason - причина отказа во взаимодействии
type Reason uint8

const (
	ReasonNone         Reason = iota
	ReasonTileOccupied        // Ставить можно только в пустой тайл
	ReasonNothingToBreak      // Ломать нечего
	ReasonNoBlock             // В выбранном слоте нет блока
	ReasonToolRequired        // Нужен инструмент
	ReasonOccupied            // Тайл пересекается с игроком
	ReasonUnknownItem         // Предмета нет в каталоге
	ReasonUnknownMode
	ReasonOutOfBounds // Тайл за границами мира
)

// String возвращает имя причины
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTileOccupied:
		return "tile_occupied"
	case ReasonNothingToBreak:
		return "nothing_to_break"
	case ReasonNoBlock:
		return "no_block_selected"
	case ReasonToolRequired:
		return "tool_required"
	case ReasonOccupied:
		return "player_overlap"
	case ReasonUnknownItem:
		return "unknown_item"
	case ReasonUnknownMode:
		return "unknown_mode"
	case ReasonOutOfBounds:
		return "out_of_bounds"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// RejectedError описывает отказ во взаимодействии
type RejectedError struct {
	Mode   Mode
	TX, TY int
	Reason Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s (%d,%d): %s", e.Mode, e.TX, e.TY, e.Reason)
}

// Unwrap позволяет проверять отказ через errors.Is(err, ErrInteractionRejected)
func (e *RejectedError) Unwrap() error {
	return ErrInteractionRejected
}

// InteractionResult - итог одного клика за тик
type InteractionResult struct {
	Click input.PointerEvent
	Mode  Mode
	Err   error
}

// TickReport - итог одного тика
type TickReport struct {
	Tick         uint64
	DT           float64 // шаг времени до ограничения физикой
	Step         physics.StepResult
	Pickups      []Pickup
	Interactions []InteractionResult
	CraftErr     error
	Events       []Event
}

// Controller - единственная точка изменения мира: рельеф, выпавшие
// предметы, движение игрока. Все методы вызываются из потока тика.
type Controller struct {
	grid     TileGrid
	drops    *DropRegistry
	catalog  *item.Catalog
	kin      *physics.Kinematics
	book     *crafting.Book
	stats    StatsHook
	sinks    []EventSink
	logger   *logging.Logger
	tick     uint64
	craftKey string

	pending []Event
}

// Option настраивает контроллер
type Option func(*Controller)

// WithStatsHook подключает статистику разрушений и крафта
func WithStatsHook(h StatsHook) Option {
	return func(c *Controller) { c.stats = h }
}

// WithEventSink подписывает получателя событий мира
func WithEventSink(s EventSink) Option {
	return func(c *Controller) { c.sinks = append(c.sinks, s) }
}

// WithLogger задаёт логгер контроллера
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithCraftKeyRecipe задаёт рецепт для клавиши крафта
func WithCraftKeyRecipe(id string) Option {
	return func(c *Controller) { c.craftKey = id }
}

// NewController создаёт контроллер мира
func NewController(grid TileGrid, drops *DropRegistry, catalog *item.Catalog, kin *physics.Kinematics, book *crafting.Book, opts ...Option) *Controller {
	c := &Controller{
		grid:     grid,
		drops:    drops,
		catalog:  catalog,
		kin:      kin,
		book:     book,
		craftKey: crafting.RecipePickaxe,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.GetWorldLogger()
	}
	return c
}

// Grid возвращает хранилище тайлов
func (c *Controller) Grid() TileGrid { return c.grid }

// Drops возвращает реестр выпавших предметов
func (c *Controller) Drops() *DropRegistry { return c.drops }

// Catalog возвращает каталог предметов
func (c *Controller) Catalog() *item.Catalog { return c.catalog }

// Book возвращает книгу рецептов
func (c *Controller) Book() *crafting.Book { return c.book }

// Tick возвращает номер последнего тика
func (c *Controller) Tick() uint64 { return c.tick }

// Update выполняет один тик: выпавшие предметы, движение игрока,
// затем накопленные действия из кадра ввода.
func (c *Controller) Update(p *entity.Player, in input.Frame, dt float64) TickReport {
	c.tick++
	report := TickReport{Tick: c.tick, DT: dt}

	report.Pickups = c.recordPickups(p, c.drops.Update(c.grid, p))

	report.Step = c.kin.Step(&p.Body, in.Intent(), c.grid, dt)
	if report.Step.Respawned {
		c.logger.Debug("Игрок %d вернулся в точку появления", p.ID)
		c.emit(Event{Type: EventPlayerRespawned, PlayerID: p.ID})
	}

	if in.SelectSlot >= 0 {
		if err := p.Inventory.Select(in.SelectSlot); err != nil {
			c.logger.Warn("Выбор слота %d: %v", in.SelectSlot, err)
		}
	}

	for _, click := range in.Clicks {
		mode := ModeForButton(click.Button)
		err := c.Interact(click.X, click.Y, mode, p)
		report.Interactions = append(report.Interactions, InteractionResult{Click: click, Mode: mode, Err: err})
	}

	if in.Pickup {
		collected := c.drops.CollectNearby(p, 0)
		report.Pickups = append(report.Pickups, c.recordPickups(p, collected)...)
	}

	if in.Craft {
		report.CraftErr = c.Craft(p, c.craftKey)
	}

	report.Events = c.flush()
	return report
}

// HandleInteraction - упрощённая форма Interact
func (c *Controller) HandleInteraction(worldX, worldY float64, mode Mode, p *entity.Player) bool {
	return c.Interact(worldX, worldY, mode, p) == nil
}

// Interact ставит или ломает тайл под пиксельной точкой. Все проверки
// выполняются до изменения состояния.
func (c *Controller) Interact(worldX, worldY float64, mode Mode, p *entity.Player) error {
	ts := c.grid.TileSize()
	tx, ty := PixelToTile(worldX, ts), PixelToTile(worldY, ts)

	var err *RejectedError
	switch mode {
	case ModePlace:
		err = c.place(tx, ty, p)
	case ModeBreak:
		err = c.breakTile(tx, ty, p)
	default:
		err = &RejectedError{Mode: mode, TX: tx, TY: ty, Reason: ReasonUnknownMode}
	}
	if err != nil {
		c.emit(Event{Type: EventInteractionRejected, PlayerID: p.ID, TX: tx, TY: ty, Reason: err.Reason})
		return err
	}
	return nil
}

func (c *Controller) place(tx, ty int, p *entity.Player) *RejectedError {
	reject := func(r Reason) *RejectedError {
		return &RejectedError{Mode: ModePlace, TX: tx, TY: ty, Reason: r}
	}

	if !c.grid.Contains(tx, ty) {
		return reject(ReasonOutOfBounds)
	}
	if c.grid.GetTile(tx, ty) != TileEmpty {
		return reject(ReasonTileOccupied)
	}
	slot := p.Inventory.SelectedSlot()
	if !slot.Item.IsBlock() {
		return reject(ReasonNoBlock)
	}
	tile, ok := TileForItem(slot.Item.Kind)
	if !ok {
		return reject(ReasonNoBlock)
	}
	if physics.TileBox(tx, ty, c.grid.TileSize()).Intersects(p.Bounds()) {
		return reject(ReasonOccupied)
	}

	c.grid.SetTile(tx, ty, tile)
	if _, err := p.Inventory.DecrementSelected(); err != nil {
		// Слот проверен выше, сюда попасть нельзя
		c.logger.Error("Списание блока после установки: %v", err)
	}
	c.emit(Event{Type: EventTilePlaced, PlayerID: p.ID, TX: tx, TY: ty, Tile: tile, Item: slot.Item.Kind})
	return nil
}

func (c *Controller) breakTile(tx, ty int, p *entity.Player) *RejectedError {
	reject := func(r Reason) *RejectedError {
		return &RejectedError{Mode: ModeBreak, TX: tx, TY: ty, Reason: r}
	}

	tile := c.grid.GetTile(tx, ty)
	if tile == TileEmpty {
		return reject(ReasonNothingToBreak)
	}
	if tool, needed := tile.RequiredTool(); needed && p.Inventory.SelectedSlot().Item.Kind != tool {
		return reject(ReasonToolRequired)
	}
	kind, ok := tile.ItemKind()
	if !ok {
		return reject(ReasonUnknownItem)
	}
	dropped, ok := c.catalog.Lookup(kind)
	if !ok {
		return reject(ReasonUnknownItem)
	}

	c.grid.SetTile(tx, ty, TileEmpty)
	c.drops.Spawn(vec.FromTile(vec.Vec2{X: tx, Y: ty}, c.grid.TileSize()), dropped)
	if c.stats != nil {
		c.stats.ItemDestroyed(tile.String())
	}
	c.emit(Event{Type: EventTileBroken, PlayerID: p.ID, TX: tx, TY: ty, Tile: tile, Item: kind})
	return nil
}

// Craft выполняет рецепт над инвентарём игрока
func (c *Controller) Craft(p *entity.Player, recipeID string) error {
	if err := c.book.Craft(p.Inventory, recipeID); err != nil {
		c.logger.Debug("Крафт %s отклонён: %v", recipeID, err)
		return err
	}
	r, _ := c.book.Recipe(recipeID)
	if c.stats != nil {
		c.stats.ItemCrafted(r.Output.String())
	}
	c.emit(Event{Type: EventItemCrafted, PlayerID: p.ID, Item: r.Output, Recipe: recipeID})
	return nil
}

func (c *Controller) recordPickups(p *entity.Player, picked []Pickup) []Pickup {
	for _, pk := range picked {
		c.emit(Event{Type: EventItemPickedUp, PlayerID: p.ID, Item: pk.Item.Kind})
	}
	return picked
}

// emit копит событие до конца тика и сразу отдаёт его получателям
func (c *Controller) emit(ev Event) {
	ev.Tick = c.tick
	c.pending = append(c.pending, ev)
	for _, s := range c.sinks {
		s.OnWorldEvent(ev)
	}
}

func (c *Controller) flush() []Event {
	out := c.pending
	c.pending = nil
	return out
}
