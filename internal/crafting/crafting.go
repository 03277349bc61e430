package crafting

import (
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/tilecraft/internal/inventory"
	"github.com/annel0/tilecraft/internal/item"
)

var (
	// ErrUnknownRecipe - рецепт не найден в книге
	ErrUnknownRecipe = errors.New("неизвестный рецепт")
	// ErrMissingInputs - не хватает ингредиентов
	ErrMissingInputs = errors.New("не хватает ингредиентов")
	// ErrNoSpace - результат не помещается в инвентарь
	ErrNoSpace = errors.New("нет места в инвентаре")
)

// Идентификаторы стандартных рецептов
const (
	RecipeDirt    = "dirt"
	RecipePickaxe = "pickaxe"
)

// Ingredient - вид и количество расходуемого предмета
type Ingredient struct {
	Kind  item.Kind
	Count int
}

// Recipe превращает набор ингредиентов в Count предметов Output
type Recipe struct {
	ID     string
	Inputs []Ingredient
	Output item.Kind
	Count  int
}

// Book - набор рецептов поверх каталога предметов
type Book struct {
	catalog *item.Catalog
	recipes map[string]Recipe
}

// NewBook создаёт книгу со стандартными рецептами
func NewBook(catalog *item.Catalog) *Book {
	b := &Book{catalog: catalog, recipes: make(map[string]Recipe)}
	b.Register(Recipe{
		ID:     RecipeDirt,
		Inputs: []Ingredient{{Kind: item.KindGrass, Count: 4}},
		Output: item.KindDirt,
		Count:  1,
	})
	b.Register(Recipe{
		ID: RecipePickaxe,
		Inputs: []Ingredient{
			{Kind: item.KindDirt, Count: 3},
			{Kind: item.KindGrass, Count: 2},
		},
		Output: item.KindPickaxe,
		Count:  1,
	})
	return b
}

// Register добавляет или заменяет рецепт
func (b *Book) Register(r Recipe) {
	if r.Count <= 0 {
		r.Count = 1
	}
	b.recipes[r.ID] = r
}

// Recipe возвращает рецепт по идентификатору
func (b *Book) Recipe(id string) (Recipe, bool) {
	r, ok := b.recipes[id]
	return r, ok
}

// Recipes возвращает все рецепты, отсортированные по ID
func (b *Book) Recipes() []Recipe {
	out := make([]Recipe, 0, len(b.recipes))
	for _, r := range b.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CanCraft проверяет наличие всех ингредиентов
func (b *Book) CanCraft(inv *inventory.Inventory, id string) bool {
	r, ok := b.recipes[id]
	if !ok {
		return false
	}
	return missing(inv, r) == nil
}

// Craft атомарно расходует ингредиенты и кладёт результат. Если результат
// не помещается, ингредиенты возвращаются и инвентарь остаётся прежним.
func (b *Book) Craft(inv *inventory.Inventory, id string) error {
	r, ok := b.recipes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRecipe, id)
	}
	out, ok := b.catalog.Lookup(r.Output)
	if !ok {
		return fmt.Errorf("%w: результат %s отсутствует в каталоге", ErrUnknownRecipe, r.Output)
	}
	if m := missing(inv, r); m != nil {
		return fmt.Errorf("%w: %s нужно %d, есть %d", ErrMissingInputs, m.Kind, m.Count, inv.CountItem(m.Kind))
	}

	before := inv.Slots()
	for _, in := range r.Inputs {
		if err := inv.RemoveItems(in.Kind, in.Count); err != nil {
			_ = inv.Restore(before)
			return fmt.Errorf("%w: %v", ErrMissingInputs, err)
		}
	}
	for i := 0; i < r.Count; i++ {
		if !inv.AddItem(out) {
			_ = inv.Restore(before)
			return fmt.Errorf("%w: %s", ErrNoSpace, out.Name())
		}
	}
	return nil
}

// missing возвращает первый недостающий ингредиент
func missing(inv *inventory.Inventory, r Recipe) *Ingredient {
	for i := range r.Inputs {
		if inv.CountItem(r.Inputs[i].Kind) < r.Inputs[i].Count {
			return &r.Inputs[i]
		}
	}
	return nil
}
