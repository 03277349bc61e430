package item

import (
	"fmt"
	"sort"
)

// Kind идентифицирует тип предмета. Закрытое перечисление: новые виды
// добавляются сюда и во все switch по Kind.
type Kind uint8

const (
	KindNone Kind = iota // Пустой слот / отсутствие предмета
	KindDirt
	KindGrass
	KindStone
	KindWater
	KindPickaxe
)

// String возвращает каноническое имя вида предмета
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindDirt:
		return "dirt"
	case KindGrass:
		return "grass"
	case KindStone:
		return "stone"
	case KindWater:
		return "water"
	case KindPickaxe:
		return "pickaxe"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind разбирает имя предмета
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "dirt":
		return KindDirt, true
	case "grass":
		return KindGrass, true
	case "stone":
		return KindStone, true
	case "water":
		return KindWater, true
	case "pickaxe":
		return KindPickaxe, true
	default:
		return KindNone, false
	}
}

// Type - класс предмета
type Type uint8

const (
	TypeBlock Type = iota
	TypeTool
	TypeConsumable
)

// String возвращает имя класса предмета
func (t Type) String() string {
	switch t {
	case TypeBlock:
		return "block"
	case TypeTool:
		return "tool"
	case TypeConsumable:
		return "consumable"
	default:
		return "unknown"
	}
}

// Категории ресурсов для внешнего резолвера текстур
const (
	CategoryTiles  = "tiles"
	CategoryPlayer = "player"
)

// Лимиты стаков по умолчанию
const (
	DefaultBlockStack = 64
	DefaultToolStack  = 1
)

// Item - неизменяемый дескриптор предмета. Нулевое значение означает пустоту.
type Item struct {
	Kind       Kind
	Category   string
	Type       Type
	StackLimit int
}

// IsEmpty возвращает true для пустого дескриптора
func (it Item) IsEmpty() bool {
	return it.Kind == KindNone
}

// IsBlock возвращает true, если предмет можно поставить в мир
func (it Item) IsBlock() bool {
	return !it.IsEmpty() && it.Type == TypeBlock
}

// IsTool возвращает true для инструментов
func (it Item) IsTool() bool {
	return !it.IsEmpty() && it.Type == TypeTool
}

// Name возвращает имя предмета
func (it Item) Name() string {
	return it.Kind.String()
}

// ResourceName возвращает ключ (категория, имя) для поиска текстуры.
// Своей текстуры у кирки нет, используется спрайт игрока.
func (it Item) ResourceName() (category, name string) {
	if it.Kind == KindPickaxe {
		return CategoryPlayer, "idle"
	}
	return it.Category, it.Name()
}

// Catalog - явно создаваемая база предметов. Заполняется при старте,
// дальше используется только на чтение.
type Catalog struct {
	items map[Kind]Item
}

// NewCatalog создаёт каталог со стандартными предметами
func NewCatalog() *Catalog {
	c := &Catalog{items: make(map[Kind]Item)}
	for _, k := range []Kind{KindDirt, KindGrass, KindStone, KindWater} {
		c.Register(Item{Kind: k, Category: CategoryTiles, Type: TypeBlock, StackLimit: DefaultBlockStack})
	}
	c.Register(Item{Kind: KindPickaxe, Category: CategoryPlayer, Type: TypeTool, StackLimit: DefaultToolStack})
	return c
}

// Register добавляет или заменяет описание предмета
func (c *Catalog) Register(it Item) {
	if it.StackLimit <= 0 {
		it.StackLimit = 1
	}
	c.items[it.Kind] = it
}

// Lookup возвращает описание предмета по виду
func (c *Catalog) Lookup(k Kind) (Item, bool) {
	it, ok := c.items[k]
	return it, ok
}

// MustLookup возвращает описание или паникует, если вид не зарегистрирован
func (c *Catalog) MustLookup(k Kind) Item {
	it, ok := c.items[k]
	if !ok {
		panic(fmt.Sprintf("item: вид %s не зарегистрирован в каталоге", k))
	}
	return it
}

// ByName ищет предмет по имени
func (c *Catalog) ByName(name string) (Item, bool) {
	k, ok := ParseKind(name)
	if !ok {
		return Item{}, false
	}
	return c.Lookup(k)
}

// All возвращает все предметы, отсортированные по виду
func (c *Catalog) All() []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
