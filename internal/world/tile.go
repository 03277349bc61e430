package world

import (
	"fmt"

	"github.com/annel0/tilecraft/internal/item"
)

// Tile представляет тип тайла. Тайлы - значения, а не объекты:
// мир хранит их по координатам.
type Tile uint8

// Константы тайлов
const (
	TileEmpty Tile = iota // 0 - воздух
	TileGrass             // 1
	TileDirt              // 2
	TileStone             // 3
	TileWater             // 4

	tileCount // граница перечисления для валидации чанков
)

// String возвращает каноническое имя тайла
func (t Tile) String() string {
	switch t {
	case TileEmpty:
		return "empty"
	case TileGrass:
		return "grass"
	case TileDirt:
		return "dirt"
	case TileStone:
		return "stone"
	case TileWater:
		return "water"
	default:
		return fmt.Sprintf("tile(%d)", uint8(t))
	}
}

// ParseTile разбирает имя тайла
func ParseTile(name string) (Tile, bool) {
	switch name {
	case "empty":
		return TileEmpty, true
	case "grass":
		return TileGrass, true
	case "dirt":
		return TileDirt, true
	case "stone":
		return TileStone, true
	case "water":
		return TileWater, true
	default:
		return TileEmpty, false
	}
}

// Valid проверяет, что значение принадлежит перечислению
func (t Tile) Valid() bool {
	return t < tileCount
}

// Solid возвращает true для всех тайлов, кроме пустого
func (t Tile) Solid() bool {
	switch t {
	case TileEmpty:
		return false
	case TileGrass, TileDirt, TileStone, TileWater:
		return true
	default:
		return false
	}
}

// RequiredTool возвращает инструмент, без которого тайл нельзя сломать
func (t Tile) RequiredTool() (item.Kind, bool) {
	switch t {
	case TileStone:
		return item.KindPickaxe, true
	case TileEmpty, TileGrass, TileDirt, TileWater:
		return item.KindNone, false
	default:
		return item.KindNone, false
	}
}

// ItemKind возвращает вид предмета, который выпадает при разрушении тайла
func (t Tile) ItemKind() (item.Kind, bool) {
	switch t {
	case TileGrass:
		return item.KindGrass, true
	case TileDirt:
		return item.KindDirt, true
	case TileStone:
		return item.KindStone, true
	case TileWater:
		return item.KindWater, true
	case TileEmpty:
		return item.KindNone, false
	default:
		return item.KindNone, false
	}
}

// TileForItem возвращает тайл, который ставит блок-предмет
func TileForItem(k item.Kind) (Tile, bool) {
	switch k {
	case item.KindGrass:
		return TileGrass, true
	case item.KindDirt:
		return TileDirt, true
	case item.KindStone:
		return TileStone, true
	case item.KindWater:
		return TileWater, true
	case item.KindNone, item.KindPickaxe:
		return TileEmpty, false
	default:
		return TileEmpty, false
	}
}
