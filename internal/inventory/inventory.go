package inventory

import (
	"errors"
	"fmt"

	"github.com/annel0/tilecraft/internal/item"
)

// DefaultSize - количество слотов по умолчанию
const DefaultSize = 10

var (
	// ErrInvalidSlot - индекс слота вне диапазона
	ErrInvalidSlot = errors.New("недопустимый слот")
	// ErrInsufficientQuantity - предметов меньше, чем требуется
	ErrInsufficientQuantity = errors.New("недостаточно предметов")
	// ErrInvalidQuantity - отрицательное количество
	ErrInvalidQuantity = errors.New("недопустимое количество")
)

// Slot - одна стопка в инвентаре
type Slot struct {
	Item     item.Item
	Quantity int
}

// IsEmpty возвращает true для пустого слота
func (s Slot) IsEmpty() bool {
	return s.Item.IsEmpty()
}

// Inventory - упорядоченный набор слотов фиксированной длины.
// Инвариант: Quantity == 0 тогда и только тогда, когда слот пуст,
// и Quantity не превышает StackLimit предмета.
type Inventory struct {
	slots    []Slot
	selected int
}

// New создаёт инвентарь на size слотов
func New(size int) *Inventory {
	if size <= 0 {
		size = DefaultSize
	}
	return &Inventory{slots: make([]Slot, size)}
}

// Len возвращает количество слотов
func (inv *Inventory) Len() int {
	return len(inv.slots)
}

// AddItem добавляет один предмет: сначала в неполную стопку того же вида,
// затем в первый пустой слот. При неудаче предмет остаётся у вызывающего.
func (inv *Inventory) AddItem(it item.Item) bool {
	idx := inv.findTarget(it)
	if idx < 0 {
		return false
	}
	slot := &inv.slots[idx]
	if slot.IsEmpty() {
		slot.Item = it
	}
	slot.Quantity++
	return true
}

// CanAdd проверяет, поместится ли ещё один предмет
func (inv *Inventory) CanAdd(it item.Item) bool {
	return inv.findTarget(it) >= 0
}

func (inv *Inventory) findTarget(it item.Item) int {
	if it.IsEmpty() {
		return -1
	}
	for i, s := range inv.slots {
		if s.Item.Kind == it.Kind && s.Quantity > 0 && s.Quantity < stackLimit(s.Item) {
			return i
		}
	}
	for i, s := range inv.slots {
		if s.IsEmpty() {
			return i
		}
	}
	return -1
}

// CountItem возвращает суммарное количество предметов вида kind
func (inv *Inventory) CountItem(kind item.Kind) int {
	total := 0
	for _, s := range inv.slots {
		if !s.IsEmpty() && s.Item.Kind == kind {
			total += s.Quantity
		}
	}
	return total
}

// RemoveItems атомарно убирает amount предметов вида kind. Если предметов
// не хватает, инвентарь не меняется.
func (inv *Inventory) RemoveItems(kind item.Kind, amount int) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, amount)
	}
	if amount == 0 {
		return nil
	}
	if have := inv.CountItem(kind); have < amount {
		return fmt.Errorf("%w: %s %d из %d", ErrInsufficientQuantity, kind, have, amount)
	}

	remaining := amount
	for i := range inv.slots {
		if remaining == 0 {
			break
		}
		slot := &inv.slots[i]
		if slot.IsEmpty() || slot.Item.Kind != kind {
			continue
		}
		take := min(slot.Quantity, remaining)
		slot.Quantity -= take
		remaining -= take
		if slot.Quantity == 0 {
			*slot = Slot{}
		}
	}
	return nil
}

// SwapItem целиком заменяет содержимое слота и возвращает вытесненное.
// Пустой дескриптор очищает слот.
func (inv *Inventory) SwapItem(index int, it item.Item) (Slot, error) {
	if err := inv.checkIndex(index); err != nil {
		return Slot{}, err
	}
	prev := inv.slots[index]
	if it.IsEmpty() {
		inv.slots[index] = Slot{}
	} else {
		inv.slots[index] = Slot{Item: it, Quantity: 1}
	}
	return prev, nil
}

// Restore целиком заменяет содержимое слотов сохранённой копией
func (inv *Inventory) Restore(slots []Slot) error {
	if len(slots) != len(inv.slots) {
		return fmt.Errorf("%w: копия на %d слотов вместо %d", ErrInvalidSlot, len(slots), len(inv.slots))
	}
	copy(inv.slots, slots)
	return nil
}

// Slot возвращает копию слота
func (inv *Inventory) Slot(index int) (Slot, error) {
	if err := inv.checkIndex(index); err != nil {
		return Slot{}, err
	}
	return inv.slots[index], nil
}

// Slots возвращает копию всех слотов
func (inv *Inventory) Slots() []Slot {
	return append([]Slot(nil), inv.slots...)
}

// FreeSlots возвращает количество пустых слотов
func (inv *Inventory) FreeSlots() int {
	free := 0
	for _, s := range inv.slots {
		if s.IsEmpty() {
			free++
		}
	}
	return free
}

// Select делает слот активным
func (inv *Inventory) Select(index int) error {
	if err := inv.checkIndex(index); err != nil {
		return err
	}
	inv.selected = index
	return nil
}

// Selected возвращает индекс активного слота
func (inv *Inventory) Selected() int {
	return inv.selected
}

// SelectedSlot возвращает копию активного слота
func (inv *Inventory) SelectedSlot() Slot {
	return inv.slots[inv.selected]
}

// DecrementSelected убирает один предмет из активного слота
func (inv *Inventory) DecrementSelected() (Slot, error) {
	slot := &inv.slots[inv.selected]
	if slot.IsEmpty() {
		return Slot{}, fmt.Errorf("%w: слот %d пуст", ErrInsufficientQuantity, inv.selected)
	}
	slot.Quantity--
	if slot.Quantity == 0 {
		*slot = Slot{}
	}
	return *slot, nil
}

func (inv *Inventory) checkIndex(index int) error {
	if index < 0 || index >= len(inv.slots) {
		return fmt.Errorf("%w: %d (слотов %d)", ErrInvalidSlot, index, len(inv.slots))
	}
	return nil
}

func stackLimit(it item.Item) int {
	if it.StackLimit <= 0 {
		return 1
	}
	return it.StackLimit
}
