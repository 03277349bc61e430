package input

import (
	"fmt"
	"strings"

	"github.com/annel0/tilecraft/internal/physics"
)

// Key - логическая клавиша. Привязка к физическим клавишам делается
// во внешнем слое (терминал, REST).
type Key uint8

const (
	KeyNone Key = iota
	KeyLeft
	KeyRight
	KeyJump
	KeyPickup
	KeyCraft
	KeySlot1
	KeySlot2
	KeySlot3
	KeySlot4
	KeySlot5
	KeySlot6
	KeySlot7
	KeySlot8
	KeySlot9
	KeySlot10

	keyCount
)

// SlotKeys - количество клавиш выбора слота
const SlotKeys = int(KeySlot10-KeySlot1) + 1

// String возвращает имя клавиши
func (k Key) String() string {
	switch {
	case k == KeyNone:
		return "none"
	case k == KeyLeft:
		return "left"
	case k == KeyRight:
		return "right"
	case k == KeyJump:
		return "jump"
	case k == KeyPickup:
		return "pickup"
	case k == KeyCraft:
		return "craft"
	case k >= KeySlot1 && k <= KeySlot10:
		return fmt.Sprintf("slot%d", int(k-KeySlot1)+1)
	default:
		return fmt.Sprintf("key(%d)", uint8(k))
	}
}

// ParseKey разбирает имя клавиши
func ParseKey(name string) (Key, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k := KeyLeft; k < keyCount; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return KeyNone, false
}

// Slot возвращает индекс слота для клавиш выбора слота
func (k Key) Slot() (int, bool) {
	if k >= KeySlot1 && k <= KeySlot10 {
		return int(k - KeySlot1), true
	}
	return 0, false
}

// Button - кнопка указателя
type Button uint8

const (
	ButtonLeft  Button = iota // Сломать
	ButtonRight               // Поставить
)

// String возвращает имя кнопки
func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	default:
		return fmt.Sprintf("button(%d)", uint8(b))
	}
}

// Event - любое событие ввода
type Event interface {
	isInputEvent()
}

// KeyEvent - нажатие или отпускание клавиши
type KeyEvent struct {
	Key  Key
	Down bool
}

// PointerEvent - клик в мировых пиксельных координатах
type PointerEvent struct {
	X, Y   float64
	Button Button
}

func (KeyEvent) isInputEvent()     {}
func (PointerEvent) isInputEvent() {}

// Frame - ввод, снятый ровно один раз за тик
type Frame struct {
	Left, Right bool // Удерживаемые клавиши
	Jump        bool

	Clicks     []PointerEvent // Клики в порядке поступления
	Pickup     bool           // Фронт нажатия клавиши подбора
	Craft      bool           // Фронт нажатия клавиши крафта
	SelectSlot int            // -1 - выбор слота не менялся
}

// Intent переводит удерживаемые клавиши в намерение движения
func (f Frame) Intent() physics.Intent {
	move := 0
	if f.Left {
		move--
	}
	if f.Right {
		move++
	}
	return physics.Intent{Move: move, Jump: f.Jump}
}

// State копит события между тиками. Принадлежит потоку тика.
type State struct {
	held       [keyCount]bool
	clicks     []PointerEvent
	pickup     bool
	craft      bool
	selectSlot int
}

// NewState создаёт пустое состояние ввода
func NewState() *State {
	return &State{selectSlot: -1}
}

// Apply учитывает событие ввода
func (s *State) Apply(ev Event) {
	switch e := ev.(type) {
	case KeyEvent:
		s.applyKey(e)
	case PointerEvent:
		s.clicks = append(s.clicks, e)
	}
}

func (s *State) applyKey(e KeyEvent) {
	if e.Key == KeyNone || e.Key >= keyCount {
		return
	}
	pressed := e.Down && !s.held[e.Key]
	s.held[e.Key] = e.Down
	if !pressed {
		return
	}
	switch e.Key {
	case KeyPickup:
		s.pickup = true
	case KeyCraft:
		s.craft = true
	default:
		if slot, ok := e.Key.Slot(); ok {
			s.selectSlot = slot
		}
	}
}

// Held сообщает, удерживается ли клавиша
func (s *State) Held(k Key) bool {
	return k < keyCount && s.held[k]
}

// Sample возвращает кадр ввода и сбрасывает однократные действия
func (s *State) Sample() Frame {
	f := Frame{
		Left:       s.held[KeyLeft],
		Right:      s.held[KeyRight],
		Jump:       s.held[KeyJump],
		Clicks:     s.clicks,
		Pickup:     s.pickup,
		Craft:      s.craft,
		SelectSlot: s.selectSlot,
	}
	s.clicks = nil
	s.pickup = false
	s.craft = false
	s.selectSlot = -1
	return f
}

// Release отпускает все клавиши (потеря фокуса терминала)
func (s *State) Release() {
	s.held = [keyCount]bool{}
}
