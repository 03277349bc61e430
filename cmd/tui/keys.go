package main

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/annel0/tilecraft/internal/input"
)

// Терминал не сообщает об отпускании клавиш: удержание
// эмулируется по автоповтору, клавиша отпускается после паузы holdTimeout
const holdTimeout = 350 * time.Millisecond

// action - результат разбора нажатия
type action struct {
	key  input.Key
	quit bool
}

// translateKey сопоставляет клавишу терминала логической клавише
func translateKey(ev *tcell.EventKey) action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return action{quit: true}
	case tcell.KeyLeft:
		return action{key: input.KeyLeft}
	case tcell.KeyRight:
		return action{key: input.KeyRight}
	case tcell.KeyUp:
		return action{key: input.KeyJump}
	case tcell.KeyRune:
	default:
		return action{}
	}

	switch r := ev.Rune(); {
	case r == 'q':
		return action{quit: true}
	case r == 'a' || r == 'A':
		return action{key: input.KeyLeft}
	case r == 'd' || r == 'D':
		return action{key: input.KeyRight}
	case r == 'w' || r == 'W' || r == ' ':
		return action{key: input.KeyJump}
	case r == 'e' || r == 'E':
		return action{key: input.KeyPickup}
	case r == 'c' || r == 'C':
		return action{key: input.KeyCraft}
	case r >= '1' && r <= '9':
		return action{key: input.KeySlot1 + input.Key(r-'1')}
	case r == '0':
		return action{key: input.KeySlot10}
	default:
		return action{}
	}
}

// isHeld - клавиши, которые физика читает как удерживаемые
func isHeld(k input.Key) bool {
	return k == input.KeyLeft || k == input.KeyRight || k == input.KeyJump
}

// keyHolder превращает поток нажатий терминала в пары Down/Up
type keyHolder struct {
	timeout time.Duration
	pressed map[input.Key]time.Time
}

func newKeyHolder(timeout time.Duration) *keyHolder {
	return &keyHolder{timeout: timeout, pressed: make(map[input.Key]time.Time)}
}

// press возвращает события для нажатия k в момент now
func (h *keyHolder) press(k input.Key, now time.Time) []input.KeyEvent {
	if !isHeld(k) {
		// Фронтовые клавиши: нажатие и отпускание в один тик
		return []input.KeyEvent{{Key: k, Down: true}, {Key: k, Down: false}}
	}
	_, already := h.pressed[k]
	h.pressed[k] = now
	if already {
		return nil
	}
	// Влево и вправо взаимоисключающие, как на клавиатуре с одной рукой
	var out []input.KeyEvent
	if opp, ok := opposite(k); ok {
		if _, held := h.pressed[opp]; held {
			delete(h.pressed, opp)
			out = append(out, input.KeyEvent{Key: opp, Down: false})
		}
	}
	return append(out, input.KeyEvent{Key: k, Down: true})
}

// expire отпускает клавиши без автоповтора дольше timeout
func (h *keyHolder) expire(now time.Time) []input.KeyEvent {
	var out []input.KeyEvent
	for _, k := range []input.Key{input.KeyLeft, input.KeyRight, input.KeyJump} {
		at, ok := h.pressed[k]
		if ok && now.Sub(at) >= h.timeout {
			delete(h.pressed, k)
			out = append(out, input.KeyEvent{Key: k, Down: false})
		}
	}
	return out
}

func opposite(k input.Key) (input.Key, bool) {
	switch k {
	case input.KeyLeft:
		return input.KeyRight, true
	case input.KeyRight:
		return input.KeyLeft, true
	default:
		return input.KeyNone, false
	}
}

// mouseTracker выдаёт клик только на фронте нажатия кнопки
type mouseTracker struct {
	last tcell.ButtonMask
}

func (m *mouseTracker) click(buttons tcell.ButtonMask) (input.Button, bool) {
	pressed := buttons &^ m.last
	m.last = buttons
	switch {
	case pressed&tcell.ButtonPrimary != 0:
		return input.ButtonLeft, true
	case pressed&tcell.ButtonSecondary != 0:
		return input.ButtonRight, true
	default:
		return input.ButtonLeft, false
	}
}
