package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilecraft/internal/physics"
)

func TestParseKey(t *testing.T) {
	k, ok := ParseKey("Jump")
	require.True(t, ok)
	assert.Equal(t, KeyJump, k)

	k, ok = ParseKey("slot10")
	require.True(t, ok)
	slot, isSlot := k.Slot()
	assert.True(t, isSlot)
	assert.Equal(t, 9, slot)

	_, ok = ParseKey("fly")
	assert.False(t, ok)
	_, ok = ParseKey("none")
	assert.False(t, ok)
}

func TestState_HeldAndEdges(t *testing.T) {
	s := NewState()
	s.Apply(KeyEvent{Key: KeyRight, Down: true})
	s.Apply(KeyEvent{Key: KeyPickup, Down: true})
	s.Apply(KeyEvent{Key: KeySlot3, Down: true})
	s.Apply(PointerEvent{X: 10, Y: 20, Button: ButtonLeft})

	f := s.Sample()
	assert.True(t, f.Right)
	assert.Equal(t, physics.Intent{Move: 1}, f.Intent())
	assert.True(t, f.Pickup)
	assert.Equal(t, 2, f.SelectSlot)
	require.Len(t, f.Clicks, 1)
	assert.Equal(t, ButtonLeft, f.Clicks[0].Button)

	// Однократные действия сброшены, удерживаемые клавиши остаются
	f = s.Sample()
	assert.True(t, f.Right)
	assert.False(t, f.Pickup)
	assert.Equal(t, -1, f.SelectSlot)
	assert.Empty(t, f.Clicks)

	// Повтор нажатия без отпускания не даёт нового фронта
	s.Apply(KeyEvent{Key: KeyPickup, Down: true})
	assert.False(t, s.Sample().Pickup)

	s.Apply(KeyEvent{Key: KeyPickup, Down: false})
	s.Apply(KeyEvent{Key: KeyPickup, Down: true})
	assert.True(t, s.Sample().Pickup)
}

func TestFrame_IntentCancelsOpposite(t *testing.T) {
	s := NewState()
	s.Apply(KeyEvent{Key: KeyLeft, Down: true})
	s.Apply(KeyEvent{Key: KeyRight, Down: true})
	s.Apply(KeyEvent{Key: KeyJump, Down: true})

	assert.Equal(t, physics.Intent{Move: 0, Jump: true}, s.Sample().Intent())

	s.Release()
	assert.False(t, s.Held(KeyJump))
	assert.Equal(t, physics.Intent{}, s.Sample().Intent())
}
