package game

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilecraft/internal/config"
	"github.com/annel0/tilecraft/internal/input"
	"github.com/annel0/tilecraft/internal/item"
	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/physics"
	"github.com/annel0/tilecraft/internal/world"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.Width = 100
	cfg.World.Height = 40
	return cfg
}

func newTestLoop(t *testing.T, opts ...Option) (*Loop, *Session) {
	t.Helper()
	s, err := NewSession(testConfig())
	require.NoError(t, err)
	opts = append([]Option{WithLogger(logging.NewWriterLogger("game-test", io.Discard, logging.ERROR))}, opts...)
	return NewLoop(s.Controller, s.Player, opts...), s
}

func TestNewSession_FromConfig(t *testing.T) {
	s, err := NewSession(testConfig())
	require.NoError(t, err)

	_, flat := s.Controller.Grid().(*world.FlatGrid)
	assert.True(t, flat, "заданные размеры включают FlatGrid")
	assert.Equal(t, 2400.0, s.Player.Position().X)
	assert.Equal(t, 48.0, s.Player.Bounds().H)
	assert.Equal(t, 10, s.Player.Inventory.Len())

	cfg := testConfig()
	cfg.Drops.CraftKeyRecipe = "cake"
	_, err = NewSession(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.World.TileSize = 0
	_, err = NewSession(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestPregenerate_ChunkedGrid(t *testing.T) {
	s, err := NewSession(config.Default())
	require.NoError(t, err)
	require.NoError(t, Pregenerate(context.Background(), s, 1))

	chunked := s.Controller.Grid().(*world.ChunkedGrid)
	assert.Equal(t, 9, chunked.ChunkCount(), "3 колонки чанков на 3 строки")
}

func TestLoop_InputReachesNextTick(t *testing.T) {
	l, s := newTestLoop(t)

	require.NoError(t, l.Input(input.KeyEvent{Key: input.KeyRight, Down: true}))
	l.step(1.0 / 60)
	assert.Equal(t, physics.DefaultMoveSpeed, s.Player.Body.Velocity.X)

	require.NoError(t, l.Input(input.KeyEvent{Key: input.KeyRight, Down: false}))
	l.step(1.0 / 60)
	assert.Zero(t, s.Player.Body.Velocity.X)
	assert.Equal(t, uint64(2), l.LastTick())
}

func TestLoop_InputOverflow(t *testing.T) {
	l, _ := newTestLoop(t, WithInputBuffer(1))

	require.NoError(t, l.Input(input.KeyEvent{Key: input.KeyJump, Down: true}))
	err := l.Input(input.KeyEvent{Key: input.KeyJump, Down: false})
	assert.True(t, errors.Is(err, ErrInputDropped))
	assert.Equal(t, uint64(1), l.DroppedInputs())
}

func TestLoop_RunTicksAndExecutesTasks(t *testing.T) {
	var observed atomic.Int32
	l, _ := newTestLoop(t,
		WithTickRate(500),
		WithObserver(func(world.TickReport, time.Duration) { observed.Add(1) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.LastTick() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, l.Running())
	assert.ErrorIs(t, l.Run(ctx), ErrAlreadyRunning)

	var got int
	err := l.Do(ctx, func(s *Session) error {
		if !s.Player.Inventory.AddItem(s.Controller.Catalog().MustLookup(item.KindDirt)) {
			return errors.New("inventory full")
		}
		got = s.Player.Inventory.CountItem(item.KindDirt)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	sentinel := errors.New("boom")
	assert.ErrorIs(t, l.Do(ctx, func(*Session) error { return sentinel }), sentinel)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("цикл не остановился после отмены")
	}
	assert.False(t, l.Running())
	assert.GreaterOrEqual(t, int(observed.Load()), 3)
}

func TestLoop_DoWithoutRunHonoursContext(t *testing.T) {
	l, _ := newTestLoop(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Do(ctx, func(*Session) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoop_PointerBreaksTile(t *testing.T) {
	l, s := newTestLoop(t)
	grid := s.Controller.Grid()
	ts := float64(grid.TileSize())

	// Первый твёрдый тайл в колонке под точкой появления
	tx := int(s.Player.Position().X / ts)
	ty := 0
	for ; ty < 40 && grid.GetTile(tx, ty) == world.TileEmpty; ty++ {
	}
	require.Less(t, ty, 40)
	require.NotEqual(t, world.TileStone, grid.GetTile(tx, ty), "поверхность не бывает каменной")

	require.NoError(t, l.Input(input.PointerEvent{X: float64(tx)*ts + 1, Y: float64(ty)*ts + 1, Button: input.ButtonLeft}))
	report := l.step(1.0 / 60)

	require.Len(t, report.Interactions, 1)
	assert.NoError(t, report.Interactions[0].Err)
	assert.Equal(t, world.TileEmpty, grid.GetTile(tx, ty))
	assert.Equal(t, 1, s.Controller.Drops().Len())
}
