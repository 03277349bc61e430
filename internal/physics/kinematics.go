package physics

import (
	"math"

	"github.com/annel0/tilecraft/internal/vec"
)

// Параметры движения по умолчанию (пиксели и секунды)
const (
	DefaultMoveSpeed      = 300.0
	DefaultJumpSpeed      = 600.0
	DefaultGravity        = 1800.0
	DefaultMaxFallSpeed   = 900.0
	DefaultMaxFrameDelta  = 1.0 / 30.0
	DefaultCollisionInset = 2.0
	DefaultFallLimitY     = 3200.0

	DefaultPlayerWidth  = 24.0
	DefaultPlayerHeight = 48.0
)

// DefaultSpawn - точка появления игрока по умолчанию
var DefaultSpawn = vec.Vec2Float{X: 2400, Y: 0}

// Направления взгляда
const (
	FacingLeft  = -1
	FacingRight = 1
)

// Config описывает параметры движения
type Config struct {
	MoveSpeed      float64
	JumpSpeed      float64
	Gravity        float64
	MaxFallSpeed   float64
	MaxFrameDelta  float64
	CollisionInset float64
	FallLimitY     float64
	Spawn          vec.Vec2Float
}

// DefaultConfig возвращает параметры движения по умолчанию
func DefaultConfig() Config {
	return Config{
		MoveSpeed:      DefaultMoveSpeed,
		JumpSpeed:      DefaultJumpSpeed,
		Gravity:        DefaultGravity,
		MaxFallSpeed:   DefaultMaxFallSpeed,
		MaxFrameDelta:  DefaultMaxFrameDelta,
		CollisionInset: DefaultCollisionInset,
		FallLimitY:     DefaultFallLimitY,
		Spawn:          DefaultSpawn,
	}
}

// Body - кинематическое состояние тела
type Body struct {
	Box      AABB
	Velocity vec.Vec2Float
	Grounded bool
	Jumping  bool
	Facing   int
}

// NewBody создаёт тело размером w x h в точке spawn
func NewBody(spawn vec.Vec2Float, w, h float64) Body {
	return Body{
		Box:    AABB{X: spawn.X, Y: spawn.Y, W: w, H: h},
		Facing: FacingRight,
	}
}

// Position возвращает левый верхний угол тела
func (b *Body) Position() vec.Vec2Float {
	return vec.Vec2Float{X: b.Box.X, Y: b.Box.Y}
}

// Intent - намерение игрока на текущий кадр
type Intent struct {
	Move int // -1 влево, 0 стоим, +1 вправо
	Jump bool
}

// StepResult сообщает, что произошло за шаг
type StepResult struct {
	Respawned  bool
	Landed     bool
	HitWall    bool
	HitCeiling bool
}

// Kinematics интегрирует движение тела по переменному шагу кадра.
// Без аккумулятора: скорость движения привязана к реальному времени кадра.
type Kinematics struct {
	cfg Config
}

// NewKinematics создаёт интегратор
func NewKinematics(cfg Config) *Kinematics {
	if cfg.MaxFrameDelta <= 0 {
		cfg.MaxFrameDelta = DefaultMaxFrameDelta
	}
	if cfg.CollisionInset < 0 {
		cfg.CollisionInset = 0
	}
	return &Kinematics{cfg: cfg}
}

// Config возвращает параметры интегратора
func (k *Kinematics) Config() Config {
	return k.cfg
}

// Respawn возвращает тело в точку появления с нулевой скоростью
func (k *Kinematics) Respawn(b *Body) {
	b.Box.X = k.cfg.Spawn.X
	b.Box.Y = k.cfg.Spawn.Y
	b.Velocity = vec.Vec2Float{}
	b.Grounded = false
	b.Jumping = false
}

// Step продвигает тело на один кадр
func (k *Kinematics) Step(b *Body, intent Intent, world Solidity, dt float64) StepResult {
	var res StepResult
	dt = math.Min(math.Max(dt, 0), k.cfg.MaxFrameDelta)

	// Намерение
	move := clampDir(intent.Move)
	b.Velocity.X = float64(move) * k.cfg.MoveSpeed
	if move != 0 {
		b.Facing = move
	}
	if intent.Jump && !b.Jumping {
		b.Velocity.Y = -k.cfg.JumpSpeed
		b.Jumping = true
	}

	// Гравитация
	b.Velocity.Y = math.Min(b.Velocity.Y+k.cfg.Gravity*dt, k.cfg.MaxFallSpeed)

	res.HitWall = k.stepHorizontal(b, world, dt)
	res.Landed, res.HitCeiling = k.stepVertical(b, world, dt)

	if b.Box.Y > k.cfg.FallLimitY {
		k.Respawn(b)
		res.Respawned = true
	}
	return res
}

// stepHorizontal проверяет ведущую грань по новой позиции.
// При столкновении скорость обнуляется, позиция не меняется.
func (k *Kinematics) stepHorizontal(b *Body, world Solidity, dt float64) bool {
	dx := b.Velocity.X * dt
	if dx == 0 {
		return false
	}
	newX := b.Box.X + dx
	edge := newX
	if dx > 0 {
		edge = newX + b.Box.W
	}

	inset := k.cfg.CollisionInset
	rows := EdgeSamples(b.Box.Y+inset, b.Box.Y+b.Box.H-inset, world.TileSize())
	if anySolidColumn(world, edge, rows) {
		b.Velocity.X = 0
		return true
	}
	b.Box.X = newX
	return false
}

// stepVertical двигает тело по вертикали с привязкой к линии тайлов
func (k *Kinematics) stepVertical(b *Body, world Solidity, dt float64) (landed, hitCeiling bool) {
	dy := b.Velocity.Y * dt
	if dy == 0 {
		return false, false
	}
	ts := world.TileSize()
	inset := k.cfg.CollisionInset
	cols := EdgeSamples(b.Box.X+inset, b.Box.X+b.Box.W-inset, ts)
	newY := b.Box.Y + dy

	if dy > 0 {
		feet := newY + b.Box.H
		if anySolidRow(world, feet, cols) {
			row := int(math.Floor(feet / float64(ts)))
			b.Box.Y = float64(row*ts) - b.Box.H
			b.Velocity.Y = 0
			landed = !b.Grounded
			b.Grounded = true
			b.Jumping = false
			return landed, false
		}
		b.Box.Y = newY
		b.Grounded = false
		return false, false
	}

	if anySolidRow(world, newY, cols) {
		row := int(math.Floor(newY / float64(ts)))
		b.Box.Y = float64((row + 1) * ts)
		b.Velocity.Y = 0
		b.Grounded = false
		return false, true
	}
	b.Box.Y = newY
	b.Grounded = false
	return false, false
}

func clampDir(d int) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}
