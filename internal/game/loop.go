// Package game крутит тик мира в одной горутине и принимает ввод и команды
// из остальных горутин через каналы.
package game

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/annel0/tilecraft/internal/input"
	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/world"
	"github.com/annel0/tilecraft/internal/world/entity"
)

const (
	DefaultTickRate    = 60
	DefaultInputBuffer = 256
)

var (
	ErrAlreadyRunning = errors.New("loop already running")
	ErrInputDropped   = errors.New("input queue full")
)

// Session - состояние, которым владеет поток тика
type Session struct {
	Controller *world.Controller
	Player     *entity.Player
}

// TickObserver вызывается в потоке тика после каждого Update
type TickObserver func(report world.TickReport, elapsed time.Duration)

type task struct {
	fn   func(*Session) error
	done chan error
}

// Loop - единственная горутина, изменяющая мир
type Loop struct {
	session   Session
	state     *input.State
	inputs    chan input.Event
	tasks     chan task
	interval  time.Duration
	observers []TickObserver
	logger    *logging.Logger
	now       func() time.Time

	running  atomic.Bool
	lastTick atomic.Uint64
	dropped  atomic.Uint64
}

// Option настраивает цикл
type Option func(*Loop)

// WithTickRate задаёт частоту тиков в секунду
func WithTickRate(rate int) Option {
	return func(l *Loop) {
		if rate > 0 {
			l.interval = time.Second / time.Duration(rate)
		}
	}
}

// WithObserver добавляет наблюдателя тиков
func WithObserver(o TickObserver) Option {
	return func(l *Loop) { l.observers = append(l.observers, o) }
}

// WithInputBuffer задаёт ёмкость очереди ввода
func WithInputBuffer(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.inputs = make(chan input.Event, n)
		}
	}
}

// WithLogger задаёт логгер цикла
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop создаёт цикл над контроллером и игроком
func NewLoop(ctrl *world.Controller, player *entity.Player, opts ...Option) *Loop {
	l := &Loop{
		session:  Session{Controller: ctrl, Player: player},
		state:    input.NewState(),
		inputs:   make(chan input.Event, DefaultInputBuffer),
		tasks:    make(chan task),
		interval: time.Second / DefaultTickRate,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logging.GetComponentLogger("game")
	}
	return l
}

// Input ставит событие ввода в очередь; оно попадёт в ближайший тик.
// Не блокируется: при переполнении событие отбрасывается.
func (l *Loop) Input(ev input.Event) error {
	select {
	case l.inputs <- ev:
		return nil
	default:
		l.dropped.Add(1)
		l.logger.Warn("Очередь ввода заполнена, событие %T отброшено", ev)
		return ErrInputDropped
	}
}

// Do выполняет fn в потоке тика между тиками и возвращает её ошибку
func (l *Loop) Do(ctx context.Context, fn func(*Session) error) error {
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case l.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastTick возвращает номер последнего выполненного тика
func (l *Loop) LastTick() uint64 { return l.lastTick.Load() }

// DroppedInputs возвращает число отброшенных событий ввода
func (l *Loop) DroppedInputs() uint64 { return l.dropped.Load() }

// Running сообщает, запущен ли цикл
func (l *Loop) Running() bool { return l.running.Load() }

// Run крутит тики до отмены ctx
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("Игровой цикл запущен (%v на тик)", l.interval)
	last := l.now()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Игровой цикл остановлен на тике %d", l.LastTick())
			return nil
		case ev := <-l.inputs:
			l.state.Apply(ev)
		case t := <-l.tasks:
			t.done <- t.fn(&l.session)
		case <-ticker.C:
			now := l.now()
			dt := now.Sub(last).Seconds()
			last = now
			l.step(dt)
		}
	}
}

// step выполняет один тик: дочитывает очередь ввода, снимает кадр и обновляет мир
func (l *Loop) step(dt float64) world.TickReport {
	l.drainInputs()

	started := time.Now()
	frame := l.state.Sample()
	report := l.session.Controller.Update(l.session.Player, frame, dt)
	elapsed := time.Since(started)

	for _, res := range report.Interactions {
		if res.Err != nil {
			l.logger.Debug("Тик %d: %s отклонён: %v", report.Tick, res.Mode, res.Err)
		}
	}
	if report.CraftErr != nil {
		l.logger.Debug("Тик %d: крафт: %v", report.Tick, report.CraftErr)
	}

	for _, o := range l.observers {
		o(report, elapsed)
	}
	l.lastTick.Store(report.Tick)
	return report
}

func (l *Loop) drainInputs() {
	for {
		select {
		case ev := <-l.inputs:
			l.state.Apply(ev)
		default:
			return
		}
	}
}
