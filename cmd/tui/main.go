package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/annel0/tilecraft/internal/config"
	"github.com/annel0/tilecraft/internal/game"
	"github.com/annel0/tilecraft/internal/input"
	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/render"
	"github.com/annel0/tilecraft/internal/stats"
	"github.com/annel0/tilecraft/internal/vec"
	"github.com/annel0/tilecraft/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (иначе GAME_CONFIG)")
	manifestPath := flag.String("manifest", "", "манифест ресурсов (переопределяет render.manifest)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *manifestPath != "" {
		cfg.Render.Manifest = *manifestPath
	}

	logFile, err := setupLogging(cfg.Logging)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logFile.Close()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		fmt.Fprintf(os.Stderr, "tilecraft: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging уводит все логи в файл: терминал занят экраном игры
func setupLogging(cfg config.LoggingConfig) (*os.File, error) {
	level, ok := logging.ParseLevel(cfg.Level)
	if !ok {
		return nil, fmt.Errorf("unknown logging.level %q", cfg.Level)
	}
	dir := cfg.Dir
	if dir == "" {
		dir = logging.LogDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logging.SetDefaultLogger(logging.NewWriterLogger("tui", f, level))
	logging.GetLoggerManager().Configure(false, level, logging.ERROR)
	return f, nil
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, err := stats.Open(ctx, cfg.Stats)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	hook := stats.NewHook(rec, cfg.Stats.BufferSize, logging.GetStatsLogger())
	defer func() {
		if err := hook.Close(); err != nil {
			logging.Warn("Закрытие хранилища статистики: %v", err)
		}
	}()

	session, err := game.NewSession(cfg,
		world.WithStatsHook(hook),
		world.WithLogger(logging.GetWorldLogger()),
	)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := game.Pregenerate(ctx, session, cfg.World.PregenerateRad); err != nil {
		return fmt.Errorf("pregenerate: %w", err)
	}

	manifest, err := render.LoadManifest(cfg.Render.Manifest)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	loop := game.NewLoop(session.Controller, session.Player,
		game.WithTickRate(cfg.World.TickRate),
		game.WithLogger(logging.GetComponentLogger("game")),
	)
	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()

	c := newClient(screen, manifest, loop, float64(session.Controller.Grid().TileSize()))
	c.cam.Smoothing = cfg.Render.Smooth

	events := make(chan tcell.Event, 100)
	go pumpEvents(ctx, screen.PollEvent, events)

	fps := cfg.Render.FPS
	if fps <= 0 {
		fps = 60
	}
	frames := time.NewTicker(time.Second / time.Duration(fps))
	defer frames.Stop()

	logging.Info("🎮 Клиент запущен (seed=%d, fps=%d)", cfg.World.Seed, fps)
	for {
		select {
		case ev := <-events:
			if c.handle(ev) {
				logging.Info("👋 Выход по запросу игрока")
				return nil
			}
		case now := <-frames.C:
			c.release(now)
			if err := c.draw(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		case err := <-loopErr:
			return fmt.Errorf("game loop: %w", err)
		}
	}
}

// pumpEvents переправляет события терминала в out до закрытия экрана
// (poll возвращает nil) или отмены ctx
func pumpEvents(ctx context.Context, poll func() tcell.Event, out chan<- tcell.Event) {
	for {
		ev := poll()
		if ev == nil {
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// client - состояние терминального клиента; живёт в горутине интерфейса
type client struct {
	screen   tcell.Screen
	renderer *render.TcellRenderer
	manifest *render.Manifest
	cam      *render.Camera
	loop     *game.Loop
	keys     *keyHolder
	mouse    mouseTracker
	snapped  bool
}

func newClient(screen tcell.Screen, manifest *render.Manifest, loop *game.Loop, tileSize float64) *client {
	r := render.NewTcellRenderer(screen, manifest, tileSize)
	return &client{
		screen:   screen,
		renderer: r,
		manifest: manifest,
		cam:      render.NewCamera(r.ViewportPixels()),
		loop:     loop,
		keys:     newKeyHolder(holdTimeout),
	}
}

// handle обрабатывает событие терминала; true - пора выходить
func (c *client) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		act := translateKey(ev)
		if act.quit {
			return true
		}
		if act.key == input.KeyNone {
			return false
		}
		for _, ke := range c.keys.press(act.key, ev.When()) {
			c.send(ke)
		}
	case *tcell.EventMouse:
		button, ok := c.mouse.click(ev.Buttons())
		if !ok {
			return false
		}
		col, row := ev.Position()
		px, py := c.renderer.CellToPixel(col, row)
		p := c.cam.ToWorld(vec.Vec2Float{X: px, Y: py})
		c.send(input.PointerEvent{X: p.X, Y: p.Y, Button: button})
	case *tcell.EventResize:
		c.screen.Sync()
		c.cam.SetViewport(c.renderer.ViewportPixels())
	}
	return false
}

func (c *client) release(now time.Time) {
	for _, ke := range c.keys.expire(now) {
		c.send(ke)
	}
}

func (c *client) send(ev input.Event) {
	if err := c.loop.Input(ev); err != nil {
		logging.Debug("Ввод %T не принят: %v", ev, err)
	}
}

// draw рисует кадр между тиками, пока мир не меняется
func (c *client) draw(ctx context.Context) error {
	return c.loop.Do(ctx, func(s *game.Session) error {
		target := s.Player.Centre()
		if !c.snapped {
			c.cam.Snap(target)
			c.snapped = true
		} else {
			c.cam.Follow(target)
		}

		c.renderer.Clear()
		fs := render.Frame(c.renderer, c.manifest, c.cam, s.Controller.Grid(), s.Controller.Drops().Snapshot(), s.Player)
		if fs.Missing > 0 {
			logging.Trace("Кадр: не найдено ресурсов %d", fs.Missing)
		}

		_, h := c.screen.Size()
		pos := s.Player.Position()
		ts := s.Controller.Grid().TileSize()
		status := fmt.Sprintf(" tick %d  tile (%d,%d)  drops %d  [a/d] ход [w] прыжок [e] подобрать [c] крафт [q] выход",
			s.Controller.Tick(), world.PixelToTile(pos.X, ts), world.PixelToTile(pos.Y, ts), s.Controller.Drops().Len())
		bar := tcell.StyleDefault.Reverse(true)
		c.renderer.DrawText(0, 0, status, bar)
		c.renderer.DrawText(0, h-1, " "+render.HotbarLine(s.Player), bar)
		c.screen.Show()
		return nil
	})
}
