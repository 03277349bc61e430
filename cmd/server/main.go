package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/tilecraft/internal/api"
	"github.com/annel0/tilecraft/internal/config"
	"github.com/annel0/tilecraft/internal/eventbus"
	"github.com/annel0/tilecraft/internal/game"
	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/metrics"
	"github.com/annel0/tilecraft/internal/observability"
	"github.com/annel0/tilecraft/internal/stats"
	"github.com/annel0/tilecraft/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (иначе GAME_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := setupLogging(cfg.Logging); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск tilecraft (seed=%d, tick=%d/с)", cfg.World.Seed, cfg.World.TickRate)

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func setupLogging(cfg config.LoggingConfig) error {
	console, ok := logging.ParseLevel(cfg.Level)
	if !ok {
		return fmt.Errorf("unknown logging.level %q", cfg.Level)
	}
	file, ok := logging.ParseLevel(cfg.FileLevel)
	if !ok {
		return fmt.Errorf("unknown logging.file_level %q", cfg.FileLevel)
	}
	if cfg.Dir != "" {
		logging.LogDir = cfg.Dir
	}
	if cfg.ToFiles {
		if err := logging.InitDefaultLogger("server"); err != nil {
			return err
		}
	}
	logging.SetDefaultLevel(console, file)
	logging.GetLoggerManager().Configure(cfg.ToFiles, console, file)
	return nil
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Остановка телеметрии: %v", err)
		}
	}()

	// === СТАТИСТИКА ===
	logging.Debug("Открытие хранилища статистики (%s)...", cfg.Stats.Backend)
	rec, err := stats.Open(ctx, cfg.Stats)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	hook := stats.NewHook(rec, cfg.Stats.BufferSize, logging.GetStatsLogger())
	defer func() {
		if err := hook.Close(); err != nil {
			logging.Warn("Закрытие хранилища статистики: %v", err)
		}
		logging.Info("📊 Статистика: записано %d, отброшено %d, ошибок %d", hook.Written(), hook.Dropped(), hook.Failed())
	}()

	// === ШИНА СОБЫТИЙ ===
	bus, err := openBus(cfg.EventBus)
	if err != nil {
		return fmt.Errorf("eventbus: %w", err)
	}
	defer bus.Close()

	busLogger := logging.GetComponentLogger("eventbus")
	if _, err := eventbus.StartLoggingListener(ctx, bus, busLogger); err != nil {
		return fmt.Errorf("eventbus listener: %w", err)
	}
	publisher := eventbus.NewWorldPublisher(bus, cfg.EventBus.Buffer, busLogger)
	defer publisher.Close()

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	simMetrics := metrics.NewSimMetrics(reg)
	busExporter := eventbus.NewMetricsExporter(bus, reg)
	busExporter.Start()
	defer busExporter.Stop()

	// === МИР ===
	session, err := game.NewSession(cfg,
		world.WithStatsHook(hook),
		world.WithEventSink(publisher),
		world.WithEventSink(simMetrics),
		world.WithLogger(logging.GetWorldLogger()),
	)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	started := time.Now()
	if err := game.Pregenerate(ctx, session, cfg.World.PregenerateRad); err != nil {
		return fmt.Errorf("pregenerate: %w", err)
	}
	logging.Info("🌍 Мир подготовлен за %v", time.Since(started))

	drops := session.Controller.Drops()
	var chunks func() int
	if grid, ok := session.Controller.Grid().(*world.ChunkedGrid); ok {
		chunks = grid.ChunkCount
	}
	loop := game.NewLoop(session.Controller, session.Player,
		game.WithTickRate(cfg.World.TickRate),
		game.WithObserver(simMetrics.Observer(drops.Len, chunks)),
		game.WithLogger(logging.GetComponentLogger("game")),
	)

	// === REST API ===
	serverLogger := logging.GetServerLogger()
	eventLog := api.NewEventLog(cfg.Server.EventLog)
	if _, err := eventLog.Attach(ctx, bus); err != nil {
		return fmt.Errorf("event log: %w", err)
	}
	webhooks := api.NewOutboundWebhookManager(serverLogger)
	webhooks.LoadConfig(cfg.Server.Webhooks)
	if _, err := webhooks.Attach(ctx, bus); err != nil {
		return fmt.Errorf("webhooks: %w", err)
	}
	defer webhooks.Close()

	gin.SetMode(gin.ReleaseMode)
	restPort := cfg.Server.GetRESTPort()
	rest := api.NewRestServer(api.Config{
		Addr:     fmt.Sprintf(":%d", restPort),
		Loop:     loop,
		Stats:    hook.Recorder(),
		Events:   eventLog,
		Webhooks: webhooks,
		Registry: reg,
		Logger:   serverLogger,
	})

	metricsPort := cfg.Server.GetMetricsPort()
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", metricsPort),
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// === ЗАПУСК ===
	errCh := make(chan error, 3)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil {
			errCh <- fmt.Errorf("game loop: %w", err)
		}
	}()
	go func() {
		if err := rest.Start(); err != nil {
			errCh <- fmt.Errorf("rest api: %w", err)
		}
	}()
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу :%d", metricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics: %w", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d", restPort)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", restPort)
	logging.Debug("Компоненты логирования: %s", strings.Join(logging.GetLoggerManager().ListComponents(), ", "))

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case runErr = <-errCh:
		logging.Error("❌ Сервис упал: %v", runErr)
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	logging.Debug("Остановка REST API...")
	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	logging.Debug("Остановка игрового цикла...")
	cancel()
	<-loopDone

	// Остальное закрывается defer'ами: webhook'и, публикатор, шина, статистика
	return runErr
}

func openBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("🚌 Шина событий в памяти (буфер %d)", cfg.Buffer)
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, cfg.RetentionDuration())
	if err != nil {
		return nil, err
	}
	logging.Info("🚌 Шина событий NATS JetStream %s (stream=%s)", cfg.URL, cfg.Stream)
	return bus, nil
}
