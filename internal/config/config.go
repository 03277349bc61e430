package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig возвращается Validate при несогласованных значениях
var ErrInvalidConfig = errors.New("invalid config")

// Config корневая структура конфигурации приложения.
// Нулевые поля после Load заполняются значениями из Default.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Player    PlayerConfig    `yaml:"player"`
	Drops     DropsConfig     `yaml:"drops"`
	Inventory InventoryConfig `yaml:"inventory"`
	Server    ServerConfig    `yaml:"server"`
	Stats     StatsConfig     `yaml:"stats"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Render    RenderConfig    `yaml:"render"`
}

// WorldConfig - параметры сетки и генератора
type WorldConfig struct {
	Seed      int64 `yaml:"seed"`
	TileSize  int   `yaml:"tile_size"`
	ChunkSize int   `yaml:"chunk_size"`
	// Width/Height > 0 включают ограниченный FlatGrid
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	SurfaceLevel int     `yaml:"surface_level"`
	Amplitude    int     `yaml:"amplitude"`
	Frequency    float64 `yaml:"frequency"`
	DirtDepth    int     `yaml:"dirt_depth"`
	WaterLevel   int     `yaml:"water_level"`

	TickRate       int `yaml:"tick_rate"`
	PregenerateRad int `yaml:"pregenerate_radius"`
}

// PlayerConfig - физика игрока в пикселях и пикселях в секунду
type PlayerConfig struct {
	Name          string  `yaml:"name"`
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	SpawnX        float64 `yaml:"spawn_x"`
	SpawnY        float64 `yaml:"spawn_y"`
	MoveSpeed     float64 `yaml:"move_speed"`
	JumpSpeed     float64 `yaml:"jump_speed"`
	Gravity       float64 `yaml:"gravity"`
	MaxFallSpeed  float64 `yaml:"max_fall_speed"`
	MaxFrameDelta float64 `yaml:"max_frame_delta"`
	Inset         float64 `yaml:"collision_inset"`
	FallLimitY    float64 `yaml:"fall_limit_y"`
}

// DropsConfig - поведение выпавших предметов
type DropsConfig struct {
	FallSpeed      float64 `yaml:"fall_speed"`
	AttractRadius  float64 `yaml:"attract_radius"`
	AttractSpeed   float64 `yaml:"attract_speed"`
	PickupRadius   float64 `yaml:"pickup_radius"`
	CollectRadius  float64 `yaml:"collect_radius"`
	DespawnTicks   int     `yaml:"despawn_ticks"`
	CraftKeyRecipe string  `yaml:"craft_key_recipe"`
}

// InventoryConfig - размер хотбара
type InventoryConfig struct {
	Size int `yaml:"size"`
}

type ServerConfig struct {
	RESTPort    int             `yaml:"rest_port"`
	MetricsPort int             `yaml:"metrics_port"`
	EventLog    int             `yaml:"event_log_size"`
	Webhooks    []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig - получатель событий мира по HTTP
type WebhookConfig struct {
	Name    string   `yaml:"name"`
	URL     string   `yaml:"url"`
	Secret  string   `yaml:"secret"`
	Events  []string `yaml:"events"` // "*" - все события
	Timeout int      `yaml:"timeout_seconds"`
	Retries int      `yaml:"retries"`
}

// StatsConfig выбирает хранилище счётчиков разрушений и крафта
type StatsConfig struct {
	Backend    string `yaml:"backend"`  // memory | badger | redis | mysql | sqlite | postgres | mongo
	Path       string `yaml:"path"`     // каталог badger или файл sqlite
	DSN        string `yaml:"dsn"`      // mysql, postgres, mongo (URI)
	Database   string `yaml:"database"` // база mongo
	RedisAddr  string `yaml:"redis_addr"`
	RedisPass  string `yaml:"redis_password"`
	RedisDB    int    `yaml:"redis_db"`
	BufferSize int    `yaml:"buffer_size"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// RetentionDuration возвращает время хранения стрима
func (e *EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	FileLevel string `yaml:"file_level"`
	ToFiles   bool   `yaml:"to_files"`
	Dir       string `yaml:"dir"`
}

// RenderConfig - настройки терминального клиента
type RenderConfig struct {
	Manifest string  `yaml:"manifest"`
	FPS      int     `yaml:"fps"`
	Smooth   float64 `yaml:"camera_smoothing"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:           1,
			TileSize:       32,
			ChunkSize:      16,
			SurfaceLevel:   10,
			Amplitude:      6,
			Frequency:      0.025,
			DirtDepth:      4,
			WaterLevel:     13,
			TickRate:       60,
			PregenerateRad: 4,
		},
		Player: PlayerConfig{
			Name:          "player",
			Width:         24,
			Height:        48,
			SpawnX:        2400,
			SpawnY:        0,
			MoveSpeed:     300,
			JumpSpeed:     600,
			Gravity:       1800,
			MaxFallSpeed:  900,
			MaxFrameDelta: 1.0 / 30,
			Inset:         2,
			FallLimitY:    3200,
		},
		Drops: DropsConfig{
			FallSpeed:      5,
			AttractRadius:  40,
			AttractSpeed:   5,
			PickupRadius:   20,
			CollectRadius:  100,
			DespawnTicks:   0,
			CraftKeyRecipe: "pickaxe",
		},
		Inventory: InventoryConfig{Size: 10},
		Server:    ServerConfig{EventLog: 512},
		Stats: StatsConfig{
			Backend:    "memory",
			BufferSize: 256,
		},
		EventBus: EventBusConfig{
			Stream:    "WORLD",
			Retention: 24,
			Buffer:    1024,
		},
		Telemetry: TelemetryConfig{ServiceName: "tilecraft"},
		Logging:   LoggingConfig{Level: "INFO", FileLevel: "DEBUG", Dir: "logs"},
		Render: RenderConfig{
			Manifest: "assets/textures.yaml",
			FPS:      60,
			Smooth:   0.1,
		},
	}
}

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.World.TileSize <= 0 {
		return fmt.Errorf("%w: world.tile_size must be positive, got %d", ErrInvalidConfig, c.World.TileSize)
	}
	if c.World.ChunkSize <= 0 {
		return fmt.Errorf("%w: world.chunk_size must be positive, got %d", ErrInvalidConfig, c.World.ChunkSize)
	}
	if c.World.ChunkSize != 16 {
		return fmt.Errorf("%w: world.chunk_size %d unsupported, only 16", ErrInvalidConfig, c.World.ChunkSize)
	}
	if c.World.TickRate <= 0 {
		return fmt.Errorf("%w: world.tick_rate must be positive", ErrInvalidConfig)
	}
	if (c.World.Width > 0) != (c.World.Height > 0) {
		return fmt.Errorf("%w: world.width and world.height must be set together", ErrInvalidConfig)
	}
	if c.Player.Width <= 0 || c.Player.Height <= 0 {
		return fmt.Errorf("%w: player size must be positive", ErrInvalidConfig)
	}
	if c.Drops.PickupRadius <= 0 || c.Drops.AttractRadius <= 0 {
		return fmt.Errorf("%w: drop radii must be positive", ErrInvalidConfig)
	}
	if c.Drops.PickupRadius > c.Drops.AttractRadius {
		return fmt.Errorf("%w: drops.pickup_radius %.1f exceeds attract_radius %.1f",
			ErrInvalidConfig, c.Drops.PickupRadius, c.Drops.AttractRadius)
	}
	if c.Inventory.Size <= 0 {
		return fmt.Errorf("%w: inventory.size must be positive", ErrInvalidConfig)
	}
	for i, w := range c.Server.Webhooks {
		if w.URL == "" || len(w.Events) == 0 {
			return fmt.Errorf("%w: server.webhooks[%d] needs url and events", ErrInvalidConfig, i)
		}
	}
	switch c.Stats.Backend {
	case "", "memory", "badger", "redis", "mysql", "sqlite", "postgres", "mongo":
	default:
		return fmt.Errorf("%w: unknown stats.backend %q", ErrInvalidConfig, c.Stats.Backend)
	}
	return nil
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "GAME_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default.
// Если path == "", пытается прочитать из ENV GAME_CONFIG; без файла возвращает Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
