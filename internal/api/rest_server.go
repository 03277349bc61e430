package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/tilecraft/internal/crafting"
	"github.com/annel0/tilecraft/internal/eventbus"
	"github.com/annel0/tilecraft/internal/game"
	"github.com/annel0/tilecraft/internal/input"
	"github.com/annel0/tilecraft/internal/inventory"
	"github.com/annel0/tilecraft/internal/logging"
	"github.com/annel0/tilecraft/internal/middleware"
	"github.com/annel0/tilecraft/internal/stats"
	"github.com/annel0/tilecraft/internal/vec"
	"github.com/annel0/tilecraft/internal/world"
)

// DefaultRequestTimeout - сколько обработчик ждёт поток тика
const DefaultRequestTimeout = 2 * time.Second

// StatsReader - доступ к счётчикам разрушений и крафта
type StatsReader interface {
	Counts(ctx context.Context, kind stats.EventKind) (map[string]int, error)
}

// Registry - регистр Prometheus, из которого отдаётся /metrics
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Config содержит зависимости REST сервера
type Config struct {
	Addr     string     // адрес для запуска сервера, например ":8088"
	Loop     *game.Loop // игровой цикл
	Stats    StatsReader
	Events   *EventLog
	Webhooks *OutboundWebhookManager
	Registry Registry // nil - глобальный регистр
	Logger   *logging.Logger
	Timeout  time.Duration
}

// RestServer представляет REST API сервер
type RestServer struct {
	router   *gin.Engine
	srv      *http.Server
	loop     *game.Loop
	stats    StatsReader
	events   *EventLog
	webhooks *OutboundWebhookManager
	metrics  *ServerMetrics
	logger   *logging.Logger
	timeout  time.Duration
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetServerLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("tilecraft"))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	var reg prometheus.Registerer
	var gatherer prometheus.Gatherer
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("tilecraft", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:   router,
		loop:     cfg.Loop,
		stats:    cfg.Stats,
		events:   cfg.Events,
		webhooks: cfg.Webhooks,
		metrics:  NewServerMetrics(),
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
	}
	rs.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		worldGroup := api.Group("/world")
		worldGroup.GET("/tile", rs.handleTile)
		worldGroup.GET("/chunk/:cx/:cy", middleware.Gzip(), rs.handleChunk)

		api.GET("/player", rs.handlePlayer)
		api.GET("/inventory", rs.handleInventory)
		api.GET("/drops", rs.handleDrops)
		api.GET("/recipes", rs.handleRecipes)
		api.GET("/stats/:kind", rs.handleStats)
		api.GET("/events", rs.handleEvents)

		api.POST("/input", rs.handleInput)
		api.POST("/interact", rs.handleInteract)
		api.POST("/craft", rs.handleCraft)
		api.POST("/select", rs.handleSelect)

		api.GET("/webhooks", rs.handleGetWebhooks)
		api.POST("/webhooks", rs.handleCreateWebhook)
		api.DELETE("/webhooks/:id", rs.handleDeleteWebhook)
	}
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.srv.Addr)
	if err := rs.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop плавно останавливает REST сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.srv.Shutdown(ctx)
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, GenericResponse{Success: false, Message: msg})
}

func respondOK(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: msg, Data: data})
}

// do выполняет fn в потоке тика с таймаутом запроса
func (rs *RestServer) do(c *gin.Context, fn func(*game.Session) error) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), rs.timeout)
	defer cancel()
	return rs.loop.Do(ctx, fn)
}

// failLoop отвечает на ошибку ожидания потока тика
func failLoop(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		respondError(c, http.StatusServiceUnavailable, "Игровой цикл не отвечает")
		return
	}
	respondError(c, http.StatusInternalServerError, err.Error())
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	rss, _ := rs.metrics.GetRSS()
	cpuPct, _ := rs.metrics.GetCPUUsage()

	status := "ok"
	if !rs.loop.Running() {
		status = "stopped"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"time":           time.Now().Unix(),
		"uptime":         rs.metrics.GetUptime(),
		"tick":           rs.loop.LastTick(),
		"dropped_inputs": rs.loop.DroppedInputs(),
		"rss_mb":         rss,
		"cpu_percent":    cpuPct,
		"memory":         rs.metrics.GetDetailedMemoryStats(),
	})
}

// TileResponse описывает один тайл
type TileResponse struct {
	TX    int    `json:"tx"`
	TY    int    `json:"ty"`
	Tile  string `json:"tile"`
	Solid bool   `json:"solid"`
}

func (rs *RestServer) handleTile(c *gin.Context) {
	tx, errX := strconv.Atoi(c.Query("x"))
	ty, errY := strconv.Atoi(c.Query("y"))
	if errX != nil || errY != nil {
		respondError(c, http.StatusBadRequest, "Параметры x и y должны быть целыми")
		return
	}

	var resp TileResponse
	err := rs.do(c, func(s *game.Session) error {
		t := peekTile(s.Controller.Grid(), tx, ty)
		resp = TileResponse{TX: tx, TY: ty, Tile: t.String(), Solid: t.Solid()}
		return nil
	})
	if err != nil {
		failLoop(c, err)
		return
	}
	respondOK(c, "Тайл", resp)
}

// ChunkResponse - дамп чанка построчно сверху вниз
type ChunkResponse struct {
	CX    int        `json:"cx"`
	CY    int        `json:"cy"`
	Size  int        `json:"size"`
	Tiles [][]string `json:"tiles"`
}

func (rs *RestServer) handleChunk(c *gin.Context) {
	cx, errX := strconv.Atoi(c.Param("cx"))
	cy, errY := strconv.Atoi(c.Param("cy"))
	if errX != nil || errY != nil {
		respondError(c, http.StatusBadRequest, "Координаты чанка должны быть целыми")
		return
	}

	resp := ChunkResponse{CX: cx, CY: cy, Size: vec.ChunkSize}
	err := rs.do(c, func(s *game.Session) error {
		chunk := chunkSnapshot(s.Controller.Grid(), vec.Vec2{X: cx, Y: cy})
		resp.Tiles = make([][]string, vec.ChunkSize)
		for y, row := range chunk.Rows() {
			names := make([]string, len(row))
			for x, t := range row {
				names[x] = t.String()
			}
			resp.Tiles[y] = names
		}
		return nil
	})
	if err != nil {
		failLoop(c, err)
		return
	}
	respondOK(c, "Чанк", resp)
}

// peekTile читает тайл, не генерируя чанки по запросу клиента
func peekTile(grid world.TileGrid, tx, ty int) world.Tile {
	if src, ok := grid.(world.ChunkSource); ok {
		return src.PeekTile(tx, ty)
	}
	return grid.GetTile(tx, ty)
}

func chunkSnapshot(grid world.TileGrid, coords vec.Vec2) *world.Chunk {
	if src, ok := grid.(world.ChunkSource); ok {
		return src.ChunkSnapshot(coords)
	}
	chunk := world.NewChunk(coords)
	origin := coords.ChunkOrigin()
	for y := 0; y < vec.ChunkSize; y++ {
		for x := 0; x < vec.ChunkSize; x++ {
			chunk.Tiles[y][x] = grid.GetTile(origin.X+x, origin.Y+y)
		}
	}
	return chunk
}

func (rs *RestServer) handlePlayer(c *gin.Context) {
	var snap interface{}
	err := rs.do(c, func(s *game.Session) error {
		snap = s.Player.Snapshot()
		return nil
	})
	if err != nil {
		failLoop(c, err)
		return
	}
	respondOK(c, "Игрок", snap)
}

// SlotResponse - слот инвентаря
type SlotResponse struct {
	Index    int    `json:"index"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// InventoryResponse - содержимое хотбара
type InventoryResponse struct {
	Selected int            `json:"selected"`
	Slots    []SlotResponse `json:"slots"`
}

func inventoryResponse(inv *inventory.Inventory) InventoryResponse {
	resp := InventoryResponse{Selected: inv.Selected()}
	for i, s := range inv.Slots() {
		name := ""
		if !s.IsEmpty() {
			name = s.Item.Name()
		}
		resp.Slots = append(resp.Slots, SlotResponse{Index: i, Item: name, Quantity: s.Quantity})
	}
	return resp
}

func (rs *RestServer) handleInventory(c *gin.Context) {
	var resp InventoryResponse
	err := rs.do(c, func(s *game.Session) error {
		resp = inventoryResponse(s.Player.Inventory)
		return nil
	})
	if err != nil {
		failLoop(c, err)
		return
	}
	respondOK(c, "Инвентарь", resp)
}

// DropResponse - предмет, лежащий в мире
type DropResponse struct {
	Handle string  `json:"handle"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Item   string  `json:"item"`
	Age    int     `json:"age"`
}

func (rs *RestServer) handleDrops(c *gin.Context) {
	var resp []DropResponse
	err := rs.do(c, func(s *game.Session) error {
		for _, d := range s.Controller.Drops().Snapshot() {
			resp = append(resp, DropResponse{
				Handle: d.Handle.String(),
				X:      d.Pos.X,
				Y:      d.Pos.Y,
				Item:   d.Item.Name(),
				Age:    d.Age,
			})
		}
		return nil
	})
	if err != nil {
		failLoop(c, err)
		return
	}
	respondOK(c, "Предметы в мире", gin.H{"drops": resp, "total": len(resp)})
}

func (rs *RestServer) handleRecipes(c *gin.Context) {
	var recipes []crafting.Recipe
	craftable := make(map[string]bool)
	err := rs.do(c, func(s *game.Session) error {
		book := s.Controller.Book()
		recipes = book.Recipes()
		for _, r := range recipes {
			craftable[r.ID] = book.CanCraft(s.Player.Inventory, r.ID)
		}
		return nil
	})
	if err != nil {
		failLoop(c, err)
		return
	}

	out := make([]gin.H, 0, len(recipes))
	for _, r := range recipes {
		inputs := make(map[string]int, len(r.Inputs))
		for _, in := range r.Inputs {
			inputs[in.Kind.String()] = in.Count
		}
		out = append(out, gin.H{
			"id":        r.ID,
			"inputs":    inputs,
			"output":    r.Output.String(),
			"count":     r.Count,
			"craftable": craftable[r.ID],
		})
	}
	respondOK(c, "Рецепты", out)
}

func (rs *RestServer) handleStats(c *gin.Context) {
	if rs.stats == nil {
		respondError(c, http.StatusNotFound, "Статистика отключена")
		return
	}
	kind, err := stats.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	counts, err := rs.stats.Counts(c.Request.Context(), kind)
	if err != nil {
		rs.logger.Warn("Чтение статистики %s: %v", kind, err)
		respondError(c, http.StatusInternalServerError, "Хранилище статистики недоступно")
		return
	}
	respondOK(c, "Статистика получена", gin.H{"kind": kind, "counts": counts, "items": stats.SortedNames(counts)})
}

func (rs *RestServer) handleEvents(c *gin.Context) {
	if rs.events == nil {
		respondError(c, http.StatusNotFound, "Журнал событий отключен")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	evs := rs.events.Recent(c.Query("type"), limit)

	out := make([]gin.H, 0, len(evs))
	for i := range evs {
		payload, err := eventbus.DecodeWorldEvent(&evs[i])
		if err != nil {
			continue
		}
		out = append(out, gin.H{
			"id":        evs[i].ID,
			"type":      evs[i].EventType,
			"timestamp": evs[i].Timestamp,
			"data":      payload,
		})
	}
	respondOK(c, "События", gin.H{"events": out, "total": rs.events.Total()})
}

// InputRequest - нажатие или отпускание логической клавиши
type InputRequest struct {
	Key  string `json:"key" binding:"required"`
	Down bool   `json:"down"`
}

func (rs *RestServer) handleInput(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	key, found := input.ParseKey(req.Key)
	if !found {
		respondError(c, http.StatusBadRequest, "Неизвестная клавиша "+req.Key)
		return
	}
	rs.queue(c, input.KeyEvent{Key: key, Down: req.Down})
}

// InteractRequest - клик по пиксельной точке мира
type InteractRequest struct {
	X    *float64 `json:"x" binding:"required"`
	Y    *float64 `json:"y" binding:"required"`
	Mode string   `json:"mode" binding:"required"`
}

func (rs *RestServer) handleInteract(c *gin.Context) {
	var req InteractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	mode, found := world.ParseMode(req.Mode)
	if !found {
		respondError(c, http.StatusBadRequest, "Неизвестный режим "+req.Mode)
		return
	}
	button := input.ButtonLeft
	if mode == world.ModePlace {
		button = input.ButtonRight
	}
	// Результат попадёт в отчёт ближайшего тика и в события мира
	rs.queue(c, input.PointerEvent{X: *req.X, Y: *req.Y, Button: button})
}

func (rs *RestServer) queue(c *gin.Context, ev input.Event) {
	if err := rs.loop.Input(ev); err != nil {
		respondError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Событие поставлено в очередь"})
}

// CraftRequest - выполнение рецепта
type CraftRequest struct {
	Recipe string `json:"recipe" binding:"required"`
}

func (rs *RestServer) handleCraft(c *gin.Context) {
	var req CraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	var resp InventoryResponse
	err := rs.do(c, func(s *game.Session) error {
		if err := s.Controller.Craft(s.Player, req.Recipe); err != nil {
			return err
		}
		resp = inventoryResponse(s.Player.Inventory)
		return nil
	})
	switch {
	case err == nil:
		respondOK(c, "Предмет создан", resp)
	case errors.Is(err, crafting.ErrUnknownRecipe):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, crafting.ErrMissingInputs), errors.Is(err, crafting.ErrNoSpace):
		respondError(c, http.StatusConflict, err.Error())
	default:
		failLoop(c, err)
	}
}

// SelectRequest - выбор слота хотбара (с нуля)
type SelectRequest struct {
	Slot *int `json:"slot" binding:"required"`
}

func (rs *RestServer) handleSelect(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}

	var resp InventoryResponse
	err := rs.do(c, func(s *game.Session) error {
		if err := s.Player.Inventory.Select(*req.Slot); err != nil {
			return err
		}
		resp = inventoryResponse(s.Player.Inventory)
		return nil
	})
	switch {
	case err == nil:
		respondOK(c, "Слот выбран", resp)
	case errors.Is(err, inventory.ErrInvalidSlot):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		failLoop(c, err)
	}
}

// === ИСХОДЯЩИЕ WEBHOOK'И ===

func (rs *RestServer) handleGetWebhooks(c *gin.Context) {
	if rs.webhooks == nil {
		respondError(c, http.StatusNotFound, "Webhook'и отключены")
		return
	}
	hooks := rs.webhooks.GetWebhooks()
	respondOK(c, "Список webhook'ов получен", gin.H{"webhooks": hooks, "total": len(hooks)})
}

func (rs *RestServer) handleCreateWebhook(c *gin.Context) {
	if rs.webhooks == nil {
		respondError(c, http.StatusNotFound, "Webhook'и отключены")
		return
	}
	var w OutboundWebhook
	if err := c.ShouldBindJSON(&w); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат webhook'а: "+err.Error())
		return
	}
	if len(w.Events) == 0 {
		respondError(c, http.StatusBadRequest, "Обязательные поля: name, url, events")
		return
	}
	created := rs.webhooks.AddWebhook(w)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Webhook создан успешно", Data: created})
}

func (rs *RestServer) handleDeleteWebhook(c *gin.Context) {
	if rs.webhooks == nil {
		respondError(c, http.StatusNotFound, "Webhook'и отключены")
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Неверный ID webhook'а")
		return
	}
	if !rs.webhooks.DeleteWebhook(id) {
		respondError(c, http.StatusNotFound, "Webhook не найден")
		return
	}
	respondOK(c, "Webhook удален успешно", nil)
}
