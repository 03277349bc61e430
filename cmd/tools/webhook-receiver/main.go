package main

import (
	"crypto/hmac"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/tilecraft/internal/api"
)

func main() {
	addr := flag.String("addr", ":3000", "Listen address")
	secret := flag.String("secret", "", "Shared secret for X-Webhook-Signature (empty - skip check)")
	flag.Parse()

	log.Println("🔗 Запуск тестового Webhook приемника...")

	gin.SetMode(gin.ReleaseMode)
	r := newRouter(*secret)

	log.Printf("✅ Webhook приемник запущен на %s", *addr)
	log.Println("📋 Доступные эндпоинты:")
	log.Println("   GET  /         - Информация о сервере")
	log.Println("   POST /webhook  - События мира tilecraft")

	if err := r.Run(*addr); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

func newRouter(secret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Middleware для логирования
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %d %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
		)
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":     "Webhook приемник запущен",
			"endpoints":   []string{"/webhook"},
			"signed":      secret != "",
			"server_time": time.Now().Unix(),
		})
	})
	r.POST("/webhook", func(c *gin.Context) { handleWebhook(c, secret) })
	return r
}

// handleWebhook проверяет подпись и печатает событие мира
func handleWebhook(c *gin.Context, secret string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("❌ Ошибка чтения тела запроса: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка чтения запроса"})
		return
	}

	if secret != "" {
		want := api.SignPayload(body, secret)
		if !hmac.Equal([]byte(want), []byte(c.GetHeader("X-Webhook-Signature"))) {
			log.Printf("🚨 Неверная подпись webhook")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверная подпись"})
			return
		}
	}

	var event api.OutboundWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("❌ Ошибка парсинга JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный JSON"})
		return
	}

	d := event.Data
	log.Printf("📧 [%s] %s от %s (tick %d)", time.Unix(event.Timestamp, 0).Format("15:04:05"), event.EventType, event.Source, d.Tick)
	switch event.EventType {
	case "tile_broken":
		log.Printf("⛏️  Игрок %d сломал %s в (%d,%d), выпал %s", d.PlayerID, d.Tile, d.TX, d.TY, d.Item)
	case "tile_placed":
		log.Printf("🧱 Игрок %d поставил %s в (%d,%d)", d.PlayerID, d.Tile, d.TX, d.TY)
	case "item_picked_up":
		log.Printf("🎒 Игрок %d подобрал %s", d.PlayerID, d.Item)
	case "item_crafted":
		log.Printf("🔨 Игрок %d скрафтил %s по рецепту %s", d.PlayerID, d.Item, d.Recipe)
	case "player_respawned":
		log.Printf("💀 Игрок %d возрождён", d.PlayerID)
	case "interaction_rejected":
		log.Printf("🚫 Игроку %d отказано в (%d,%d): %s", d.PlayerID, d.TX, d.TY, d.Reason)
	default:
		log.Printf("ℹ️  Неизвестное событие: %s", event.EventType)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "received",
		"event_type":  event.EventType,
		"received_at": time.Now().Unix(),
	})
}
