package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/annel0/tilecraft/internal/config"
	"github.com/annel0/tilecraft/internal/eventbus"
	"github.com/annel0/tilecraft/internal/logging"
)

// OutboundWebhook представляет исходящий webhook
type OutboundWebhook struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name" binding:"required"`
	URL          string     `json:"url" binding:"required"`
	Secret       string     `json:"secret,omitempty"`
	Events       []string   `json:"events" binding:"required"` // События, на которые подписан
	Active       bool       `json:"active"`
	Timeout      int        `json:"timeout"` // Таймаут в секундах
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	FailureCount int        `json:"failure_count"`
}

// OutboundWebhookEvent - тело запроса к webhook'у
type OutboundWebhookEvent struct {
	ID        string                     `json:"id"`
	EventType string                     `json:"event_type"`
	Timestamp int64                      `json:"timestamp"`
	Source    string                     `json:"source"`
	Data      eventbus.WorldEventPayload `json:"data"`
}

// OutboundWebhookManager пересылает события мира из шины подписанным webhook'ам
type OutboundWebhookManager struct {
	webhooks   map[uint64]*OutboundWebhook
	eventQueue chan OutboundWebhookEvent
	mu         sync.RWMutex
	nextID     uint64
	httpClient *http.Client
	logger     *logging.Logger
	retryDelay time.Duration

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewOutboundWebhookManager создает менеджер и запускает воркер очереди
func NewOutboundWebhookManager(logger *logging.Logger) *OutboundWebhookManager {
	if logger == nil {
		logger = logging.GetServerLogger()
	}
	m := &OutboundWebhookManager{
		webhooks:   make(map[uint64]*OutboundWebhook),
		eventQueue: make(chan OutboundWebhookEvent, 1000),
		nextID:     1,
		httpClient: &http.Client{},
		logger:     logger,
		retryDelay: time.Second,
		quit:       make(chan struct{}),
	}

	m.wg.Add(1)
	go m.eventWorker()
	return m
}

// LoadConfig регистрирует webhook'и из конфигурации
func (m *OutboundWebhookManager) LoadConfig(hooks []config.WebhookConfig) {
	for _, h := range hooks {
		m.AddWebhook(OutboundWebhook{
			Name:       h.Name,
			URL:        h.URL,
			Secret:     h.Secret,
			Events:     h.Events,
			Timeout:    h.Timeout,
			RetryCount: h.Retries,
		})
	}
}

// Attach подписывает менеджер на события мира в шине
func (m *OutboundWebhookManager) Attach(ctx context.Context, bus eventbus.EventBus) (eventbus.Subscription, error) {
	return bus.Subscribe(ctx, eventbus.Filter{Sources: []string{eventbus.SourceWorld}}, func(_ context.Context, env *eventbus.Envelope) {
		payload, err := eventbus.DecodeWorldEvent(env)
		if err != nil {
			m.logger.Warn("webhook: %v", err)
			return
		}
		m.Enqueue(OutboundWebhookEvent{
			ID:        env.ID,
			EventType: env.EventType,
			Timestamp: env.Timestamp.Unix(),
			Source:    env.Source,
			Data:      payload,
		})
	})
}

// AddWebhook добавляет новый webhook
func (m *OutboundWebhookManager) AddWebhook(webhook OutboundWebhook) *OutboundWebhook {
	m.mu.Lock()
	defer m.mu.Unlock()

	webhook.ID = m.nextID
	m.nextID++
	webhook.CreatedAt = time.Now()
	webhook.Active = true

	if webhook.Timeout <= 0 {
		webhook.Timeout = 10
	}
	if webhook.RetryCount < 0 {
		webhook.RetryCount = 0
	}

	m.webhooks[webhook.ID] = &webhook
	out := webhook
	return &out
}

// GetWebhooks возвращает копии всех webhook'ов по возрастанию ID
func (m *OutboundWebhookManager) GetWebhooks() []OutboundWebhook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]OutboundWebhook, 0, len(m.webhooks))
	for _, w := range m.webhooks {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetWebhook возвращает копию webhook'а по ID
func (m *OutboundWebhookManager) GetWebhook(id uint64) (OutboundWebhook, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.webhooks[id]
	if !ok {
		return OutboundWebhook{}, false
	}
	return *w, true
}

// DeleteWebhook удаляет webhook
func (m *OutboundWebhookManager) DeleteWebhook(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.webhooks[id]; !ok {
		return false
	}
	delete(m.webhooks, id)
	return true
}

// Enqueue ставит событие в очередь отправки без блокировки
func (m *OutboundWebhookManager) Enqueue(event OutboundWebhookEvent) {
	select {
	case m.eventQueue <- event:
	default:
		m.logger.Warn("⚠️  Очередь webhook'ов переполнена, событие %s пропущено", event.EventType)
	}
}

// Close останавливает воркер; неотправленные события теряются
func (m *OutboundWebhookManager) Close() {
	close(m.quit)
	m.wg.Wait()
}

func (m *OutboundWebhookManager) eventWorker() {
	defer m.wg.Done()
	for {
		select {
		case event := <-m.eventQueue:
			m.processEvent(event)
		case <-m.quit:
			return
		}
	}
}

// processEvent отправляет событие всем подписанным webhook'ам по очереди
func (m *OutboundWebhookManager) processEvent(event OutboundWebhookEvent) {
	m.mu.RLock()
	targets := make([]OutboundWebhook, 0)
	for _, w := range m.webhooks {
		if w.Active && isSubscribedToEvent(w, event.EventType) {
			targets = append(targets, *w)
		}
	}
	m.mu.RUnlock()

	for _, w := range targets {
		ok := m.sendToWebhook(w, event)

		m.mu.Lock()
		if stored, exists := m.webhooks[w.ID]; exists {
			now := time.Now()
			stored.LastUsed = &now
			if !ok {
				stored.FailureCount++
			}
		}
		m.mu.Unlock()
	}
}

func isSubscribedToEvent(w *OutboundWebhook, eventType string) bool {
	for _, e := range w.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

// sendToWebhook отправляет событие с повторами; true при ответе 2xx
func (m *OutboundWebhookManager) sendToWebhook(w OutboundWebhook, event OutboundWebhookEvent) bool {
	body, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("❌ Ошибка маршалинга события для webhook %s: %v", w.Name, err)
		return false
	}

	for attempt := 0; attempt <= w.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * m.retryDelay):
			case <-m.quit:
				return false
			}
		}
		err := m.post(w, event.EventType, body)
		if err == nil {
			m.logger.Debug("✅ Событие %s отправлено в webhook %s", event.EventType, w.Name)
			return true
		}
		m.logger.Warn("⚠️  Попытка %d/%d для webhook %s: %v", attempt+1, w.RetryCount+1, w.Name, err)
	}
	return false
}

func (m *OutboundWebhookManager) post(w OutboundWebhook, eventType string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(w.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tilecraft/1.0")
	req.Header.Set("X-Event-Type", eventType)
	if w.Secret != "" {
		req.Header.Set("X-Webhook-Signature", SignPayload(body, w.Secret))
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// SignPayload генерирует HMAC подпись тела запроса
func SignPayload(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
