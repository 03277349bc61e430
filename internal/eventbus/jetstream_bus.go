package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// Раскладка subject'ов: world.<source>.<event_type>
const (
	subjectRoot     = "world"
	subjectAll      = subjectRoot + ".>"
	defaultStream   = "WORLD"
	ackWait         = 30 * time.Second
	dedupeWindow    = 2 * time.Minute
	headerEventType = "Tilecraft-Event"
)

// ErrInvalidEnvelope - конверт нельзя отправить в JetStream
var ErrInvalidEnvelope = errors.New("invalid envelope")

// JetStreamBus реализует EventBus поверх NATS JetStream.
// Каждое событие мира - отдельное сообщение в стриме WORLD.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим событий мира,
// если его ещё нет. retention <= 0 - хранить без ограничения по времени.
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = defaultStream
	}

	nc, err := nats.Connect(url, nats.Name("tilecraft"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       stream,
			Subjects:   []string{subjectAll},
			Retention:  nats.LimitsPolicy,
			MaxAge:     retention,
			Storage:    nats.FileStorage,
			Duplicates: dedupeWindow,
		})
		if err != nil {
			nc.Drain()
			return nil, fmt.Errorf("add stream %s: %w", stream, err)
		}
	}

	return &JetStreamBus{nc: nc, js: js, stream: stream}, nil
}

// validToken проверяет часть subject'а: без точек, пробелов и шаблонов
func validToken(part string) bool {
	return part != "" && !strings.ContainsAny(part, ". *>\t")
}

// worldSubject строит subject события
func worldSubject(source, eventType string) (string, error) {
	for _, part := range []string{source, eventType} {
		if !validToken(part) {
			return "", fmt.Errorf("%w: bad subject token %q", ErrInvalidEnvelope, part)
		}
	}
	return subjectRoot + "." + source + "." + eventType, nil
}

// filterSubject сужает подписку на стороне сервера, если фильтр
// задаёт ровно один источник и/или тип; остальное проверяет matchFilter
func filterSubject(f Filter) string {
	source, eventType := "*", "*"
	if len(f.Sources) == 1 && validToken(f.Sources[0]) {
		source = f.Sources[0]
	}
	if len(f.Types) == 1 && validToken(f.Types[0]) {
		eventType = f.Types[0]
	}
	if source == "*" && eventType == "*" {
		return subjectAll
	}
	return subjectRoot + "." + source + "." + eventType
}

// Publish отправляет конверт в world.<source>.<type>. ID конверта служит
// ключом дедупликации JetStream: повтор после сбоя сети не задвоит событие.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	if ev == nil || ev.ID == "" {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("%w: missing id", ErrInvalidEnvelope)
	}
	subj, err := worldSubject(ev.Source, ev.EventType)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := nats.NewMsg(subj)
	msg.Data = data
	msg.Header.Set(headerEventType, ev.EventType)
	if _, err := jb.js.PublishMsg(msg, nats.MsgId(ev.ID), nats.Context(ctx)); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe создаёт эфемерный consumer: он удаляется вместе с подпиской.
// Нечитаемые сообщения завершаются Term и не доставляются повторно.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := filterSubject(f)

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		ev, err := decodeEnvelope(msg.Data)
		if err != nil {
			atomic.AddUint64(&jb.dropped, 1)
			_ = msg.Term()
			return
		}
		if matchFilter(ev, f) {
			h(ctx, ev)
			atomic.AddUint64(&jb.consumed, 1)
		}
		_ = msg.Ack()
	}, nats.BindStream(jb.stream), nats.ManualAck(), nats.AckWait(ackWait))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}

	return &jetSub{natSub}, nil
}

// decodeEnvelope разбирает сообщение стрима и проверяет обязательные поля
func decodeEnvelope(data []byte) (*Envelope, error) {
	var ev Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if ev.ID == "" || ev.EventType == "" {
		return nil, fmt.Errorf("%w: missing id or event_type", ErrInvalidEnvelope)
	}
	return &ev, nil
}

type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
	}
}

// Close дожидается отправки буферов и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
