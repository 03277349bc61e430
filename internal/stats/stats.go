// Package stats хранит счётчики разрушенных и скрафченных предметов.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/tilecraft/internal/config"
)

// EventKind - вид учитываемого события
type EventKind string

const (
	KindDestroyed EventKind = "destroyed"
	KindCrafted   EventKind = "crafted"
)

var (
	ErrUnknownKind    = errors.New("unknown stats kind")
	ErrUnknownBackend = errors.New("unknown stats backend")
	ErrClosed         = errors.New("recorder closed")
)

// ParseKind разбирает имя вида события
func ParseKind(s string) (EventKind, error) {
	switch EventKind(s) {
	case KindDestroyed, KindCrafted:
		return EventKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Kinds возвращает все виды событий
func Kinds() []EventKind {
	return []EventKind{KindDestroyed, KindCrafted}
}

// Recorder определяет интерфейс хранилища счётчиков.
//
// Record увеличивает счётчик itemName для вида kind на единицу.
// Counts возвращает все счётчики вида kind; пустое хранилище даёт пустую карту.
type Recorder interface {
	Record(ctx context.Context, kind EventKind, itemName string) error
	Counts(ctx context.Context, kind EventKind) (map[string]int, error)
	Close() error
}

// Open создаёт хранилище по cfg.Backend
func Open(ctx context.Context, cfg config.StatsConfig) (Recorder, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryRecorder(), nil
	case "badger":
		return NewBadgerRecorder(cfg.Path)
	case "redis":
		return NewRedisRecorder(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	case "mysql":
		return NewSQLRecorder(ctx, DialectMySQL, cfg.DSN)
	case "sqlite":
		return NewSQLRecorder(ctx, DialectSQLite, cfg.Path)
	case "postgres":
		return NewGormRecorder(ctx, cfg.DSN)
	case "mongo":
		return NewMongoRecorder(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// MemoryRecorder - потокобезопасное хранилище в памяти
type MemoryRecorder struct {
	mu     sync.RWMutex
	counts map[EventKind]map[string]int
	closed bool
}

// NewMemoryRecorder создаёт пустое хранилище в памяти
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counts: make(map[EventKind]map[string]int)}
}

// Record увеличивает счётчик
func (m *MemoryRecorder) Record(_ context.Context, kind EventKind, itemName string) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	byName, ok := m.counts[kind]
	if !ok {
		byName = make(map[string]int)
		m.counts[kind] = byName
	}
	byName[itemName]++
	return nil
}

// Counts возвращает копию счётчиков
func (m *MemoryRecorder) Counts(_ context.Context, kind EventKind) (map[string]int, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.counts[kind]))
	for name, n := range m.counts[kind] {
		out[name] = n
	}
	return out, nil
}

func (m *MemoryRecorder) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// SortedNames возвращает имена счётчиков по убыванию количества, затем по имени
func SortedNames(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
