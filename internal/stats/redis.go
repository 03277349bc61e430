package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

// RedisRecorder хранит счётчики в хешах Redis (ключ stats:<kind>, поле - имя предмета)
type RedisRecorder struct {
	client *redis.Client
}

// NewRedisRecorder подключается к Redis и проверяет соединение
func NewRedisRecorder(ctx context.Context, addr, password string, db int) (*RedisRecorder, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	return &RedisRecorder{client: client}, nil
}

func redisKey(kind EventKind) string {
	return "stats:" + string(kind)
}

// Record увеличивает поле хеша через HINCRBY
func (r *RedisRecorder) Record(ctx context.Context, kind EventKind, itemName string) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	if err := r.client.HIncrBy(ctx, redisKey(kind), itemName, 1).Err(); err != nil {
		return fmt.Errorf("HINCRBY %s %s: %w", redisKey(kind), itemName, err)
	}
	return nil
}

// Counts читает весь хеш вида kind
func (r *RedisRecorder) Counts(ctx context.Context, kind EventKind) (map[string]int, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	raw, err := r.client.HGetAll(ctx, redisKey(kind)).Result()
	if err == redis.Nil {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("HGETALL %s: %w", redisKey(kind), err)
	}

	out := make(map[string]int, len(raw))
	for name, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("счётчик %s/%s: %w", kind, name, err)
		}
		out[name] = n
	}
	return out, nil
}

// Close закрывает соединение с Redis
func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
