package stats

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilecraft/internal/config"
	"github.com/annel0/tilecraft/internal/logging"
)

// exerciseRecorder прогоняет общий сценарий для любого хранилища
func exerciseRecorder(t *testing.T, rec Recorder) {
	t.Helper()
	ctx := context.Background()

	empty, err := rec.Counts(ctx, KindDestroyed)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, name := range []string{"grass", "dirt", "grass", "stone", "grass"} {
		require.NoError(t, rec.Record(ctx, KindDestroyed, name))
	}
	require.NoError(t, rec.Record(ctx, KindCrafted, "pickaxe"))

	destroyed, err := rec.Counts(ctx, KindDestroyed)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"grass": 3, "dirt": 1, "stone": 1}, destroyed)

	crafted, err := rec.Counts(ctx, KindCrafted)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pickaxe": 1}, crafted)

	assert.ErrorIs(t, rec.Record(ctx, EventKind("eaten"), "apple"), ErrUnknownKind)
	_, err = rec.Counts(ctx, EventKind("eaten"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMemoryRecorder(t *testing.T) {
	rec := NewMemoryRecorder()
	exerciseRecorder(t, rec)
	require.NoError(t, rec.Close())
	assert.ErrorIs(t, rec.Record(context.Background(), KindCrafted, "dirt"), ErrClosed)
}

func TestBadgerRecorder_InMemory(t *testing.T) {
	rec, err := NewBadgerRecorder("")
	require.NoError(t, err)
	defer rec.Close()
	exerciseRecorder(t, rec)
}

func TestBadgerRecorder_Persists(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewBadgerRecorder(dir)
	require.NoError(t, err)
	require.NoError(t, rec.Record(context.Background(), KindCrafted, "dirt"))
	require.NoError(t, rec.Close())

	rec, err = NewBadgerRecorder(dir)
	require.NoError(t, err)
	defer rec.Close()
	counts, err := rec.Counts(context.Background(), KindCrafted)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["dirt"])
}

func TestSQLRecorder_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stats.db")
	rec, err := NewSQLRecorder(ctx, DialectSQLite, path)
	require.NoError(t, err)
	exerciseRecorder(t, rec)
	require.NoError(t, rec.Close())

	// Повторное открытие не пересоздаёт таблицы
	rec, err = NewSQLRecorder(ctx, DialectSQLite, path)
	require.NoError(t, err)
	defer rec.Close()
	counts, err := rec.Counts(ctx, KindDestroyed)
	require.NoError(t, err)
	assert.Equal(t, 3, counts["grass"])
	assert.Equal(t, DialectSQLite, rec.Dialect())
}

func TestSQLRecorder_MySQL(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN не задан")
	}
	rec, err := NewSQLRecorder(context.Background(), DialectMySQL, dsn)
	require.NoError(t, err)
	defer rec.Close()

	before, err := rec.Counts(context.Background(), KindCrafted)
	require.NoError(t, err)
	require.NoError(t, rec.Record(context.Background(), KindCrafted, "pickaxe"))
	after, err := rec.Counts(context.Background(), KindCrafted)
	require.NoError(t, err)
	assert.Equal(t, before["pickaxe"]+1, after["pickaxe"])
}

func TestGormRecorder_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN не задан")
	}
	ctx := context.Background()
	rec, err := NewGormRecorder(ctx, dsn)
	require.NoError(t, err)
	defer rec.Close()
	require.NoError(t, rec.db.Exec("DELETE FROM item_counters").Error)
	exerciseRecorder(t, rec)
}

func TestMongoRecorder(t *testing.T) {
	uri := os.Getenv("STATS_MONGO_URI")
	if uri == "" {
		t.Skip("STATS_MONGO_URI не задан")
	}
	ctx := context.Background()
	rec, err := NewMongoRecorder(ctx, uri, "tilecraft_test")
	require.NoError(t, err)
	defer rec.Close()
	require.NoError(t, rec.collection.Drop(ctx))
	exerciseRecorder(t, rec)

	var doc counterDoc
	require.NoError(t, rec.collection.FindOne(ctx, map[string]string{"_id": "destroyed/grass"}).Decode(&doc))
	assert.Equal(t, counterDoc{ID: "destroyed/grass", Kind: "destroyed", Item: "grass", Count: 3}, doc)
}

func TestRedisRecorder(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR не задан")
	}
	ctx := context.Background()
	rec, err := NewRedisRecorder(ctx, addr, "", 15)
	require.NoError(t, err)
	defer rec.Close()
	require.NoError(t, rec.client.FlushDB(ctx).Err())
	exerciseRecorder(t, rec)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	rec, err := Open(ctx, config.StatsConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryRecorder{}, rec)

	rec, err = Open(ctx, config.StatsConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLRecorder{}, rec)
	require.NoError(t, rec.Close())

	_, err = Open(ctx, config.StatsConfig{Backend: "cassandra"})
	assert.True(t, errors.Is(err, ErrUnknownBackend))

	_, err = Open(ctx, config.StatsConfig{Backend: "mongo"})
	assert.Error(t, err, "mongo без URI")

	_, err = Open(ctx, config.StatsConfig{Backend: "mysql"})
	assert.Error(t, err, "mysql без DSN")

	_, err = Open(ctx, config.StatsConfig{Backend: "postgres"})
	assert.Error(t, err, "postgres без DSN")
}

// failingRecorder отклоняет все записи
type failingRecorder struct {
	*MemoryRecorder
	calls int
	mu    sync.Mutex
}

func (f *failingRecorder) Record(context.Context, EventKind, string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.New("disk full")
}

// blockingRecorder держит запись до закрытия release
type blockingRecorder struct {
	*MemoryRecorder
	release chan struct{}
}

func (b *blockingRecorder) Record(ctx context.Context, kind EventKind, name string) error {
	<-b.release
	return b.MemoryRecorder.Record(ctx, kind, name)
}

func quietLogger() *logging.Logger {
	return logging.NewWriterLogger("stats-test", io.Discard, logging.ERROR)
}

func TestHook_WritesAsynchronously(t *testing.T) {
	rec := NewMemoryRecorder()
	hook := NewHook(rec, 8, quietLogger())

	hook.ItemDestroyed("grass")
	hook.ItemDestroyed("grass")
	hook.ItemCrafted("pickaxe")
	require.NoError(t, hook.Close())

	counts, err := hook.Recorder().Counts(context.Background(), KindDestroyed)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["grass"])
	assert.Equal(t, uint64(3), hook.Written())
	assert.Zero(t, hook.Dropped())

	// После закрытия события отбрасываются без паники
	hook.ItemCrafted("dirt")
	assert.Equal(t, uint64(1), hook.Dropped())
	assert.NoError(t, hook.Close())
}

func TestHook_SwallowsFailures(t *testing.T) {
	rec := &failingRecorder{MemoryRecorder: NewMemoryRecorder()}
	hook := NewHook(rec, 4, quietLogger())

	assert.NotPanics(t, func() {
		hook.ItemDestroyed("stone")
		hook.ItemCrafted("dirt")
	})
	require.NoError(t, hook.Close())
	assert.Equal(t, uint64(2), hook.Failed())
	assert.Zero(t, hook.Written())
}

func TestHook_OverflowNeverBlocks(t *testing.T) {
	rec := &blockingRecorder{MemoryRecorder: NewMemoryRecorder(), release: make(chan struct{})}
	hook := NewHook(rec, 2, quietLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hook.ItemDestroyed("dirt")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("вызов хука заблокировал вызывающего")
	}

	close(rec.release)
	require.NoError(t, hook.Close())
	assert.Equal(t, uint64(10), hook.Written()+hook.Dropped())
	assert.GreaterOrEqual(t, hook.Dropped(), uint64(7))
}

func TestSortedNames(t *testing.T) {
	names := SortedNames(map[string]int{"dirt": 2, "grass": 5, "stone": 2})
	assert.Equal(t, []string{"grass", "dirt", "stone"}, names)
}
