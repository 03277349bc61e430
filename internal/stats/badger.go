package stats

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// BadgerRecorder хранит счётчики в BadgerDB.
// Ключ: stats/<kind>/<name>, значение: uint64 big-endian.
type BadgerRecorder struct {
	db *badger.DB
}

// NewBadgerRecorder открывает базу в каталоге path. Пустой path - база в памяти.
func NewBadgerRecorder(path string) (*BadgerRecorder, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil // Отключаем логи Badger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("открытие BadgerDB: %w", err)
	}
	return &BadgerRecorder{db: db}, nil
}

func badgerPrefix(kind EventKind) []byte {
	return []byte("stats/" + string(kind) + "/")
}

// Record увеличивает счётчик в одной транзакции
func (r *BadgerRecorder) Record(ctx context.Context, kind EventKind, itemName string) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := append(badgerPrefix(kind), itemName...)

	// Конфликт транзакций повторяем
	for {
		err := r.db.Update(func(txn *badger.Txn) error {
			var n uint64
			item, err := txn.Get(key)
			switch {
			case err == badger.ErrKeyNotFound:
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					if len(val) != 8 {
						return fmt.Errorf("повреждённый счётчик %q", key)
					}
					n = binary.BigEndian.Uint64(val)
					return nil
				}); err != nil {
					return err
				}
			}
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, n+1)
			return txn.Set(key, buf)
		})
		if err == badger.ErrConflict {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("запись счётчика %s/%s: %w", kind, itemName, err)
		}
		return nil
	}
}

// Counts обходит ключи вида kind
func (r *BadgerRecorder) Counts(_ context.Context, kind EventKind) (map[string]int, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	prefix := badgerPrefix(kind)
	out := make(map[string]int)

	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := string(item.Key()[len(prefix):])
			if err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("повреждённый счётчик %q", item.Key())
				}
				out[name] = int(binary.BigEndian.Uint64(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("чтение счётчиков %s: %w", kind, err)
	}
	return out, nil
}

// Close закрывает базу данных
func (r *BadgerRecorder) Close() error {
	return r.db.Close()
}
