package stats

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect определяет SQL-диалект хранилища
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// SQLRecorder пишет одну строку на событие в таблицы destroyed_items / crafted_items
// и считает их через GROUP BY.
type SQLRecorder struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRecorder открывает базу и создаёт таблицы.
// Для sqlite dsn - путь к файлу, пустой путь - база в памяти.
func NewSQLRecorder(ctx context.Context, dialect Dialect, dsn string) (*SQLRecorder, error) {
	var driver string
	switch dialect {
	case DialectMySQL:
		driver = "mysql"
		if dsn == "" {
			return nil, fmt.Errorf("пустой DSN для mysql")
		}
	case DialectSQLite:
		driver = "sqlite"
		if dsn == "" {
			dsn = ":memory:"
		}
	default:
		return nil, fmt.Errorf("%w: sql dialect %q", ErrUnknownBackend, dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия %s: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// Один писатель, иначе SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к %s: %w", driver, err)
	}

	r := &SQLRecorder{db: db, dialect: dialect}
	if err := r.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func tableFor(kind EventKind) (string, error) {
	switch kind {
	case KindDestroyed:
		return "destroyed_items", nil
	case KindCrafted:
		return "crafted_items", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// createTables создаёт таблицы, если их нет
func (r *SQLRecorder) createTables(ctx context.Context) error {
	for _, kind := range Kinds() {
		table, _ := tableFor(kind)
		var query string
		if r.dialect == DialectMySQL {
			query = fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id BIGINT AUTO_INCREMENT PRIMARY KEY,
					name VARCHAR(64) NOT NULL,
					timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					INDEX idx_name (name)
				)`, table)
		} else {
			query = fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
				)`, table)
		}
		if _, err := r.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("ошибка создания таблицы %s: %w", table, err)
		}
	}
	return nil
}

// Record добавляет строку события
func (r *SQLRecorder) Record(ctx context.Context, kind EventKind, itemName string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", table)
	if _, err := r.db.ExecContext(ctx, query, itemName); err != nil {
		return fmt.Errorf("ошибка записи в %s: %w", table, err)
	}
	return nil
}

// Counts группирует строки по имени
func (r *SQLRecorder) Counts(ctx context.Context, kind EventKind) (map[string]int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT name, COUNT(*) FROM %s GROUP BY name", table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("ошибка разбора %s: %w", table, err)
		}
		out[name] = n
	}
	return out, rows.Err()
}

// Dialect возвращает диалект хранилища
func (r *SQLRecorder) Dialect() Dialect {
	return r.dialect
}

// Close закрывает соединение с базой
func (r *SQLRecorder) Close() error {
	return r.db.Close()
}
