package stats

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ItemCounter - строка счётчика в PostgreSQL
type ItemCounter struct {
	Kind  string `gorm:"primaryKey;size:16"`
	Item  string `gorm:"primaryKey;size:64"`
	Count int    `gorm:"not null;default:0"`
}

// TableName фиксирует имя таблицы счётчиков
func (ItemCounter) TableName() string { return "item_counters" }

// GormRecorder хранит счётчики в PostgreSQL через gorm
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder открывает PostgreSQL по dsn и создаёт таблицу счётчиков
func NewGormRecorder(ctx context.Context, dsn string) (*GormRecorder, error) {
	if dsn == "" {
		return nil, errors.New("stats.dsn обязателен для postgres")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newGormRecorder(ctx, db)
}

func newGormRecorder(ctx context.Context, db *gorm.DB) (*GormRecorder, error) {
	if err := db.WithContext(ctx).AutoMigrate(&ItemCounter{}); err != nil {
		return nil, fmt.Errorf("migrate item_counters: %w", err)
	}
	return &GormRecorder{db: db}, nil
}

// Record увеличивает счётчик одним upsert
func (r *GormRecorder) Record(ctx context.Context, kind EventKind, itemName string) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	row := ItemCounter{Kind: string(kind), Item: itemName, Count: 1}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "item"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("item_counters.count + 1")}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", kind, itemName, err)
	}
	return nil
}

// Counts читает все счётчики вида kind
func (r *GormRecorder) Counts(ctx context.Context, kind EventKind) (map[string]int, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	var rows []ItemCounter
	if err := r.db.WithContext(ctx).Where(&ItemCounter{Kind: string(kind)}).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Item] = row.Count
	}
	return out, nil
}

// Close закрывает пул соединений
func (r *GormRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
