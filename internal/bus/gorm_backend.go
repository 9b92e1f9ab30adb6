package bus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type eventLogModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	EventID       string         `gorm:"column:event_uuid;index"`
	Topic         string         `gorm:"column:topic;index"`
	Payload       datatypes.JSON `gorm:"column:payload"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (eventLogModel) TableName() string { return "event_log" }

// GormBackend is the SQLite-backed durable event log.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend opens (and migrates) the event log database at path.
func NewGormBackend(path string) (*GormBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("event log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewGormBackendFromDB(db)
}

// NewGormBackendFromDB wraps an already opened gorm handle.
func NewGormBackendFromDB(db *gorm.DB) (*GormBackend, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	if err := db.AutoMigrate(&eventLogModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &GormBackend{db: db}, nil
}

// Append inserts one event row and returns its assigned id.
func (b *GormBackend) Append(ctx context.Context, topic string, payload []byte) (string, error) {
	if b == nil || b.db == nil {
		return "", fmt.Errorf("event log not initialized")
	}
	model := eventLogModel{
		EventID:       uuid.NewString(),
		Topic:         topic,
		Payload:       datatypes.JSON(payload),
		CreatedAtUnix: time.Now().UTC().UnixMilli(),
	}
	if err := b.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", err
	}
	return model.EventID, nil
}

// Tail returns up to count payloads for the topic, newest first.
func (b *GormBackend) Tail(ctx context.Context, topic string, count int) ([][]byte, error) {
	if b == nil || b.db == nil {
		return nil, fmt.Errorf("event log not initialized")
	}
	if count <= 0 {
		count = 20
	}
	var models []eventLogModel
	err := b.db.WithContext(ctx).
		Where("topic = ?", topic).
		Order("id DESC").
		Limit(count).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(models))
	for _, m := range models {
		out = append(out, []byte(m.Payload))
	}
	return out, nil
}

// Close closes the underlying connection.
func (b *GormBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
