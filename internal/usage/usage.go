// Package usage appends one accounting record per generation call.
package usage

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Record struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelKey  string    `gorm:"type:varchar(128);index;not null" json:"model_key"`
	UserID    string    `gorm:"type:varchar(128);index" json:"user_id"`
	SessionID string    `gorm:"type:varchar(26);index;not null" json:"session_id"`
	MessageID uint64    `gorm:"index" json:"message_id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	LatencyMs int64     `gorm:"not null" json:"latency_ms"`
}

func (Record) TableName() string { return "usage_records" }

type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// GormRecorder writes records straight to the database.
type GormRecorder struct {
	db *gorm.DB
}

func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func (g *GormRecorder) Record(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	// ID is assigned by the database; records are never updated
	rec.ID = 0
	return g.db.WithContext(ctx).Create(&rec).Error
}
