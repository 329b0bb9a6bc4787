package ai

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ModelSource looks up enabled model configurations.
type ModelSource interface {
	// FindEnabled returns (nil, nil) when no enabled config matches.
	FindEnabled(ctx context.Context, key string) (*ModelConfig, error)
	ListEnabled(ctx context.Context) ([]ModelConfig, error)
}

type ModelStore struct {
	db *gorm.DB
}

func NewModelStore(db *gorm.DB) *ModelStore {
	return &ModelStore{db: db}
}

// FindEnabled matches model_key exactly, then falls back to the backend model name.
func (s *ModelStore) FindEnabled(ctx context.Context, key string) (*ModelConfig, error) {
	var mc ModelConfig
	err := s.db.WithContext(ctx).
		Where("model_key = ? AND enabled = ?", key, true).
		First(&mc).Error
	if err == nil {
		return &mc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Where("name = ? AND enabled = ?", key, true).
		Order("id ASC").
		First(&mc).Error
	if err == nil {
		return &mc, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (s *ModelStore) ListEnabled(ctx context.Context) ([]ModelConfig, error) {
	var out []ModelConfig
	if err := s.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("model_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert writes every column of mc, so a false Enabled is stored as given.
func (s *ModelStore) Upsert(ctx context.Context, mc *ModelConfig) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing ModelConfig
		err := tx.Where("model_key = ?", mc.ModelKey).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(mc).Error
		}
		if err != nil {
			return err
		}
		mc.ID = existing.ID
		mc.CreatedAt = existing.CreatedAt
		return tx.Save(mc).Error
	})
}
