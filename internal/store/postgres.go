package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKV persists keys in the store_entries table through gorm.
type GormKV struct {
	db *gorm.DB
}

// NewGormKV wraps an initialized gorm connection
func NewGormKV(db *gorm.DB) *GormKV {
	return &GormKV{db: db}
}

func (s *GormKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry model.StoreEntry
	result := s.db.WithContext(ctx).First(&entry, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, result.Error)
	}
	return entry.Value, true, nil
}

func (s *GormKV) Put(ctx context.Context, key string, value []byte) error {
	entry := model.StoreEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("put %s: %w", key, result.Error)
	}
	return nil
}
