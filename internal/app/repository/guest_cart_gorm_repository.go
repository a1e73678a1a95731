package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dhkim/storefront-gateway/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormGuestCartRepository struct {
	db *gorm.DB
}

// NewGormGuestCartRepository creates a database-backed guest cart store,
// for deployments that run without Redis. One row per guest id; stale rows
// are removed by the purge job.
func NewGormGuestCartRepository(db *gorm.DB) GuestCartRepository {
	return &gormGuestCartRepository{db: db}
}

func (r *gormGuestCartRepository) Load(ctx context.Context, guestID string) (*model.GuestCart, error) {
	var record model.GuestCartRecord
	err := r.db.WithContext(ctx).Where("guest_id = ?", guestID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	var cart model.GuestCart
	if err := json.Unmarshal([]byte(record.Payload), &cart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return &cart, nil
}

func (r *gormGuestCartRepository) Save(ctx context.Context, guestID string, cart *model.GuestCart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}

	record := model.GuestCartRecord{
		GuestID: guestID,
		Payload: string(raw),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guest_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

func (r *gormGuestCartRepository) Delete(ctx context.Context, guestID string) error {
	err := r.db.WithContext(ctx).Where("guest_id = ?", guestID).Delete(&model.GuestCartRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete guest cart: %w", err)
	}
	return nil
}

func (r *gormGuestCartRepository) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&model.GuestCartRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired guest carts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
