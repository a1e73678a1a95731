package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dhkim/storefront-gateway/internal/app/model"
	"github.com/redis/go-redis/v9"
)

var (
	ErrCartNotFound = errors.New("guest cart not found")
)

// guest cart keys mirror the storefront's storage key, one slot per guest
const guestCartKeyPrefix = "local_cart:"

// GuestCartRepository persists serialized guest carts keyed by guest id.
// Implementations only store and fetch; all cart semantics live in the
// service layer.
type GuestCartRepository interface {
	Load(ctx context.Context, guestID string) (*model.GuestCart, error)
	Save(ctx context.Context, guestID string, cart *model.GuestCart) error
	Delete(ctx context.Context, guestID string) error
	PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type redisGuestCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuestCartRepository creates a Redis-backed guest cart store.
// Carts expire automatically after ttl of inactivity.
func NewRedisGuestCartRepository(client *redis.Client, ttl time.Duration) GuestCartRepository {
	return &redisGuestCartRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *redisGuestCartRepository) Load(ctx context.Context, guestID string) (*model.GuestCart, error) {
	raw, err := r.client.Get(ctx, guestCartKeyPrefix+guestID).Result()
	if err == redis.Nil {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	var cart model.GuestCart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return &cart, nil
}

func (r *redisGuestCartRepository) Save(ctx context.Context, guestID string, cart *model.GuestCart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	if err := r.client.Set(ctx, guestCartKeyPrefix+guestID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

func (r *redisGuestCartRepository) Delete(ctx context.Context, guestID string) error {
	if err := r.client.Del(ctx, guestCartKeyPrefix+guestID).Err(); err != nil {
		return fmt.Errorf("failed to delete guest cart: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op for Redis: key TTLs already expire stale carts.
func (r *redisGuestCartRepository) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}
