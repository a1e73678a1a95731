package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dhkim/storefront-gateway/internal/app/model"
)

type memoryEntry struct {
	payload []byte
	savedAt time.Time
}

type memoryGuestCartRepository struct {
	mu    sync.RWMutex
	carts map[string]memoryEntry
}

// NewMemoryGuestCartRepository creates an in-process guest cart store.
// Used as the degradation path when no durable backend is reachable, and
// by tests. Carts do not survive a restart.
func NewMemoryGuestCartRepository() GuestCartRepository {
	return &memoryGuestCartRepository{
		carts: make(map[string]memoryEntry),
	}
}

func (r *memoryGuestCartRepository) Load(ctx context.Context, guestID string) (*model.GuestCart, error) {
	r.mu.RLock()
	entry, ok := r.carts[guestID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrCartNotFound
	}

	var cart model.GuestCart
	if err := json.Unmarshal(entry.payload, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return &cart, nil
}

func (r *memoryGuestCartRepository) Save(ctx context.Context, guestID string, cart *model.GuestCart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}

	r.mu.Lock()
	r.carts[guestID] = memoryEntry{payload: raw, savedAt: time.Now()}
	r.mu.Unlock()
	return nil
}

func (r *memoryGuestCartRepository) Delete(ctx context.Context, guestID string) error {
	r.mu.Lock()
	delete(r.carts, guestID)
	r.mu.Unlock()
	return nil
}

func (r *memoryGuestCartRepository) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	var purged int64

	r.mu.Lock()
	for guestID, entry := range r.carts {
		if entry.savedAt.Before(cutoff) {
			delete(r.carts, guestID)
			purged++
		}
	}
	r.mu.Unlock()
	return purged, nil
}
