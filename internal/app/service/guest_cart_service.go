package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dhkim/storefront-gateway/internal/app/model"
	"github.com/dhkim/storefront-gateway/internal/app/repository"
	"github.com/dhkim/storefront-gateway/pkg/logger"
	"github.com/shopspring/decimal"
)

var (
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// StockExceededError rejects a quantity above the stock ceiling and names
// the quantity still available, for the "only N available" user message.
// It matches ErrInsufficientStock under errors.Is.
type StockExceededError struct {
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("only %d available", e.Available)
}

func (e *StockExceededError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// CartNotifier publishes cart-changed signals to mounted consumers.
type CartNotifier interface {
	Publish(ctx context.Context, owner, reason string)
}

// GuestCartCandidate is the input to Add: a product+variant with the
// metadata the storefront displays while the visitor stays unauthenticated.
type GuestCartCandidate struct {
	ItemID         int64
	SizeID         int64
	Name           string
	Size           string
	UnitPrice      decimal.Decimal
	TotalAvailable int
	ImageURL       *string
	Categories     *string
	Quantity       int
}

// GuestCartService is the sole owner of persisted guest carts; every
// access goes through it. Mutations never fail on storage trouble: reads
// degrade to a fresh empty cart and writes become logged no-ops, so a
// broken store never breaks the storefront.
type GuestCartService interface {
	Read(ctx context.Context, guestID string) *model.GuestCart
	Add(ctx context.Context, guestID string, candidate GuestCartCandidate) (*model.GuestCart, error)
	Remove(ctx context.Context, guestID, cartItemID string) *model.GuestCart
	SetQuantity(ctx context.Context, guestID, cartItemID string, quantity int) (*model.GuestCart, error)
	Clear(ctx context.Context, guestID string)
}

type guestCartService struct {
	repo     repository.GuestCartRepository
	notifier CartNotifier
}

func NewGuestCartService(repo repository.GuestCartRepository, notifier CartNotifier) GuestCartService {
	return &guestCartService{
		repo:     repo,
		notifier: notifier,
	}
}

// Read returns the visitor's cart. A missing, unreachable or corrupt
// stored cart yields a fresh empty cart with a new cart id; the fresh
// cart is not persisted until its first mutation.
func (s *guestCartService) Read(ctx context.Context, guestID string) *model.GuestCart {
	cart, err := s.repo.Load(ctx, guestID)
	if err != nil {
		if !errors.Is(err, repository.ErrCartNotFound) {
			logger.Warn("Guest cart unreadable, starting fresh", map[string]interface{}{
				"guest_id": guestID,
				"error":    err.Error(),
			})
		}
		return model.NewGuestCart()
	}
	return cart
}

func (s *guestCartService) Add(ctx context.Context, guestID string, candidate GuestCartCandidate) (*model.GuestCart, error) {
	if candidate.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	logger.Info("Adding item to guest cart", map[string]interface{}{
		"guest_id": guestID,
		"item_id":  candidate.ItemID,
		"size_id":  candidate.SizeID,
		"quantity": candidate.Quantity,
	})

	cart := s.Read(ctx, guestID)

	if idx := cart.IndexByProduct(candidate.ItemID, candidate.SizeID); idx >= 0 {
		// merge into the existing line, silently clamped to the ceiling
		item := &cart.Items[idx]
		item.Quantity = clampQuantity(item.Quantity+candidate.Quantity, candidate.TotalAvailable)
		item.TotalAvailable = candidate.TotalAvailable
		if item.Quantity < 1 {
			// stock dried up under the line; quantity 0 means deleted
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		}
	} else {
		quantity := clampQuantity(candidate.Quantity, candidate.TotalAvailable)
		if quantity < 1 {
			logger.Warn("Ignoring add with no available stock", map[string]interface{}{
				"guest_id": guestID,
				"item_id":  candidate.ItemID,
				"size_id":  candidate.SizeID,
			})
			return cart, nil
		}
		cart.Items = append(cart.Items, model.GuestCartItem{
			CartItemID:     model.NewCartItemID(),
			ItemID:         candidate.ItemID,
			SizeID:         candidate.SizeID,
			Name:           candidate.Name,
			Size:           candidate.Size,
			UnitPrice:      candidate.UnitPrice,
			TotalAvailable: candidate.TotalAvailable,
			ImageURL:       candidate.ImageURL,
			Categories:     candidate.Categories,
			Quantity:       quantity,
		})
	}

	cart.RecomputeTotals()
	s.persist(ctx, guestID, cart, "add")
	return cart, nil
}

// Remove drops the matching line item; removing an absent item is a no-op,
// not an error.
func (s *guestCartService) Remove(ctx context.Context, guestID, cartItemID string) *model.GuestCart {
	cart := s.Read(ctx, guestID)

	idx := cart.IndexByCartItemID(cartItemID)
	if idx < 0 {
		return cart
	}

	logger.Info("Removing guest cart item", map[string]interface{}{
		"guest_id":     guestID,
		"cart_item_id": cartItemID,
	})

	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	cart.RecomputeTotals()
	s.persist(ctx, guestID, cart, "remove")
	return cart
}

// SetQuantity writes the new quantity when it lies within
// [1, TotalAvailable]. A quantity of zero or less behaves as Remove. A
// quantity above the stock ceiling is rejected outright and the cart is
// left completely unchanged. A missing line item returns the cart as-is.
func (s *guestCartService) SetQuantity(ctx context.Context, guestID, cartItemID string, quantity int) (*model.GuestCart, error) {
	if quantity <= 0 {
		return s.Remove(ctx, guestID, cartItemID), nil
	}

	cart := s.Read(ctx, guestID)

	idx := cart.IndexByCartItemID(cartItemID)
	if idx < 0 {
		return cart, nil
	}

	item := &cart.Items[idx]
	if quantity > item.TotalAvailable {
		logger.Warn("Rejecting guest cart quantity above stock", map[string]interface{}{
			"guest_id":     guestID,
			"cart_item_id": cartItemID,
			"requested":    quantity,
			"available":    item.TotalAvailable,
		})
		return nil, &StockExceededError{Available: item.TotalAvailable}
	}

	item.Quantity = quantity
	cart.RecomputeTotals()
	s.persist(ctx, guestID, cart, "set_quantity")
	return cart, nil
}

// Clear erases the persisted cart entirely; the next Read synthesizes a
// fresh empty cart with a new cart id.
func (s *guestCartService) Clear(ctx context.Context, guestID string) {
	logger.Info("Clearing guest cart", map[string]interface{}{
		"guest_id": guestID,
	})

	if err := s.repo.Delete(ctx, guestID); err != nil {
		logger.Warn("Failed to clear guest cart", map[string]interface{}{
			"guest_id": guestID,
			"error":    err.Error(),
		})
	}
	s.publish(ctx, guestID, "clear")
}

// persist writes the cart and signals consumers. Storage failure is
// logged and swallowed: the mutation stands in the returned cart and the
// caller's flow continues.
func (s *guestCartService) persist(ctx context.Context, guestID string, cart *model.GuestCart, reason string) {
	if err := s.repo.Save(ctx, guestID, cart); err != nil {
		logger.Warn("Failed to persist guest cart", map[string]interface{}{
			"guest_id": guestID,
			"reason":   reason,
			"error":    err.Error(),
		})
		return
	}
	s.publish(ctx, guestID, reason)
}

func (s *guestCartService) publish(ctx context.Context, guestID, reason string) {
	if s.notifier != nil {
		s.notifier.Publish(ctx, GuestOwnerKey(guestID), reason)
	}
}

// GuestOwnerKey is the notification owner key for a guest visitor.
func GuestOwnerKey(guestID string) string {
	return "guest:" + guestID
}

func clampQuantity(quantity, ceiling int) int {
	if quantity > ceiling {
		return ceiling
	}
	return quantity
}
