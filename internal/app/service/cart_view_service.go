package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/dhkim/storefront-gateway/internal/app/model"
	"github.com/dhkim/storefront-gateway/pkg/commerce"
	"github.com/dhkim/storefront-gateway/pkg/logger"
	"github.com/shopspring/decimal"
)

// Viewer identifies who is looking at the cart. Authenticated viewers
// carry the upstream access token; everyone carries a guest id.
type Viewer struct {
	UserID      uint
	AccessToken string
	GuestID     string
}

// Authenticated reports whether the viewer holds an upstream session.
func (v Viewer) Authenticated() bool {
	return v.AccessToken != ""
}

// OwnerKey is the notification owner key for this viewer's cart.
func (v Viewer) OwnerKey() string {
	if v.Authenticated() {
		return UserOwnerKey(v.UserID)
	}
	return GuestOwnerKey(v.GuestID)
}

// UserOwnerKey is the notification owner key for an authenticated user.
func UserOwnerKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// CommerceCartAPI is the slice of the upstream client the cart view needs.
type CommerceCartAPI interface {
	GetCart(ctx context.Context, accessToken string) (*commerce.Cart, error)
	AddCartItem(ctx context.Context, accessToken string, req commerce.AddCartItemRequest) (*commerce.Cart, error)
	UpdateCartItem(ctx context.Context, accessToken string, cartItemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, accessToken string, cartItemID int64) error
	CartCount(ctx context.Context, accessToken string) (int, error)
}

// CartViewService presents one cart shape regardless of authentication
// state and applies quantity changes optimistically: the new quantity is
// visible in the view before the owning store confirms it, and reverts if
// the commit fails.
type CartViewService interface {
	GetCart(ctx context.Context, viewer Viewer) (*model.CartView, error)
	CartCount(ctx context.Context, viewer Viewer) (int, error)
	AddItem(ctx context.Context, viewer Viewer, candidate GuestCartCandidate) (*model.CartView, error)
	UpdateQuantity(ctx context.Context, viewer Viewer, ref model.CartItemRef, quantity int) (*model.CartView, error)
	RemoveItem(ctx context.Context, viewer Viewer, ref model.CartItemRef) (*model.CartView, error)
}

// quantityOverrides is the per-owner optimistic quantity table. Entries
// are independent per line item: one line's failed commit never touches
// another's. An entry survives until the authoritative store agrees with
// it, then evaporates.
type quantityOverrides struct {
	mu sync.Mutex
	m  map[string]map[string]int
}

func newQuantityOverrides() *quantityOverrides {
	return &quantityOverrides{m: make(map[string]map[string]int)}
}

func (o *quantityOverrides) get(owner, key string) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	qty, ok := o.m[owner][key]
	return qty, ok
}

func (o *quantityOverrides) set(owner, key string, quantity int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.m[owner] == nil {
		o.m[owner] = make(map[string]int)
	}
	o.m[owner][key] = quantity
}

func (o *quantityOverrides) drop(owner, key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.m[owner], key)
}

// prune discards entries whose line item no longer exists, so a rollback
// targeting a since-removed line decays into a no-op.
func (o *quantityOverrides) prune(owner string, liveKeys map[string]bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key := range o.m[owner] {
		if !liveKeys[key] {
			delete(o.m[owner], key)
		}
	}
	if len(o.m[owner]) == 0 {
		delete(o.m, owner)
	}
}

type cartViewService struct {
	guestCarts GuestCartService
	upstream   CommerceCartAPI
	notifier   CartNotifier
	overrides  *quantityOverrides
}

func NewCartViewService(guestCarts GuestCartService, upstream CommerceCartAPI, notifier CartNotifier) CartViewService {
	return &cartViewService{
		guestCarts: guestCarts,
		upstream:   upstream,
		notifier:   notifier,
		overrides:  newQuantityOverrides(),
	}
}

// GetCart selects the owning store by authentication state and builds the
// unified view. The total is always recomputed from the displayed
// quantities; no cached total is trusted.
func (s *cartViewService) GetCart(ctx context.Context, viewer Viewer) (*model.CartView, error) {
	items, err := s.loadItems(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return s.buildView(viewer.OwnerKey(), items), nil
}

func (s *cartViewService) loadItems(ctx context.Context, viewer Viewer) ([]model.CartViewItem, error) {
	if viewer.Authenticated() {
		cart, err := s.upstream.GetCart(ctx, viewer.AccessToken)
		if err != nil {
			logger.Error("Failed to fetch remote cart", err, map[string]interface{}{
				"user_id": viewer.UserID,
			})
			return nil, err
		}
		items := make([]model.CartViewItem, 0, len(cart.Items))
		for _, it := range cart.Items {
			items = append(items, model.CartViewItem{
				Ref:            model.RemoteRef(it.CartItemID),
				ItemID:         it.ItemID,
				SizeID:         it.SizeID,
				Name:           it.Name,
				Size:           it.Size,
				UnitPrice:      it.UnitPrice,
				TotalAvailable: it.TotalAvailable,
				ImageURL:       it.ImageURL,
				Categories:     it.Categories,
				Quantity:       it.Quantity,
			})
		}
		return items, nil
	}

	cart := s.guestCarts.Read(ctx, viewer.GuestID)
	items := make([]model.CartViewItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, model.CartViewItem{
			Ref:            model.LocalRef(it.CartItemID),
			ItemID:         it.ItemID,
			SizeID:         it.SizeID,
			Name:           it.Name,
			Size:           it.Size,
			UnitPrice:      it.UnitPrice,
			TotalAvailable: it.TotalAvailable,
			ImageURL:       it.ImageURL,
			Categories:     it.Categories,
			Quantity:       it.Quantity,
		})
	}
	return items, nil
}

// buildView applies quantity overrides, computes line and cart totals and
// garbage-collects overrides that either converged with the store or lost
// their line item.
func (s *cartViewService) buildView(owner string, items []model.CartViewItem) *model.CartView {
	view := &model.CartView{
		Items: items,
		Total: decimal.Zero,
	}

	liveKeys := make(map[string]bool, len(items))
	for i := range view.Items {
		item := &view.Items[i]
		key := item.Ref.Key()
		liveKeys[key] = true

		if override, ok := s.overrides.get(owner, key); ok {
			if override == item.Quantity {
				// store caught up with the optimistic value
				s.overrides.drop(owner, key)
			} else {
				item.Quantity = override
			}
		}

		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.TotalItems += item.Quantity
		view.Total = view.Total.Add(item.LineTotal)
	}
	s.overrides.prune(owner, liveKeys)

	return view
}

func (s *cartViewService) CartCount(ctx context.Context, viewer Viewer) (int, error) {
	if viewer.Authenticated() {
		return s.upstream.CartCount(ctx, viewer.AccessToken)
	}
	return s.guestCarts.Read(ctx, viewer.GuestID).TotalItems, nil
}

func (s *cartViewService) AddItem(ctx context.Context, viewer Viewer, candidate GuestCartCandidate) (*model.CartView, error) {
	if viewer.Authenticated() {
		_, err := s.upstream.AddCartItem(ctx, viewer.AccessToken, commerce.AddCartItemRequest{
			ItemID:   candidate.ItemID,
			SizeID:   candidate.SizeID,
			Quantity: candidate.Quantity,
		})
		if err != nil {
			return nil, err
		}
		s.publish(ctx, viewer, "add")
		return s.GetCart(ctx, viewer)
	}

	if _, err := s.guestCarts.Add(ctx, viewer.GuestID, candidate); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, viewer)
}

// UpdateQuantity is the optimistic path: validate bounds against the
// line's known stock ceiling, expose the new quantity through the
// override table immediately, then commit to the owning store and revert
// the override relative to the individually captured baseline if the
// commit fails. Overrides are per line item; concurrent updates to the
// same line rebase on the table's current value (last write wins).
func (s *cartViewService) UpdateQuantity(ctx context.Context, viewer Viewer, ref model.CartItemRef, quantity int) (*model.CartView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	line, err := s.findLine(ctx, viewer, ref)
	if err != nil {
		return nil, err
	}
	if quantity > line.TotalAvailable {
		return nil, &StockExceededError{Available: line.TotalAvailable}
	}

	owner := viewer.OwnerKey()
	key := ref.Key()

	oldQuantity := line.Quantity
	if override, ok := s.overrides.get(owner, key); ok {
		oldQuantity = override
	}

	// optimistic phase: the view reflects the new quantity from here on
	s.overrides.set(owner, key, quantity)

	if err := s.commitQuantity(ctx, viewer, ref, quantity); err != nil {
		// compensate relative to what this update captured; if the line
		// has vanished meanwhile the stale entry is pruned at next read
		s.overrides.set(owner, key, oldQuantity)
		logger.Warn("Quantity commit failed, rolled back", map[string]interface{}{
			"owner":        owner,
			"cart_item":    key,
			"old_quantity": oldQuantity,
			"new_quantity": quantity,
		})
		return nil, err
	}

	if viewer.Authenticated() {
		s.publish(ctx, viewer, "set_quantity")
	}
	return s.GetCart(ctx, viewer)
}

func (s *cartViewService) RemoveItem(ctx context.Context, viewer Viewer, ref model.CartItemRef) (*model.CartView, error) {
	owner := viewer.OwnerKey()
	s.overrides.drop(owner, ref.Key())

	if viewer.Authenticated() {
		if err := s.upstream.RemoveCartItem(ctx, viewer.AccessToken, ref.RemoteID); err != nil {
			return nil, err
		}
		s.publish(ctx, viewer, "remove")
		return s.GetCart(ctx, viewer)
	}

	s.guestCarts.Remove(ctx, viewer.GuestID, ref.LocalID)
	return s.GetCart(ctx, viewer)
}

// findLine locates the referenced line in the owning store, with its
// committed quantity and current stock ceiling.
func (s *cartViewService) findLine(ctx context.Context, viewer Viewer, ref model.CartItemRef) (*model.CartViewItem, error) {
	items, err := s.loadItems(ctx, viewer)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Ref.Key() == ref.Key() {
			return &items[i], nil
		}
	}
	return nil, ErrCartItemNotFound
}

func (s *cartViewService) commitQuantity(ctx context.Context, viewer Viewer, ref model.CartItemRef, quantity int) error {
	if viewer.Authenticated() {
		return s.upstream.UpdateCartItem(ctx, viewer.AccessToken, ref.RemoteID, quantity)
	}
	_, err := s.guestCarts.SetQuantity(ctx, viewer.GuestID, ref.LocalID, quantity)
	return err
}

func (s *cartViewService) publish(ctx context.Context, viewer Viewer, reason string) {
	if s.notifier != nil {
		s.notifier.Publish(ctx, viewer.OwnerKey(), reason)
	}
}
