package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GuestCartItem is one (product, variant, quantity) line in an
// unauthenticated visitor's cart. CartItemID is generated by the gateway
// and carries no meaning for the upstream commerce API; it only has to be
// unique within one guest cart.
type GuestCartItem struct {
	CartItemID     string          `json:"cart_item_id"`
	ItemID         int64           `json:"item_id"`
	SizeID         int64           `json:"size_id"`
	Name           string          `json:"name"`
	Size           string          `json:"size"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalAvailable int             `json:"total_available"`
	ImageURL       *string         `json:"image_url"`
	Categories     *string         `json:"categories"`
	Quantity       int             `json:"quantity"`
}

// GuestCart holds the cart of an unauthenticated visitor. Items are unique
// by (ItemID, SizeID). TotalItems is a cached projection of the quantity
// sum and is recomputed after every mutation, never set independently.
type GuestCart struct {
	CartID     string          `json:"cart_id"`
	Items      []GuestCartItem `json:"items"`
	TotalItems int             `json:"total_items"`
}

// NewGuestCart creates an empty cart with a fresh random cart id.
// The cart is not persisted until its first mutation.
func NewGuestCart() *GuestCart {
	return &GuestCart{
		CartID: uuid.NewString(),
		Items:  []GuestCartItem{},
	}
}

// NewCartItemID generates a line item identifier unique within a session.
func NewCartItemID() string {
	return uuid.NewString()
}

// RecomputeTotals refreshes the cached TotalItems projection.
func (c *GuestCart) RecomputeTotals() {
	sum := 0
	for _, item := range c.Items {
		sum += item.Quantity
	}
	c.TotalItems = sum
}

// IsEmpty reports whether the cart has no line items.
func (c *GuestCart) IsEmpty() bool {
	return len(c.Items) == 0
}

// IndexByProduct returns the index of the line item matching the
// (itemID, sizeID) pair, or -1.
func (c *GuestCart) IndexByProduct(itemID, sizeID int64) int {
	for i, item := range c.Items {
		if item.ItemID == itemID && item.SizeID == sizeID {
			return i
		}
	}
	return -1
}

// IndexByCartItemID returns the index of the line item with the given
// cart item id, or -1.
func (c *GuestCart) IndexByCartItemID(cartItemID string) int {
	for i, item := range c.Items {
		if item.CartItemID == cartItemID {
			return i
		}
	}
	return -1
}

// Subtotal computes the price sum over all line items.
func (c *GuestCart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Clone returns a deep copy, used to snapshot the cart before a login
// round-trip so concurrent mutations cannot join or drop from the merge.
func (c *GuestCart) Clone() *GuestCart {
	items := make([]GuestCartItem, len(c.Items))
	copy(items, c.Items)
	return &GuestCart{
		CartID:     c.CartID,
		Items:      items,
		TotalItems: c.TotalItems,
	}
}
