package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartRefKind discriminates the two cart line identities: remote lines are
// keyed by upstream-assigned integer ids, local (guest) lines by
// gateway-generated string ids.
type CartRefKind string

const (
	CartRefRemote CartRefKind = "remote"
	CartRefLocal  CartRefKind = "local"
)

// CartItemRef is a tagged reference to one cart line. Exactly one of
// RemoteID or LocalID is meaningful, per Kind.
type CartItemRef struct {
	Kind     CartRefKind `json:"kind"`
	RemoteID int64       `json:"remote_id,omitempty"`
	LocalID  string      `json:"local_id,omitempty"`
}

func RemoteRef(id int64) CartItemRef {
	return CartItemRef{Kind: CartRefRemote, RemoteID: id}
}

func LocalRef(id string) CartItemRef {
	return CartItemRef{Kind: CartRefLocal, LocalID: id}
}

// Key returns a stable map key for the reference, used by the quantity
// override table.
func (r CartItemRef) Key() string {
	if r.Kind == CartRefRemote {
		return fmt.Sprintf("remote:%d", r.RemoteID)
	}
	return "local:" + r.LocalID
}

// CartViewItem is one line of the unified cart presented to consumers,
// independent of authentication state.
type CartViewItem struct {
	Ref            CartItemRef     `json:"ref"`
	ItemID         int64           `json:"item_id"`
	SizeID         int64           `json:"size_id"`
	Name           string          `json:"name"`
	Size           string          `json:"size"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalAvailable int             `json:"total_available"`
	ImageURL       *string         `json:"image_url"`
	Categories     *string         `json:"categories"`
	Quantity       int             `json:"quantity"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// CartView is the single cart shape consumers render. Total is always
// recomputed from the displayed quantities, never taken from a cached
// upstream total.
type CartView struct {
	Items      []CartViewItem  `json:"items"`
	TotalItems int             `json:"total_items"`
	Total      decimal.Decimal `json:"total"`
}
