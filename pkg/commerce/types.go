package commerce

import "github.com/shopspring/decimal"

// User represents the authenticated account as returned by the commerce API
type User struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenPair holds the tokens issued by the commerce API at login
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CartItem is one authoritative cart line. CartItemID is assigned server
// side and TotalAvailable reflects live stock.
type CartItem struct {
	CartItemID     int64           `json:"cart_item_id"`
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

// Cart is the authoritative remote cart
type Cart struct {
	Items []CartItem `json:"items"`
}

// GuestCartItem is the wire shape of one guest cart line sent for merge
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

// GuestCart is the guest cart snapshot attached to a login request
type GuestCart struct {
	CartID     string          `json:"cart_id"`
	Items      []GuestCartItem `json:"items"`
	TotalItems int             `json:"total_items"`
}

// LoginRequest represents the request parameters for the login API.
// GuestCart is only set when the visitor has a non-empty guest cart.
type LoginRequest struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	GuestCart *GuestCart `json:"guest_cart,omitempty"`
}

// MergeItem describes one guest cart line's fate during a login merge
type MergeItem struct {
	ItemID   int64  `json:"item_id"`
	SizeID   int64  `json:"size_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason,omitempty"`
}

// CartMergeResult is the structured outcome of merging a guest cart into
// the authoritative cart: lines added as-is, lines whose quantity was
// adjusted because an equivalent line already existed, and lines rejected
// by the stock check.
type CartMergeResult struct {
	Added    []MergeItem `json:"added"`
	Adjusted []MergeItem `json:"adjusted"`
	Failed   []MergeItem `json:"failed"`
	Message  string      `json:"message"`
}

// LoginResponse represents the response from the login API. CartMerge is
// present only when the request carried a guest cart.
type LoginResponse struct {
	User      User             `json:"user"`
	Tokens    TokenPair        `json:"tokens"`
	CartMerge *CartMergeResult `json:"cart_merge,omitempty"`
}

// AddCartItemRequest represents the request parameters for adding a cart line
type AddCartItemRequest struct {
	ItemID   int64 `json:"item_id"`
	SizeID   int64 `json:"size_id"`
	Quantity int   `json:"quantity"`
}

// UpdateCartItemRequest represents the request parameters for a quantity change
type UpdateCartItemRequest struct {
	CartItemID int64 `json:"cart_item_id"`
	Quantity   int   `json:"quantity"`
}

// CartCountResponse represents the lightweight badge count response
type CartCountResponse struct {
	Count int `json:"count"`
}

// ErrorResponse is the commerce API error envelope
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
