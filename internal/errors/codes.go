package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// Storefront clients map these codes to display messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email/password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // token expired
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // malformed or forged token

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput    = "VALIDATION_INVALID_INPUT"    // bad request body
	ValidationInvalidID       = "VALIDATION_INVALID_ID"       // bad identifier
	ValidationInvalidQuantity = "VALIDATION_INVALID_QUANTITY" // quantity out of range

	// ==================== Cart (CART_) ====================
	CartItemNotFound      = "CART_ITEM_NOT_FOUND"     // no such cart line
	CartInsufficientStock = "CART_INSUFFICIENT_STOCK" // quantity above stock

	// ==================== Upstream (UPSTREAM_) ====================
	UpstreamUnavailable = "UPSTREAM_UNAVAILABLE" // commerce API unreachable
	UpstreamError       = "UPSTREAM_ERROR"       // commerce API failed

	// ==================== Server (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR" // unhandled failure
)
