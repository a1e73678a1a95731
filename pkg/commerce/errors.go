package commerce

import "errors"

var (
	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidCredentials is returned when a login is rejected
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when the bearer token or API key is invalid
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInsufficientStock is returned when a cart mutation exceeds available stock
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrUpstream is returned for unclassified upstream failures
	ErrUpstream = errors.New("upstream commerce API error")
)
