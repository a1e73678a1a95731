package commerce

import "time"

// Config represents the configuration for the commerce API client
type Config struct {
	// BaseURL is the commerce API base URL
	BaseURL string

	// APIKey authenticates the gateway itself against the commerce API.
	// User-level calls additionally carry the user's bearer token.
	APIKey string

	// Timeout bounds each request; zero means the default of 30 seconds
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidRequest
	}
	return nil
}
