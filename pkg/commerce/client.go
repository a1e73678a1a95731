package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client represents a commerce API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new commerce API client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Login authenticates a user. When the request carries a guest cart
// snapshot, the commerce API merges it into the user's cart and reports
// the outcome in LoginResponse.CartMerge.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "login", "", req, "")
	if err != nil {
		return nil, fmt.Errorf("failed to make login request: %w", err)
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(resp, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login response: %w", err)
	}

	return &loginResp, nil
}

// GetCart fetches the authenticated user's authoritative cart
func (c *Client) GetCart(ctx context.Context, accessToken string) (*Cart, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "cart", "", nil, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal(resp, &cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart response: %w", err)
	}

	return &cart, nil
}

// AddCartItem adds a line to the authenticated user's cart
func (c *Client) AddCartItem(ctx context.Context, accessToken string, req AddCartItemRequest) (*Cart, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "cart", "", req, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal(resp, &cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart response: %w", err)
	}

	return &cart, nil
}

// UpdateCartItem changes the quantity of one cart line
func (c *Client) UpdateCartItem(ctx context.Context, accessToken string, cartItemID int64, quantity int) error {
	req := UpdateCartItemRequest{CartItemID: cartItemID, Quantity: quantity}
	if _, err := c.doRequest(ctx, http.MethodPut, "cart", "", req, accessToken); err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return nil
}

// RemoveCartItem deletes one cart line
func (c *Client) RemoveCartItem(ctx context.Context, accessToken string, cartItemID int64) error {
	query := fmt.Sprintf("cart_item_id=%d", cartItemID)
	if _, err := c.doRequest(ctx, http.MethodDelete, "cart", query, nil, accessToken); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// CartCount fetches the lightweight item count for badge display
func (c *Client) CartCount(ctx context.Context, accessToken string) (int, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "cart-count", "", nil, accessToken)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch cart count: %w", err)
	}

	var countResp CartCountResponse
	if err := json.Unmarshal(resp, &countResp); err != nil {
		return 0, fmt.Errorf("failed to unmarshal cart count response: %w", err)
	}

	return countResp.Count, nil
}

// doRequest performs an HTTP request to the commerce API
func (c *Client) doRequest(ctx context.Context, method, endpoint, query string, payload interface{}, accessToken string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewBuffer(reqBody)
	}

	url := fmt.Sprintf("%s/%s", c.config.BaseURL, endpoint)
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return respBody, nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err != nil {
		return nil, fmt.Errorf("%w: unexpected status code %d, body: %s", ErrUpstream, resp.StatusCode, string(respBody))
	}

	errorMsg := fmt.Sprintf("status: %d, code: %s, message: %s", resp.StatusCode, errResp.Code, errResp.Message)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if endpoint == "login" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, errorMsg)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMsg)
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, errorMsg)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, errorMsg)
	case http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, errorMsg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUpstream, errorMsg)
	}
}
