package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dhkim/storefront-gateway/internal/app/model"
	"github.com/dhkim/storefront-gateway/internal/app/repository"
	"github.com/dhkim/storefront-gateway/internal/app/service"
	"github.com/dhkim/storefront-gateway/internal/middleware"
	"github.com/dhkim/storefront-gateway/pkg/commerce"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUpstream serves a fixed remote cart; the guest flow never reaches it.
type stubUpstream struct {
	cart commerce.Cart
}

func (s *stubUpstream) GetCart(context.Context, string) (*commerce.Cart, error) {
	return &s.cart, nil
}

func (s *stubUpstream) AddCartItem(context.Context, string, commerce.AddCartItemRequest) (*commerce.Cart, error) {
	return &s.cart, nil
}

func (s *stubUpstream) UpdateCartItem(context.Context, string, int64, int) error {
	return nil
}

func (s *stubUpstream) RemoveCartItem(context.Context, string, int64) error {
	return nil
}

func (s *stubUpstream) CartCount(context.Context, string) (int, error) {
	count := 0
	for _, it := range s.cart.Items {
		count += it.Quantity
	}
	return count, nil
}

func setupCartControllerTest(t *testing.T) (*gin.Engine, service.GuestCartService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	guestCarts := service.NewGuestCartService(repository.NewMemoryGuestCartRepository(), nil)
	cartView := service.NewCartViewService(guestCarts, &stubUpstream{}, nil)
	cartController := NewCartController(cartView, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.GuestIDKey, "guest-1")
	})

	api := router.Group("/api/v1")
	{
		api.GET("/cart", cartController.GetCart)
		api.POST("/cart", cartController.AddItem)
		api.PUT("/cart/:cart_item_id", cartController.UpdateItem)
		api.DELETE("/cart/:cart_item_id", cartController.RemoveItem)
		api.GET("/cart/count", cartController.Count)
	}

	return router, guestCarts
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedGuestLine(t *testing.T, guestCarts service.GuestCartService, available, quantity int) string {
	t.Helper()
	cart, err := guestCarts.Add(context.Background(), "guest-1", service.GuestCartCandidate{
		ItemID:         7,
		SizeID:         2,
		Name:           "Canvas Tote",
		Size:           "M",
		UnitPrice:      decimal.RequireFromString("10.00"),
		TotalAvailable: available,
		Quantity:       quantity,
	})
	require.NoError(t, err)
	return cart.Items[0].CartItemID
}

func TestCartController_GetCart_Empty(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	w := performJSON(router, "GET", "/api/v1/cart", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var view model.CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.TotalItems)
}

func TestCartController_AddItem(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	w := performJSON(router, "POST", "/api/v1/cart", gin.H{
		"item_id":         7,
		"size_id":         2,
		"name":            "Canvas Tote",
		"size":            "M",
		"unit_price":      "10.00",
		"total_available": 5,
		"quantity":        2,
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var view model.CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.TotalItems)
	assert.Equal(t, "20", view.Total.String())
}

func TestCartController_AddItem_NoAvailableStock(t *testing.T) {
	router, guestCarts := setupCartControllerTest(t)

	// total_available omitted defaults to zero; no line may be created
	w := performJSON(router, "POST", "/api/v1/cart", gin.H{
		"item_id":    7,
		"size_id":    2,
		"name":       "Canvas Tote",
		"unit_price": "10.00",
		"quantity":   2,
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var view model.CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.TotalItems)
	assert.Empty(t, guestCarts.Read(context.Background(), "guest-1").Items)
}

func TestCartController_AddItem_InvalidBody(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	w := performJSON(router, "POST", "/api/v1/cart", gin.H{
		"item_id": 7,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_INVALID_INPUT")
}

func TestCartController_UpdateItem(t *testing.T) {
	router, guestCarts := setupCartControllerTest(t)
	id := seedGuestLine(t, guestCarts, 5, 2)

	w := performJSON(router, "PUT", "/api/v1/cart/"+id, gin.H{"quantity": 4})

	assert.Equal(t, http.StatusOK, w.Code)

	var view model.CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)
	assert.Equal(t, "40", view.Total.String())
}

func TestCartController_UpdateItem_AboveStock(t *testing.T) {
	router, guestCarts := setupCartControllerTest(t)
	id := seedGuestLine(t, guestCarts, 3, 3)

	w := performJSON(router, "PUT", "/api/v1/cart/"+id, gin.H{"quantity": 4})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CART_INSUFFICIENT_STOCK")
	assert.Contains(t, w.Body.String(), "only 3 available")
}

func TestCartController_UpdateItem_MissingLine(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	w := performJSON(router, "PUT", "/api/v1/cart/no-such-line", gin.H{"quantity": 2})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "CART_ITEM_NOT_FOUND")
}

func TestCartController_RemoveItem(t *testing.T) {
	router, guestCarts := setupCartControllerTest(t)
	id := seedGuestLine(t, guestCarts, 5, 2)

	w := performJSON(router, "DELETE", "/api/v1/cart/"+id, nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var view model.CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Empty(t, view.Items)
}

func TestCartController_Count(t *testing.T) {
	router, guestCarts := setupCartControllerTest(t)
	seedGuestLine(t, guestCarts, 5, 2)

	w := performJSON(router, "GET", "/api/v1/cart/count", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}
