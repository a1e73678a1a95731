package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dhkim/storefront-gateway/internal/app/model"
	"github.com/dhkim/storefront-gateway/internal/app/service"
	apierrors "github.com/dhkim/storefront-gateway/internal/errors"
	"github.com/dhkim/storefront-gateway/internal/events"
	"github.com/dhkim/storefront-gateway/internal/middleware"
	"github.com/dhkim/storefront-gateway/pkg/commerce"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

type CartController struct {
	cartView service.CartViewService
	hub      *events.Hub
	upgrader websocket.Upgrader
}

func NewCartController(cartView service.CartViewService, hub *events.Hub) *CartController {
	return &CartController{
		cartView: cartView,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

type AddToCartRequest struct {
	ItemID         int64   `json:"item_id" binding:"required"`
	SizeID         int64   `json:"size_id" binding:"required"`
	Name           string  `json:"name"`
	Size           string  `json:"size"`
	UnitPrice      string  `json:"unit_price"`
	TotalAvailable int     `json:"total_available"`
	ImageURL       *string `json:"image_url"`
	Categories     *string `json:"categories"`
	Quantity       int     `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// viewerFromContext builds the viewer for this request. The access token
// comes from the optional auth middleware, the guest id from the guest
// identity cookie.
func viewerFromContext(c *gin.Context) service.Viewer {
	viewer := service.Viewer{}
	if userID, ok := middleware.GetUserID(c); ok {
		if token, ok := middleware.GetAccessToken(c); ok {
			viewer.UserID = userID
			viewer.AccessToken = token
		}
	}
	if guestID, ok := middleware.GetGuestID(c); ok {
		viewer.GuestID = guestID
	}
	return viewer
}

// itemRefFromParam resolves a path parameter into a cart line reference:
// authenticated carts use upstream integer ids, guest carts string ids.
func itemRefFromParam(viewer service.Viewer, raw string) (model.CartItemRef, error) {
	if viewer.Authenticated() {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.CartItemRef{}, err
		}
		return model.RemoteRef(id), nil
	}
	return model.LocalRef(raw), nil
}

// GetCart returns the unified cart for the current viewer
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	viewer := viewerFromContext(c)

	view, err := ctrl.cartView.GetCart(c.Request.Context(), viewer)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"owner": viewer.OwnerKey(),
		})
		ctrl.respondCartError(c, err)
		return
	}

	log.Info("Cart fetched successfully", map[string]interface{}{
		"owner": viewer.OwnerKey(),
		"count": len(view.Items),
		"total": view.Total.String(),
	})

	c.JSON(http.StatusOK, view)
}

// AddItem adds a line to the viewer's cart
// POST /api/v1/cart
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	viewer := viewerFromContext(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	unitPrice := decimal.Zero
	if req.UnitPrice != "" {
		parsed, err := decimal.NewFromString(req.UnitPrice)
		if err != nil {
			apierrors.BadRequest(c, apierrors.ValidationInvalidInput, "Invalid unit price")
			return
		}
		unitPrice = parsed
	}

	candidate := service.GuestCartCandidate{
		ItemID:         req.ItemID,
		SizeID:         req.SizeID,
		Name:           req.Name,
		Size:           req.Size,
		UnitPrice:      unitPrice,
		TotalAvailable: req.TotalAvailable,
		ImageURL:       req.ImageURL,
		Categories:     req.Categories,
		Quantity:       req.Quantity,
	}

	view, err := ctrl.cartView.AddItem(c.Request.Context(), viewer, candidate)
	if err != nil {
		log.Warn("Failed to add cart item", map[string]interface{}{
			"owner":   viewer.OwnerKey(),
			"item_id": req.ItemID,
			"error":   err.Error(),
		})
		ctrl.respondCartError(c, err)
		return
	}

	log.Info("Cart item added", map[string]interface{}{
		"owner":    viewer.OwnerKey(),
		"item_id":  req.ItemID,
		"size_id":  req.SizeID,
		"quantity": req.Quantity,
	})

	c.JSON(http.StatusCreated, view)
}

// UpdateItem sets the quantity of one cart line
// PUT /api/v1/cart/:cart_item_id
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	viewer := viewerFromContext(c)

	ref, err := itemRefFromParam(viewer, c.Param("cart_item_id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidID, "Invalid cart item id")
		return
	}

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, "Invalid request body")
		return
	}

	view, err := ctrl.cartView.UpdateQuantity(c.Request.Context(), viewer, ref, req.Quantity)
	if err != nil {
		log.Warn("Failed to update cart quantity", map[string]interface{}{
			"owner":     viewer.OwnerKey(),
			"cart_item": ref.Key(),
			"quantity":  req.Quantity,
			"error":     err.Error(),
		})
		ctrl.respondCartError(c, err)
		return
	}

	log.Info("Cart quantity updated", map[string]interface{}{
		"owner":     viewer.OwnerKey(),
		"cart_item": ref.Key(),
		"quantity":  req.Quantity,
	})

	c.JSON(http.StatusOK, view)
}

// RemoveItem deletes one cart line
// DELETE /api/v1/cart/:cart_item_id
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	viewer := viewerFromContext(c)

	ref, err := itemRefFromParam(viewer, c.Param("cart_item_id"))
	if err != nil {
		apierrors.BadRequest(c, apierrors.ValidationInvalidID, "Invalid cart item id")
		return
	}

	view, err := ctrl.cartView.RemoveItem(c.Request.Context(), viewer, ref)
	if err != nil {
		log.Warn("Failed to remove cart item", map[string]interface{}{
			"owner":     viewer.OwnerKey(),
			"cart_item": ref.Key(),
			"error":     err.Error(),
		})
		ctrl.respondCartError(c, err)
		return
	}

	log.Info("Cart item removed", map[string]interface{}{
		"owner":     viewer.OwnerKey(),
		"cart_item": ref.Key(),
	})

	c.JSON(http.StatusOK, view)
}

// Count returns the badge count for the viewer's cart
// GET /api/v1/cart/count
func (ctrl *CartController) Count(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	viewer := viewerFromContext(c)

	count, err := ctrl.cartView.CartCount(c.Request.Context(), viewer)
	if err != nil {
		log.Error("Failed to fetch cart count", err, map[string]interface{}{
			"owner": viewer.OwnerKey(),
		})
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// Subscribe upgrades to WebSocket and streams cart-changed signals for
// the viewer's cart until the connection closes
// GET /api/v1/cart/ws
func (ctrl *CartController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	viewer := viewerFromContext(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"owner": viewer.OwnerKey(),
			"error": err.Error(),
		})
		return
	}

	client := events.NewClient(ctrl.hub, conn, viewer.OwnerKey())
	ctrl.hub.Register(client)

	log.Info("Cart subscription opened", map[string]interface{}{
		"owner": viewer.OwnerKey(),
	})

	go client.WritePump()
	go client.ReadPump()
}

// respondCartError maps service and upstream failures onto the error
// envelope.
func (ctrl *CartController) respondCartError(c *gin.Context, err error) {
	var stockErr *service.StockExceededError
	switch {
	case errors.As(err, &stockErr):
		apierrors.RespondWithError(c, http.StatusConflict, apierrors.CartInsufficientStock, stockErr.Error())
	case errors.Is(err, service.ErrInsufficientStock), errors.Is(err, commerce.ErrInsufficientStock):
		apierrors.Conflict(c, apierrors.CartInsufficientStock, "Not enough stock for the requested quantity")
	case errors.Is(err, service.ErrCartItemNotFound), errors.Is(err, commerce.ErrNotFound):
		apierrors.NotFound(c, apierrors.CartItemNotFound, "Cart item not found")
	case errors.Is(err, service.ErrInvalidQuantity):
		apierrors.BadRequest(c, apierrors.ValidationInvalidQuantity, "Quantity must be at least 1")
	case errors.Is(err, commerce.ErrUnauthorized):
		apierrors.Unauthorized(c, "Your session is no longer valid")
	case errors.Is(err, commerce.ErrNetworkError):
		apierrors.BadGateway(c, "")
	case errors.Is(err, commerce.ErrUpstream):
		apierrors.RespondWithError(c, http.StatusBadGateway, apierrors.UpstreamError, "The store could not process the request")
	default:
		apierrors.InternalError(c, "")
	}
}
