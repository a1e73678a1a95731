package controller

import (
	"errors"
	"net/http"

	"github.com/dhkim/storefront-gateway/internal/app/service"
	apierrors "github.com/dhkim/storefront-gateway/internal/errors"
	"github.com/dhkim/storefront-gateway/internal/middleware"
	"github.com/dhkim/storefront-gateway/pkg/commerce"
	"github.com/gin-gonic/gin"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates against the commerce API, carrying the guest cart
// along so the upstream merges it in the same round trip
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, "Email and password are required")
		return
	}

	guestID, _ := middleware.GetGuestID(c)

	result, err := ctrl.authService.Login(c.Request.Context(), guestID, req.Email, req.Password)
	if err != nil {
		ctrl.respondLoginError(c, err)
		return
	}

	log.Info("User logged in", map[string]interface{}{
		"user_id": result.User.ID,
		"email":   result.User.Email,
		"merged":  result.CartMerge != nil,
	})

	c.JSON(http.StatusOK, result)
}

func (ctrl *AuthController) respondLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commerce.ErrInvalidCredentials):
		apierrors.RespondWithError(c, http.StatusUnauthorized, apierrors.AuthInvalidCredentials, "Invalid email or password")
	case errors.Is(err, commerce.ErrInvalidRequest):
		apierrors.BadRequest(c, apierrors.ValidationInvalidInput, "Invalid login request")
	case errors.Is(err, commerce.ErrNetworkError):
		apierrors.BadGateway(c, "")
	default:
		apierrors.InternalError(c, "")
	}
}
