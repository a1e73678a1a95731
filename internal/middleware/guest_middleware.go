package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context and cookie keys for guest identity
const (
	GuestIDKey    = "guest_id"
	GuestIDCookie = "sg_guest_id"
)

// guest cookie lifetime in seconds, aligned with the guest cart TTL
const guestCookieMaxAge = 60 * 60 * 24 * 30

// GuestIdentity assigns every visitor a stable guest id via cookie. The
// id keys the server-side guest cart, so it is issued on first contact
// and kept after login until the merge clears the cart.
func GuestIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		guestID, err := c.Cookie(GuestIDCookie)
		if err != nil || guestID == "" {
			guestID = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(GuestIDCookie, guestID, guestCookieMaxAge, "/", "", false, true)
		}

		c.Set(GuestIDKey, guestID)
		c.Next()
	}
}

// GetGuestID extracts the guest id from context
func GetGuestID(c *gin.Context) (string, bool) {
	guestID, exists := c.Get(GuestIDKey)
	if !exists {
		return "", false
	}
	return guestID.(string), true
}
