package service

import (
	"context"
	"fmt"

	"github.com/dhkim/storefront-gateway/internal/app/model"
	"github.com/dhkim/storefront-gateway/pkg/commerce"
	"github.com/dhkim/storefront-gateway/pkg/logger"
)

// NoticeLevel grades a post-login message for display.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is one user-facing message produced while processing a login.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// LoginResult is what the gateway hands back after a login: the upstream
// identity and tokens, the merge outcome when one happened, and display
// notices derived from it.
type LoginResult struct {
	User      commerce.User             `json:"user"`
	Tokens    commerce.TokenPair        `json:"tokens"`
	CartMerge *commerce.CartMergeResult `json:"cart_merge,omitempty"`
	Notices   []Notice                  `json:"notices,omitempty"`
}

// CommerceAuthAPI is the slice of the upstream client the login flow needs.
type CommerceAuthAPI interface {
	Login(ctx context.Context, req commerce.LoginRequest) (*commerce.LoginResponse, error)
}

// AuthService runs the login flow, piggybacking the visitor's guest cart
// on the credential exchange so the upstream merges it into the account
// cart in the same round trip.
type AuthService interface {
	Login(ctx context.Context, guestID, email, password string) (*LoginResult, error)
}

type authService struct {
	upstream   CommerceAuthAPI
	guestCarts GuestCartService
}

func NewAuthService(upstream CommerceAuthAPI, guestCarts GuestCartService) AuthService {
	return &authService{
		upstream:   upstream,
		guestCarts: guestCarts,
	}
}

// Login snapshots the guest cart before the request so the attached copy
// is immune to concurrent mutation, attaches it only when non-empty, and
// clears the guest cart only after the upstream acknowledged the merge.
// A failed login leaves the guest cart exactly as it was.
func (s *authService) Login(ctx context.Context, guestID, email, password string) (*LoginResult, error) {
	snapshot := s.guestCarts.Read(ctx, guestID).Clone()
	mergeRequested := !snapshot.IsEmpty()

	req := commerce.LoginRequest{
		Email:    email,
		Password: password,
	}
	if mergeRequested {
		req.GuestCart = toWireGuestCart(snapshot)
	}

	logger.Info("Authenticating against commerce API", map[string]interface{}{
		"email":           email,
		"merge_requested": mergeRequested,
		"guest_items":     snapshot.TotalItems,
	})

	resp, err := s.upstream.Login(ctx, req)
	if err != nil {
		logger.Warn("Authentication failed, guest cart kept", map[string]interface{}{
			"email": email,
			"error": err.Error(),
		})
		return nil, err
	}

	result := &LoginResult{
		User:   resp.User,
		Tokens: resp.Tokens,
	}

	if !mergeRequested {
		// nothing was sent, so any merge block in the response is noise
		return result, nil
	}

	if resp.CartMerge == nil {
		// the upstream never acknowledged the merge; keep the guest cart
		// so the items are not silently lost
		logger.Warn("Login succeeded but merge went unacknowledged", map[string]interface{}{
			"user_id":     resp.User.ID,
			"guest_items": snapshot.TotalItems,
		})
		return result, nil
	}

	logger.Debug("Processing cart merge result", map[string]interface{}{
		"user_id": resp.User.ID,
	})

	result.CartMerge = resp.CartMerge
	result.Notices = mergeNotices(resp.CartMerge)

	logger.Info("Guest cart merged into account cart", map[string]interface{}{
		"user_id":  resp.User.ID,
		"added":    len(resp.CartMerge.Added),
		"adjusted": len(resp.CartMerge.Adjusted),
		"failed":   len(resp.CartMerge.Failed),
	})

	s.guestCarts.Clear(ctx, guestID)
	return result, nil
}

// mergeNotices turns the structured merge outcome into display messages:
// the overall summary, one info line per quantity adjustment and one
// warning per rejected line.
func mergeNotices(merge *commerce.CartMergeResult) []Notice {
	notices := make([]Notice, 0, 1+len(merge.Adjusted)+len(merge.Failed))

	if merge.Message != "" {
		notices = append(notices, Notice{Level: NoticeSuccess, Message: merge.Message})
	}
	for _, it := range merge.Adjusted {
		msg := fmt.Sprintf("%s: quantity adjusted to %d", it.Name, it.Quantity)
		if it.Reason != "" {
			msg += " (" + it.Reason + ")"
		}
		notices = append(notices, Notice{Level: NoticeInfo, Message: msg})
	}
	for _, it := range merge.Failed {
		msg := fmt.Sprintf("%s could not be added", it.Name)
		if it.Reason != "" {
			msg += ": " + it.Reason
		}
		notices = append(notices, Notice{Level: NoticeWarning, Message: msg})
	}

	return notices
}

func toWireGuestCart(cart *model.GuestCart) *commerce.GuestCart {
	wire := &commerce.GuestCart{
		CartID:     cart.CartID,
		Items:      make([]commerce.GuestCartItem, 0, len(cart.Items)),
		TotalItems: cart.TotalItems,
	}
	for _, it := range cart.Items {
		wire.Items = append(wire.Items, commerce.GuestCartItem{
			CartItemID:     it.CartItemID,
			ItemID:         it.ItemID,
			SizeID:         it.SizeID,
			Name:           it.Name,
			Size:           it.Size,
			UnitPrice:      it.UnitPrice,
			TotalAvailable: it.TotalAvailable,
			ImageURL:       it.ImageURL,
			Categories:     it.Categories,
			Quantity:       it.Quantity,
		})
	}
	return wire
}
