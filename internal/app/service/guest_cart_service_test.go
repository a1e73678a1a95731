package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dhkim/storefront-gateway/internal/app/model"
	"github.com/dhkim/storefront-gateway/internal/app/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures Publish calls for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Publish(_ context.Context, owner, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, owner+"/"+reason)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// brokenRepo refuses every operation, simulating unreachable storage.
type brokenRepo struct{}

func (brokenRepo) Load(context.Context, string) (*model.GuestCart, error) {
	return nil, errors.New("storage offline")
}

func (brokenRepo) Save(context.Context, string, *model.GuestCart) error {
	return errors.New("storage offline")
}

func (brokenRepo) Delete(context.Context, string) error {
	return errors.New("storage offline")
}

func (brokenRepo) PurgeExpired(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func newGuestCartFixture() (GuestCartService, *recordingNotifier) {
	notifier := &recordingNotifier{}
	return NewGuestCartService(repository.NewMemoryGuestCartRepository(), notifier), notifier
}

func candidate(itemID, sizeID int64, price string, available, quantity int) GuestCartCandidate {
	return GuestCartCandidate{
		ItemID:         itemID,
		SizeID:         sizeID,
		Name:           "Canvas Tote",
		Size:           "M",
		UnitPrice:      decimal.RequireFromString(price),
		TotalAvailable: available,
		Quantity:       quantity,
	}
}

func TestGuestCartReadMissingReturnsFreshCart(t *testing.T) {
	svc, _ := newGuestCartFixture()

	cart := svc.Read(context.Background(), "guest-1")

	require.NotNil(t, cart)
	assert.NotEmpty(t, cart.CartID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
}

func TestGuestCartFreshCartNotPersistedUntilMutation(t *testing.T) {
	svc, _ := newGuestCartFixture()

	first := svc.Read(context.Background(), "guest-1")
	second := svc.Read(context.Background(), "guest-1")

	// each synthesized cart gets its own id until something is added
	assert.NotEqual(t, first.CartID, second.CartID)
}

func TestGuestCartAdd(t *testing.T) {
	svc, notifier := newGuestCartFixture()
	ctx := context.Background()

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 2, cart.TotalItems)
	assert.NotEmpty(t, cart.Items[0].CartItemID)

	// the cart id is now stable across reads
	reread := svc.Read(ctx, "guest-1")
	assert.Equal(t, cart.CartID, reread.CartID)
	assert.Contains(t, notifier.all(), "guest:guest-1/add")
}

func TestGuestCartAddRejectsNonPositiveQuantity(t *testing.T) {
	svc, _ := newGuestCartFixture()

	_, err := svc.Add(context.Background(), "guest-1", candidate(7, 2, "10.00", 5, 0))

	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGuestCartAddClampsToStock(t *testing.T) {
	svc, _ := newGuestCartFixture()

	cart, err := svc.Add(context.Background(), "guest-1", candidate(7, 2, "10.00", 3, 10))

	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 3, cart.TotalItems)
}

func TestGuestCartAddZeroStockCreatesNoLine(t *testing.T) {
	svc, notifier := newGuestCartFixture()
	ctx := context.Background()

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 0, 2))

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)

	// nothing was written: no quantity-0 line survives a re-read
	reread := svc.Read(ctx, "guest-1")
	assert.Empty(t, reread.Items)
	assert.Empty(t, notifier.all())
}

func TestGuestCartAddMergeDropsLineWhenStockGone(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	_, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))
	require.NoError(t, err)

	// the same variant comes back with no stock left; the merged line
	// clamps to zero and a zero-quantity line may not persist
	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 0, 1))

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)

	reread := svc.Read(ctx, "guest-1")
	assert.Empty(t, reread.Items)
}

func TestGuestCartAddMergesDuplicateProductVariant(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	first, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 10, 2))
	require.NoError(t, err)

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 10, 3))
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, first.Items[0].CartItemID, cart.Items[0].CartItemID)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.TotalItems)
}

func TestGuestCartAddMergeClampsCombinedQuantity(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	_, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 4, 3))
	require.NoError(t, err)

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 4, 3))
	require.NoError(t, err)

	assert.Equal(t, 4, cart.Items[0].Quantity)
}

func TestGuestCartDifferentSizesStaySeparate(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	_, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 1))
	require.NoError(t, err)

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 3, "10.00", 5, 1))
	require.NoError(t, err)

	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.TotalItems)
}

func TestGuestCartRemove(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))
	require.NoError(t, err)

	cart = svc.Remove(ctx, "guest-1", cart.Items[0].CartItemID)

	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
}

func TestGuestCartRemoveAbsentItemIsNoOp(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	_, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))
	require.NoError(t, err)

	cart := svc.Remove(ctx, "guest-1", "no-such-line")

	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.TotalItems)
}

func TestGuestCartSetQuantity(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 3, 2))
	require.NoError(t, err)
	id := cart.Items[0].CartItemID

	cart, err = svc.SetQuantity(ctx, "guest-1", id, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 3, cart.TotalItems)
}

func TestGuestCartSetQuantityAboveStockRejected(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 3, 3))
	require.NoError(t, err)
	id := cart.Items[0].CartItemID

	_, err = svc.SetQuantity(ctx, "guest-1", id, 4)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *StockExceededError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, "only 3 available", stockErr.Error())

	// the cart is left exactly as it was
	cart = svc.Read(ctx, "guest-1")
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 3, cart.TotalItems)
	assert.True(t, decimal.RequireFromString("30").Equal(cart.Subtotal()))
}

func TestGuestCartSetQuantityZeroRemovesLine(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))
	require.NoError(t, err)
	id := cart.Items[0].CartItemID

	cart, err = svc.SetQuantity(ctx, "guest-1", id, 0)

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
}

func TestGuestCartSetQuantityMissingLineReturnsCartUnchanged(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	_, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))
	require.NoError(t, err)

	cart, err := svc.SetQuantity(ctx, "guest-1", "no-such-line", 3)

	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestGuestCartTotalItemsAlwaysSumOfQuantities(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	check := func(cart *model.GuestCart) {
		t.Helper()
		sum := 0
		for _, it := range cart.Items {
			sum += it.Quantity
		}
		assert.Equal(t, sum, cart.TotalItems)
	}

	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))
	require.NoError(t, err)
	check(cart)

	cart, err = svc.Add(ctx, "guest-1", candidate(8, 1, "4.50", 2, 9))
	require.NoError(t, err)
	check(cart)

	cart, err = svc.SetQuantity(ctx, "guest-1", cart.Items[0].CartItemID, 4)
	require.NoError(t, err)
	check(cart)

	cart = svc.Remove(ctx, "guest-1", cart.Items[1].CartItemID)
	check(cart)
}

func TestGuestCartClear(t *testing.T) {
	svc, notifier := newGuestCartFixture()
	ctx := context.Background()

	_, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))
	require.NoError(t, err)

	svc.Clear(ctx, "guest-1")

	cart := svc.Read(ctx, "guest-1")
	assert.Empty(t, cart.Items)
	assert.Contains(t, notifier.all(), "guest:guest-1/clear")
}

func TestGuestCartRoundTripPreservesLines(t *testing.T) {
	svc, _ := newGuestCartFixture()
	ctx := context.Background()

	image := "https://cdn.example.com/tote.jpg"
	c := candidate(7, 2, "19.90", 5, 2)
	c.ImageURL = &image

	written, err := svc.Add(ctx, "guest-1", c)
	require.NoError(t, err)

	read := svc.Read(ctx, "guest-1")

	require.Len(t, read.Items, 1)
	assert.Equal(t, written.Items[0].CartItemID, read.Items[0].CartItemID)
	assert.Equal(t, "Canvas Tote", read.Items[0].Name)
	require.NotNil(t, read.Items[0].ImageURL)
	assert.Equal(t, image, *read.Items[0].ImageURL)
	assert.True(t, decimal.RequireFromString("19.90").Equal(read.Items[0].UnitPrice))
}

func TestGuestCartDegradesWhenStorageFails(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewGuestCartService(brokenRepo{}, notifier)
	ctx := context.Background()

	// reads degrade to a fresh empty cart
	cart := svc.Read(ctx, "guest-1")
	require.NotNil(t, cart)
	assert.Empty(t, cart.Items)

	// the mutation still succeeds in-session even though the write is lost
	cart, err := svc.Add(ctx, "guest-1", candidate(7, 2, "10.00", 5, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, cart.TotalItems)

	// no change notification for a write that did not land
	assert.Empty(t, notifier.all())

	// clearing a broken store does not panic or error
	svc.Clear(ctx, "guest-1")
}
