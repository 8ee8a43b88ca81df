package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofinds/ecofinds-api/internal/dto"
	"github.com/ecofinds/ecofinds-api/internal/model"
)

type cartKey struct {
	userID    uuid.UUID
	listingID uuid.UUID
}

type mockCartRepo struct {
	items  map[cartKey]*model.CartItem
	order  []cartKey
	titles map[uuid.UUID]string
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{
		items:  make(map[cartKey]*model.CartItem),
		titles: make(map[uuid.UUID]string),
	}
}

func (m *mockCartRepo) Upsert(_ context.Context, item *model.CartItem) error {
	key := cartKey{item.UserID, item.ListingID}
	if existing, ok := m.items[key]; ok {
		existing.Quantity += item.Quantity
		*item = *existing
		return nil
	}
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	stored := *item
	m.items[key] = &stored
	m.order = append(m.order, key)
	return nil
}

func (m *mockCartRepo) GetItem(_ context.Context, itemID, userID uuid.UUID) (*model.CartItem, error) {
	for _, it := range m.items {
		if it.ID == itemID && it.UserID == userID {
			return it, nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) UpdateQty(_ context.Context, itemID, userID uuid.UUID, qty int) (*model.CartItem, error) {
	for _, it := range m.items {
		if it.ID == itemID && it.UserID == userID {
			it.Quantity = qty
			updated := *it
			return &updated, nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) Delete(_ context.Context, itemID, userID uuid.UUID) (bool, error) {
	for key, it := range m.items {
		if it.ID == itemID && it.UserID == userID {
			delete(m.items, key)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCartRepo) Lines(_ context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	var lines []model.CartLine
	for _, key := range m.order {
		it, ok := m.items[key]
		if !ok || it.UserID != userID {
			continue
		}
		lines = append(lines, model.CartLine{CartItem: *it, Title: m.titles[it.ListingID]})
	}
	return lines, nil
}

func TestCartService_AddItem(t *testing.T) {
	cartRepo := newMockCartRepo()
	listingRepo := newMockListingRepo()
	l := seedListing(listingRepo, uuid.New(), "Record player", "24.50")
	svc := NewCartService(cartRepo, listingRepo)

	resp, err := svc.AddItem(context.Background(), uuid.New(), dto.AddCartItemRequest{ListingID: l.ID, Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Qty)
	assert.True(t, resp.UnitPrice.Equal(decimal.RequireFromString("24.50")))
	assert.True(t, resp.LineTotal.Equal(decimal.RequireFromString("49.00")))
}

func TestCartService_AddItem_MergeKeepsFirstPrice(t *testing.T) {
	cartRepo := newMockCartRepo()
	listingRepo := newMockListingRepo()
	l := seedListing(listingRepo, uuid.New(), "Record player", "10")
	svc := NewCartService(cartRepo, listingRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, dto.AddCartItemRequest{ListingID: l.ID, Qty: 1})
	require.NoError(t, err)

	// seller raises the price between the two adds
	l.Price = decimal.NewFromInt(99)

	resp, err := svc.AddItem(context.Background(), userID, dto.AddCartItemRequest{ListingID: l.ID, Qty: 1})
	require.NoError(t, err)

	assert.Len(t, cartRepo.items, 1)
	assert.Equal(t, 2, resp.Qty)
	assert.True(t, resp.UnitPrice.Equal(decimal.NewFromInt(10)))
}

func TestCartService_AddItem_ListingNotFound(t *testing.T) {
	svc := NewCartService(newMockCartRepo(), newMockListingRepo())
	_, err := svc.AddItem(context.Background(), uuid.New(), dto.AddCartItemRequest{ListingID: uuid.New(), Qty: 1})
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestCartService_AddItem_BadQuantity(t *testing.T) {
	svc := NewCartService(newMockCartRepo(), newMockListingRepo())
	_, err := svc.AddItem(context.Background(), uuid.New(), dto.AddCartItemRequest{ListingID: uuid.New(), Qty: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_UpdateItem_ForeignItem(t *testing.T) {
	cartRepo := newMockCartRepo()
	listingRepo := newMockListingRepo()
	l := seedListing(listingRepo, uuid.New(), "Record player", "10")
	svc := NewCartService(cartRepo, listingRepo)

	resp, err := svc.AddItem(context.Background(), uuid.New(), dto.AddCartItemRequest{ListingID: l.ID, Qty: 1})
	require.NoError(t, err)

	// another user cannot see or touch the line
	_, err = svc.UpdateItem(context.Background(), uuid.New(), resp.ID, 5)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_UpdateItem_ReturnsUpdatedLine(t *testing.T) {
	cartRepo := newMockCartRepo()
	listingRepo := newMockListingRepo()
	l := seedListing(listingRepo, uuid.New(), "Record player", "10")
	svc := NewCartService(cartRepo, listingRepo)
	userID := uuid.New()

	added, err := svc.AddItem(context.Background(), userID, dto.AddCartItemRequest{ListingID: l.ID, Qty: 1})
	require.NoError(t, err)

	updated, err := svc.UpdateItem(context.Background(), userID, added.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, added.ID, updated.ID)
	assert.Equal(t, 3, updated.Qty)
	assert.Equal(t, "Record player", updated.Title)
	assert.True(t, updated.UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, updated.LineTotal.Equal(decimal.NewFromInt(30)))
}

func TestCartService_RemoveItem_NotFound(t *testing.T) {
	svc := NewCartService(newMockCartRepo(), newMockListingRepo())
	err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_GetCart_Subtotal(t *testing.T) {
	cartRepo := newMockCartRepo()
	listingRepo := newMockListingRepo()
	a := seedListing(listingRepo, uuid.New(), "Record player", "10")
	b := seedListing(listingRepo, uuid.New(), "Headphones", "5.50")
	cartRepo.titles[a.ID] = a.Title
	cartRepo.titles[b.ID] = b.Title
	svc := NewCartService(cartRepo, listingRepo)
	userID := uuid.New()

	_, err := svc.AddItem(context.Background(), userID, dto.AddCartItemRequest{ListingID: a.ID, Qty: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, dto.AddCartItemRequest{ListingID: b.ID, Qty: 1})
	require.NoError(t, err)

	cart, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.True(t, cart.Subtotal.Equal(decimal.RequireFromString("25.50")))
}

func TestCartService_GetCart_Empty(t *testing.T) {
	svc := NewCartService(newMockCartRepo(), newMockListingRepo())
	cart, err := svc.GetCart(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Subtotal.IsZero())
}
