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
	"github.com/ecofinds/ecofinds-api/internal/repository"
)

type mockListingRepo struct {
	listings   map[uuid.UUID]*model.Listing
	lastFilter repository.ListingFilter
}

func newMockListingRepo() *mockListingRepo {
	return &mockListingRepo{listings: make(map[uuid.UUID]*model.Listing)}
}

func (m *mockListingRepo) Create(_ context.Context, listing *model.Listing) error {
	listing.ID = uuid.New()
	listing.Available = true
	listing.CreatedAt = time.Now()
	listing.UpdatedAt = listing.CreatedAt
	m.listings[listing.ID] = listing
	return nil
}

func (m *mockListingRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Listing, error) {
	return m.listings[id], nil
}

func (m *mockListingRepo) List(_ context.Context, filter repository.ListingFilter) ([]model.Listing, int, error) {
	m.lastFilter = filter
	var out []model.Listing
	for _, l := range m.listings {
		if l.Available {
			out = append(out, *l)
		}
	}
	return out, len(out), nil
}

func (m *mockListingRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Listing, error) {
	var out []model.Listing
	for _, l := range m.listings {
		if l.OwnerID == ownerID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockListingRepo) Update(_ context.Context, listing *model.Listing) (bool, error) {
	existing, ok := m.listings[listing.ID]
	if !ok || existing.OwnerID != listing.OwnerID {
		return false, nil
	}
	*existing = *listing
	return true, nil
}

func (m *mockListingRepo) Disable(_ context.Context, id, ownerID uuid.UUID) (bool, error) {
	l, ok := m.listings[id]
	if !ok || l.OwnerID != ownerID {
		return false, nil
	}
	l.Available = false
	return true, nil
}

func (m *mockListingRepo) DisableSold(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if l, ok := m.listings[id]; ok {
			l.Available = false
		}
	}
	return nil
}

func seedListing(repo *mockListingRepo, ownerID uuid.UUID, title, price string) *model.Listing {
	l := &model.Listing{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Category:  "Electronics",
		Price:     decimal.RequireFromString(price),
		Available: true,
	}
	repo.listings[l.ID] = l
	return l
}

func TestListingService_Create(t *testing.T) {
	repo := newMockListingRepo()
	svc := NewListingService(repo, nil)
	resp, err := svc.Create(context.Background(), uuid.New(), dto.CreateListingRequest{
		Title: "Old bike", Category: "Sports", Price: decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	assert.True(t, resp.Available)
	assert.Len(t, repo.listings, 1)
}

func TestListingService_Create_MissingTitle(t *testing.T) {
	svc := NewListingService(newMockListingRepo(), nil)
	_, err := svc.Create(context.Background(), uuid.New(), dto.CreateListingRequest{
		Title: "   ", Category: "Sports", Price: decimal.NewFromInt(40),
	})
	assert.ErrorIs(t, err, ErrInvalidListing)
}

func TestListingService_Create_NegativePrice(t *testing.T) {
	svc := NewListingService(newMockListingRepo(), nil)
	_, err := svc.Create(context.Background(), uuid.New(), dto.CreateListingRequest{
		Title: "Old bike", Category: "Sports", Price: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, ErrInvalidListing)
}

func TestListingService_GetByID_NotFound(t *testing.T) {
	svc := NewListingService(newMockListingRepo(), nil)
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestListingService_List_ClampsPerPage(t *testing.T) {
	repo := newMockListingRepo()
	svc := NewListingService(repo, nil)
	resp, err := svc.List(context.Background(), dto.ListListingsRequest{Page: 3, PerPage: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, resp.PerPage)
	assert.Equal(t, 50, repo.lastFilter.Limit)
	assert.Equal(t, 100, repo.lastFilter.Offset)
}

func TestListingService_List_BadPage(t *testing.T) {
	svc := NewListingService(newMockListingRepo(), nil)
	_, err := svc.List(context.Background(), dto.ListListingsRequest{Page: 0, PerPage: 20})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestListingService_List_BadMinPrice(t *testing.T) {
	svc := NewListingService(newMockListingRepo(), nil)
	_, err := svc.List(context.Background(), dto.ListListingsRequest{Page: 1, PerPage: 20, MinPrice: "abc"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestListingService_Update_ForeignListing(t *testing.T) {
	repo := newMockListingRepo()
	l := seedListing(repo, uuid.New(), "Lamp", "15")
	svc := NewListingService(repo, nil)
	_, err := svc.Update(context.Background(), uuid.New(), l.ID, dto.CreateListingRequest{
		Title: "Lamp", Category: "Home", Price: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestListingService_Delete_SoftDisables(t *testing.T) {
	repo := newMockListingRepo()
	ownerID := uuid.New()
	l := seedListing(repo, ownerID, "Lamp", "15")
	svc := NewListingService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), ownerID, l.ID))
	assert.False(t, repo.listings[l.ID].Available)
	// row is kept, not removed
	assert.Len(t, repo.listings, 1)
}
