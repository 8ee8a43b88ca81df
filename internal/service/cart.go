package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecofinds/ecofinds-api/internal/dto"
	"github.com/ecofinds/ecofinds-api/internal/model"
	"github.com/ecofinds/ecofinds-api/internal/repository"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)

type CartService struct {
	cartRepo    repository.CartRepository
	listingRepo repository.ListingRepository
}

func NewCartService(cartRepo repository.CartRepository, listingRepo repository.ListingRepository) *CartService {
	return &CartService{cartRepo: cartRepo, listingRepo: listingRepo}
}

// AddItem merges on (user, listing): a repeat add bumps the quantity of the
// existing line. The unit price is captured from the listing only when the
// line is first created and is never refreshed on a merge, so the buyer
// keeps the price the cart showed them when they first added the item.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req dto.AddCartItemRequest) (*dto.CartItemResponse, error) {
	if req.Qty < 1 {
		return nil, ErrInvalidQuantity
	}

	listing, err := s.listingRepo.GetByID(ctx, req.ListingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}

	item := &model.CartItem{
		UserID:    userID,
		ListingID: req.ListingID,
		Quantity:  req.Qty,
		UnitPrice: listing.Price,
	}
	if err := s.cartRepo.Upsert(ctx, item); err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	return &dto.CartItemResponse{
		ID:        item.ID,
		ListingID: item.ListingID,
		Title:     listing.Title,
		UnitPrice: item.UnitPrice,
		Qty:       item.Quantity,
		LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}, nil
}

// UpdateItem sets the quantity and returns the updated line with its
// recomputed line total.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, qty int) (*dto.CartItemResponse, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	item, err := s.cartRepo.UpdateQty(ctx, itemID, userID, qty)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}

	var title string
	if listing, err := s.listingRepo.GetByID(ctx, item.ListingID); err == nil && listing != nil {
		title = listing.Title
	}
	return &dto.CartItemResponse{
		ID:        item.ID,
		ListingID: item.ListingID,
		Title:     title,
		UnitPrice: item.UnitPrice,
		Qty:       item.Quantity,
		LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	ok, err := s.cartRepo.Delete(ctx, itemID, userID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if !ok {
		return ErrCartItemNotFound
	}
	return nil
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*dto.CartResponse, error) {
	lines, err := s.cartRepo.Lines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}

	items := make([]dto.CartItemResponse, 0, len(lines))
	subtotal := decimal.Zero
	for _, ln := range lines {
		lineTotal := ln.LineTotal()
		items = append(items, dto.CartItemResponse{
			ID:        ln.ID,
			ListingID: ln.ListingID,
			Title:     ln.Title,
			UnitPrice: ln.UnitPrice,
			Qty:       ln.Quantity,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return &dto.CartResponse{Items: items, Subtotal: subtotal}, nil
}
