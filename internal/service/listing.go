package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ecofinds/ecofinds-api/internal/dto"
	"github.com/ecofinds/ecofinds-api/internal/model"
	"github.com/ecofinds/ecofinds-api/internal/repository"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrInvalidListing  = errors.New("invalid listing")
	ErrInvalidFilter   = errors.New("invalid filter")
)

const (
	listingCacheTTL = 60 * time.Second
	maxPerPage      = 50
)

type ListingService struct {
	listingRepo repository.ListingRepository
	redisClient *redis.Client
}

func NewListingService(listingRepo repository.ListingRepository, redisClient *redis.Client) *ListingService {
	return &ListingService{listingRepo: listingRepo, redisClient: redisClient}
}

func (s *ListingService) Create(ctx context.Context, ownerID uuid.UUID, req dto.CreateListingRequest) (*dto.ListingResponse, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Category) == "" {
		return nil, fmt.Errorf("%w: title and category are required", ErrInvalidListing)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidListing)
	}

	listing := &model.Listing{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	}
	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	resp := toListingResponse(listing)
	return &resp, nil
}

func (s *ListingService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ListingResponse, error) {
	cacheKey := "listing:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ListingResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	listing, err := s.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}

	resp := toListingResponse(listing)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, listingCacheTTL)
		}
	}

	return &resp, nil
}

func (s *ListingService) List(ctx context.Context, req dto.ListListingsRequest) (*dto.ListingListResponse, error) {
	if req.Page < 1 || req.PerPage < 1 {
		return nil, fmt.Errorf("%w: page and per_page must be positive", ErrInvalidFilter)
	}
	if req.PerPage > maxPerPage {
		req.PerPage = maxPerPage
	}

	filter := repository.ListingFilter{
		Query:    req.Query,
		Category: req.Category,
		Limit:    req.PerPage,
		Offset:   (req.Page - 1) * req.PerPage,
	}
	var err error
	if filter.MinPrice, err = parsePrice(req.MinPrice); err != nil {
		return nil, fmt.Errorf("%w: bad min_price", ErrInvalidFilter)
	}
	if filter.MaxPrice, err = parsePrice(req.MaxPrice); err != nil {
		return nil, fmt.Errorf("%w: bad max_price", ErrInvalidFilter)
	}

	listings, total, err := s.listingRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	items := make([]dto.ListingResponse, 0, len(listings))
	for i := range listings {
		items = append(items, toListingResponse(&listings[i]))
	}
	return &dto.ListingListResponse{Listings: items, Total: total, Page: req.Page, PerPage: req.PerPage}, nil
}

func (s *ListingService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]dto.ListingResponse, error) {
	listings, err := s.listingRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list listings by owner: %w", err)
	}
	items := make([]dto.ListingResponse, 0, len(listings))
	for i := range listings {
		items = append(items, toListingResponse(&listings[i]))
	}
	return items, nil
}

// Update is a full replace, owner only. A miss and a foreign listing are
// indistinguishable to the caller.
func (s *ListingService) Update(ctx context.Context, ownerID, id uuid.UUID, req dto.CreateListingRequest) (*dto.ListingResponse, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Category) == "" {
		return nil, fmt.Errorf("%w: title and category are required", ErrInvalidListing)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidListing)
	}

	listing := &model.Listing{
		ID:          id,
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Available:   true,
	}
	ok, err := s.listingRepo.Update(ctx, listing)
	if err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	if !ok {
		return nil, ErrListingNotFound
	}

	s.invalidateCache(ctx, id)
	return s.GetByID(ctx, id)
}

// Delete soft-disables: the row survives for order-item references.
func (s *ListingService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	ok, err := s.listingRepo.Disable(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("disable listing: %w", err)
	}
	if !ok {
		return ErrListingNotFound
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *ListingService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "listing:"+id.String())
	}
}

func parsePrice(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("bad price %q", raw)
	}
	return &d, nil
}

func toListingResponse(l *model.Listing) dto.ListingResponse {
	return dto.ListingResponse{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		Price:       l.Price,
		ImageURL:    l.ImageURL,
		Available:   l.Available,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}
