package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/ecofinds/ecofinds-api/internal/dto"
	"github.com/ecofinds/ecofinds-api/internal/model"
	"github.com/ecofinds/ecofinds-api/internal/repository"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrSelfPurchase   = errors.New("cannot purchase your own listing")
	ErrOrderNotFound  = errors.New("order not found")
	ErrListingNotOpen = errors.New("listing is not available")
)

type OrderService struct {
	checkout    repository.CheckoutStore
	orderRepo   repository.OrderRepository
	listingRepo repository.ListingRepository
	amqpCh      *amqp.Channel
}

func NewOrderService(
	checkout repository.CheckoutStore,
	orderRepo repository.OrderRepository,
	listingRepo repository.ListingRepository,
	amqpCh *amqp.Channel,
) *OrderService {
	return &OrderService{checkout: checkout, orderRepo: orderRepo, listingRepo: listingRepo, amqpCh: amqpCh}
}

// Checkout turns the user's cart into an order in one transaction: locked
// cart read, order insert, one snapshot row per line, cart cleared, reward
// points added, commit. Totals come from the unit prices stored on the cart
// lines, so the buyer pays exactly what their cart displayed.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, shippingAddress *string) (*dto.OrderResponse, error) {
	tx, err := s.checkout.Begin(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback(ctx)

	lines, err := tx.CartLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	items := make([]model.OrderItem, 0, len(lines))
	for _, ln := range lines {
		total = total.Add(ln.LineTotal())
		items = append(items, model.OrderItem{
			ListingID:     ln.ListingID,
			TitleSnapshot: ln.Title,
			PriceSnapshot: ln.UnitPrice,
			Quantity:      ln.Quantity,
		})
	}

	order := &model.Order{Status: model.OrderStatusConfirmed, Total: total, ShippingAddress: shippingAddress}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := tx.CreateOrderItems(ctx, items); err != nil {
		return nil, fmt.Errorf("create order items: %w", err)
	}
	if err := tx.ClearCart(ctx); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	if err := tx.AddRewardPoints(ctx, int(total.IntPart())); err != nil {
		return nil, fmt.Errorf("add reward points: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}
	order.Items = items

	s.publishOrderPlaced(ctx, order)

	resp := toOrderResponse(order)
	return &resp, nil
}

// DirectPurchase is the single-item path that bypasses the cart: one
// synthetic line of quantity 1 at the listing's current price, written
// through the same transactional path as checkout.
func (s *OrderService) DirectPurchase(ctx context.Context, userID, listingID uuid.UUID) (*dto.OrderResponse, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if listing.OwnerID == userID {
		return nil, ErrSelfPurchase
	}
	if !listing.Available {
		return nil, ErrListingNotOpen
	}

	tx, err := s.checkout.Begin(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin purchase: %w", err)
	}
	defer tx.Rollback(ctx)

	order := &model.Order{Status: model.OrderStatusConfirmed, Total: listing.Price}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	items := []model.OrderItem{{
		OrderID:       order.ID,
		ListingID:     listing.ID,
		TitleSnapshot: listing.Title,
		PriceSnapshot: listing.Price,
		Quantity:      1,
	}}
	if err := tx.CreateOrderItems(ctx, items); err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}
	if err := tx.AddRewardPoints(ctx, int(listing.Price.IntPart())); err != nil {
		return nil, fmt.Errorf("add reward points: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}
	order.Items = items

	s.publishOrderPlaced(ctx, order)

	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	// A foreign order reads as absent, never as forbidden.
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID) (*dto.OrderListResponse, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	return &dto.OrderListResponse{Orders: items, Total: len(items)}, nil
}

// Transactions is the flat purchase-history projection of ListMine.
func (s *OrderService) Transactions(ctx context.Context, userID uuid.UUID) ([]dto.TransactionResponse, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	txs := make([]dto.TransactionResponse, 0, len(orders))
	for _, o := range orders {
		tx := dto.TransactionResponse{ID: o.ID, Total: o.Total, CreatedAt: o.CreatedAt}
		for _, it := range o.Items {
			tx.Items = append(tx.Items, dto.TransactionItemResponse{
				ListingID: it.ListingID,
				Title:     it.TitleSnapshot,
				Price:     it.PriceSnapshot,
				Qty:       it.Quantity,
				LineTotal: it.PriceSnapshot.Mul(decimal.NewFromInt(int64(it.Quantity))),
			})
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// publishOrderPlaced hands the committed order to the sold-listing worker.
// Best effort: the order is already durable, delivery failures are not
// surfaced to the buyer.
func (s *OrderService) publishOrderPlaced(ctx context.Context, order *model.Order) {
	if s.amqpCh == nil {
		return
	}
	msg, _ := json.Marshal(model.OrderPlacedMessage{OrderID: order.ID, UserID: order.UserID})
	_ = s.amqpCh.PublishWithContext(ctx, "", "orders", false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:            it.ID,
			ListingID:     it.ListingID,
			TitleSnapshot: it.TitleSnapshot,
			PriceSnapshot: it.PriceSnapshot,
			Qty:           it.Quantity,
		})
	}
	return dto.OrderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		Total:           order.Total,
		ShippingAddress: order.ShippingAddress,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}
