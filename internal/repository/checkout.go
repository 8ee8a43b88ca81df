package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecofinds/ecofinds-api/internal/model"
)

// CheckoutTx is the unit of work behind checkout and direct purchase: one
// database transaction scoped to a single buyer. Either everything done
// through it commits together or none of it does.
type CheckoutTx interface {
	// CartLines loads the buyer's cart joined with listing titles and
	// locks the cart rows, so two concurrent checkouts of the same cart
	// serialize instead of both reading the same snapshot.
	CartLines(ctx context.Context) ([]model.CartLine, error)
	CreateOrder(ctx context.Context, order *model.Order) error
	CreateOrderItems(ctx context.Context, items []model.OrderItem) error
	ClearCart(ctx context.Context) error
	AddRewardPoints(ctx context.Context, points int) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type CheckoutStore interface {
	Begin(ctx context.Context, userID uuid.UUID) (CheckoutTx, error)
}

type pgCheckoutStore struct{ pool *pgxpool.Pool }

func NewCheckoutStore(pool *pgxpool.Pool) CheckoutStore {
	return &pgCheckoutStore{pool: pool}
}

func (s *pgCheckoutStore) Begin(ctx context.Context, userID uuid.UUID) (CheckoutTx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin checkout tx: %w", err)
	}
	return &pgCheckoutTx{tx: tx, userID: userID}, nil
}

type pgCheckoutTx struct {
	tx     pgx.Tx
	userID uuid.UUID
}

func (t *pgCheckoutTx) CartLines(ctx context.Context) ([]model.CartLine, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT ci.id, ci.user_id, ci.listing_id, ci.quantity, ci.unit_price, ci.created_at, ci.updated_at, l.title
		 FROM cart_items ci
		 JOIN listings l ON ci.listing_id = l.id
		 WHERE ci.user_id = $1
		 ORDER BY ci.created_at
		 FOR UPDATE OF ci`,
		t.userID,
	)
	if err != nil {
		return nil, fmt.Errorf("lock cart lines: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var ln model.CartLine
		if err := rows.Scan(&ln.ID, &ln.UserID, &ln.ListingID, &ln.Quantity,
			&ln.UnitPrice, &ln.CreatedAt, &ln.UpdatedAt, &ln.Title); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}

func (t *pgCheckoutTx) CreateOrder(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	order.UserID = t.userID
	err := t.tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, status, total, shipping_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING created_at`,
		order.ID, order.UserID, order.Status, order.Total, order.ShippingAddress,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *pgCheckoutTx) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	for i := range items {
		items[i].ID = uuid.New()
		_, err := t.tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, listing_id, title_snapshot, price_snapshot, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			items[i].ID, items[i].OrderID, items[i].ListingID,
			items[i].TitleSnapshot, items[i].PriceSnapshot, items[i].Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (t *pgCheckoutTx) ClearCart(ctx context.Context) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, t.userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (t *pgCheckoutTx) AddRewardPoints(ctx context.Context, points int) error {
	if points <= 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE users SET reward_points = reward_points + $2 WHERE id = $1`, t.userID, points)
	if err != nil {
		return fmt.Errorf("add reward points: %w", err)
	}
	return nil
}

func (t *pgCheckoutTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgCheckoutTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
