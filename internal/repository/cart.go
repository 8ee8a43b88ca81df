package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecofinds/ecofinds-api/internal/model"
)

type CartRepository interface {
	// Upsert merges on (user_id, listing_id): an existing line gets its
	// quantity incremented and keeps its original unit_price snapshot.
	Upsert(ctx context.Context, item *model.CartItem) error
	GetItem(ctx context.Context, itemID, userID uuid.UUID) (*model.CartItem, error)
	// UpdateQty returns the updated row, or nil when the item does not
	// exist or belongs to someone else.
	UpdateQty(ctx context.Context, itemID, userID uuid.UUID, qty int) (*model.CartItem, error)
	Delete(ctx context.Context, itemID, userID uuid.UUID) (bool, error)
	Lines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) Upsert(ctx context.Context, item *model.CartItem) error {
	item.ID = uuid.New()
	// unit_price is deliberately left out of the conflict update: the
	// snapshot taken at first add sticks for the life of the line.
	err := r.pool.QueryRow(ctx,
		`INSERT INTO cart_items (id, user_id, listing_id, quantity, unit_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (user_id, listing_id) DO UPDATE
		 SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		 RETURNING id, quantity, unit_price, created_at, updated_at`,
		item.ID, item.UserID, item.ListingID, item.Quantity, item.UnitPrice,
	).Scan(&item.ID, &item.Quantity, &item.UnitPrice, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) GetItem(ctx context.Context, itemID, userID uuid.UUID) (*model.CartItem, error) {
	item := &model.CartItem{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, listing_id, quantity, unit_price, created_at, updated_at
		 FROM cart_items WHERE id = $1 AND user_id = $2`,
		itemID, userID,
	).Scan(&item.ID, &item.UserID, &item.ListingID, &item.Quantity, &item.UnitPrice, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return item, nil
}

func (r *pgCartRepo) UpdateQty(ctx context.Context, itemID, userID uuid.UUID, qty int) (*model.CartItem, error) {
	item := &model.CartItem{}
	err := r.pool.QueryRow(ctx,
		`UPDATE cart_items SET quantity = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, listing_id, quantity, unit_price, created_at, updated_at`,
		itemID, userID, qty,
	).Scan(&item.ID, &item.UserID, &item.ListingID, &item.Quantity, &item.UnitPrice, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return item, nil
}

func (r *pgCartRepo) Delete(ctx context.Context, itemID, userID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return false, fmt.Errorf("delete cart item: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// Lines is the read-side cart projection: every line joined with its
// listing title. It never mutates anything.
func (r *pgCartRepo) Lines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ci.id, ci.user_id, ci.listing_id, ci.quantity, ci.unit_price, ci.created_at, ci.updated_at, l.title
		 FROM cart_items ci
		 JOIN listings l ON ci.listing_id = l.id
		 WHERE ci.user_id = $1
		 ORDER BY ci.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
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
