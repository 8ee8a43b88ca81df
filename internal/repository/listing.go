package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ecofinds/ecofinds-api/internal/model"
)

// ListingFilter narrows List. Zero values mean "no constraint".
type ListingFilter struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Limit    int
	Offset   int
}

type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]model.Listing, int, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Listing, error)
	Update(ctx context.Context, listing *model.Listing) (bool, error)
	Disable(ctx context.Context, id, ownerID uuid.UUID) (bool, error)
	DisableSold(ctx context.Context, ids []uuid.UUID) error
}

type pgListingRepo struct{ pool *pgxpool.Pool }

func NewListingRepository(pool *pgxpool.Pool) ListingRepository {
	return &pgListingRepo{pool: pool}
}

const listingColumns = `id, owner_id, title, description, category, price, image_url, available, created_at, updated_at`

func (r *pgListingRepo) Create(ctx context.Context, listing *model.Listing) error {
	listing.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO listings (id, owner_id, title, description, category, price, image_url, available, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW()) RETURNING created_at, updated_at`,
		listing.ID, listing.OwnerID, listing.Title, listing.Description,
		listing.Category, listing.Price, listing.ImageURL,
	).Scan(&listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	listing.Available = true
	return nil
}

func (r *pgListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	l := &model.Listing{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id,
	).Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Category,
		&l.Price, &l.ImageURL, &l.Available, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// List returns available listings matching the filter, newest first, plus
// the total match count for pagination.
func (r *pgListingRepo) List(ctx context.Context, filter ListingFilter) ([]model.Listing, int, error) {
	var cond strings.Builder
	cond.WriteString(`WHERE available = TRUE`)
	args := []any{}

	if filter.Query != "" {
		args = append(args, filter.Query)
		n := len(args)
		cond.WriteString(fmt.Sprintf(` AND (title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')`, n, n))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		cond.WriteString(fmt.Sprintf(` AND LOWER(category) = LOWER($%d)`, len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		cond.WriteString(fmt.Sprintf(` AND price >= $%d`, len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		cond.WriteString(fmt.Sprintf(` AND price <= $%d`, len(args)))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings `+cond.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM listings %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		listingColumns, cond.String(), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	listings, err := scanListings(rows)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func (r *pgListingRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list listings by owner: %w", err)
	}
	defer rows.Close()
	return scanListings(rows)
}

// Update replaces every mutable field. The owner predicate doubles as the
// ownership check: zero rows affected means absent or not owned.
func (r *pgListingRepo) Update(ctx context.Context, listing *model.Listing) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE listings SET title=$3, description=$4, category=$5, price=$6, image_url=$7, available=$8, updated_at=NOW()
		 WHERE id=$1 AND owner_id=$2`,
		listing.ID, listing.OwnerID, listing.Title, listing.Description,
		listing.Category, listing.Price, listing.ImageURL, listing.Available,
	)
	if err != nil {
		return false, fmt.Errorf("update listing: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *pgListingRepo) Disable(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE listings SET available = FALSE, updated_at = NOW() WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("disable listing: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// DisableSold is used by the sold-listing worker after an order commits.
func (r *pgListingRepo) DisableSold(ctx context.Context, ids []uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE listings SET available = FALSE, updated_at = NOW() WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("disable sold listings: %w", err)
	}
	return nil
}

func scanListings(rows pgx.Rows) ([]model.Listing, error) {
	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Category,
			&l.Price, &l.ImageURL, &l.Available, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
