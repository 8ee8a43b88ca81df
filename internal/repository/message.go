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

type MessageRepository interface {
	GetThread(ctx context.Context, threadID uuid.UUID) (*model.MessageThread, error)
	FindThread(ctx context.Context, listingID, buyerID uuid.UUID) (*model.MessageThread, error)
	CreateThread(ctx context.Context, thread *model.MessageThread) error
	ListThreads(ctx context.Context, userID uuid.UUID) ([]model.MessageThread, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, threadID uuid.UUID) ([]model.Message, error)
}

type pgMessageRepo struct{ pool *pgxpool.Pool }

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &pgMessageRepo{pool: pool}
}

func (r *pgMessageRepo) GetThread(ctx context.Context, threadID uuid.UUID) (*model.MessageThread, error) {
	return r.thread(ctx, `WHERE id = $1`, threadID)
}

func (r *pgMessageRepo) FindThread(ctx context.Context, listingID, buyerID uuid.UUID) (*model.MessageThread, error) {
	return r.thread(ctx, `WHERE listing_id = $1 AND buyer_id = $2`, listingID, buyerID)
}

func (r *pgMessageRepo) thread(ctx context.Context, where string, args ...any) (*model.MessageThread, error) {
	th := &model.MessageThread{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, listing_id, buyer_id, seller_id, created_at FROM message_threads `+where, args...,
	).Scan(&th.ID, &th.ListingID, &th.BuyerID, &th.SellerID, &th.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return th, nil
}

func (r *pgMessageRepo) CreateThread(ctx context.Context, thread *model.MessageThread) error {
	thread.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO message_threads (id, listing_id, buyer_id, seller_id, created_at)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`,
		thread.ID, thread.ListingID, thread.BuyerID, thread.SellerID,
	).Scan(&thread.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

func (r *pgMessageRepo) ListThreads(ctx context.Context, userID uuid.UUID) ([]model.MessageThread, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, listing_id, buyer_id, seller_id, created_at
		 FROM message_threads WHERE buyer_id = $1 OR seller_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []model.MessageThread
	for rows.Next() {
		var th model.MessageThread
		if err := rows.Scan(&th.ID, &th.ListingID, &th.BuyerID, &th.SellerID, &th.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, th)
	}
	return threads, rows.Err()
}

func (r *pgMessageRepo) CreateMessage(ctx context.Context, msg *model.Message) error {
	msg.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (id, thread_id, sender_id, body, created_at)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`,
		msg.ID, msg.ThreadID, msg.SenderID, msg.Body,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *pgMessageRepo) ListMessages(ctx context.Context, threadID uuid.UUID) ([]model.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, thread_id, sender_id, body, created_at
		 FROM messages WHERE thread_id = $1 ORDER BY created_at`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
