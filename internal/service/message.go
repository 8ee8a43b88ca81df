package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ecofinds/ecofinds-api/internal/dto"
	"github.com/ecofinds/ecofinds-api/internal/model"
	"github.com/ecofinds/ecofinds-api/internal/repository"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
	ErrEmptyMessage   = errors.New("message body is required")
	ErrMessageSelf    = errors.New("cannot message yourself about your own listing")
)

type MessageService struct {
	messageRepo repository.MessageRepository
	listingRepo repository.ListingRepository
}

func NewMessageService(messageRepo repository.MessageRepository, listingRepo repository.ListingRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo, listingRepo: listingRepo}
}

// Post sends a message about a listing. A buyer's first message creates the
// thread; the seller replies into the buyer-created thread. The seller
// cannot open a thread on their own listing.
func (s *MessageService) Post(ctx context.Context, senderID, listingID uuid.UUID, body string) (*dto.MessageResponse, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if listing.OwnerID == senderID {
		return nil, ErrMessageSelf
	}

	thread, err := s.messageRepo.FindThread(ctx, listingID, senderID)
	if err != nil {
		return nil, fmt.Errorf("find thread: %w", err)
	}
	if thread == nil {
		thread = &model.MessageThread{ListingID: listingID, BuyerID: senderID, SellerID: listing.OwnerID}
		if err := s.messageRepo.CreateThread(ctx, thread); err != nil {
			return nil, fmt.Errorf("create thread: %w", err)
		}
	}

	msg := &model.Message{ThreadID: thread.ID, SenderID: senderID, Body: body}
	if err := s.messageRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	resp := toMessageResponse(msg)
	return &resp, nil
}

// Reply posts into an existing thread; only the two participants may do so.
func (s *MessageService) Reply(ctx context.Context, senderID, threadID uuid.UUID, body string) (*dto.MessageResponse, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}

	thread, err := s.participantThread(ctx, senderID, threadID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{ThreadID: thread.ID, SenderID: senderID, Body: body}
	if err := s.messageRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	resp := toMessageResponse(msg)
	return &resp, nil
}

func (s *MessageService) ListThreads(ctx context.Context, userID uuid.UUID) ([]dto.ThreadResponse, error) {
	threads, err := s.messageRepo.ListThreads(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	items := make([]dto.ThreadResponse, 0, len(threads))
	for _, th := range threads {
		items = append(items, dto.ThreadResponse{
			ID: th.ID, ListingID: th.ListingID,
			BuyerID: th.BuyerID, SellerID: th.SellerID, CreatedAt: th.CreatedAt,
		})
	}
	return items, nil
}

func (s *MessageService) ListMessages(ctx context.Context, userID, threadID uuid.UUID) ([]dto.MessageResponse, error) {
	if _, err := s.participantThread(ctx, userID, threadID); err != nil {
		return nil, err
	}

	msgs, err := s.messageRepo.ListMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, toMessageResponse(&msgs[i]))
	}
	return items, nil
}

// participantThread loads the thread and hides it from non-participants.
func (s *MessageService) participantThread(ctx context.Context, userID, threadID uuid.UUID) (*model.MessageThread, error) {
	thread, err := s.messageRepo.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	if thread == nil || (thread.BuyerID != userID && thread.SellerID != userID) {
		return nil, ErrThreadNotFound
	}
	return thread, nil
}

func toMessageResponse(m *model.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID: m.ID, ThreadID: m.ThreadID, SenderID: m.SenderID,
		Body: m.Body, CreatedAt: m.CreatedAt,
	}
}
