package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofinds/ecofinds-api/internal/model"
)

type mockMessageRepo struct {
	threads  map[uuid.UUID]*model.MessageThread
	messages []model.Message
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{threads: make(map[uuid.UUID]*model.MessageThread)}
}

func (m *mockMessageRepo) GetThread(_ context.Context, threadID uuid.UUID) (*model.MessageThread, error) {
	return m.threads[threadID], nil
}

func (m *mockMessageRepo) FindThread(_ context.Context, listingID, buyerID uuid.UUID) (*model.MessageThread, error) {
	for _, th := range m.threads {
		if th.ListingID == listingID && th.BuyerID == buyerID {
			return th, nil
		}
	}
	return nil, nil
}

func (m *mockMessageRepo) CreateThread(_ context.Context, thread *model.MessageThread) error {
	thread.ID = uuid.New()
	thread.CreatedAt = time.Now()
	m.threads[thread.ID] = thread
	return nil
}

func (m *mockMessageRepo) ListThreads(_ context.Context, userID uuid.UUID) ([]model.MessageThread, error) {
	var out []model.MessageThread
	for _, th := range m.threads {
		if th.BuyerID == userID || th.SellerID == userID {
			out = append(out, *th)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) CreateMessage(_ context.Context, msg *model.Message) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockMessageRepo) ListMessages(_ context.Context, threadID uuid.UUID) ([]model.Message, error) {
	var out []model.Message
	for _, msg := range m.messages {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func TestMessageService_Post_CreatesThread(t *testing.T) {
	msgRepo := newMockMessageRepo()
	listingRepo := newMockListingRepo()
	l := seedListing(listingRepo, uuid.New(), "Lamp", "15")
	svc := NewMessageService(msgRepo, listingRepo)
	buyerID := uuid.New()

	resp, err := svc.Post(context.Background(), buyerID, l.ID, "Is this still available?")
	require.NoError(t, err)
	assert.Equal(t, buyerID, resp.SenderID)
	assert.Len(t, msgRepo.threads, 1)

	// a second message lands in the same thread
	_, err = svc.Post(context.Background(), buyerID, l.ID, "Could you do 12?")
	require.NoError(t, err)
	assert.Len(t, msgRepo.threads, 1)
	assert.Len(t, msgRepo.messages, 2)
}

func TestMessageService_Post_SellerOwnListing(t *testing.T) {
	msgRepo := newMockMessageRepo()
	listingRepo := newMockListingRepo()
	ownerID := uuid.New()
	l := seedListing(listingRepo, ownerID, "Lamp", "15")
	svc := NewMessageService(msgRepo, listingRepo)

	_, err := svc.Post(context.Background(), ownerID, l.ID, "hello")
	assert.ErrorIs(t, err, ErrMessageSelf)
}

func TestMessageService_Post_EmptyBody(t *testing.T) {
	svc := NewMessageService(newMockMessageRepo(), newMockListingRepo())
	_, err := svc.Post(context.Background(), uuid.New(), uuid.New(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestMessageService_Post_ListingNotFound(t *testing.T) {
	svc := NewMessageService(newMockMessageRepo(), newMockListingRepo())
	_, err := svc.Post(context.Background(), uuid.New(), uuid.New(), "hello")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestMessageService_Reply_SellerResponds(t *testing.T) {
	msgRepo := newMockMessageRepo()
	listingRepo := newMockListingRepo()
	sellerID := uuid.New()
	l := seedListing(listingRepo, sellerID, "Lamp", "15")
	svc := NewMessageService(msgRepo, listingRepo)
	buyerID := uuid.New()

	_, err := svc.Post(context.Background(), buyerID, l.ID, "Is this still available?")
	require.NoError(t, err)

	var threadID uuid.UUID
	for id := range msgRepo.threads {
		threadID = id
	}

	resp, err := svc.Reply(context.Background(), sellerID, threadID, "Yes, it is.")
	require.NoError(t, err)
	assert.Equal(t, sellerID, resp.SenderID)
	assert.Equal(t, threadID, resp.ThreadID)
}

func TestMessageService_Reply_NonParticipant(t *testing.T) {
	msgRepo := newMockMessageRepo()
	listingRepo := newMockListingRepo()
	l := seedListing(listingRepo, uuid.New(), "Lamp", "15")
	svc := NewMessageService(msgRepo, listingRepo)

	_, err := svc.Post(context.Background(), uuid.New(), l.ID, "Is this still available?")
	require.NoError(t, err)

	var threadID uuid.UUID
	for id := range msgRepo.threads {
		threadID = id
	}

	_, err = svc.Reply(context.Background(), uuid.New(), threadID, "let me in")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestMessageService_ListMessages_NonParticipant(t *testing.T) {
	msgRepo := newMockMessageRepo()
	listingRepo := newMockListingRepo()
	l := seedListing(listingRepo, uuid.New(), "Lamp", "15")
	svc := NewMessageService(msgRepo, listingRepo)

	_, err := svc.Post(context.Background(), uuid.New(), l.ID, "hello")
	require.NoError(t, err)

	var threadID uuid.UUID
	for id := range msgRepo.threads {
		threadID = id
	}

	_, err = svc.ListMessages(context.Background(), uuid.New(), threadID)
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestMessageService_ListThreads(t *testing.T) {
	msgRepo := newMockMessageRepo()
	listingRepo := newMockListingRepo()
	sellerID := uuid.New()
	l := seedListing(listingRepo, sellerID, "Lamp", "15")
	svc := NewMessageService(msgRepo, listingRepo)
	buyerID := uuid.New()

	_, err := svc.Post(context.Background(), buyerID, l.ID, "hello")
	require.NoError(t, err)

	buyerThreads, err := svc.ListThreads(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Len(t, buyerThreads, 1)

	sellerThreads, err := svc.ListThreads(context.Background(), sellerID)
	require.NoError(t, err)
	assert.Len(t, sellerThreads, 1)

	strangerThreads, err := svc.ListThreads(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, strangerThreads)
}
