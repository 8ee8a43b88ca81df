package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	Password     string
	RewardPoints int
	Active       bool
	CreatedAt    time.Time
}

type Category struct {
	ID   uuid.UUID
	Name string
	Slug string
}

type Listing struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	Category    string
	Price       decimal.Decimal
	ImageURL    *string
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartItem is one pending line in a user's cart. UnitPrice is the price
// captured when the line was first created, not a live join to the listing.
type CartItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ListingID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is a cart item joined with its listing title, as shown to the
// buyer and as consumed by checkout.
type CartLine struct {
	CartItem
	Title string
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Status          OrderStatus
	Total           decimal.Decimal
	ShippingAddress *string
	Items           []OrderItem
	CreatedAt       time.Time
}

// OrderItem is a point-in-time snapshot. TitleSnapshot and PriceSnapshot
// never change, even if the source listing is edited or disabled later.
type OrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	ListingID     uuid.UUID
	TitleSnapshot string
	PriceSnapshot decimal.Decimal
	Quantity      int
}

type MessageThread struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	BuyerID   uuid.UUID
	SellerID  uuid.UUID
	CreatedAt time.Time
}

type Message struct {
	ID        uuid.UUID
	ThreadID  uuid.UUID
	SenderID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

type OrderPlacedMessage struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}
