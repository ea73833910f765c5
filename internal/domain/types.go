package domain

import (
	"time"
)

// JastipStatus tells whether the current shipping cycle accepts orders.
type JastipStatus string

const (
	// JastipOpen means the cycle is accepting orders.
	JastipOpen JastipStatus = "open"
	// JastipClosed means ordering is paused until the next cycle.
	JastipClosed JastipStatus = "closed"
)

// Settings is the singleton service configuration row maintained by the admin.
type Settings struct {
	ID                      string
	ExchangeRate            float64
	DefaultMarginPercent    float64
	TotalBaggageQuotaGrams  int64
	JastipStatus            JastipStatus
	JastipCloseDate         *time.Time
	EstimatedArrivalDate    *string
	AdminPasswordHash       string
	ItemCategories          []string
	UpdatedAt               time.Time
}

// InfoNoteType selects the visual treatment of an item info note.
type InfoNoteType string

const (
	// InfoNoteAmber renders a cautionary note.
	InfoNoteAmber InfoNoteType = "amber"
	// InfoNotePurple renders a promotional note.
	InfoNotePurple InfoNoteType = "purple"
	// InfoNoteBlue renders an informational note.
	InfoNoteBlue InfoNoteType = "blue"
	// InfoNoteRed renders a warning note.
	InfoNoteRed InfoNoteType = "red"
)

// InfoNote is a short typed annotation displayed on an item card.
type InfoNote struct {
	Type InfoNoteType `json:"type"`
	Text string       `json:"text"`
}

// Item is a catalog entry sourced in Japan and sold in local currency.
type Item struct {
	ID               string
	Name             string
	Description      string
	Category         string
	Photos           []string
	BasePriceYen     int64
	BasePriceRp      int64
	SellingPriceRp   int64
	WeightGrams      int64
	MaxOrders        int64
	CurrentOrders    int64
	IsAvailable      bool
	IsDraft          bool
	WithoutBoxNote   bool
	IsLimitedEdition bool
	IsPreorder       bool
	IsFragile        bool
	InfoNotes        []InfoNote
	ViewCount        int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AvailableSlots returns the remaining order capacity, never negative.
func (i Item) AvailableSlots() int64 {
	slots := i.MaxOrders - i.CurrentOrders
	if slots < 0 {
		return 0
	}
	return slots
}

// ItemBadge is the storefront availability label derived from item state.
type ItemBadge string

const (
	// BadgeFull marks an item with no remaining slots.
	BadgeFull ItemBadge = "full"
	// BadgeLowStock marks an item with two or fewer remaining slots.
	BadgeLowStock ItemBadge = "low_stock"
	// BadgeNew marks a recently published item.
	BadgeNew ItemBadge = "new"
	// BadgeAvailable is the default label.
	BadgeAvailable ItemBadge = "available"
)

// User is an invited end user identified by their Google account.
type User struct {
	ID          string
	GoogleID    string
	Email       string
	Name        string
	PhotoURL    string
	TokenID     string
	IsRevoked   bool
	RevokedAt   *time.Time
	RevokedBy   string
	CreatedAt   time.Time
	LastLoginAt time.Time
}

// InviteToken is a single-use 5-digit access code issued by the admin.
type InviteToken struct {
	ID        string
	Code      string
	Note      string
	UsedBy    string
	UsedAt    *time.Time
	IsRevoked bool
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// InviteTokenListing pairs a token with details of the user who consumed it.
type InviteTokenListing struct {
	InviteToken
	UserName    string
	UserEmail   string
	UserRevoked bool
}

// OrderStatus tracks an order through the fulfilment workflow.
type OrderStatus string

const (
	// OrderWaitingPayment is the initial status of every order.
	OrderWaitingPayment OrderStatus = "waiting_payment"
	// OrderConfirmed means payment was verified by the admin.
	OrderConfirmed OrderStatus = "confirmed"
	// OrderPurchased means the goods were bought in Japan.
	OrderPurchased OrderStatus = "purchased"
	// OrderShipped means the goods are in transit.
	OrderShipped OrderStatus = "shipped"
	// OrderDelivered means the buyer received the goods.
	OrderDelivered OrderStatus = "delivered"
	// OrderCancelled terminates an order before delivery.
	OrderCancelled OrderStatus = "cancelled"
)

// Order aggregates a buyer's lines for one shipping cycle.
type Order struct {
	ID               string
	UserID           string
	Status           OrderStatus
	TotalPriceRp     int64
	TotalPriceYen    int64
	TotalWeightGrams int64
	Note             string
	Items            []OrderItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrderItem is one order line. Catalog lines snapshot the item's price and
// weight at order time; custom lines carry only buyer-provided fields.
type OrderItem struct {
	ID          string
	OrderID     string
	ItemID      string
	Name        string
	Quantity    int64
	PriceYen    int64
	PriceRp     int64
	WeightGrams int64
	IsCustom    bool
	CustomURL   string
	CustomNote  string
	Source      string
}

// PublicConfig is the unauthenticated storefront snapshot of cycle state.
type PublicConfig struct {
	JastipStatus         JastipStatus
	CountdownDays        *int64
	RemainingQuotaKg     float64
	TotalQuotaKg         float64
	EstimatedArrivalDate *string
}
