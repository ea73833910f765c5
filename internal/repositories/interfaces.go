package repositories

import (
	"context"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
)

// SettingsRepository persists the singleton service settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Update(ctx context.Context, update SettingsUpdate) (domain.Settings, error)
}

// SettingsUpdate carries the optional fields of a settings patch. Nil fields
// are left unchanged.
type SettingsUpdate struct {
	ExchangeRate           *float64
	DefaultMarginPercent   *float64
	TotalBaggageQuotaGrams *int64
	JastipStatus           *domain.JastipStatus
	JastipCloseDate        *time.Time
	ClearJastipCloseDate   bool
	EstimatedArrivalDate   *string
	AdminPasswordHash      *string
	ItemCategories         *[]string
	UpdatedAt              time.Time
}

// ItemListFilter narrows item listings.
type ItemListFilter struct {
	OnlyAvailable bool
	OnlyPublished bool
	Search        string
	Limit         int
	Offset        int
}

// ItemRepository persists catalog items.
type ItemRepository interface {
	Insert(ctx context.Context, item domain.Item) error
	Update(ctx context.Context, item domain.Item) error
	FindByID(ctx context.Context, itemID string) (domain.Item, error)
	List(ctx context.Context, filter ItemListFilter) ([]domain.Item, error)
	Delete(ctx context.Context, itemID string) error
	IncrementViewCount(ctx context.Context, itemID string) (int64, error)
	// UsedQuotaGrams sums weight x current orders across available published items.
	UsedQuotaGrams(ctx context.Context) (int64, error)
}

// UserRepository persists invited end users.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (domain.User, error)
	// CreateFromInvite inserts the user and consumes their invite token in one
	// transaction. The token can be consumed by exactly one user.
	CreateFromInvite(ctx context.Context, user domain.User) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UserRevoked(ctx context.Context, userID string) (bool, error)
}

// TokenRepository persists invite tokens.
type TokenRepository interface {
	Insert(ctx context.Context, token domain.InviteToken) error
	FindByCode(ctx context.Context, code string) (domain.InviteToken, error)
	List(ctx context.Context) ([]domain.InviteTokenListing, error)
	// Revoke marks the token revoked and, when it was already consumed,
	// revokes the consuming user in the same transaction.
	Revoke(ctx context.Context, tokenID, revokedBy string, at time.Time) error
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID string
	Status *domain.OrderStatus
}

// OrderDetailsUpdate carries an admin correction of totals and per-line snapshots.
type OrderDetailsUpdate struct {
	OrderID          string
	TotalPriceRp     *int64
	TotalPriceYen    *int64
	TotalWeightGrams *int64
	Note             *string
	Items            []OrderItemUpdate
	UpdatedAt        time.Time
}

// OrderItemUpdate adjusts one order line after the real-world purchase.
type OrderItemUpdate struct {
	OrderItemID string
	PriceRp     *int64
	WeightGrams *int64
}

// OrderRepository persists orders and their lines, owning the transactional
// boundaries around slot reservation and status transitions.
type OrderRepository interface {
	// Create inserts the order and its lines and reserves catalog slots for
	// every catalog line, all in one transaction.
	Create(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
	// UpdateStatus validates the workflow transition against the current row
	// and releases reserved slots when the order is cancelled.
	UpdateStatus(ctx context.Context, orderID string, to domain.OrderStatus, at time.Time) (domain.Order, error)
	UpdateDetails(ctx context.Context, update OrderDetailsUpdate) (domain.Order, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
