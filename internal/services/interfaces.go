package services

import (
	"context"
	"io"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Settings           = domain.Settings
	JastipStatus       = domain.JastipStatus
	InfoNote           = domain.InfoNote
	Item               = domain.Item
	ItemBadge          = domain.ItemBadge
	InviteToken        = domain.InviteToken
	InviteTokenListing = domain.InviteTokenListing
	User               = domain.User
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	PublicConfig       = domain.PublicConfig
	SystemHealthReport = domain.SystemHealthReport
)

// SettingsService manages the singleton service settings and the derived
// storefront configuration snapshot.
type SettingsService interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, cmd UpdateSettingsCommand) (Settings, error)
	// PublicConfig derives the unauthenticated storefront snapshot from the
	// settings row and the committed baggage weight.
	PublicConfig(ctx context.Context) (PublicConfig, error)
	VerifyAdminPassword(ctx context.Context, password string) error
	// AdminPasswordHash exposes the stored bcrypt hash for request authentication.
	AdminPasswordHash(ctx context.Context) (string, error)
}

// UpdateSettingsCommand carries the optional fields of a settings patch. Nil
// fields are left unchanged.
type UpdateSettingsCommand struct {
	ExchangeRate           *float64
	DefaultMarginPercent   *float64
	TotalBaggageQuotaGrams *int64
	JastipStatus           *string
	JastipCloseDate        *time.Time
	ClearJastipCloseDate   bool
	EstimatedArrivalDate   *string
	AdminPassword          *string
	ItemCategories         *[]string
}

// CatalogItem decorates an item with the storefront state derived from it.
type CatalogItem struct {
	Item
	Badge          ItemBadge
	AvailableSlots int64
}

// CatalogQuery narrows catalog listings.
type CatalogQuery struct {
	Storefront bool
	Search     string
	Limit      int
	Offset     int
}

// CreateItemCommand carries the fields of a new catalog item. The rupiah base
// price is derived from the exchange rate; the selling price is set by the
// admin and stored as given.
type CreateItemCommand struct {
	Name             string
	Description      string
	Category         string
	Photos           []string
	BasePriceYen     int64
	SellingPriceRp   int64
	WeightGrams      int64
	MaxOrders        int64
	IsAvailable      bool
	IsDraft          bool
	WithoutBoxNote   bool
	IsLimitedEdition bool
	IsPreorder       bool
	IsFragile        bool
	InfoNotes        []InfoNote
}

// UpdateItemCommand patches an existing item. Nil fields are left unchanged;
// changing the yen price recomputes the rupiah base price while the selling
// price only moves when the admin sends one.
type UpdateItemCommand struct {
	ItemID           string
	Name             *string
	Description      *string
	Category         *string
	Photos           *[]string
	BasePriceYen     *int64
	SellingPriceRp   *int64
	WeightGrams      *int64
	MaxOrders        *int64
	IsAvailable      *bool
	IsDraft          *bool
	WithoutBoxNote   *bool
	IsLimitedEdition *bool
	IsPreorder       *bool
	IsFragile        *bool
	InfoNotes        *[]InfoNote
}

// CatalogService manages the item catalog: pricing, publication state, and the
// storefront decoration layered on top.
type CatalogService interface {
	CreateItem(ctx context.Context, cmd CreateItemCommand) (CatalogItem, error)
	UpdateItem(ctx context.Context, cmd UpdateItemCommand) (CatalogItem, error)
	GetItem(ctx context.Context, itemID string, storefront bool) (CatalogItem, error)
	ListItems(ctx context.Context, query CatalogQuery) ([]CatalogItem, error)
	DeleteItem(ctx context.Context, itemID string, force bool) error
	// RecordView bumps the item view counter and returns the new value.
	RecordView(ctx context.Context, itemID string) (int64, error)
}

// CreateTokenCommand carries the admin-supplied fields of a new invite token.
type CreateTokenCommand struct {
	Note      string
	ExpiresAt *time.Time
}

// TokenService manages single-use invite tokens, from generation through
// validation to revocation.
type TokenService interface {
	Create(ctx context.Context, cmd CreateTokenCommand) (InviteToken, error)
	List(ctx context.Context) ([]InviteTokenListing, error)
	// Revoke marks the token revoked; a consumed token also locks out its user.
	Revoke(ctx context.Context, tokenID, revokedBy string) error
	// Validate checks a 5-digit code and returns the usable token behind it.
	Validate(ctx context.Context, code string) (InviteToken, error)
}

// GoogleSignInCommand carries the verified Google profile of a sign-in attempt.
type GoogleSignInCommand struct {
	GoogleID string
	Email    string
	Name     string
	PhotoURL string
}

// RedeemInviteCommand pairs a verified Google profile with the invite code
// unlocking account creation.
type RedeemInviteCommand struct {
	Profile GoogleSignInCommand
	Code    string
}

// UserService manages invited end users and the sign-in flows around them.
type UserService interface {
	// ResolveGoogleUser looks up an existing user by Google identity and
	// records the sign-in. Unknown identities return ErrUserNotFound.
	ResolveGoogleUser(ctx context.Context, cmd GoogleSignInCommand) (User, error)
	// RedeemInvite validates the invite code and creates the user account,
	// consuming the token.
	RedeemInvite(ctx context.Context, cmd RedeemInviteCommand) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	UserRevoked(ctx context.Context, userID string) (bool, error)
}

// OrderLineInput is one requested order line. Catalog lines name an item;
// custom lines describe a buyer-sourced product instead.
type OrderLineInput struct {
	ItemID     string
	Quantity   int64
	IsCustom   bool
	CustomName string
	CustomURL  string
	CustomNote string
	Source     string
}

// PlaceOrderCommand carries a buyer's order request.
type PlaceOrderCommand struct {
	UserID string
	Note   string
	Lines  []OrderLineInput
}

// OrderQuery narrows order listings. An empty UserID lists across all buyers.
type OrderQuery struct {
	UserID string
	Status *OrderStatus
}

// OrderStatusCommand moves an order through the fulfilment workflow.
type OrderStatusCommand struct {
	OrderID string
	Status  string
}

// OrderLineCorrection adjusts one order line after the real-world purchase.
type OrderLineCorrection struct {
	OrderItemID string
	PriceRp     *int64
	WeightGrams *int64
}

// OrderDetailsCommand carries an admin correction of totals and lines.
type OrderDetailsCommand struct {
	OrderID          string
	TotalPriceRp     *int64
	TotalPriceYen    *int64
	TotalWeightGrams *int64
	Note             *string
	Lines            []OrderLineCorrection
}

// OrderService manages order placement and the admin fulfilment workflow.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	// GetOrder loads an order. A non-empty requesterID restricts the read to
	// that buyer's own orders.
	GetOrder(ctx context.Context, orderID, requesterID string) (Order, error)
	ListOrders(ctx context.Context, query OrderQuery) ([]Order, error)
	UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error)
	UpdateDetails(ctx context.Context, cmd OrderDetailsCommand) (Order, error)
}

// UploadPhotoCommand carries an incoming catalog photo upload.
type UploadPhotoCommand struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// PhotoUpload describes a stored catalog photo.
type PhotoUpload struct {
	Key string
	URL string
}

// Photo is a stored catalog photo streamed back to the client.
type Photo struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// AssetService stores and serves catalog photos.
type AssetService interface {
	UploadPhoto(ctx context.Context, cmd UploadPhotoCommand) (PhotoUpload, error)
	GetPhoto(ctx context.Context, key string) (Photo, error)
}

// SystemService provides health reports for liveness and readiness probes.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
