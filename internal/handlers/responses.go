package handlers

import (
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/services"
)

type settingsResponse struct {
	ExchangeRate           float64  `json:"exchangeRate"`
	DefaultMarginPercent   float64  `json:"defaultMarginPercent"`
	TotalBaggageQuotaGrams int64    `json:"totalBaggageQuotaGrams"`
	JastipStatus           string   `json:"jastipStatus"`
	JastipCloseDate        *string  `json:"jastipCloseDate"`
	EstimatedArrivalDate   *string  `json:"estimatedArrivalDate"`
	ItemCategories         []string `json:"itemCategories"`
	UpdatedAt              string   `json:"updatedAt"`
}

func toSettingsResponse(settings services.Settings) settingsResponse {
	return settingsResponse{
		ExchangeRate:           settings.ExchangeRate,
		DefaultMarginPercent:   settings.DefaultMarginPercent,
		TotalBaggageQuotaGrams: settings.TotalBaggageQuotaGrams,
		JastipStatus:           string(settings.JastipStatus),
		JastipCloseDate:        formatOptionalTime(settings.JastipCloseDate),
		EstimatedArrivalDate:   settings.EstimatedArrivalDate,
		ItemCategories:         settings.ItemCategories,
		UpdatedAt:              formatTimestamp(settings.UpdatedAt),
	}
}

type publicConfigResponse struct {
	JastipStatus         string  `json:"jastipStatus"`
	CountdownDays        *int64  `json:"countdownDays"`
	RemainingQuotaKg     float64 `json:"remainingQuotaKg"`
	TotalQuotaKg         float64 `json:"totalQuotaKg"`
	EstimatedArrivalDate *string `json:"estimatedArrivalDate"`
}

func toPublicConfigResponse(config services.PublicConfig) publicConfigResponse {
	return publicConfigResponse{
		JastipStatus:         string(config.JastipStatus),
		CountdownDays:        config.CountdownDays,
		RemainingQuotaKg:     config.RemainingQuotaKg,
		TotalQuotaKg:         config.TotalQuotaKg,
		EstimatedArrivalDate: config.EstimatedArrivalDate,
	}
}

type itemResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Category         string            `json:"category"`
	Photos           []string          `json:"photos"`
	BasePriceYen     int64             `json:"basePriceYen"`
	BasePriceRp      int64             `json:"basePriceRp"`
	SellingPriceRp   int64             `json:"sellingPriceRp"`
	WeightGrams      int64             `json:"weightGrams"`
	MaxOrders        int64             `json:"maxOrders"`
	CurrentOrders    int64             `json:"currentOrders"`
	AvailableSlots   int64             `json:"availableSlots"`
	Badge            string            `json:"badge"`
	IsAvailable      bool              `json:"isAvailable"`
	IsDraft          bool              `json:"isDraft"`
	WithoutBoxNote   bool              `json:"withoutBoxNote"`
	IsLimitedEdition bool              `json:"isLimitedEdition"`
	IsPreorder       bool              `json:"isPreorder"`
	IsFragile        bool              `json:"isFragile"`
	InfoNotes        []domain.InfoNote `json:"infoNotes"`
	ViewCount        int64             `json:"viewCount"`
	CreatedAt        string            `json:"createdAt"`
	UpdatedAt        string            `json:"updatedAt"`
}

func toItemResponse(item services.CatalogItem) itemResponse {
	photos := item.Photos
	if photos == nil {
		photos = []string{}
	}
	notes := item.InfoNotes
	if notes == nil {
		notes = []domain.InfoNote{}
	}
	return itemResponse{
		ID:               item.ID,
		Name:             item.Name,
		Description:      item.Description,
		Category:         item.Category,
		Photos:           photos,
		BasePriceYen:     item.BasePriceYen,
		BasePriceRp:      item.BasePriceRp,
		SellingPriceRp:   item.SellingPriceRp,
		WeightGrams:      item.WeightGrams,
		MaxOrders:        item.MaxOrders,
		CurrentOrders:    item.CurrentOrders,
		AvailableSlots:   item.AvailableSlots,
		Badge:            string(item.Badge),
		IsAvailable:      item.IsAvailable,
		IsDraft:          item.IsDraft,
		WithoutBoxNote:   item.WithoutBoxNote,
		IsLimitedEdition: item.IsLimitedEdition,
		IsPreorder:       item.IsPreorder,
		IsFragile:        item.IsFragile,
		InfoNotes:        notes,
		ViewCount:        item.ViewCount,
		CreatedAt:        formatTimestamp(item.CreatedAt),
		UpdatedAt:        formatTimestamp(item.UpdatedAt),
	}
}

func toItemResponses(items []services.CatalogItem) []itemResponse {
	responses := make([]itemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}
	return responses
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhotoURL    string `json:"photoUrl"`
	CreatedAt   string `json:"createdAt"`
	LastLoginAt string `json:"lastLoginAt"`
}

func toUserResponse(user services.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		PhotoURL:    user.PhotoURL,
		CreatedAt:   formatTimestamp(user.CreatedAt),
		LastLoginAt: formatTimestamp(user.LastLoginAt),
	}
}

type tokenResponse struct {
	ID        string  `json:"id"`
	Code      string  `json:"code"`
	Note      string  `json:"note"`
	UsedBy    string  `json:"usedBy"`
	UsedAt    *string `json:"usedAt"`
	IsRevoked bool    `json:"isRevoked"`
	ExpiresAt *string `json:"expiresAt"`
	CreatedAt string  `json:"createdAt"`
}

func toTokenResponse(token services.InviteToken) tokenResponse {
	return tokenResponse{
		ID:        token.ID,
		Code:      token.Code,
		Note:      token.Note,
		UsedBy:    token.UsedBy,
		UsedAt:    formatOptionalTime(token.UsedAt),
		IsRevoked: token.IsRevoked,
		ExpiresAt: formatOptionalTime(token.ExpiresAt),
		CreatedAt: formatTimestamp(token.CreatedAt),
	}
}

type tokenListingResponse struct {
	tokenResponse
	UserName    string `json:"userName,omitempty"`
	UserEmail   string `json:"userEmail,omitempty"`
	UserRevoked bool   `json:"userRevoked"`
}

func toTokenListingResponses(listings []services.InviteTokenListing) []tokenListingResponse {
	responses := make([]tokenListingResponse, 0, len(listings))
	for _, listing := range listings {
		responses = append(responses, tokenListingResponse{
			tokenResponse: toTokenResponse(listing.InviteToken),
			UserName:      listing.UserName,
			UserEmail:     listing.UserEmail,
			UserRevoked:   listing.UserRevoked,
		})
	}
	return responses
}

type orderLineResponse struct {
	ID          string `json:"id"`
	ItemID      string `json:"itemId,omitempty"`
	Name        string `json:"name"`
	Quantity    int64  `json:"quantity"`
	PriceYen    int64  `json:"priceYen"`
	PriceRp     int64  `json:"priceRp"`
	WeightGrams int64  `json:"weightGrams"`
	IsCustom    bool   `json:"isCustom"`
	CustomURL   string `json:"customUrl,omitempty"`
	CustomNote  string `json:"customNote,omitempty"`
	Source      string `json:"source,omitempty"`
}

type orderResponse struct {
	ID               string              `json:"id"`
	UserID           string              `json:"userId"`
	Status           string              `json:"status"`
	TotalPriceRp     int64               `json:"totalPriceRp"`
	TotalPriceYen    int64               `json:"totalPriceYen"`
	TotalWeightGrams int64               `json:"totalWeightGrams"`
	Note             string              `json:"note,omitempty"`
	Items            []orderLineResponse `json:"items"`
	CreatedAt        string              `json:"createdAt"`
	UpdatedAt        string              `json:"updatedAt"`
}

func toOrderResponse(order services.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Items))
	for _, line := range order.Items {
		lines = append(lines, orderLineResponse{
			ID:          line.ID,
			ItemID:      line.ItemID,
			Name:        line.Name,
			Quantity:    line.Quantity,
			PriceYen:    line.PriceYen,
			PriceRp:     line.PriceRp,
			WeightGrams: line.WeightGrams,
			IsCustom:    line.IsCustom,
			CustomURL:   line.CustomURL,
			CustomNote:  line.CustomNote,
			Source:      line.Source,
		})
	}
	return orderResponse{
		ID:               order.ID,
		UserID:           order.UserID,
		Status:           string(order.Status),
		TotalPriceRp:     order.TotalPriceRp,
		TotalPriceYen:    order.TotalPriceYen,
		TotalWeightGrams: order.TotalWeightGrams,
		Note:             order.Note,
		Items:            lines,
		CreatedAt:        formatTimestamp(order.CreatedAt),
		UpdatedAt:        formatTimestamp(order.UpdatedAt),
	}
}

func toOrderResponses(orders []services.Order) []orderResponse {
	responses := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, toOrderResponse(order))
	}
	return responses
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func formatOptionalTime(ts *time.Time) *string {
	if ts == nil {
		return nil
	}
	formatted := formatTimestamp(*ts)
	return &formatted
}
