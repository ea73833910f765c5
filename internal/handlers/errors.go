package handlers

import (
	"errors"
	"net/http"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/platform/httpx"
	"github.com/dkotama/jastip-api/internal/services"
)

// serviceError translates a service failure into the JSON error envelope. The
// fallback is a 500 so unexpected errors never leak their internals.
func serviceError(err error) httpx.Error {
	var transition *domain.InvalidTransitionError
	if errors.As(err, &transition) {
		return httpx.NewError("invalid_status_transition", transition.Error(), http.StatusUnprocessableEntity)
	}

	switch {
	case errors.Is(err, services.ErrSettingsInvalidInput),
		errors.Is(err, services.ErrItemInvalidInput),
		errors.Is(err, services.ErrTokenInvalidInput),
		errors.Is(err, services.ErrUserInvalidInput),
		errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrAssetInvalidInput):
		return httpx.NewError("invalid_input", err.Error(), http.StatusBadRequest)

	case errors.Is(err, services.ErrItemNotFound):
		return httpx.NewError("item_not_found", "item not found", http.StatusNotFound)
	case errors.Is(err, services.ErrOrderNotFound):
		return httpx.NewError("order_not_found", "order not found", http.StatusNotFound)
	case errors.Is(err, services.ErrUserNotFound):
		return httpx.NewError("user_not_found", "user not found", http.StatusNotFound)
	case errors.Is(err, services.ErrAssetNotFound):
		return httpx.NewError("photo_not_found", "photo not found", http.StatusNotFound)

	case errors.Is(err, services.ErrInviteNotFound):
		return httpx.NewError("invite_invalid", "invite code is not valid", http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrInviteRevoked):
		return httpx.NewError("invite_revoked", "invite code has been revoked", http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrInviteUsed):
		return httpx.NewError("invite_used", "invite code has already been used", http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrInviteExpired):
		return httpx.NewError("invite_expired", "invite code has expired", http.StatusUnprocessableEntity)

	case errors.Is(err, services.ErrUserRevoked):
		return httpx.NewError("account_revoked", "account access has been revoked", http.StatusForbidden)
	case errors.Is(err, services.ErrUserExists):
		return httpx.NewError("user_exists", "account already exists", http.StatusConflict)

	case errors.Is(err, services.ErrOrderingClosed):
		return httpx.NewError("ordering_closed", "the ordering cycle is closed", http.StatusConflict)
	case errors.Is(err, services.ErrOrderQuotaExceeded):
		return httpx.NewError("quota_exceeded", "order exceeds the remaining baggage quota", http.StatusConflict)
	case errors.Is(err, services.ErrOrderSlotsUnavailable):
		return httpx.NewError("slots_unavailable", "not enough slots left on an ordered item", http.StatusConflict)
	case errors.Is(err, services.ErrItemHasOrders):
		return httpx.NewError("item_has_orders", "item has active orders and cannot be deleted", http.StatusConflict).
			WithDetails(map[string]any{"has_orders": true})

	case errors.Is(err, services.ErrAdminPasswordMismatch):
		return httpx.NewError("invalid_credentials", "admin credentials rejected", http.StatusUnauthorized)

	case errors.Is(err, services.ErrAssetTooLarge):
		return httpx.NewError("photo_too_large", "photo exceeds the upload size limit", http.StatusRequestEntityTooLarge)
	case errors.Is(err, services.ErrAssetUnsupportedType):
		return httpx.NewError("unsupported_media_type", "photo content type is not supported", http.StatusUnsupportedMediaType)
	}

	return httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(r.Context(), w, serviceError(err))
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	httpx.WriteError(r.Context(), w, httpx.NewError("invalid_input", message, http.StatusBadRequest))
}
