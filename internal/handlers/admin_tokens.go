package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dkotama/jastip-api/internal/platform/httpx"
	"github.com/dkotama/jastip-api/internal/services"
)

const adminActor = "admin"

type createTokenRequest struct {
	Note      string `json:"note"`
	ExpiresAt string `json:"expiresAt"`
}

// CreateToken mints a new 5-digit invite code.
func (h *AdminHandlers) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}

	cmd := services.CreateTokenCommand{Note: req.Note}
	if raw := strings.TrimSpace(req.ExpiresAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, r, "expiresAt must be an RFC3339 timestamp")
			return
		}
		cmd.ExpiresAt = &parsed
	}

	token, err := h.tokens.Create(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusCreated, toTokenResponse(token))
}

// ListTokens returns all invite codes with redeeming user details attached.
func (h *AdminHandlers) ListTokens(w http.ResponseWriter, r *http.Request) {
	listings, err := h.tokens.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toTokenListingResponses(listings))
}

// RevokeToken invalidates an invite code. A redeemed code also locks out the
// account created with it.
func (h *AdminHandlers) RevokeToken(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenID")
	if err := h.tokens.Revoke(r.Context(), tokenID, adminActor); err != nil {
		if errors.Is(err, services.ErrInviteNotFound) {
			httpx.WriteError(r.Context(), w, httpx.NewError("token_not_found", "invite token not found", http.StatusNotFound))
			return
		}
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"revoked": true})
}
