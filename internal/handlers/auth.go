package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dkotama/jastip-api/internal/platform/auth"
	"github.com/dkotama/jastip-api/internal/platform/httpx"
	"github.com/dkotama/jastip-api/internal/services"
)

const (
	oauthNonceCookieName = "jastip_oauth_nonce"
	oauthNonceTTL        = 10 * time.Minute
)

// GoogleAuthenticator drives the provider round trip. *auth.GoogleClient
// satisfies it; tests substitute a stub.
type GoogleAuthenticator interface {
	AuthURL(state auth.OAuthState) (string, error)
	Exchange(ctx context.Context, code string) (auth.GoogleProfile, error)
}

// AuthHandlersDeps configures NewAuthHandlers.
type AuthHandlersDeps struct {
	Sessions *auth.SessionManager
	Google   GoogleAuthenticator
	Users    services.UserService
	// RequireSession guards the endpoints that need a signed-in user.
	RequireSession func(http.Handler) http.Handler
	// FrontendURL is the browser origin the OAuth callback redirects back to.
	FrontendURL   string
	SecureCookies bool
}

// AuthHandlers serves the Google sign-in flow and session management.
type AuthHandlers struct {
	sessions       *auth.SessionManager
	google         GoogleAuthenticator
	users          services.UserService
	requireSession func(http.Handler) http.Handler
	frontendURL    string
	secureCookies  bool
}

// NewAuthHandlers validates deps and constructs the auth handlers.
func NewAuthHandlers(deps AuthHandlersDeps) (*AuthHandlers, error) {
	if deps.Sessions == nil {
		return nil, errors.New("auth handlers: session manager is required")
	}
	if deps.Google == nil {
		return nil, errors.New("auth handlers: google client is required")
	}
	if deps.Users == nil {
		return nil, errors.New("auth handlers: user service is required")
	}
	if strings.TrimSpace(deps.FrontendURL) == "" {
		return nil, errors.New("auth handlers: frontend url is required")
	}
	return &AuthHandlers{
		sessions:       deps.Sessions,
		google:         deps.Google,
		users:          deps.Users,
		requireSession: deps.RequireSession,
		frontendURL:    strings.TrimRight(deps.FrontendURL, "/"),
		secureCookies:  deps.SecureCookies,
	}, nil
}

// Routes registers the auth endpoints on the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	r.Get("/google", h.GoogleRedirect)
	r.Get("/google/callback", h.GoogleCallback)
	r.Post("/verify-token", h.VerifyToken)
	r.Get("/status", h.Status)
	r.Post("/logout", h.Logout)

	if h.requireSession != nil {
		r.Group(func(authed chi.Router) {
			authed.Use(h.requireSession)
			authed.Get("/me", h.Me)
		})
	}
}

// GoogleRedirect sends the browser to the Google consent screen.
func (h *AuthHandlers) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	nonce := auth.NewStateNonce()
	if nonce == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("internal_error", "unable to start sign-in", http.StatusInternalServerError))
		return
	}

	state := auth.OAuthState{
		Nonce:     nonce,
		ReturnURL: strings.TrimSpace(r.URL.Query().Get("returnUrl")),
	}
	redirectURL, err := h.google.AuthURL(state)
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("internal_error", "unable to start sign-in", http.StatusInternalServerError))
		return
	}

	h.setCookie(w, oauthNonceCookieName, nonce, oauthNonceTTL)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// GoogleCallback completes the provider round trip. Known users receive a
// session; first-time visitors receive a temp token and are sent to invite
// redemption.
func (h *AuthHandlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		h.redirectWithError(w, r, "google_denied")
		return
	}

	state, err := auth.DecodeState(query.Get("state"))
	if err != nil {
		h.redirectWithError(w, r, "invalid_state")
		return
	}
	if !h.nonceMatches(r, state.Nonce) {
		h.redirectWithError(w, r, "invalid_state")
		return
	}
	h.clearCookie(w, oauthNonceCookieName)

	code := query.Get("code")
	if strings.TrimSpace(code) == "" {
		h.redirectWithError(w, r, "missing_code")
		return
	}

	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		if errors.Is(err, auth.ErrEmailNotVerified) {
			h.redirectWithError(w, r, "email_not_verified")
			return
		}
		h.redirectWithError(w, r, "exchange_failed")
		return
	}

	user, err := h.users.ResolveGoogleUser(r.Context(), services.GoogleSignInCommand{
		GoogleID: profile.ID,
		Email:    profile.Email,
		Name:     profile.Name,
		PhotoURL: profile.Picture,
	})
	switch {
	case err == nil:
		token, signErr := h.sessions.IssueSession(auth.Identity{
			UserID:   user.ID,
			Email:    user.Email,
			Name:     user.Name,
			PhotoURL: user.PhotoURL,
		})
		if signErr != nil {
			h.redirectWithError(w, r, "session_failed")
			return
		}
		h.setCookie(w, auth.SessionCookieName, token, h.sessions.SessionTTL())
		h.redirectToFrontend(w, r, "/auth/callback", url.Values{"token": {token}, "returnUrl": {state.ReturnURL}})

	case errors.Is(err, services.ErrUserNotFound):
		tempToken, signErr := h.sessions.IssueTemp(auth.TempProfile{
			GoogleID: profile.ID,
			Email:    profile.Email,
			Name:     profile.Name,
			PhotoURL: profile.Picture,
		})
		if signErr != nil {
			h.redirectWithError(w, r, "session_failed")
			return
		}
		h.setCookie(w, auth.TempCookieName, tempToken, h.sessions.TempTTL())
		h.redirectToFrontend(w, r, "/verify-token", url.Values{"tempToken": {tempToken}})

	case errors.Is(err, services.ErrUserRevoked):
		h.redirectWithError(w, r, "account_revoked")

	default:
		h.redirectWithError(w, r, "signin_failed")
	}
}

type verifyTokenRequest struct {
	Code      string `json:"code"`
	TempToken string `json:"tempToken"`
}

// VerifyToken redeems an invite code with the Google profile held in the temp
// token and upgrades the visitor to a full session.
func (h *AuthHandlers) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}

	tempToken := h.tempToken(r, req.TempToken)
	if tempToken == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "temp token missing", http.StatusUnauthorized))
		return
	}

	claims, err := h.sessions.VerifyTemp(tempToken)
	if err != nil {
		status := http.StatusUnauthorized
		code := "invalid_token"
		if errors.Is(err, auth.ErrTokenExpired) {
			code = "token_expired"
		}
		httpx.WriteError(r.Context(), w, httpx.NewError(code, "temp token rejected", status))
		return
	}

	user, err := h.users.RedeemInvite(r.Context(), services.RedeemInviteCommand{
		Profile: services.GoogleSignInCommand{
			GoogleID: claims.GoogleID,
			Email:    claims.Email,
			Name:     claims.Name,
			PhotoURL: claims.PhotoURL,
		},
		Code: strings.TrimSpace(req.Code),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := h.sessions.IssueSession(auth.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		PhotoURL: user.PhotoURL,
	})
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("internal_error", "unable to issue session", http.StatusInternalServerError))
		return
	}

	h.clearCookie(w, auth.TempCookieName)
	h.setCookie(w, auth.SessionCookieName, token, h.sessions.SessionTTL())
	httpx.WriteData(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

// Me returns the signed-in user's account.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "session required", http.StatusUnauthorized))
		return
	}

	user, err := h.users.GetUser(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toUserResponse(user))
}

// Status reports whether the request carries a usable session without
// requiring one.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	token := h.sessionToken(r)
	if token == "" {
		httpx.WriteData(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	claims, err := h.sessions.VerifySession(token)
	if err != nil {
		httpx.WriteData(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	user, err := h.users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		httpx.WriteData(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	if user.IsRevoked {
		httpx.WriteData(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	httpx.WriteData(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          toUserResponse(user),
	})
}

// Logout clears the session cookies. Tokens held by clients simply expire.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, auth.SessionCookieName)
	h.clearCookie(w, auth.TempCookieName)
	httpx.WriteData(w, http.StatusOK, map[string]any{"loggedOut": true})
}

func (h *AuthHandlers) redirectToFrontend(w http.ResponseWriter, r *http.Request, path string, params url.Values) {
	target := h.frontendURL + path
	filtered := url.Values{}
	for key, values := range params {
		for _, value := range values {
			if value != "" {
				filtered.Add(key, value)
			}
		}
	}
	if encoded := filtered.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandlers) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	h.redirectToFrontend(w, r, "/auth/callback", url.Values{"error": {code}})
}

func (h *AuthHandlers) nonceMatches(r *http.Request, nonce string) bool {
	cookie, err := r.Cookie(oauthNonceCookieName)
	if err != nil {
		return false
	}
	return nonce != "" && cookie.Value == nonce
}

func (h *AuthHandlers) tempToken(r *http.Request, bodyToken string) string {
	if token := strings.TrimSpace(bodyToken); token != "" {
		return token
	}
	cookie, err := r.Cookie(auth.TempCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func (h *AuthHandlers) sessionToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		if token := strings.TrimSpace(header[len("bearer "):]); token != "" {
			return token
		}
	}
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func (h *AuthHandlers) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
