package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const defaultVerifyTimeout = 5 * time.Second

// UserStatusChecker reports whether a user account has been revoked. The
// check runs against the live user record so revocation takes effect before
// the session token expires.
type UserStatusChecker interface {
	UserRevoked(ctx context.Context, userID string) (bool, error)
}

// AdminPasswordSource supplies the current bcrypt hash of the admin password.
type AdminPasswordSource interface {
	AdminPasswordHash(ctx context.Context) (string, error)
}

// Authenticator wires session verification into HTTP middleware.
type Authenticator struct {
	sessions *SessionManager
	users    UserStatusChecker
	admin    AdminPasswordSource

	timeout time.Duration
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithUserStatusChecker enables the per-request revocation check.
func WithUserStatusChecker(checker UserStatusChecker) Option {
	return func(a *Authenticator) {
		a.users = checker
	}
}

// WithAdminPasswordSource enables the admin bearer-password middleware.
func WithAdminPasswordSource(source AdminPasswordSource) Option {
	return func(a *Authenticator) {
		a.admin = source
	}
}

// WithVerificationTimeout bounds the database lookups performed during auth.
func WithVerificationTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAuthenticator constructs an Authenticator for middleware composition.
func NewAuthenticator(sessions *SessionManager, opts ...Option) *Authenticator {
	a := &Authenticator{
		sessions: sessions,
		timeout:  defaultVerifyTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// RequireSession verifies the session token from the Authorization header or
// the session cookie, rejects revoked users, and stores the identity in context.
func (a *Authenticator) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil || a.sessions == nil {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization service unavailable")
				return
			}

			tokenStr, ok := extractSessionToken(r)
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "session token missing")
				return
			}

			claims, err := a.sessions.VerifySession(tokenStr)
			if err != nil {
				respondVerificationError(w, err)
				return
			}

			if a.users != nil {
				ctx, cancel := a.contextWithTimeout(r.Context())
				if cancel != nil {
					defer cancel()
				}
				revoked, err := a.users.UserRevoked(ctx, claims.UserID)
				if err != nil {
					respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "unable to verify account status")
					return
				}
				if revoked {
					respondAuthError(w, http.StatusForbidden, "account_revoked", "account access has been revoked")
					return
				}
			}

			identity := &Identity{
				UserID:   claims.UserID,
				Email:    claims.Email,
				Name:     claims.Name,
				PhotoURL: claims.PhotoURL,
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin compares the bearer credential against the stored admin
// password hash.
func (a *Authenticator) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil || a.admin == nil {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization service unavailable")
				return
			}

			password, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}

			ctx, cancel := a.contextWithTimeout(r.Context())
			if cancel != nil {
				defer cancel()
			}

			hash, err := a.admin.AdminPasswordHash(ctx)
			if err != nil || hash == "" {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "admin credentials unavailable")
				return
			}

			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
				respondAuthError(w, http.StatusUnauthorized, "invalid_credentials", "admin credentials rejected")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) contextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a == nil || a.timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, a.timeout)
}

func extractSessionToken(r *http.Request) (string, bool) {
	if token, ok := extractBearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(cookie.Value)
	if token == "" {
		return "", false
	}
	return token, true
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   code,
		"message": message,
		"status":  status,
	})
}

func respondVerificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		respondAuthError(w, http.StatusUnauthorized, "token_expired", "session token expired")
	case errors.Is(err, ErrWrongTokenKind):
		respondAuthError(w, http.StatusUnauthorized, "invalid_token", "token not valid for this flow")
	default:
		respondAuthError(w, http.StatusUnauthorized, "invalid_token", "session token invalid")
	}
}
