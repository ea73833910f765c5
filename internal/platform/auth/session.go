package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Token kinds embedded in the signed claims. A session token authenticates a
// registered user; a temp token bridges the gap between the OAuth callback
// and invite-code redemption for first-time visitors.
const (
	TokenKindSession = "session"
	TokenKindTemp    = "temp"
)

// Cookie names used to carry tokens on browser flows.
const (
	SessionCookieName = "jastip_session"
	TempCookieName    = "jastip_temp_session"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour
	defaultTempTTL    = time.Hour
)

var (
	// ErrTokenExpired signals that the presented token is past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals a malformed or badly signed token.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrWrongTokenKind signals a valid token presented on the wrong flow.
	ErrWrongTokenKind = errors.New("auth: wrong token kind")
)

// SessionClaims are the signed contents of both token kinds.
type SessionClaims struct {
	Kind     string `json:"kind"`
	UserID   string `json:"userId,omitempty"`
	GoogleID string `json:"googleId,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
	jwt.RegisteredClaims
}

// TempProfile carries the Google profile held in a temp token while the
// visitor redeems an invite code.
type TempProfile struct {
	GoogleID string
	Email    string
	Name     string
	PhotoURL string
}

// SessionManagerDeps configures NewSessionManager.
type SessionManagerDeps struct {
	Secret     []byte
	SessionTTL time.Duration
	TempTTL    time.Duration
	Clock      func() time.Time
}

// SessionManager mints and verifies HMAC-signed session tokens.
type SessionManager struct {
	secret     []byte
	sessionTTL time.Duration
	tempTTL    time.Duration
	clock      func() time.Time
}

// NewSessionManager validates deps and constructs a SessionManager.
func NewSessionManager(deps SessionManagerDeps) (*SessionManager, error) {
	if len(deps.Secret) == 0 {
		return nil, errors.New("auth: session manager requires a signing secret")
	}
	sessionTTL := deps.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	tempTTL := deps.TempTTL
	if tempTTL <= 0 {
		tempTTL = defaultTempTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionManager{
		secret:     deps.Secret,
		sessionTTL: sessionTTL,
		tempTTL:    tempTTL,
		clock:      clock,
	}, nil
}

// SessionTTL exposes the configured session lifetime for cookie expiry.
func (m *SessionManager) SessionTTL() time.Duration { return m.sessionTTL }

// TempTTL exposes the configured temp token lifetime for cookie expiry.
func (m *SessionManager) TempTTL() time.Duration { return m.tempTTL }

// IssueSession mints a session token for a registered user.
func (m *SessionManager) IssueSession(identity Identity) (string, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return "", fmt.Errorf("%w: missing user id", ErrTokenInvalid)
	}
	now := m.clock().UTC()
	claims := SessionClaims{
		Kind:     TokenKindSession,
		UserID:   identity.UserID,
		Email:    identity.Email,
		Name:     identity.Name,
		PhotoURL: identity.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
		},
	}
	return m.sign(claims)
}

// IssueTemp mints a short-lived token holding the Google profile of a visitor
// who has authenticated but not yet redeemed an invite code.
func (m *SessionManager) IssueTemp(profile TempProfile) (string, error) {
	if strings.TrimSpace(profile.GoogleID) == "" {
		return "", fmt.Errorf("%w: missing google id", ErrTokenInvalid)
	}
	now := m.clock().UTC()
	claims := SessionClaims{
		Kind:     TokenKindTemp,
		GoogleID: profile.GoogleID,
		Email:    profile.Email,
		Name:     profile.Name,
		PhotoURL: profile.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.GoogleID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tempTTL)),
		},
	}
	return m.sign(claims)
}

// VerifySession parses a token and requires the session kind.
func (m *SessionManager) VerifySession(token string) (*SessionClaims, error) {
	claims, err := m.verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != TokenKindSession {
		return nil, ErrWrongTokenKind
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyTemp parses a token and requires the temp kind.
func (m *SessionManager) VerifyTemp(token string) (*SessionClaims, error) {
	claims, err := m.verify(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != TokenKindTemp {
		return nil, ErrWrongTokenKind
	}
	if strings.TrimSpace(claims.GoogleID) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *SessionManager) sign(claims SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

func (m *SessionManager) verify(tokenStr string) (*SessionClaims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	claims := &SessionClaims{}
	// Claims validation is done by hand below so expiry is judged against the
	// manager's clock rather than the wall clock.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := m.clock().UTC()
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrTokenInvalid)
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
