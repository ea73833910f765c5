package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, clock func() time.Time) *SessionManager {
	t.Helper()
	manager, err := NewSessionManager(SessionManagerDeps{
		Secret: []byte("test-signing-secret"),
		Clock:  clock,
	})
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}
	return manager
}

func TestSessionRoundTrip(t *testing.T) {
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	manager := newTestManager(t, func() time.Time { return now })

	token, err := manager.IssueSession(Identity{
		UserID:   "user_01",
		Email:    "buyer@example.com",
		Name:     "Buyer",
		PhotoURL: "https://lh3.example.com/p.jpg",
	})
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	claims, err := manager.VerifySession(token)
	if err != nil {
		t.Fatalf("VerifySession returned error: %v", err)
	}
	if claims.UserID != "user_01" {
		t.Errorf("unexpected user id %s", claims.UserID)
	}
	if claims.Email != "buyer@example.com" {
		t.Errorf("unexpected email %s", claims.Email)
	}
	if claims.Kind != TokenKindSession {
		t.Errorf("unexpected kind %s", claims.Kind)
	}
}

func TestTempRoundTrip(t *testing.T) {
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	manager := newTestManager(t, func() time.Time { return now })

	token, err := manager.IssueTemp(TempProfile{
		GoogleID: "google-123",
		Email:    "new@example.com",
		Name:     "Newcomer",
	})
	if err != nil {
		t.Fatalf("IssueTemp returned error: %v", err)
	}

	claims, err := manager.VerifyTemp(token)
	if err != nil {
		t.Fatalf("VerifyTemp returned error: %v", err)
	}
	if claims.GoogleID != "google-123" {
		t.Errorf("unexpected google id %s", claims.GoogleID)
	}
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	manager := newTestManager(t, func() time.Time { return now })

	temp, err := manager.IssueTemp(TempProfile{GoogleID: "google-123", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("IssueTemp returned error: %v", err)
	}
	if _, err := manager.VerifySession(temp); !errors.Is(err, ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind, got %v", err)
	}

	session, err := manager.IssueSession(Identity{UserID: "user_01", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}
	if _, err := manager.VerifyTemp(session); !errors.Is(err, ErrWrongTokenKind) {
		t.Fatalf("expected ErrWrongTokenKind, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	current := issuedAt
	manager := newTestManager(t, func() time.Time { return current })

	token, err := manager.IssueSession(Identity{UserID: "user_01", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	current = issuedAt.Add(8 * 24 * time.Hour)
	if _, err := manager.VerifySession(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyJudgesExpiryByInjectedClock(t *testing.T) {
	// Both issue and verify happen long before today, so a wall-clock expiry
	// check would reject the token.
	issuedAt := time.Date(2020, time.April, 1, 9, 0, 0, 0, time.UTC)
	current := issuedAt
	manager := newTestManager(t, func() time.Time { return current })

	token, err := manager.IssueSession(Identity{UserID: "user_01", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	current = issuedAt.Add(time.Hour)
	claims, err := manager.VerifySession(token)
	if err != nil {
		t.Fatalf("VerifySession returned error: %v", err)
	}
	if claims.UserID != "user_01" {
		t.Fatalf("unexpected user id %q", claims.UserID)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	manager := newTestManager(t, func() time.Time { return now })

	other, err := NewSessionManager(SessionManagerDeps{
		Secret: []byte("a-different-secret"),
		Clock:  func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}

	token, err := other.IssueSession(Identity{UserID: "user_01", Email: "a@b.c"})
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}
	if _, err := manager.VerifySession(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	state := OAuthState{Nonce: NewStateNonce(), ReturnURL: "https://shop.example.com/items"}
	encoded, err := EncodeState(state)
	if err != nil {
		t.Fatalf("EncodeState returned error: %v", err)
	}
	decoded, err := DecodeState(encoded)
	if err != nil {
		t.Fatalf("DecodeState returned error: %v", err)
	}
	if decoded.Nonce != state.Nonce || decoded.ReturnURL != state.ReturnURL {
		t.Fatalf("decoded state mismatch: %+v", decoded)
	}
}

func TestDecodeStateRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "not-base64!!", "aGVsbG8"} {
		if _, err := DecodeState(input); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("DecodeState(%q) = %v, want ErrInvalidState", input, err)
		}
	}
}
