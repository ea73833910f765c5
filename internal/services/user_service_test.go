package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/repositories"
)

func newUserServiceForTest(t *testing.T, users *stubUserRepository, tokens TokenService, now time.Time) UserService {
	t.Helper()
	svc, err := NewUserService(UserServiceDeps{
		Users:       users,
		Tokens:      tokens,
		Clock:       fixedClock(now),
		IDGenerator: func() string { return "user-1" },
	})
	if err != nil {
		t.Fatalf("new user service: %v", err)
	}
	return svc
}

func TestUserServiceResolveGoogleUserRecordsLogin(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := &stubUserRepository{
		byID:       map[string]domain.User{"u1": {ID: "u1", GoogleID: "g1"}},
		byGoogleID: map[string]domain.User{"g1": {ID: "u1", GoogleID: "g1"}},
	}
	tokens := newTokenServiceForTest(t, &stubTokenRepository{}, now)
	svc := newUserServiceForTest(t, users, tokens, now)

	user, err := svc.ResolveGoogleUser(context.Background(), GoogleSignInCommand{GoogleID: "g1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("expected user u1, got %s", user.ID)
	}
	if !user.LastLoginAt.Equal(now) {
		t.Fatalf("expected last login stamped at %v, got %v", now, user.LastLoginAt)
	}
	if got, ok := users.lastLogins["u1"]; !ok || !got.Equal(now) {
		t.Fatalf("expected last login persisted, got %v", users.lastLogins)
	}
}

func TestUserServiceResolveGoogleUserUnknownIdentity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tokens := newTokenServiceForTest(t, &stubTokenRepository{}, now)
	svc := newUserServiceForTest(t, &stubUserRepository{}, tokens, now)

	if _, err := svc.ResolveGoogleUser(context.Background(), GoogleSignInCommand{GoogleID: "stranger"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserServiceResolveGoogleUserRevokedAccount(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := &stubUserRepository{
		byGoogleID: map[string]domain.User{"g1": {ID: "u1", GoogleID: "g1", IsRevoked: true}},
	}
	tokens := newTokenServiceForTest(t, &stubTokenRepository{}, now)
	svc := newUserServiceForTest(t, users, tokens, now)

	if _, err := svc.ResolveGoogleUser(context.Background(), GoogleSignInCommand{GoogleID: "g1"}); !errors.Is(err, ErrUserRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}
}

func TestUserServiceRedeemInviteCreatesAccount(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tokenRepo := &stubTokenRepository{byCode: map[string]domain.InviteToken{
		"12345": {ID: "t1", Code: "12345"},
	}}
	tokens := newTokenServiceForTest(t, tokenRepo, now)
	users := &stubUserRepository{}
	svc := newUserServiceForTest(t, users, tokens, now)

	user, err := svc.RedeemInvite(context.Background(), RedeemInviteCommand{
		Profile: GoogleSignInCommand{GoogleID: "g1", Email: "a@example.com", Name: "Aya", PhotoURL: "https://example.com/p.jpg"},
		Code:    "12345",
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if user.TokenID != "t1" {
		t.Fatalf("expected consumed token t1, got %s", user.TokenID)
	}
	if len(users.created) != 1 {
		t.Fatalf("expected one created user, got %d", len(users.created))
	}
	if !users.created[0].CreatedAt.Equal(now) || !users.created[0].LastLoginAt.Equal(now) {
		t.Fatalf("expected timestamps stamped at %v, got %+v", now, users.created[0])
	}
}

func TestUserServiceRedeemInviteRejectsBadCode(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	usedAt := now.Add(-time.Hour)
	tokenRepo := &stubTokenRepository{byCode: map[string]domain.InviteToken{
		"11111": {ID: "t1", Code: "11111", UsedBy: "someone", UsedAt: &usedAt},
	}}
	tokens := newTokenServiceForTest(t, tokenRepo, now)
	svc := newUserServiceForTest(t, &stubUserRepository{}, tokens, now)

	cmd := RedeemInviteCommand{
		Profile: GoogleSignInCommand{GoogleID: "g1", Email: "a@example.com"},
	}

	cmd.Code = "99999"
	if _, err := svc.RedeemInvite(context.Background(), cmd); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	cmd.Code = "11111"
	if _, err := svc.RedeemInvite(context.Background(), cmd); !errors.Is(err, ErrInviteUsed) {
		t.Fatalf("expected used, got %v", err)
	}
}

func TestUserServiceRedeemInviteMapsRaceLosses(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tokenRepo := &stubTokenRepository{byCode: map[string]domain.InviteToken{
		"12345": {ID: "t1", Code: "12345"},
	}}
	tokens := newTokenServiceForTest(t, tokenRepo, now)

	users := &stubUserRepository{createErr: repositories.ErrTokenAlreadyUsed}
	svc := newUserServiceForTest(t, users, tokens, now)
	cmd := RedeemInviteCommand{
		Profile: GoogleSignInCommand{GoogleID: "g1", Email: "a@example.com"},
		Code:    "12345",
	}
	if _, err := svc.RedeemInvite(context.Background(), cmd); !errors.Is(err, ErrInviteUsed) {
		t.Fatalf("expected used when token consumed concurrently, got %v", err)
	}

	users.createErr = repositories.ErrConflict
	if _, err := svc.RedeemInvite(context.Background(), cmd); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected exists for duplicate google account, got %v", err)
	}
}

func TestUserServiceUserRevoked(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	users := &stubUserRepository{byID: map[string]domain.User{
		"u1": {ID: "u1", IsRevoked: true},
		"u2": {ID: "u2"},
	}}
	tokens := newTokenServiceForTest(t, &stubTokenRepository{}, now)
	svc := newUserServiceForTest(t, users, tokens, now)

	revoked, err := svc.UserRevoked(context.Background(), "u1")
	if err != nil || !revoked {
		t.Fatalf("expected u1 revoked, got %v %v", revoked, err)
	}
	revoked, err = svc.UserRevoked(context.Background(), "u2")
	if err != nil || revoked {
		t.Fatalf("expected u2 active, got %v %v", revoked, err)
	}
	if _, err := svc.UserRevoked(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
