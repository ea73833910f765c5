package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/repositories"
)

var (
	// ErrUserInvalidInput indicates the caller supplied invalid user parameters.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates no account exists for the Google identity.
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserRevoked indicates the account has been locked out.
	ErrUserRevoked = errors.New("user: revoked")
	// ErrUserExists indicates the Google identity already has an account.
	ErrUserExists = errors.New("user: already exists")
)

// UserServiceDeps bundles collaborators required to construct a user service.
type UserServiceDeps struct {
	Users       repositories.UserRepository
	Tokens      TokenService
	Clock       func() time.Time
	IDGenerator func() string
}

type userService struct {
	userRepo repositories.UserRepository
	tokens   TokenService
	clock    func() time.Time
	idGen    func() string
}

var _ UserService = (*userService)(nil)

// NewUserService constructs a service managing invited end users.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("user service: token service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &userService{
		userRepo: deps.Users,
		tokens:   deps.Tokens,
		clock: func() time.Time {
			return clock().UTC()
		},
		idGen: idGen,
	}, nil
}

func (s *userService) ResolveGoogleUser(ctx context.Context, cmd GoogleSignInCommand) (User, error) {
	if strings.TrimSpace(cmd.GoogleID) == "" {
		return User{}, fmt.Errorf("%w: google id is required", ErrUserInvalidInput)
	}

	user, err := s.userRepo.FindByGoogleID(ctx, cmd.GoogleID)
	if errors.Is(err, repositories.ErrNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	if user.IsRevoked {
		return User{}, ErrUserRevoked
	}

	now := s.clock()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLoginAt = now
	return user, nil
}

func (s *userService) RedeemInvite(ctx context.Context, cmd RedeemInviteCommand) (User, error) {
	if strings.TrimSpace(cmd.Profile.GoogleID) == "" {
		return User{}, fmt.Errorf("%w: google id is required", ErrUserInvalidInput)
	}
	if strings.TrimSpace(cmd.Profile.Email) == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrUserInvalidInput)
	}

	token, err := s.tokens.Validate(ctx, cmd.Code)
	if err != nil {
		return User{}, err
	}

	now := s.clock()
	user := domain.User{
		ID:          s.idGen(),
		GoogleID:    cmd.Profile.GoogleID,
		Email:       cmd.Profile.Email,
		Name:        cmd.Profile.Name,
		PhotoURL:    cmd.Profile.PhotoURL,
		TokenID:     token.ID,
		CreatedAt:   now,
		LastLoginAt: now,
	}

	err = s.userRepo.CreateFromInvite(ctx, user)
	switch {
	case errors.Is(err, repositories.ErrTokenAlreadyUsed):
		return User{}, ErrInviteUsed
	case errors.Is(err, repositories.ErrConflict):
		return User{}, ErrUserExists
	case err != nil:
		return User{}, err
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, userID string) (User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

func (s *userService) UserRevoked(ctx context.Context, userID string) (bool, error) {
	revoked, err := s.userRepo.UserRevoked(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return false, ErrUserNotFound
	}
	return revoked, err
}
