package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/repositories"
)

const (
	inviteCodeMin = 10000
	inviteCodeMax = 99999

	// codeGenerationAttempts bounds retries when a generated code collides
	// with an existing token.
	codeGenerationAttempts = 5
)

var (
	// ErrTokenInvalidInput indicates the caller supplied invalid token parameters.
	ErrTokenInvalidInput = errors.New("token: invalid input")
	// ErrInviteNotFound indicates no token carries the given code.
	ErrInviteNotFound = errors.New("token: not found")
	// ErrInviteRevoked indicates the token was revoked by the admin.
	ErrInviteRevoked = errors.New("token: revoked")
	// ErrInviteUsed indicates the token was already consumed by another account.
	ErrInviteUsed = errors.New("token: already used")
	// ErrInviteExpired indicates the token's expiry has passed.
	ErrInviteExpired = errors.New("token: expired")
)

// TokenServiceDeps bundles collaborators required to construct a token service.
type TokenServiceDeps struct {
	Tokens      repositories.TokenRepository
	Clock       func() time.Time
	IDGenerator func() string
	// CodeGenerator overrides the random 5-digit code source, for tests.
	CodeGenerator func() (string, error)
}

type tokenService struct {
	tokenRepo repositories.TokenRepository
	clock     func() time.Time
	idGen     func() string
	codeGen   func() (string, error)
}

var _ TokenService = (*tokenService)(nil)

// NewTokenService constructs a service managing single-use invite tokens.
func NewTokenService(deps TokenServiceDeps) (TokenService, error) {
	if deps.Tokens == nil {
		return nil, errors.New("token service: token repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	codeGen := deps.CodeGenerator
	if codeGen == nil {
		codeGen = randomInviteCode
	}

	return &tokenService{
		tokenRepo: deps.Tokens,
		clock: func() time.Time {
			return clock().UTC()
		},
		idGen:   idGen,
		codeGen: codeGen,
	}, nil
}

func (s *tokenService) Create(ctx context.Context, cmd CreateTokenCommand) (InviteToken, error) {
	now := s.clock()
	if cmd.ExpiresAt != nil && !cmd.ExpiresAt.After(now) {
		return InviteToken{}, fmt.Errorf("%w: expiry must be in the future", ErrTokenInvalidInput)
	}

	var expiresAt *time.Time
	if cmd.ExpiresAt != nil {
		expiry := cmd.ExpiresAt.UTC()
		expiresAt = &expiry
	}

	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code, err := s.codeGen()
		if err != nil {
			return InviteToken{}, fmt.Errorf("token service: generating code: %w", err)
		}

		token := domain.InviteToken{
			ID:        s.idGen(),
			Code:      code,
			Note:      strings.TrimSpace(cmd.Note),
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		err = s.tokenRepo.Insert(ctx, token)
		if errors.Is(err, repositories.ErrConflict) {
			continue
		}
		if err != nil {
			return InviteToken{}, err
		}
		return token, nil
	}
	return InviteToken{}, errors.New("token service: exhausted code generation attempts")
}

func (s *tokenService) List(ctx context.Context) ([]InviteTokenListing, error) {
	return s.tokenRepo.List(ctx)
}

func (s *tokenService) Revoke(ctx context.Context, tokenID, revokedBy string) error {
	if strings.TrimSpace(tokenID) == "" {
		return fmt.Errorf("%w: token id is required", ErrTokenInvalidInput)
	}
	err := s.tokenRepo.Revoke(ctx, tokenID, revokedBy, s.clock())
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrInviteNotFound
	}
	return err
}

// Validate checks a 5-digit code. Failure reasons are reported in a fixed
// priority: unknown code, revoked, already used, expired.
func (s *tokenService) Validate(ctx context.Context, code string) (InviteToken, error) {
	code = strings.TrimSpace(code)
	if len(code) != 5 {
		return InviteToken{}, ErrInviteNotFound
	}

	token, err := s.tokenRepo.FindByCode(ctx, code)
	if errors.Is(err, repositories.ErrNotFound) {
		return InviteToken{}, ErrInviteNotFound
	}
	if err != nil {
		return InviteToken{}, err
	}

	switch {
	case token.IsRevoked:
		return InviteToken{}, ErrInviteRevoked
	case token.UsedBy != "":
		return InviteToken{}, ErrInviteUsed
	case token.ExpiresAt != nil && !token.ExpiresAt.After(s.clock()):
		return InviteToken{}, ErrInviteExpired
	}
	return token, nil
}

func randomInviteCode() (string, error) {
	span := big.NewInt(inviteCodeMax - inviteCodeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%05d", n.Int64()+inviteCodeMin), nil
}
