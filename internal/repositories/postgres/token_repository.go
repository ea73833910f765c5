package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
	pg "github.com/dkotama/jastip-api/internal/platform/postgres"
	"github.com/dkotama/jastip-api/internal/repositories"
)

const tokenColumns = `id, code, note, used_by, used_at, is_revoked, expires_at, created_at`

// TokenRepository persists invite tokens in PostgreSQL.
type TokenRepository struct {
	db *sql.DB
}

var _ repositories.TokenRepository = (*TokenRepository)(nil)

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(db *sql.DB) (*TokenRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: token repository requires a database handle")
	}
	return &TokenRepository{db: db}, nil
}

// Insert stores a new token. A code collision surfaces as ErrConflict so the
// caller can regenerate.
func (r *TokenRepository) Insert(ctx context.Context, token domain.InviteToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invite_tokens (id, code, note, used_by, used_at, is_revoked, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		token.ID, token.Code, token.Note, token.UsedBy, nullTime(token.UsedAt),
		token.IsRevoked, nullTime(token.ExpiresAt), token.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrConflict
		}
		return fmt.Errorf("postgres: inserting invite token: %w", err)
	}
	return nil
}

// FindByCode loads a token by its 5-digit code.
func (r *TokenRepository) FindByCode(ctx context.Context, code string) (domain.InviteToken, error) {
	query := fmt.Sprintf("SELECT %s FROM invite_tokens WHERE code = $1", tokenColumns)
	return scanToken(r.db.QueryRowContext(ctx, query, code))
}

// List returns every token, newest first, joined with the consuming user.
func (r *TokenRepository) List(ctx context.Context) ([]domain.InviteTokenListing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.code, t.note, t.used_by, t.used_at, t.is_revoked, t.expires_at, t.created_at,
			COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.is_revoked, FALSE)
		FROM invite_tokens t
		LEFT JOIN users u ON u.id = t.used_by
		ORDER BY t.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing invite tokens: %w", err)
	}
	defer rows.Close()

	listings := make([]domain.InviteTokenListing, 0)
	for rows.Next() {
		var (
			listing   domain.InviteTokenListing
			usedAt    sql.NullTime
			expiresAt sql.NullTime
		)
		err := rows.Scan(
			&listing.ID, &listing.Code, &listing.Note, &listing.UsedBy, &usedAt,
			&listing.IsRevoked, &expiresAt, &listing.CreatedAt,
			&listing.UserName, &listing.UserEmail, &listing.UserRevoked,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning invite token listing: %w", err)
		}
		if usedAt.Valid {
			t := usedAt.Time
			listing.UsedAt = &t
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			listing.ExpiresAt = &t
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating invite tokens: %w", err)
	}
	return listings, nil
}

// Revoke marks the token revoked and, when it was already consumed, locks out
// the consuming user in the same transaction.
func (r *TokenRepository) Revoke(ctx context.Context, tokenID, revokedBy string, at time.Time) error {
	return pg.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		var usedBy string
		err := tx.QueryRowContext(ctx,
			"UPDATE invite_tokens SET is_revoked = TRUE WHERE id = $1 RETURNING used_by",
			tokenID,
		).Scan(&usedBy)
		if errors.Is(err, sql.ErrNoRows) {
			return repositories.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("postgres: revoking invite token: %w", err)
		}
		if usedBy == "" {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users SET is_revoked = TRUE, revoked_at = $2, revoked_by = $3
			WHERE id = $1`,
			usedBy, at.UTC(), revokedBy,
		)
		if err != nil {
			return fmt.Errorf("postgres: revoking token user: %w", err)
		}
		return nil
	})
}

func scanToken(row rowScanner) (domain.InviteToken, error) {
	var (
		token     domain.InviteToken
		usedAt    sql.NullTime
		expiresAt sql.NullTime
	)

	err := row.Scan(
		&token.ID, &token.Code, &token.Note, &token.UsedBy, &usedAt,
		&token.IsRevoked, &expiresAt, &token.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InviteToken{}, repositories.ErrNotFound
	}
	if err != nil {
		return domain.InviteToken{}, fmt.Errorf("postgres: scanning invite token: %w", err)
	}

	if usedAt.Valid {
		t := usedAt.Time
		token.UsedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		token.ExpiresAt = &t
	}
	return token, nil
}
