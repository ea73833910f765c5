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

const userColumns = `id, google_id, email, name, photo_url, token_id,
	is_revoked, revoked_at, revoked_by, created_at, last_login_at`

// UserRepository persists invited end users in PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sql.DB) (*UserRepository, error) {
	if db == nil {
		return nil, errors.New("postgres: user repository requires a database handle")
	}
	return &UserRepository{db: db}, nil
}

// FindByID loads a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// FindByGoogleID loads a user by their Google account identifier.
func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE google_id = $1", userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, googleID))
}

// CreateFromInvite inserts the user and consumes their invite token in one
// transaction. A token that was already consumed, revoked, or never existed
// fails the whole creation.
func (r *UserRepository) CreateFromInvite(ctx context.Context, user domain.User) error {
	return pg.WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, google_id, email, name, photo_url, token_id,
				is_revoked, revoked_at, revoked_by, created_at, last_login_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			user.ID, user.GoogleID, user.Email, user.Name, user.PhotoURL, user.TokenID,
			user.IsRevoked, nullTime(user.RevokedAt), user.RevokedBy,
			user.CreatedAt.UTC(), user.LastLoginAt.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repositories.ErrConflict
			}
			return fmt.Errorf("postgres: inserting user: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE invite_tokens SET used_by = $2, used_at = $3
			WHERE id = $1 AND used_by = '' AND is_revoked = FALSE`,
			user.TokenID, user.ID, user.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("postgres: consuming invite token: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("postgres: checking rows affected: %w", err)
		}
		if affected == 0 {
			return repositories.ErrTokenAlreadyUsed
		}
		return nil
	})
}

// UpdateLastLogin records the time of a successful sign-in.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = $2 WHERE id = $1",
		userID, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: updating last login: %w", err)
	}
	return requireRowAffected(result, repositories.ErrNotFound)
}

// UserRevoked reports whether the user has been locked out.
func (r *UserRepository) UserRevoked(ctx context.Context, userID string) (bool, error) {
	var revoked bool
	err := r.db.QueryRowContext(ctx,
		"SELECT is_revoked FROM users WHERE id = $1",
		userID,
	).Scan(&revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, repositories.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("postgres: loading user revocation: %w", err)
	}
	return revoked, nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		user      domain.User
		revokedAt sql.NullTime
	)

	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.PhotoURL, &user.TokenID,
		&user.IsRevoked, &revokedAt, &user.RevokedBy, &user.CreatedAt, &user.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, repositories.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: scanning user: %w", err)
	}

	if revokedAt.Valid {
		t := revokedAt.Time
		user.RevokedAt = &t
	}
	return user, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
