package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// TokenQueries persists refresh tokens. Only the SHA-256 hash of a token
// is ever stored.
type TokenQueries interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	// RefreshOwner returns the user of a token that is neither revoked nor
	// expired at now, or ErrNotFound.
	RefreshOwner(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeRefresh(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllRefresh(ctx context.Context, userID uint64, now time.Time) error
}

// TokenRepo stores refresh tokens in the refresh_tokens table.
type TokenRepo struct{ q sqlx.ExtContext }

func NewTokenRepo(q sqlx.ExtContext) *TokenRepo { return &TokenRepo{q: q} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

func (r *TokenRepo) RefreshOwner(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	var rec struct {
		UserID    uint64       `db:"user_id"`
		ExpiresAt time.Time    `db:"expires_at"`
		RevokedAt sql.NullTime `db:"revoked_at"`
	}
	err := sqlx.GetContext(ctx, r.q, &rec,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1 FOR UPDATE",
		tokenHash)
	if err != nil {
		return 0, notFound(err)
	}
	if rec.RevokedAt.Valid || !now.Before(rec.ExpiresAt) {
		return 0, ErrNotFound
	}
	return rec.UserID, nil
}

// RevokeRefresh marks a token as revoked.
func (r *TokenRepo) RevokeRefresh(ctx context.Context, tokenHash string, now time.Time) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		now, tokenHash)
	return err
}

// RevokeAllRefresh revokes every active token of the user.
func (r *TokenRepo) RevokeAllRefresh(ctx context.Context, userID uint64, now time.Time) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		now, userID)
	return err
}
