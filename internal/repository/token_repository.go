package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists and validates refresh tokens. Only SHA-256 hashes of
// token values are stored; callers hash before lookup.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row for a user.
func (r *TokenRepo) Store(ctx context.Context, userID int64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)`,
		userID, tokenHash, exp)
	return err
}

// Find returns the token row for (hash, user) or ErrNotFound. Expiry and
// revocation are left for the caller to judge; Rotate is the operation
// that enforces them atomically.
func (r *TokenRepo) Find(ctx context.Context, tokenHash string, userID int64) (expiresAt time.Time, revoked bool, err error) {
	var revokedAt sql.NullTime
	err = r.DB.QueryRowContext(ctx,
		`SELECT expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? AND user_id=? LIMIT 1`,
		tokenHash, userID).Scan(&expiresAt, &revokedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, ErrNotFound
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return expiresAt, revokedAt.Valid, nil
}

// Rotate consumes the old token and persists its replacement in a single
// transaction. The conditional UPDATE is the compare-and-set guard: it
// only fires while the row is still live, so of two concurrent exchanges
// presenting the same token exactly one sees RowsAffected==1; the loser
// gets ErrNotFound. Absent, expired and already-revoked tokens all fall
// into the same zero-rows outcome.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash string, userID int64, newHash string, newExp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=NOW()
		 WHERE token_hash=? AND user_id=? AND revoked_at IS NULL AND expires_at > NOW()`,
		oldHash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)`,
		userID, newHash, newExp); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteByHash removes the token row matching the hash. Deleting an
// absent token is not an error; logout is idempotent.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash=?`, tokenHash)
	return err
}
