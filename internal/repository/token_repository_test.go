package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, *TokenRepo, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	return mock, NewTokenRepo(db), func() { db.Close() }
}

func TestTokenRotate(t *testing.T) {
	mock, repo, cleanup := newMockDB(t)
	defer cleanup()

	var (
		oldHash = "old-hash"
		newHash = "new-hash"
		userID  = int64(9)
		newExp  = time.Now().Add(21 * 24 * time.Hour)
	)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=NOW\(\)`).
		WithArgs(oldHash, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(userID, newHash, newExp).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	if err := repo.Rotate(context.Background(), oldHash, userID, newHash, newExp); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// A rotation whose conditional update matches no live row must fail with
// ErrNotFound and roll the transaction back without inserting anything.
func TestTokenRotateSpentToken(t *testing.T) {
	mock, repo, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=NOW\(\)`).
		WithArgs("spent-hash", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Rotate(context.Background(), "spent-hash", 9, "new-hash", time.Now().Add(time.Hour))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTokenFind(t *testing.T) {
	mock, repo, cleanup := newMockDB(t)
	defer cleanup()

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"expires_at", "revoked_at"}).AddRow(exp, nil)
	mock.ExpectQuery(`SELECT expires_at, revoked_at FROM refresh_tokens`).
		WithArgs("hash", int64(4)).
		WillReturnRows(rows)

	got, revoked, err := repo.Find(context.Background(), "hash", 4)
	if err != nil {
		t.Fatal(err)
	}
	if revoked {
		t.Error("token reported revoked")
	}
	if !got.Equal(exp) {
		t.Errorf("got expiry %v, want %v", got, exp)
	}

	mock.ExpectQuery(`SELECT expires_at, revoked_at FROM refresh_tokens`).
		WithArgs("missing", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"expires_at", "revoked_at"}))
	if _, _, err := repo.Find(context.Background(), "missing", 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestTokenDeleteByHashIdempotent(t *testing.T) {
	mock, repo, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE token_hash=`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByHash(context.Background(), "gone"); err != nil {
		t.Errorf("deleting an absent token: %v", err)
	}
}
