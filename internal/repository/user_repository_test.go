package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/bookshare/bookshare-go/internal/model"
)

func newUserMock(t *testing.T) (sqlmock.Sqlmock, *UserRepo, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	return mock, NewUserRepo(db), func() { db.Close() }
}

func TestUserCreate(t *testing.T) {
	mock, repo, cleanup := newUserMock(t)
	defer cleanup()

	u := &model.User{
		FirstName:    "Ada",
		LastName:     "Reader",
		Username:     "ada",
		Email:        "ada@example.com",
		PasswordHash: "digest",
		Salt:         "salt",
		Phone:        "555-0100",
		RoleID:       1,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash, u.Salt, u.Phone, u.RoleID).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(`INSERT INTO email_confirmations`).
		WithArgs(int64(11), u.Email).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	id, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	if id != 11 || u.ID != 11 {
		t.Errorf("got id %d (u.ID %d), want 11", id, u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// Duplicate username/email/phone violations come back from MySQL as error
// 1062 and must surface as ErrConflict, with the transaction rolled back.
func TestUserCreateDuplicate(t *testing.T) {
	mock, repo, cleanup := newUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'ada' for key 'users.username'"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &model.User{Username: "ada"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUserMarkConfirmed(t *testing.T) {
	mock, repo, cleanup := newUserMock(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE email_confirmations`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.MarkConfirmed(context.Background(), 5); err != nil {
		t.Fatal(err)
	}

	// Confirming an already confirmed account matches no row.
	mock.ExpectExec(`UPDATE email_confirmations`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.MarkConfirmed(context.Background(), 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUserUpdateConfirmationCode(t *testing.T) {
	mock, repo, cleanup := newUserMock(t)
	defer cleanup()

	exp := time.Now().Add(10 * time.Minute)
	mock.ExpectExec(`UPDATE email_confirmations`).
		WithArgs("123456", exp, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateConfirmationCode(context.Background(), 5, "123456", exp); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
