package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/bookshare/bookshare-go/internal/model"
)

// UserRepo encapsulates all database queries touching the users, roles and
// email_confirmations tables. Users always carry their joined role name;
// the confirmation row is loaded where the auth flows need it.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `u.id, u.first_name, u.last_name, u.username, u.email,
	   u.password_hash, u.salt, u.phone, u.role_id, r.name,
	   u.created_at, u.updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
		&u.PasswordHash, &u.Salt, &u.Phone, &u.RoleID, &u.RoleName,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user together with its unconfirmed confirmation row
// in a single transaction, so a crash cannot leave a user without a
// confirmation record. Returns the new user id.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, username, email, password_hash, salt, phone, role_id)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash, u.Salt, u.Phone, u.RoleID)
	if err != nil {
		if isDuplicate(err) {
			err = ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO email_confirmations (user_id, email, confirmed) VALUES (?,?,0)`,
		id, u.Email); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

// GetByID fetches a user (with role name) by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = ?`, id)
	return scanUser(row)
}

// GetByUsername fetches a user by username and attaches the confirmation
// row. Login needs both the credentials and the confirmed flag.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.username = ?`,
		username)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if u.Confirmation, err = r.confirmation(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail fetches the user owning the given confirmation email, with the
// confirmation row attached. The confirmation email is the lookup key for
// send-code, confirm-code, forgot-password and re-signup.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 JOIN roles r ON r.id = u.role_id
		 JOIN email_confirmations ec ON ec.user_id = u.id
		 WHERE ec.email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if u.Confirmation, err = r.confirmation(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) confirmation(ctx context.Context, userID int64) (*model.EmailConfirmation, error) {
	var (
		c    model.EmailConfirmation
		code sql.NullString
		exp  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, email, code, expires_at, confirmed FROM email_confirmations WHERE user_id = ?`,
		userID).Scan(&c.UserID, &c.Email, &code, &exp, &c.Confirmed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if code.Valid {
		c.Code = &code.String
	}
	if exp.Valid {
		t := exp.Time
		c.ExpiresAt = &t
	}
	return &c, nil
}

// UpdateProfile overwrites a user's profile fields. Used both by the admin
// user-update endpoint and by re-signup over an unconfirmed account.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET first_name=?, last_name=?, username=?, email=?, phone=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		u.FirstName, u.LastName, u.Username, u.Email, u.Phone, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored digest and salt for a user.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID int64, digest, salt string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, salt=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`,
		digest, salt, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateConfirmationCode stores a freshly generated one-time code and its
// expiry on the user's confirmation row, replacing any previous code.
func (r *UserRepo) UpdateConfirmationCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE email_confirmations SET code=?, expires_at=? WHERE user_id=?`,
		code, expiresAt, userID)
	return err
}

// MarkConfirmed flips the confirmed flag. The conditional WHERE makes the
// flip happen at most once; a second attempt affects zero rows.
func (r *UserRepo) MarkConfirmed(ctx context.Context, userID int64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE email_confirmations SET confirmed=1, code=NULL, expires_at=NULL
		 WHERE user_id=? AND confirmed=0`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRole changes a user's role by role name.
func (r *UserRepo) UpdateRole(ctx context.Context, userID int64, roleName string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users u JOIN roles r ON r.name = ? SET u.role_id = r.id WHERE u.id = ?`,
		roleName, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user together with its owned rows (confirmation,
// refresh tokens, books, reviews) in one transaction.
func (r *UserRepo) Delete(ctx context.Context, userID int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, q := range []string{
		`DELETE FROM reviews WHERE user_id = ?`,
		`DELETE rv FROM reviews rv JOIN books b ON b.id = rv.book_id WHERE b.user_id = ?`,
		`DELETE FROM books WHERE user_id = ?`,
		`DELETE FROM refresh_tokens WHERE user_id = ?`,
		`DELETE FROM email_confirmations WHERE user_id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, q, userID); err != nil {
			return err
		}
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
		return err
	}
	return tx.Commit()
}

// List returns users ordered by username with limit/offset pagination.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON r.id = u.role_id
		 ORDER BY u.username LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// ListByRole returns all users holding the given role name.
func (r *UserRepo) ListByRole(ctx context.Context, roleName string) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON r.id = u.role_id
		 WHERE r.name = ? ORDER BY u.username`, roleName)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// Search matches the keyword against username, email, name and phone.
func (r *UserRepo) Search(ctx context.Context, keyword string) ([]*model.User, error) {
	like := "%" + keyword + "%"
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON r.id = u.role_id
		 WHERE u.username LIKE ? OR u.email LIKE ? OR u.first_name LIKE ?
			OR u.last_name LIKE ? OR u.phone LIKE ?
		 ORDER BY u.username`, like, like, like, like, like)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// CountByRole returns how many users hold the given role.
func (r *UserRepo) CountByRole(ctx context.Context, roleName string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users u JOIN roles r ON r.id = u.role_id WHERE r.name = ?`,
		roleName).Scan(&n)
	return n, err
}

// Exists reports whether a user id is present.
func (r *UserRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func collectUsers(rows *sql.Rows) ([]*model.User, error) {
	defer rows.Close()
	var out []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
			&u.PasswordHash, &u.Salt, &u.Phone, &u.RoleID, &u.RoleName,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
