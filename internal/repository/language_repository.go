package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookshare/bookshare-go/internal/model"
)

// LanguageRepo encapsulates queries against the languages table.
type LanguageRepo struct{ DB *sql.DB }

func NewLanguageRepo(db *sql.DB) *LanguageRepo { return &LanguageRepo{DB: db} }

// Create inserts a language and returns its id.
func (r *LanguageRepo) Create(ctx context.Context, l *model.Language) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO languages (name) VALUES (?)`, l.Name)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID fetches a language by id or returns ErrNotFound.
func (r *LanguageRepo) GetByID(ctx context.Context, id int64) (*model.Language, error) {
	var l model.Language
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name FROM languages WHERE id=?`, id).Scan(&l.ID, &l.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns all languages ordered by name.
func (r *LanguageRepo) List(ctx context.Context) ([]*model.Language, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM languages ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Language
	for rows.Next() {
		var l model.Language
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update renames a language.
func (r *LanguageRepo) Update(ctx context.Context, l *model.Language) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE languages SET name=? WHERE id=?`, l.Name, l.ID)
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

// Delete removes a language; languages referenced by books surface as
// ErrConflict through the foreign key.
func (r *LanguageRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM languages WHERE id=?`, id)
	if err != nil {
		return ErrConflict
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
