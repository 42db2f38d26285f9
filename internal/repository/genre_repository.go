package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookshare/bookshare-go/internal/model"
)

// GenreRepo encapsulates queries against the genres table.
type GenreRepo struct{ DB *sql.DB }

func NewGenreRepo(db *sql.DB) *GenreRepo { return &GenreRepo{DB: db} }

// Create inserts a genre and returns its id.
func (r *GenreRepo) Create(ctx context.Context, g *model.Genre) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO genres (name, description) VALUES (?,?)`, g.Name, g.Description)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID fetches a genre by id or returns ErrNotFound.
func (r *GenreRepo) GetByID(ctx context.Context, id int64) (*model.Genre, error) {
	var g model.Genre
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, description FROM genres WHERE id=?`, id).
		Scan(&g.ID, &g.Name, &g.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns all genres ordered by name.
func (r *GenreRepo) List(ctx context.Context) ([]*model.Genre, error) {
	return r.query(ctx, `SELECT id, name, description FROM genres ORDER BY name`)
}

// Search matches the keyword against genre names.
func (r *GenreRepo) Search(ctx context.Context, keyword string) ([]*model.Genre, error) {
	return r.query(ctx,
		`SELECT id, name, description FROM genres WHERE name LIKE ? ORDER BY name`,
		"%"+keyword+"%")
}

// Update overwrites a genre's name and description.
func (r *GenreRepo) Update(ctx context.Context, g *model.Genre) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE genres SET name=?, description=? WHERE id=?`, g.Name, g.Description, g.ID)
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

// Delete removes a genre. Genres still referenced by books are protected
// by the foreign key and surface as ErrConflict.
func (r *GenreRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM genres WHERE id=?`, id)
	if err != nil {
		return ErrConflict
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GenreRepo) query(ctx context.Context, q string, args ...interface{}) ([]*model.Genre, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Genre
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Description); err != nil {
			return nil, err
		}
		out = append(out, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
