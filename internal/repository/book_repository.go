// Package repository contains data access logic separated from HTTP
// handlers. This file defines queries for the books table. A book belongs
// to the user that uploaded it and references a genre and a language.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookshare/bookshare-go/internal/model"
)

// BookRepo encapsulates all database queries related to books.
type BookRepo struct{ DB *sql.DB }

func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{DB: db} }

const bookColumns = `id, title, description, author, published, pages,
	   book_url, thumbnail_url, language_id, genre_id, user_id,
	   created_at, updated_at`

// Create inserts a new book and populates the ID field.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO books (title, description, author, published, pages, book_url, thumbnail_url, language_id, genre_id, user_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.Title, b.Description, b.Author, b.Published, b.Pages,
		b.BookURL, b.ThumbnailURL, b.LanguageID, b.GenreID, b.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

// GetByID fetches a book by id or returns ErrNotFound.
func (r *BookRepo) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// List returns books ordered by id with limit/offset pagination.
func (r *BookRepo) List(ctx context.Context, limit, offset int) ([]*model.Book, error) {
	return r.query(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
}

// ListByUser returns all books uploaded by a user.
func (r *BookRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Book, error) {
	return r.query(ctx,
		`SELECT `+bookColumns+` FROM books WHERE user_id = ? ORDER BY id`, userID)
}

// ListByGenre returns all books tagged with a genre.
func (r *BookRepo) ListByGenre(ctx context.Context, genreID int64) ([]*model.Book, error) {
	return r.query(ctx,
		`SELECT `+bookColumns+` FROM books WHERE genre_id = ? ORDER BY id`, genreID)
}

// ListByLanguage returns all books in a language.
func (r *BookRepo) ListByLanguage(ctx context.Context, languageID int64) ([]*model.Book, error) {
	return r.query(ctx,
		`SELECT `+bookColumns+` FROM books WHERE language_id = ? ORDER BY id`, languageID)
}

// SearchByTitle matches the keyword against book titles, case-insensitive.
func (r *BookRepo) SearchByTitle(ctx context.Context, keyword string) ([]*model.Book, error) {
	return r.query(ctx,
		`SELECT `+bookColumns+` FROM books WHERE title LIKE ? ORDER BY id`, "%"+keyword+"%")
}

// Update overwrites the mutable metadata of a book.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE books SET title=?, description=?, author=?, published=?, pages=?,
				genre_id=?, language_id=?, updated_at=CURRENT_TIMESTAMP
		 WHERE id=?`,
		b.Title, b.Description, b.Author, b.Published, b.Pages,
		b.GenreID, b.LanguageID, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a book and its reviews within a transaction.
func (r *BookRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM reviews WHERE book_id = ?`, id); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrNotFound
		return err
	}
	return tx.Commit()
}

func (r *BookRepo) query(ctx context.Context, q string, args ...interface{}) ([]*model.Book, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Author, &b.Published,
			&b.Pages, &b.BookURL, &b.ThumbnailURL, &b.LanguageID, &b.GenreID,
			&b.UserID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanBook(row *sql.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Description, &b.Author, &b.Published,
		&b.Pages, &b.BookURL, &b.ThumbnailURL, &b.LanguageID, &b.GenreID,
		&b.UserID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
