package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bookshare/bookshare-go/internal/model"
)

// ReviewRepo encapsulates queries against the reviews table.
type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// Create inserts a review and populates the ID field.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO reviews (content, rating, book_id, user_id) VALUES (?,?,?,?)`,
		rv.Content, rv.Rating, rv.BookID, rv.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = id
	return nil
}

// GetByID fetches a review by id or returns ErrNotFound.
func (r *ReviewRepo) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	var rv model.Review
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, content, rating, book_id, user_id FROM reviews WHERE id=?`, id).
		Scan(&rv.ID, &rv.Content, &rv.Rating, &rv.BookID, &rv.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// ListByBook returns all reviews of a book.
func (r *ReviewRepo) ListByBook(ctx context.Context, bookID int64) ([]*model.Review, error) {
	return r.query(ctx,
		`SELECT id, content, rating, book_id, user_id FROM reviews WHERE book_id=? ORDER BY id`, bookID)
}

// ListByUser returns all reviews written by a user.
func (r *ReviewRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Review, error) {
	return r.query(ctx,
		`SELECT id, content, rating, book_id, user_id FROM reviews WHERE user_id=? ORDER BY id`, userID)
}

// Update overwrites a review's content and rating.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE reviews SET content=?, rating=? WHERE id=?`, rv.Content, rv.Rating, rv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reviews WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReviewRepo) query(ctx context.Context, q string, args ...interface{}) ([]*model.Review, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.Content, &rv.Rating, &rv.BookID, &rv.UserID); err != nil {
			return nil, err
		}
		out = append(out, &rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
