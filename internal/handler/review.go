package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/middleware"
	"github.com/bookshare/bookshare-go/internal/model"
	"github.com/bookshare/bookshare-go/internal/queue"
	"github.com/bookshare/bookshare-go/internal/repository"
)

// ReviewHandler manages book reviews. A review belongs to its author;
// only the author may edit it, the author or an admin may remove it.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
	Books   *repository.BookRepo
}

func NewReviewHandler(r *repository.ReviewRepo, b *repository.BookRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: r, Books: b}
}

type reviewReq struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
	BookID  int64  `json:"bookId"`
}

// Create posts a review on a book and publishes a review.posted activity
// event. Ratings run 1 to 10 inclusive.
func (h *ReviewHandler) Create(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 10 {
		return badRequest(c, "rating must be between 1 and 10")
	}
	if req.Content == "" {
		return badRequest(c, "content required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	b, err := h.Books.GetByID(ctx, req.BookID)
	if err != nil {
		return fail(c, err)
	}
	rv := &model.Review{
		Content: req.Content,
		Rating:  req.Rating,
		BookID:  b.ID,
		UserID:  claims.UserID,
	}
	if err := h.Reviews.Create(ctx, rv); err != nil {
		return fail(c, err)
	}

	_ = queue.Publish(ctx, queue.ReviewPostedQueue, queue.ReviewPostedEvent{
		ReviewID: rv.ID,
		BookID:   b.ID,
		Title:    b.Title,
		Rating:   rv.Rating,
		UserID:   claims.UserID,
		Username: claims.Username,
		PostedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rv)
}

// ListByBook returns all reviews on a book.
func (h *ReviewHandler) ListByBook(c echo.Context) error {
	id, err := queryID(c, "bookId")
	if err != nil {
		return badRequest(c, "invalid bookId")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	reviews, err := h.Reviews.ListByBook(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

// ListByUser returns all reviews written by a user.
func (h *ReviewHandler) ListByUser(c echo.Context) error {
	id, err := queryID(c, "userId")
	if err != nil {
		return badRequest(c, "invalid userId")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	reviews, err := h.Reviews.ListByUser(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

// ListMine returns the caller's own reviews.
func (h *ReviewHandler) ListMine(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	reviews, err := h.Reviews.ListByUser(ctx, claims.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

// Update edits a review's text and rating. Author only.
func (h *ReviewHandler) Update(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 10 {
		return badRequest(c, "rating must be between 1 and 10")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if rv.UserID != claims.UserID {
		return fail(c, repository.ErrForbidden)
	}
	rv.Content = req.Content
	rv.Rating = req.Rating
	if err := h.Reviews.Update(ctx, rv); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rv)
}

// Delete removes a review. The author or an admin may do this.
func (h *ReviewHandler) Delete(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if !canManage(claims, rv.UserID) {
		return fail(c, repository.ErrForbidden)
	}
	if err := h.Reviews.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
