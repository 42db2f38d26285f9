package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/auth"
	"github.com/bookshare/bookshare-go/internal/middleware"
	"github.com/bookshare/bookshare-go/internal/model"
	"github.com/bookshare/bookshare-go/internal/queue"
	"github.com/bookshare/bookshare-go/internal/repository"
)

// BookHandler exposes the book CRUD and browse endpoints. File and
// thumbnail uploads happen against an external store; this API only
// records the resulting URLs.
type BookHandler struct {
	Books     *repository.BookRepo
	Genres    *repository.GenreRepo
	Languages *repository.LanguageRepo
}

func NewBookHandler(b *repository.BookRepo, g *repository.GenreRepo, l *repository.LanguageRepo) *BookHandler {
	return &BookHandler{Books: b, Genres: g, Languages: l}
}

type bookReq struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Author       string `json:"author"`
	Published    string `json:"published"` // YYYY-MM-DD
	Pages        int    `json:"pages"`
	BookURL      string `json:"bookUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	GenreID      int64  `json:"genreId"`
	LanguageID   int64  `json:"languageId"`
}

type bookResp struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Author       string `json:"author"`
	Published    string `json:"published"`
	Pages        int    `json:"pages"`
	BookURL      string `json:"bookUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	GenreID      int64  `json:"genreId"`
	LanguageID   int64  `json:"languageId"`
	UserID       int64  `json:"userId"`
}

func toBookResp(b *model.Book) bookResp {
	return bookResp{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		Author:       b.Author,
		Published:    b.Published.Format("2006-01-02"),
		Pages:        b.Pages,
		BookURL:      b.BookURL,
		ThumbnailURL: b.ThumbnailURL,
		GenreID:      b.GenreID,
		LanguageID:   b.LanguageID,
		UserID:       b.UserID,
	}
}

func toBookResps(books []*model.Book) []bookResp {
	out := make([]bookResp, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResp(b))
	}
	return out
}

// Create records a newly shared book owned by the caller and publishes a
// book.uploaded activity event. Broker failures are ignored on purpose.
func (h *BookHandler) Create(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Title == "" || req.Author == "" || req.BookURL == "" {
		return badRequest(c, "title, author and bookUrl required")
	}
	published, err := time.Parse("2006-01-02", req.Published)
	if err != nil {
		return badRequest(c, "published must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Referenced taxonomy rows must exist; a dangling id is a 404 here
	// rather than a foreign key error later.
	if _, err := h.Genres.GetByID(ctx, req.GenreID); err != nil {
		return fail(c, err)
	}
	if _, err := h.Languages.GetByID(ctx, req.LanguageID); err != nil {
		return fail(c, err)
	}

	b := &model.Book{
		Title:        req.Title,
		Description:  req.Description,
		Author:       req.Author,
		Published:    published,
		Pages:        req.Pages,
		BookURL:      req.BookURL,
		ThumbnailURL: req.ThumbnailURL,
		GenreID:      req.GenreID,
		LanguageID:   req.LanguageID,
		UserID:       claims.UserID,
	}
	if err := h.Books.Create(ctx, b); err != nil {
		return fail(c, err)
	}

	_ = queue.Publish(ctx, queue.BookUploadedQueue, queue.BookUploadedEvent{
		BookID:     b.ID,
		Title:      b.Title,
		Author:     b.Author,
		UserID:     claims.UserID,
		Username:   claims.Username,
		GenreID:    b.GenreID,
		LanguageID: b.LanguageID,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, toBookResp(b))
}

// Get returns one book by id.
func (h *BookHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	b, err := h.Books.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toBookResp(b))
}

// List returns a page of books. Defaults: page 1, 20 per page.
func (h *BookHandler) List(c echo.Context) error {
	page, limit := pagination(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	books, err := h.Books.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"page":  page,
		"limit": limit,
		"items": toBookResps(books),
	})
}

// ListMine returns the caller's own uploads.
func (h *BookHandler) ListMine(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.listBy(c, func(ctx context.Context) ([]*model.Book, error) {
		return h.Books.ListByUser(ctx, claims.UserID)
	})
}

// ListByUser returns the uploads of an arbitrary user.
func (h *BookHandler) ListByUser(c echo.Context) error {
	id, err := queryID(c, "userId")
	if err != nil {
		return badRequest(c, "invalid userId")
	}
	return h.listBy(c, func(ctx context.Context) ([]*model.Book, error) {
		return h.Books.ListByUser(ctx, id)
	})
}

// ListByGenre returns all books tagged with a genre.
func (h *BookHandler) ListByGenre(c echo.Context) error {
	id, err := queryID(c, "genreId")
	if err != nil {
		return badRequest(c, "invalid genreId")
	}
	return h.listBy(c, func(ctx context.Context) ([]*model.Book, error) {
		return h.Books.ListByGenre(ctx, id)
	})
}

// ListByLanguage returns all books in a language.
func (h *BookHandler) ListByLanguage(c echo.Context) error {
	id, err := queryID(c, "languageId")
	if err != nil {
		return badRequest(c, "invalid languageId")
	}
	return h.listBy(c, func(ctx context.Context) ([]*model.Book, error) {
		return h.Books.ListByLanguage(ctx, id)
	})
}

// Search matches book titles against a keyword.
func (h *BookHandler) Search(c echo.Context) error {
	keyword := c.QueryParam("keyword")
	if keyword == "" {
		return badRequest(c, "keyword required")
	}
	return h.listBy(c, func(ctx context.Context) ([]*model.Book, error) {
		return h.Books.SearchByTitle(ctx, keyword)
	})
}

// Update overwrites a book's metadata. Only the owner or an admin may do
// this.
func (h *BookHandler) Update(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	published, err := time.Parse("2006-01-02", req.Published)
	if err != nil {
		return badRequest(c, "published must be YYYY-MM-DD")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	b, err := h.Books.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if !canManage(claims, b.UserID) {
		return fail(c, repository.ErrForbidden)
	}
	b.Title = req.Title
	b.Description = req.Description
	b.Author = req.Author
	b.Published = published
	b.Pages = req.Pages
	b.GenreID = req.GenreID
	b.LanguageID = req.LanguageID
	if err := h.Books.Update(ctx, b); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toBookResp(b))
}

// Delete removes a book. Only the owner or an admin may do this.
func (h *BookHandler) Delete(c echo.Context) error {
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
	b, err := h.Books.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if !canManage(claims, b.UserID) {
		return fail(c, repository.ErrForbidden)
	}
	if err := h.Books.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BookHandler) listBy(c echo.Context, f func(context.Context) ([]*model.Book, error)) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	books, err := f(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toBookResps(books))
}

// canManage reports whether the principal may mutate a resource owned by
// ownerID: the owner themselves or any admin tier.
func canManage(claims auth.Claims, ownerID int64) bool {
	return claims.UserID == ownerID ||
		claims.Role == model.RoleAdmin || claims.Role == model.RoleSuperAdmin
}

// ----- shared param helpers -----

func pathID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func queryID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.QueryParam(name), 10, 64)
}

func pagination(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
