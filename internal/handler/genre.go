package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/model"
	"github.com/bookshare/bookshare-go/internal/repository"
)

// GenreHandler manages the genre taxonomy. Writes are admin-gated at the
// router level.
type GenreHandler struct {
	Genres *repository.GenreRepo
}

func NewGenreHandler(g *repository.GenreRepo) *GenreHandler {
	return &GenreHandler{Genres: g}
}

type genreReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *GenreHandler) Create(c echo.Context) error {
	var req genreReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Name == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	g := &model.Genre{Name: req.Name, Description: req.Description}
	id, err := h.Genres.Create(ctx, g)
	if err != nil {
		return fail(c, err)
	}
	g.ID = id
	return c.JSON(http.StatusCreated, g)
}

func (h *GenreHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	g, err := h.Genres.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GenreHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	genres, err := h.Genres.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, genres)
}

// Search matches genre names against a keyword.
func (h *GenreHandler) Search(c echo.Context) error {
	keyword := c.QueryParam("keyword")
	if keyword == "" {
		return badRequest(c, "keyword required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	genres, err := h.Genres.Search(ctx, keyword)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, genres)
}

func (h *GenreHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req genreReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Name == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	g := &model.Genre{ID: id, Name: req.Name, Description: req.Description}
	if err := h.Genres.Update(ctx, g); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// Delete refuses to remove a genre that still has books attached; the
// repository surfaces that as a conflict.
func (h *GenreHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Genres.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
