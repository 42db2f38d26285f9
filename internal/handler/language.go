package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/model"
	"github.com/bookshare/bookshare-go/internal/repository"
)

// LanguageHandler manages the language list. Writes are admin-gated at
// the router level.
type LanguageHandler struct {
	Languages *repository.LanguageRepo
}

func NewLanguageHandler(l *repository.LanguageRepo) *LanguageHandler {
	return &LanguageHandler{Languages: l}
}

type languageReq struct {
	Name string `json:"name"`
}

func (h *LanguageHandler) Create(c echo.Context) error {
	var req languageReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Name == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	l := &model.Language{Name: req.Name}
	id, err := h.Languages.Create(ctx, l)
	if err != nil {
		return fail(c, err)
	}
	l.ID = id
	return c.JSON(http.StatusCreated, l)
}

func (h *LanguageHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	l, err := h.Languages.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LanguageHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	langs, err := h.Languages.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, langs)
}

func (h *LanguageHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req languageReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Name == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	l := &model.Language{ID: id, Name: req.Name}
	if err := h.Languages.Update(ctx, l); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LanguageHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Languages.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
