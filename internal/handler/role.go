package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/model"
	"github.com/bookshare/bookshare-go/internal/repository"
)

// RoleHandler manages the role catalogue. Mutations are SuperAdmin only,
// enforced at the router.
type RoleHandler struct {
	Roles *repository.RoleRepo
}

func NewRoleHandler(r *repository.RoleRepo) *RoleHandler {
	return &RoleHandler{Roles: r}
}

type roleReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Name == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	role := &model.Role{Name: req.Name, Description: req.Description}
	id, err := h.Roles.Create(ctx, role)
	if err != nil {
		return fail(c, err)
	}
	role.ID = id
	return c.JSON(http.StatusCreated, role)
}

func (h *RoleHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	roles, err := h.Roles.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *RoleHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Name == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	role := &model.Role{ID: id, Name: req.Name, Description: req.Description}
	if err := h.Roles.Update(ctx, role); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// Delete removes a role that no user holds; a role still in use comes
// back as a conflict.
func (h *RoleHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Roles.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
