package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/middleware"
	"github.com/bookshare/bookshare-go/internal/model"
	"github.com/bookshare/bookshare-go/internal/repository"
)

// UserHandler is the admin-facing user directory. Routes binding these
// methods sit behind the admin role gate; the extra checks in here
// enforce the rules that depend on the target, not just the caller.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(u *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: u}
}

type userResp struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Confirmed bool   `json:"confirmed"`
}

func toUserResp(u *model.User) userResp {
	confirmed := u.Confirmation != nil && u.Confirmation.Confirmed
	return userResp{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.RoleName,
		Confirmed: confirmed,
	}
}

func toUserResps(users []*model.User) []userResp {
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return out
}

// List returns a page of users.
func (h *UserHandler) List(c echo.Context) error {
	page, limit := pagination(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	users, err := h.Users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"page":  page,
		"limit": limit,
		"items": toUserResps(users),
	})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

func (h *UserHandler) GetByUsername(c echo.Context) error {
	username := c.QueryParam("username")
	if username == "" {
		return badRequest(c, "username required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// Search matches users by name, username or email.
func (h *UserHandler) Search(c echo.Context) error {
	keyword := c.QueryParam("keyword")
	if keyword == "" {
		return badRequest(c, "keyword required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	users, err := h.Users.Search(ctx, keyword)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserResps(users))
}

func (h *UserHandler) ListByRole(c echo.Context) error {
	role := c.QueryParam("role")
	if role == "" {
		return badRequest(c, "role required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	users, err := h.Users.ListByRole(ctx, role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserResps(users))
}

func (h *UserHandler) CountByRole(c echo.Context) error {
	role := c.QueryParam("role")
	if role == "" {
		return badRequest(c, "role required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	n, err := h.Users.CountByRole(ctx, role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"role": role, "count": n})
}

func (h *UserHandler) Exists(c echo.Context) error {
	id, err := strconv.ParseInt(c.QueryParam("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	ok, err := h.Users.Exists(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ok)
}

type updateProfileReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
}

// UpdateProfile edits a user's basic fields. A plain user may only edit
// themselves; admins may edit anyone.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	if !canManage(claims, id) {
		return fail(c, repository.ErrForbidden)
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if req.FirstName != "" {
		u.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.LastName = req.LastName
	}
	if req.Username != "" {
		u.Username = req.Username
	}
	if req.Phone != "" {
		u.Phone = req.Phone
	}
	if err := h.Users.UpdateProfile(ctx, u); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

type updateRoleReq struct {
	Role string `json:"role"`
}

// UpdateRole reassigns a user's role. SuperAdmin only (router-gated).
func (h *UserHandler) UpdateRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "invalid id")
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return badRequest(c, "role required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.UpdateRole(ctx, id, req.Role); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role": req.Role})
}

// Delete removes a user and everything they own. An Admin may only
// delete plain users; removing another Admin or a SuperAdmin takes a
// SuperAdmin caller.
func (h *UserHandler) Delete(c echo.Context) error {
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
	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if claims.Role == model.RoleAdmin && target.RoleName != model.RoleUser {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not allowed"})
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
