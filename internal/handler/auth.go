package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/middleware"
	"github.com/bookshare/bookshare-go/internal/service"
)

// Authenticator is the slice of the auth service the handler needs; tests
// substitute a fake.
type Authenticator interface {
	SignUp(ctx context.Context, in service.SignUpInput) (int64, error)
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*service.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	SendCode(ctx context.Context, email string) error
	ConfirmCode(ctx context.Context, email, code string) error
	ForgotPassword(ctx context.Context, email, newPassword, code string) error
}

// AuthHandler exposes the session lifecycle endpoints.
type AuthHandler struct {
	Auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler { return &AuthHandler{Auth: a} }

// ----- DTOs -----

type signUpReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	AccessToken  tokenPart       `json:"accessToken"`
	RefreshToken tokenPart       `json:"refreshToken"`
	User         service.Profile `json:"user"`
}

func toAuthResp(r *service.LoginResult) authResp {
	return authResp{
		AccessToken:  tokenPart{Token: r.Access.Token, Expires: r.Access.Exp},
		RefreshToken: tokenPart{Token: r.Refresh.Raw, Expires: r.Refresh.Exp},
		User:         r.Profile,
	}
}

// SignUp registers a new account and returns the new user id.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "username/email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Auth.SignUp(ctx, service.SignUpInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// SendCode dispatches a fresh confirmation code to the given address.
// Returns 202: delivery is handed to the mail transport, not awaited by
// the client.
func (h *AuthHandler) SendCode(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if email == "" {
		return badRequest(c, "email required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	if err := h.Auth.SendCode(ctx, email); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// ConfirmCode validates a submitted code and flips the account to
// confirmed.
func (h *AuthHandler) ConfirmCode(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	code := strings.TrimSpace(c.QueryParam("code"))
	if email == "" || code == "" {
		return badRequest(c, "email and code required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Auth.ConfirmCode(ctx, email, code); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, true)
}

// Login verifies credentials and returns a token pair with the profile.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	res, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(res))
}

// RefreshToken rotates a refresh token and returns the new pair.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil ||
		strings.TrimSpace(req.AccessToken) == "" || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "accessToken and refreshToken required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	res, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.AccessToken), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, toAuthResp(res))
}

// Logout deletes the presented refresh token. Idempotent: an unknown
// token still yields 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("refreshToken"))
	if token == "" {
		return badRequest(c, "refreshToken required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Auth.Logout(ctx, token); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword resets the password gated only by code possession.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	newPassword := c.QueryParam("newPassword")
	code := strings.TrimSpace(c.QueryParam("confirmCode"))
	if email == "" || newPassword == "" || code == "" {
		return badRequest(c, "email, newPassword and confirmCode required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Auth.ForgotPassword(ctx, email, newPassword, code); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// Me returns the authenticated principal extracted from the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":       claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}
