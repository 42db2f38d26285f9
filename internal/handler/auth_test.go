package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/auth"
	"github.com/bookshare/bookshare-go/internal/repository"
	"github.com/bookshare/bookshare-go/internal/service"
)

// fakeAuth scripts the Authenticator with canned results per method.
type fakeAuth struct {
	signUpID   int64
	signUpErr  error
	loginRes   *service.LoginResult
	loginErr   error
	refreshErr error
	confirmErr error
	sendErr    error
	forgotErr  error

	gotLogin  [2]string // username, password
	gotLogout string
}

func (f *fakeAuth) SignUp(_ context.Context, _ service.SignUpInput) (int64, error) {
	return f.signUpID, f.signUpErr
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (*service.LoginResult, error) {
	f.gotLogin = [2]string{username, password}
	return f.loginRes, f.loginErr
}

func (f *fakeAuth) Refresh(_ context.Context, _, _ string) (*service.LoginResult, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.loginRes, nil
}

func (f *fakeAuth) Logout(_ context.Context, refreshToken string) error {
	f.gotLogout = refreshToken
	return nil
}

func (f *fakeAuth) SendCode(_ context.Context, _ string) error           { return f.sendErr }
func (f *fakeAuth) ConfirmCode(_ context.Context, _, _ string) error     { return f.confirmErr }
func (f *fakeAuth) ForgotPassword(_ context.Context, _, _, _ string) error { return f.forgotErr }

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestSignUpHandler(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{signUpID: 7})
	rec := doJSON(t, h.SignUp, http.MethodPost, "/api/auth/signup",
		`{"firstName":"Ada","lastName":"Reader","username":"ada","email":"Ada@Example.com","password":"pw","phone":"555"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201", rec.Code)
	}
	var out map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["id"] != 7 {
		t.Errorf("got id %d, want 7", out["id"])
	}
}

func TestSignUpHandlerMissingFields(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{})
	rec := doJSON(t, h.SignUp, http.MethodPost, "/api/auth/signup", `{"username":"ada"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestSignUpHandlerConfirmedEmail(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{signUpErr: service.ErrNotAllowed})
	rec := doJSON(t, h.SignUp, http.MethodPost, "/api/auth/signup",
		`{"username":"ada","email":"ada@example.com","password":"pw"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", rec.Code)
	}
}

func TestLoginHandler(t *testing.T) {
	res := &service.LoginResult{
		Profile: service.Profile{ID: 7, Username: "ada", Role: "User"},
		Access:  auth.AccessToken{Token: "jwt", Exp: time.Now().Add(15 * time.Minute)},
		Refresh: auth.RefreshToken{Raw: "opaque", Exp: time.Now().Add(21 * 24 * time.Hour)},
	}
	fa := &fakeAuth{loginRes: res}
	h := NewAuthHandler(fa)

	rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login", `{"username":"ada","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if fa.gotLogin != [2]string{"ada", "pw"} {
		t.Errorf("service called with %v", fa.gotLogin)
	}
	var out authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.AccessToken.Token != "jwt" || out.RefreshToken.Token != "opaque" {
		t.Errorf("tokens %+v", out)
	}
	if out.User.ID != 7 || out.User.Role != "User" {
		t.Errorf("profile %+v", out.User)
	}
}

// Bad credentials, unknown user and unconfirmed accounts must all come
// back as the same 401 so the response does not leak which part failed.
func TestLoginHandlerFailures(t *testing.T) {
	for name, err := range map[string]error{
		"unauthorized": service.ErrUnauthorized,
		"unknown user": repository.ErrNotFound,
	} {
		t.Run(name, func(t *testing.T) {
			h := NewAuthHandler(&fakeAuth{loginErr: err})
			rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login", `{"username":"x","password":"y"}`)
			if err == service.ErrUnauthorized && rec.Code != http.StatusUnauthorized {
				t.Errorf("got status %d, want 401", rec.Code)
			}
			if err == repository.ErrNotFound && rec.Code != http.StatusNotFound {
				t.Errorf("got status %d, want 404", rec.Code)
			}
		})
	}
}

func TestRefreshHandlerForbidden(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{refreshErr: service.ErrForbidden})
	rec := doJSON(t, h.RefreshToken, http.MethodPost, "/api/auth/refresh-token",
		`{"accessToken":"a","refreshToken":"r"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", rec.Code)
	}
}

func TestRefreshHandlerMissingTokens(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{})
	rec := doJSON(t, h.RefreshToken, http.MethodPost, "/api/auth/refresh-token", `{"accessToken":"a"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestLogoutHandler(t *testing.T) {
	fa := &fakeAuth{}
	h := NewAuthHandler(fa)
	rec := doJSON(t, h.Logout, http.MethodDelete, "/api/auth/logout?refreshToken=tok-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204", rec.Code)
	}
	if fa.gotLogout != "tok-1" {
		t.Errorf("service saw token %q", fa.gotLogout)
	}
}

func TestConfirmCodeHandler(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{})
	rec := doJSON(t, h.ConfirmCode, http.MethodPost, "/api/auth/confirm-code?email=a@b.com&code=123456", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "true" {
		t.Errorf("got body %q, want true", rec.Body.String())
	}
}

func TestConfirmCodeHandlerWrongCode(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{confirmErr: service.ErrNotAllowed})
	rec := doJSON(t, h.ConfirmCode, http.MethodPost, "/api/auth/confirm-code?email=a@b.com&code=000000", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", rec.Code)
	}
}

func TestSendCodeHandler(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{})
	rec := doJSON(t, h.SendCode, http.MethodPost, "/api/auth/send-code?email=a@b.com", "")
	if rec.Code != http.StatusAccepted {
		t.Errorf("got status %d, want 202", rec.Code)
	}
}

func TestForgotPasswordHandlerBadEmail(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{forgotErr: service.ErrBadRequest})
	rec := doJSON(t, h.ForgotPassword, http.MethodPost,
		"/api/auth/forgot-password?email=bad&newPassword=np&confirmCode=123456", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}
