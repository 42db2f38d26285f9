package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/auth"
)

const testSecret = "middleware-test-secret"

// call runs a request through the given middleware chain into a handler
// that records the claims it saw.
func call(t *testing.T, header string, mw ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, *auth.Claims) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *auth.Claims
	h := func(c echo.Context) error {
		if claims, ok := ClaimsFrom(c); ok {
			seen = &claims
		}
		return c.NoContent(http.StatusOK)
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	return rec, seen
}

func TestJWTAuthValidToken(t *testing.T) {
	at, err := auth.NewAccessToken(testSecret, 3, "carol", "Admin", 15)
	if err != nil {
		t.Fatal(err)
	}
	rec, seen := call(t, "Bearer "+at.Token, JWTAuth(testSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if seen == nil {
		t.Fatal("handler saw no claims")
	}
	if seen.UserID != 3 || seen.Username != "carol" || seen.Role != "Admin" {
		t.Errorf("claims %+v", *seen)
	}
}

func TestJWTAuthRejects(t *testing.T) {
	expired, err := auth.NewAccessToken(testSecret, 3, "carol", "Admin", -1)
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, err := auth.NewAccessToken("other-secret", 3, "carol", "Admin", 15)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired.Token},
		{"wrong signing key", "Bearer " + wrongKey.Token},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, seen := call(t, tc.header, JWTAuth(testSecret))
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("got status %d, want 401", rec.Code)
			}
			if seen != nil {
				t.Error("handler ran despite rejection")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	token := func(role string) string {
		at, err := auth.NewAccessToken(testSecret, 1, "u", role, 15)
		if err != nil {
			t.Fatal(err)
		}
		return "Bearer " + at.Token
	}

	tests := []struct {
		name    string
		header  string
		allowed []string
		want    int
	}{
		{"role allowed", token("Admin"), []string{"Admin", "SuperAdmin"}, http.StatusOK},
		{"second role allowed", token("SuperAdmin"), []string{"Admin", "SuperAdmin"}, http.StatusOK},
		{"role denied", token("User"), []string{"Admin", "SuperAdmin"}, http.StatusForbidden},
		{"unknown role denied", token("Owner"), []string{"Admin"}, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := call(t, tc.header, JWTAuth(testSecret), RequireRole(tc.allowed...))
			if rec.Code != tc.want {
				t.Errorf("got status %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

// RequireRole without JWTAuth in front has no claims to inspect and must
// deny rather than pass unauthenticated traffic through.
func TestRequireRoleWithoutClaims(t *testing.T) {
	rec, _ := call(t, "", RequireRole("Admin"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", rec.Code)
	}
}
