// Package handler contains the HTTP handlers. This file holds the single
// error boundary: every handler funnels failures through fail(), which
// maps sentinel errors onto HTTP statuses with generic client-facing
// messages while the detailed cause is only logged server-side.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/repository"
	"github.com/bookshare/bookshare-go/internal/service"
)

func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "invalid credentials or session"
	case errors.Is(err, service.ErrForbidden), errors.Is(err, repository.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotAllowed):
		status, msg = http.StatusForbidden, "not allowed"
	case errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrBadRequest):
		status, msg = http.StatusBadRequest, "incorrect request"
	}
	// The detailed cause stays in the server log; clients only ever see
	// the category string above.
	log.Printf("%s %s -> %d: %v", c.Request().Method, c.Path(), status, err)
	return c.JSON(status, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
