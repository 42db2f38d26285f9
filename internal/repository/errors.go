// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// auth service and handlers to distinguish between failure scenarios
// without parsing driver errors. For example, ErrNotFound indicates a
// missing row and maps to HTTP 404, while ErrConflict signals that a
// unique constraint (username, email or phone) rejected a write.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint. The database is the final authority for username, email and
// phone uniqueness; application-level pre-checks are advisory only.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether a MySQL error is a duplicate-key violation
// (error 1062). The driver does not export a typed error for it.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
