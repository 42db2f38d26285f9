package service

import "errors"

// Business outcome errors returned by the auth service. Handlers map them
// to HTTP statuses; the taxonomy mirrors the repository sentinels for
// infrastructure-adjacent failures (not found, conflict).
var (
	// ErrUnauthorized covers bad credentials, unconfirmed accounts and
	// dead refresh tokens. Login deliberately returns the same error for
	// a wrong password and an unconfirmed email so a caller cannot probe
	// which check failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an access token fails signature
	// validation during a refresh exchange.
	ErrForbidden = errors.New("forbidden")

	// ErrNotAllowed signals a business-rule violation, e.g. signing up
	// with an already confirmed email or replaying a confirmation code.
	ErrNotAllowed = errors.New("not allowed")

	// ErrBadRequest signals malformed input such as an invalid email
	// address on the forgot-password path.
	ErrBadRequest = errors.New("bad request")
)
