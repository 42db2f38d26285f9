package auth

import (
	"crypto/rand"   // secure random refresh token generation
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"  // hex encoding and decoding functions
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned when an access token fails signature or
// format validation. Expiry alone does not trigger it; see ParseExpired.
var ErrInvalidToken = errors.New("invalid access token")

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived and sent in the Authorization header when
// calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived opaque token used to obtain new
// access tokens. The Raw field is returned to the client; the database
// only ever sees the SHA-256 hash of it.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// Claims is the immutable principal extracted from a validated access
// token. The middleware builds it once per request and hands it to
// handlers explicitly; nothing reads claims from ambient state.
type Claims struct {
	UserID   int64
	Username string
	Role     string
}

// NewAccessToken builds and signs an HS256 JWT for a user. The token
// embeds the user id as subject plus username and role claims, together
// with the standard exp/iat pair.
func NewAccessToken(secret string, userID int64, username, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(userID, 10),
		"username": username,
		"role":     role,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken returns a cryptographically random opaque token and its
// expiration time. The value carries no embedded semantics; 48 random
// bytes hex encoded are unguessable.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string. Storing only the hash prevents a leaked database from yielding
// usable session tokens.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Parse validates the token signature and expiry and returns the claims.
// It is used by the per-request authorization middleware.
func Parse(secret, raw string) (Claims, error) {
	return parse(secret, raw, false)
}

// ParseExpired validates the token signature but deliberately ignores
// expiry. The refresh flow needs the identity claims out of an access
// token that has already timed out; a forged signature is still rejected.
func ParseExpired(secret, raw string) (Claims, error) {
	return parse(secret, raw, true)
}

func parse(secret, raw string, allowExpired bool) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	var c Claims
	switch sub := mc["sub"].(type) {
	case string:
		if c.UserID, err = strconv.ParseInt(sub, 10, 64); err != nil {
			return Claims{}, ErrInvalidToken
		}
	case float64:
		c.UserID = int64(sub)
	default:
		return Claims{}, ErrInvalidToken
	}
	c.Username, _ = mc["username"].(string)
	if c.Role, ok = mc["role"].(string); !ok {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
