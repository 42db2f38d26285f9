package auth // package auth provides password hashing and token issuing helpers

import (
	"crypto/rand"          // secure random salt generation
	"crypto/sha256"        // hash function underlying PBKDF2
	"crypto/subtle"        // constant-time digest comparison
	"encoding/hex"         // hex encoding of digests and salts
	"golang.org/x/crypto/pbkdf2" // slow salted key derivation
)

// PBKDF2 parameters. Iterations is deliberately high so that brute forcing
// a leaked digest stays expensive.
const (
	saltBytes  = 16
	keyBytes   = 64
	iterations = 100_000
)

// HashPassword derives a PBKDF2-HMAC-SHA256 digest from the plaintext using
// a fresh random salt. Both the digest and the salt are returned hex
// encoded; the caller stores them side by side on the user record.
func HashPassword(plain string) (digest, salt string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	key := pbkdf2.Key([]byte(plain), raw, iterations, keyBytes, sha256.New)
	return hex.EncodeToString(key), hex.EncodeToString(raw), nil
}

// VerifyPassword re-derives the digest from the plaintext and the stored
// salt and compares it in constant time. Malformed stored values simply
// fail verification; this function never returns an error so that a
// corrupted row cannot break a login flow differently from a wrong password.
func VerifyPassword(plain, digest, salt string) bool {
	rawSalt, err := hex.DecodeString(salt)
	if err != nil || len(rawSalt) == 0 {
		return false
	}
	want, err := hex.DecodeString(digest)
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(plain), rawSalt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
