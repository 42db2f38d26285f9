package model

import "time"

// Role names form a closed set. The authorization middleware compares the
// JWT role claim against these constants; free-form role strings are never
// checked anywhere else.
const (
	RoleUser       = "User"
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "SuperAdmin"
)

// User represents an application user record as stored in the `users`
// table. Passwords are stored as a PBKDF2 digest together with the
// per-user salt; the plaintext never reaches the repository layer.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – given name.
//  LastName     – family name.
//  Username     – unique login name.
//  Email        – unique email address (also mirrored on the confirmation row).
//  PasswordHash – hex PBKDF2 digest of the password.
//  Salt         – hex salt the digest was derived with.
//  Phone        – unique phone number.
//  RoleID       – foreign key into the roles table.
//  RoleName     – role name joined from the roles table for convenience.
//  Confirmation – the user's email confirmation row, when loaded.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash string
	Salt         string
	Phone        string
	RoleID       int64
	RoleName     string
	Confirmation *EmailConfirmation
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role represents a row in the `roles` table.
//
// Fields:
//  ID          – numeric identifier of the role.
//  Name        – unique role name (User, Admin or SuperAdmin).
//  Description – human readable description.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EmailConfirmation models the 1:1 confirmation row owned by a user.
// The code is nullable: it only exists between a send-code request and a
// successful confirmation (or expiry). Confirmed flips to true exactly once.
//
// Fields:
//  UserID    – owning user, also the primary key.
//  Email     – address the code is sent to.
//  Code      – current one-time 6-digit code (nil when none issued).
//  ExpiresAt – when the current code stops being valid (nil when no code).
//  Confirmed – whether the address has been proven.
type EmailConfirmation struct {
	UserID    int64
	Email     string
	Code      *string
	ExpiresAt *time.Time
	Confirmed bool
}

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user and carries expiry and revocation metadata. The
// plain token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was consumed by a rotation (null if active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
