// Package service contains the session and account lifecycle orchestration:
// signup, email confirmation, login, refresh-token rotation, logout and
// password reset. Handlers stay thin; everything with a business rule in
// it lives here, returning sentinel errors instead of HTTP codes.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/bookshare/bookshare-go/internal/auth"
	"github.com/bookshare/bookshare-go/internal/config"
	"github.com/bookshare/bookshare-go/internal/mail"
	"github.com/bookshare/bookshare-go/internal/model"
	"github.com/bookshare/bookshare-go/internal/repository"
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// UserStore is the slice of the user repository the auth service needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, userID int64, digest, salt string) error
	UpdateConfirmationCode(ctx context.Context, userID int64, code string, expiresAt time.Time) error
	MarkConfirmed(ctx context.Context, userID int64) error
}

// RoleStore resolves role names to ids.
type RoleStore interface {
	IDByName(ctx context.Context, name string) (int64, error)
}

// TokenStore persists refresh tokens. Rotate must be atomic: consuming
// the old token and storing the replacement either both happen or neither.
type TokenStore interface {
	Store(ctx context.Context, userID int64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, oldHash string, userID int64, newHash string, newExp time.Time) error
	DeleteByHash(ctx context.Context, tokenHash string) error
}

// AuthService composes the credential hasher, token issuer, refresh token
// store and confirmation mailer into the account lifecycle flows.
type AuthService struct {
	users  UserStore
	roles  RoleStore
	tokens TokenStore
	mailer mail.Sender
	cfg    config.Config

	// Injection points for tests: wall clock and code generator.
	now     func() time.Time
	genCode func() (string, error)
}

func NewAuthService(users UserStore, roles RoleStore, tokens TokenStore, mailer mail.Sender, cfg config.Config) *AuthService {
	return &AuthService{
		users:   users,
		roles:   roles,
		tokens:  tokens,
		mailer:  mailer,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		genCode: randomCode,
	}
}

// SignUpInput carries the fields a new registration submits.
type SignUpInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Phone     string
}

// Profile is the public view of a user: everything except credentials.
type Profile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

// LoginResult bundles the token pair with the public profile.
type LoginResult struct {
	Profile Profile
	Access  auth.AccessToken
	Refresh auth.RefreshToken
}

func profileOf(u *model.User) Profile {
	return Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.RoleName,
	}
}

// SignUp registers a new account with role User and an unconfirmed
// confirmation row. Signing up over an email that is already confirmed is
// rejected; over an unconfirmed one it overwrites the abandoned
// registration's profile and password. Username/email/phone uniqueness is
// ultimately the database's call and surfaces as ErrConflict.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (int64, error) {
	existing, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if existing.Confirmation != nil && existing.Confirmation.Confirmed {
			return 0, fmt.Errorf("%w: email already confirmed", ErrNotAllowed)
		}
		// Re-registration of an abandoned unconfirmed signup: take over
		// the row with the new submission.
		digest, salt, err := auth.HashPassword(in.Password)
		if err != nil {
			return 0, err
		}
		existing.FirstName = in.FirstName
		existing.LastName = in.LastName
		existing.Username = in.Username
		existing.Email = in.Email
		existing.Phone = in.Phone
		if err := s.users.UpdateProfile(ctx, existing); err != nil {
			return 0, err
		}
		if err := s.users.UpdatePassword(ctx, existing.ID, digest, salt); err != nil {
			return 0, err
		}
		return existing.ID, nil
	case errors.Is(err, repository.ErrNotFound):
		// fresh signup below
	default:
		return 0, err
	}

	roleID, err := s.roles.IDByName(ctx, model.RoleUser)
	if err != nil {
		return 0, err
	}
	digest, salt, err := auth.HashPassword(in.Password)
	if err != nil {
		return 0, err
	}
	u := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		Salt:         salt,
		Phone:        in.Phone,
		RoleID:       roleID,
	}
	return s.users.Create(ctx, u)
}

// Login verifies the credentials and the confirmed flag and, on success,
// issues an access/refresh pair. The refresh token is persisted before the
// pair is returned.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	confirmed := u.Confirmation != nil && u.Confirmation.Confirmed
	if !auth.VerifyPassword(password, u.PasswordHash, u.Salt) || !confirmed {
		return nil, ErrUnauthorized
	}
	return s.issuePair(ctx, u)
}

// Refresh exchanges a (possibly expired) access token plus a live refresh
// token for a fresh pair. The signature of the access token must still
// verify; the refresh token is consumed atomically so the same value can
// never be exchanged twice, even by concurrent callers.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*LoginResult, error) {
	claims, err := auth.ParseExpired(s.cfg.JWTSecret, accessToken)
	if err != nil {
		return nil, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	newRefresh, err := auth.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	err = s.tokens.Rotate(ctx, auth.HashRefreshRaw(refreshToken), u.ID,
		auth.HashRefreshRaw(newRefresh.Raw), newRefresh.Exp)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	access, err := auth.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Username, u.RoleName, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Profile: profileOf(u), Access: access, Refresh: newRefresh}, nil
}

// Logout deletes the refresh token identified by its value. Unknown and
// already-deleted tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteByHash(ctx, auth.HashRefreshRaw(refreshToken))
}

// SendCode generates a fresh 6-digit code for the address, stores it with
// a short expiry and dispatches it by email. Each call replaces whatever
// code was pending before.
func (s *AuthService) SendCode(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	code, err := s.genCode()
	if err != nil {
		return err
	}
	exp := s.now().Add(time.Duration(s.cfg.CodeTTLMin) * time.Minute)
	if err := s.users.UpdateConfirmationCode(ctx, u.ID, code, exp); err != nil {
		return err
	}
	return s.mailer.SendCode(email, code)
}

// ConfirmCode validates the submitted code against the stored one and
// flips the confirmed flag. Each code works at most once: after a
// successful confirmation the same call fails, so a replayed code is
// rejected.
func (s *AuthService) ConfirmCode(ctx context.Context, email, code string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkCode(u.Confirmation, code); err != nil {
		return err
	}
	if u.Confirmation.Confirmed {
		return fmt.Errorf("%w: already confirmed", ErrNotAllowed)
	}
	return s.users.MarkConfirmed(ctx, u.ID)
}

// ForgotPassword resets the password for an account whose mailbox control
// was just proven by the code. It deliberately does not require the
// confirmed flag: code possession is its own trust path.
func (s *AuthService) ForgotPassword(ctx context.Context, email, newPassword, code string) error {
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: invalid email", ErrBadRequest)
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkCode(u.Confirmation, code); err != nil {
		return err
	}
	digest, salt, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, digest, salt)
}

// checkCode validates code presence, equality and expiry.
func (s *AuthService) checkCode(c *model.EmailConfirmation, code string) error {
	if c == nil || c.Code == nil || *c.Code != code {
		return fmt.Errorf("%w: code is incorrect", ErrNotAllowed)
	}
	if c.ExpiresAt == nil || s.now().After(*c.ExpiresAt) {
		return fmt.Errorf("%w: code expired", ErrNotAllowed)
	}
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, u *model.User) (*LoginResult, error) {
	access, err := auth.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Username, u.RoleName, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Store(ctx, u.ID, auth.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &LoginResult{Profile: profileOf(u), Access: access, Refresh: refresh}, nil
}

// randomCode draws a uniform 6-digit code from crypto/rand.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
