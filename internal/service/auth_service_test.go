package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bookshare/bookshare-go/internal/auth"
	"github.com/bookshare/bookshare-go/internal/config"
	"github.com/bookshare/bookshare-go/internal/model"
	"github.com/bookshare/bookshare-go/internal/repository"
)

// ----- in-memory fakes -----

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[int64]*model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	cp.ID = f.nextID
	cp.RoleName = model.RoleUser
	cp.Confirmation = &model.EmailConfirmation{UserID: cp.ID, Email: cp.Email}
	f.users[cp.ID] = &cp
	f.nextID++
	return cp.ID, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.FirstName = u.FirstName
	cur.LastName = u.LastName
	cur.Username = u.Username
	cur.Email = u.Email
	cur.Phone = u.Phone
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID int64, digest, salt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = digest
	u.Salt = salt
	return nil
}

func (f *fakeUserStore) UpdateConfirmationCode(_ context.Context, userID int64, code string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if u.Confirmation == nil {
		u.Confirmation = &model.EmailConfirmation{UserID: userID, Email: u.Email}
	}
	c := code
	e := expiresAt
	u.Confirmation.Code = &c
	u.Confirmation.ExpiresAt = &e
	return nil
}

func (f *fakeUserStore) MarkConfirmed(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok || u.Confirmation == nil || u.Confirmation.Confirmed {
		return repository.ErrNotFound
	}
	u.Confirmation.Confirmed = true
	u.Confirmation.Code = nil
	u.Confirmation.ExpiresAt = nil
	return nil
}

type fakeRoleStore struct{}

func (fakeRoleStore) IDByName(_ context.Context, name string) (int64, error) {
	switch name {
	case model.RoleUser:
		return 1, nil
	case model.RoleAdmin:
		return 2, nil
	case model.RoleSuperAdmin:
		return 3, nil
	}
	return 0, repository.ErrNotFound
}

type tokenRecord struct {
	userID  int64
	exp     time.Time
	revoked bool
}

// fakeTokenStore mirrors the conditional-update semantics of the real
// store: Rotate consumes the old token under a lock, so two concurrent
// exchanges of the same value cannot both win.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*tokenRecord
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*tokenRecord{}}
}

func (f *fakeTokenStore) Store(_ context.Context, userID int64, tokenHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenHash] = &tokenRecord{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokenStore) Rotate(_ context.Context, oldHash string, userID int64, newHash string, newExp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.tokens[oldHash]
	if !ok || rec.userID != userID || rec.revoked || time.Now().After(rec.exp) {
		return repository.ErrNotFound
	}
	rec.revoked = true
	f.tokens[newHash] = &tokenRecord{userID: userID, exp: newExp}
	return nil
}

func (f *fakeTokenStore) DeleteByHash(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, tokenHash)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string // "to:code"
}

func (f *fakeMailer) SendCode(to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+":"+code)
	return nil
}

// ----- harness -----

type testEnv struct {
	svc    *AuthService
	users  *fakeUserStore
	tokens *fakeTokenStore
	mailer *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	mailer := &fakeMailer{}
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 21,
		CodeTTLMin:     10,
	}
	svc := NewAuthService(users, fakeRoleStore{}, tokens, mailer, cfg)
	return &testEnv{svc: svc, users: users, tokens: tokens, mailer: mailer}
}

var sampleInput = SignUpInput{
	FirstName: "Ada",
	LastName:  "Reader",
	Username:  "ada",
	Email:     "ada@example.com",
	Password:  "original-pass",
	Phone:     "555-0100",
}

// signUpConfirmed registers and confirms sampleInput's account.
func (e *testEnv) signUpConfirmed(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := e.svc.SignUp(ctx, sampleInput)
	if err != nil {
		t.Fatal(err)
	}
	e.svc.genCode = func() (string, error) { return "123456", nil }
	if err := e.svc.SendCode(ctx, sampleInput.Email); err != nil {
		t.Fatal(err)
	}
	if err := e.svc.ConfirmCode(ctx, sampleInput.Email, "123456"); err != nil {
		t.Fatal(err)
	}
	return id
}

// ----- tests -----

func TestSignUpFresh(t *testing.T) {
	e := newTestEnv(t)
	id, err := e.svc.SignUp(context.Background(), sampleInput)
	if err != nil {
		t.Fatal(err)
	}
	u, err := e.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if u.RoleID != 1 {
		t.Errorf("got role id %d, want 1 (User)", u.RoleID)
	}
	if u.Confirmation == nil || u.Confirmation.Confirmed {
		t.Error("new account should start unconfirmed")
	}
	if u.PasswordHash == sampleInput.Password || u.PasswordHash == "" {
		t.Error("password stored without hashing")
	}
}

func TestSignUpConfirmedEmailRejected(t *testing.T) {
	e := newTestEnv(t)
	e.signUpConfirmed(t)

	again := sampleInput
	again.Username = "ada2"
	if _, err := e.svc.SignUp(context.Background(), again); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("got %v, want ErrNotAllowed", err)
	}
}

func TestSignUpUnconfirmedOverwrites(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	id, err := e.svc.SignUp(ctx, sampleInput)
	if err != nil {
		t.Fatal(err)
	}

	again := sampleInput
	again.FirstName = "Beatrice"
	again.Username = "bea"
	again.Password = "new-pass"
	id2, err := e.svc.SignUp(ctx, again)
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Errorf("overwrite created a new account: id %d vs %d", id2, id)
	}
	u, err := e.users.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if u.FirstName != "Beatrice" || u.Username != "bea" {
		t.Errorf("profile not overwritten: %+v", u)
	}
	if !auth.VerifyPassword("new-pass", u.PasswordHash, u.Salt) {
		t.Error("password not replaced")
	}
}

func TestLoginRequiresConfirmation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if _, err := e.svc.SignUp(ctx, sampleInput); err != nil {
		t.Fatal(err)
	}
	// Correct password on an unconfirmed account fails the same way as a
	// wrong password on a confirmed one.
	if _, err := e.svc.Login(ctx, sampleInput.Username, sampleInput.Password); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("unconfirmed login: got %v, want ErrUnauthorized", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.signUpConfirmed(t)
	if _, err := e.svc.Login(context.Background(), sampleInput.Username, "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.svc.Login(context.Background(), "ghost", "pass"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLoginIssuesVerifiablePair(t *testing.T) {
	e := newTestEnv(t)
	e.signUpConfirmed(t)

	res, err := e.svc.Login(context.Background(), sampleInput.Username, sampleInput.Password)
	if err != nil {
		t.Fatal(err)
	}
	if res.Profile.Role != model.RoleUser {
		t.Errorf("got role %q, want %q", res.Profile.Role, model.RoleUser)
	}
	claims, err := auth.Parse("test-secret", res.Access.Token)
	if err != nil {
		t.Fatalf("issued access token does not parse: %v", err)
	}
	if claims.UserID != res.Profile.ID || claims.Username != sampleInput.Username {
		t.Errorf("claims mismatch: %+v", claims)
	}
	// The refresh token must be persisted hashed.
	if _, ok := e.tokens.tokens[auth.HashRefreshRaw(res.Refresh.Raw)]; !ok {
		t.Error("refresh token hash not stored")
	}
	if _, ok := e.tokens.tokens[res.Refresh.Raw]; ok {
		t.Error("raw refresh token stored verbatim")
	}
}

func TestConfirmCodeOnceOnly(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if _, err := e.svc.SignUp(ctx, sampleInput); err != nil {
		t.Fatal(err)
	}
	e.svc.genCode = func() (string, error) { return "654321", nil }
	if err := e.svc.SendCode(ctx, sampleInput.Email); err != nil {
		t.Fatal(err)
	}
	if got := e.mailer.sent; len(got) != 1 || got[0] != sampleInput.Email+":654321" {
		t.Fatalf("mailer saw %v", got)
	}

	if err := e.svc.ConfirmCode(ctx, sampleInput.Email, "000000"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("wrong code: got %v, want ErrNotAllowed", err)
	}
	if err := e.svc.ConfirmCode(ctx, sampleInput.Email, "654321"); err != nil {
		t.Fatal(err)
	}
	// Replaying the same code after a successful confirmation fails.
	if err := e.svc.ConfirmCode(ctx, sampleInput.Email, "654321"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("replay: got %v, want ErrNotAllowed", err)
	}
}

func TestConfirmCodeExpired(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if _, err := e.svc.SignUp(ctx, sampleInput); err != nil {
		t.Fatal(err)
	}
	e.svc.genCode = func() (string, error) { return "111111", nil }
	if err := e.svc.SendCode(ctx, sampleInput.Email); err != nil {
		t.Fatal(err)
	}
	// Move the clock past the code TTL.
	e.svc.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }
	if err := e.svc.ConfirmCode(ctx, sampleInput.Email, "111111"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("got %v, want ErrNotAllowed", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	e := newTestEnv(t)
	e.signUpConfirmed(t)
	ctx := context.Background()

	res, err := e.svc.Login(ctx, sampleInput.Username, sampleInput.Password)
	if err != nil {
		t.Fatal(err)
	}

	res2, err := e.svc.Refresh(ctx, res.Access.Token, res.Refresh.Raw)
	if err != nil {
		t.Fatal(err)
	}
	if res2.Refresh.Raw == res.Refresh.Raw {
		t.Error("refresh token was not rotated")
	}
	if _, err := auth.Parse("test-secret", res2.Access.Token); err != nil {
		t.Errorf("new access token does not parse: %v", err)
	}

	// The consumed token is spent: a second exchange with it fails.
	if _, err := e.svc.Refresh(ctx, res.Access.Token, res.Refresh.Raw); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("reuse: got %v, want ErrUnauthorized", err)
	}
	// The replacement works.
	if _, err := e.svc.Refresh(ctx, res2.Access.Token, res2.Refresh.Raw); err != nil {
		t.Errorf("replacement token rejected: %v", err)
	}
}

func TestRefreshRejectsForgedAccessToken(t *testing.T) {
	e := newTestEnv(t)
	e.signUpConfirmed(t)
	ctx := context.Background()

	res, err := e.svc.Login(ctx, sampleInput.Username, sampleInput.Password)
	if err != nil {
		t.Fatal(err)
	}
	forged, err := auth.NewAccessToken("attacker-secret", res.Profile.ID, sampleInput.Username, model.RoleUser, 15)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Refresh(ctx, forged.Token, res.Refresh.Raw); !errors.Is(err, ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestRefreshConcurrentExchangeSingleWinner(t *testing.T) {
	e := newTestEnv(t)
	e.signUpConfirmed(t)
	ctx := context.Background()

	res, err := e.svc.Login(ctx, sampleInput.Username, sampleInput.Password)
	if err != nil {
		t.Fatal(err)
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.Refresh(ctx, res.Access.Token, res.Refresh.Raw)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrUnauthorized):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("%d concurrent exchanges succeeded, want exactly 1", won)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	e := newTestEnv(t)
	e.signUpConfirmed(t)
	ctx := context.Background()

	res, err := e.svc.Login(ctx, sampleInput.Username, sampleInput.Password)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.svc.Logout(ctx, res.Refresh.Raw); err != nil {
		t.Fatal(err)
	}
	// Logging out a token that no longer exists is still fine.
	if err := e.svc.Logout(ctx, res.Refresh.Raw); err != nil {
		t.Errorf("second logout: %v", err)
	}
	// But the session is gone.
	if _, err := e.svc.Refresh(ctx, res.Access.Token, res.Refresh.Raw); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("refresh after logout: got %v, want ErrUnauthorized", err)
	}
}

func TestForgotPasswordValidatesEmail(t *testing.T) {
	e := newTestEnv(t)
	for _, bad := range []string{"", "not-an-email", "a@b", "a b@c.com"} {
		if err := e.svc.ForgotPassword(context.Background(), bad, "new-pass", "123456"); !errors.Is(err, ErrBadRequest) {
			t.Errorf("%q: got %v, want ErrBadRequest", bad, err)
		}
	}
}

func TestForgotPasswordResetsWithCode(t *testing.T) {
	e := newTestEnv(t)
	e.signUpConfirmed(t)
	ctx := context.Background()

	e.svc.genCode = func() (string, error) { return "222333", nil }
	if err := e.svc.SendCode(ctx, sampleInput.Email); err != nil {
		t.Fatal(err)
	}
	if err := e.svc.ForgotPassword(ctx, sampleInput.Email, "brand-new", "999999"); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("wrong code: got %v, want ErrNotAllowed", err)
	}
	if err := e.svc.ForgotPassword(ctx, sampleInput.Email, "brand-new", "222333"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Login(ctx, sampleInput.Username, "brand-new"); err != nil {
		t.Errorf("login with reset password: %v", err)
	}
	if _, err := e.svc.Login(ctx, sampleInput.Username, sampleInput.Password); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("old password still works: %v", err)
	}
}

func TestSendCodeUnknownEmail(t *testing.T) {
	e := newTestEnv(t)
	if err := e.svc.SendCode(context.Background(), "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
