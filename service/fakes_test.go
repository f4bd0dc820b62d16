// file: service/fakes_test.go

package service

import (
	"context"
	"go-auth-api/model"
	"go-auth-api/repository"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// testClock is a settable time source shared by the services under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

// fakeRefreshRepo is an in-memory IRefreshTokenRepository.
type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]model.RefreshToken{}}
}

func (r *fakeRefreshRepo) Create(_ context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	r.tokens[token.ID] = *token
	return nil
}

func (r *fakeRefreshRepo) FindByID(_ context.Context, id string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *fakeRefreshRepo) FindByUserID(_ context.Context, userID int) ([]*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RefreshToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].LastUsedAt.After(out[j].LastUsedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeRefreshRepo) UpdateLastUsedAt(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.LastUsedAt = at
	r.tokens[id] = t
	return nil
}

func (r *fakeRefreshRepo) DeleteByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[id]; !ok {
		return false, nil
	}
	delete(r.tokens, id)
	return true, nil
}

func (r *fakeRefreshRepo) deleteWhere(match func(model.RefreshToken) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.tokens {
		if match(t) {
			delete(r.tokens, id)
			n++
		}
	}
	return n
}

func (r *fakeRefreshRepo) DeleteByUserID(_ context.Context, userID int) (int64, error) {
	return r.deleteWhere(func(t model.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r *fakeRefreshRepo) DeleteByUserIDAndDeviceID(_ context.Context, userID int, deviceID string) (int64, error) {
	return r.deleteWhere(func(t model.RefreshToken) bool { return t.UserID == userID && t.DeviceID == deviceID }), nil
}

func (r *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(t model.RefreshToken) bool { return t.ExpiresAt.Before(now) }), nil
}

func (r *fakeRefreshRepo) CountByUserID(_ context.Context, userID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRefreshRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// fakeVerificationRepo is an in-memory IVerificationTokenRepository.
type fakeVerificationRepo struct {
	mu     sync.Mutex
	tokens map[string]model.VerificationToken
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{tokens: map[string]model.VerificationToken{}}
}

func (r *fakeVerificationRepo) Create(_ context.Context, token *model.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	r.tokens[token.ID] = *token
	return nil
}

func (r *fakeVerificationRepo) FindByID(_ context.Context, id string) (*model.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *fakeVerificationRepo) find(match func(model.VerificationToken) bool) []*model.VerificationToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.VerificationToken
	for _, t := range r.tokens {
		if match(t) {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeVerificationRepo) FindByUserID(_ context.Context, userID int) ([]*model.VerificationToken, error) {
	return r.find(func(t model.VerificationToken) bool { return t.UserID == userID }), nil
}

func (r *fakeVerificationRepo) FindUnusedByUserIDAndType(_ context.Context, userID int, tokenType model.VerificationTokenType) ([]*model.VerificationToken, error) {
	return r.find(func(t model.VerificationToken) bool {
		return t.UserID == userID && t.Type == tokenType && !t.Used
	}), nil
}

func (r *fakeVerificationRepo) MarkUsed(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.Used {
		return false, nil
	}
	t.Used = true
	t.UsedAt = &at
	r.tokens[id] = t
	return true, nil
}

func (r *fakeVerificationRepo) InvalidateUnused(_ context.Context, userID int, tokenType model.VerificationTokenType, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.tokens {
		if t.UserID == userID && t.Type == tokenType && !t.Used {
			t.Used = true
			t.UsedAt = &at
			r.tokens[id] = t
			n++
		}
	}
	return n, nil
}

func (r *fakeVerificationRepo) deleteWhere(match func(model.VerificationToken) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.tokens {
		if match(t) {
			delete(r.tokens, id)
			n++
		}
	}
	return n
}

func (r *fakeVerificationRepo) DeleteByID(_ context.Context, id string) (bool, error) {
	return r.deleteWhere(func(t model.VerificationToken) bool { return t.ID == id }) > 0, nil
}

func (r *fakeVerificationRepo) DeleteByUserID(_ context.Context, userID int) (int64, error) {
	return r.deleteWhere(func(t model.VerificationToken) bool { return t.UserID == userID }), nil
}

func (r *fakeVerificationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(t model.VerificationToken) bool { return t.ExpiresAt.Before(now) }), nil
}

func (r *fakeVerificationRepo) DeleteUsedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	return r.deleteWhere(func(t model.VerificationToken) bool {
		return t.Used && t.UsedAt != nil && t.UsedAt.Before(cutoff)
	}), nil
}

func (r *fakeVerificationRepo) CountByUserID(_ context.Context, userID int) (int, error) {
	return len(r.find(func(t model.VerificationToken) bool { return t.UserID == userID })), nil
}

// fakeUserRepo is an in-memory IUserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]model.User{}}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.nextID++
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id int) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) IncrementTokenVersion(_ context.Context, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	u.TokenVersion++
	r.users[id] = u
	return u.TokenVersion, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = passwordHash
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) MarkEmailVerified(_ context.Context, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if u.EmailVerifiedAt == nil {
		u.EmailVerifiedAt = &at
	}
	r.users[id] = u
	return nil
}

// recordingMailer keeps the last token sent per user.
type recordingMailer struct {
	mu     sync.Mutex
	verify map[int]string
	reset  map[int]string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{verify: map[int]string{}, reset: map[int]string{}}
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, user *model.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verify[user.ID] = token
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, user *model.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[user.ID] = token
	return nil
}

// testEnv wires every service over the in-memory fakes and one clock.
type testEnv struct {
	clock        *testClock
	userRepo     *fakeUserRepo
	refreshRepo  *fakeRefreshRepo
	verifyRepo   *fakeVerificationRepo
	users        *UserService
	codec        *JWTCodec
	sessions     *RefreshTokenService
	verification *VerificationTokenService
	auth         *AuthService
	mailer       *recordingMailer
	accounts     *AccountService
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestEnv(cfg AuthConfig) *testEnv {
	clock := newTestClock()
	hasher := testHasher()

	env := &testEnv{
		clock:       clock,
		userRepo:    newFakeUserRepo(),
		refreshRepo: newFakeRefreshRepo(),
		verifyRepo:  newFakeVerificationRepo(),
		mailer:      newRecordingMailer(),
	}

	env.users = NewUserService(env.userRepo, hasher)
	env.users.now = clock.Now

	codec, err := NewJWTCodec(testSecret, "HS256", "test")
	if err != nil {
		panic(err)
	}
	codec.now = clock.Now
	env.codec = codec

	env.sessions = NewRefreshTokenService(env.refreshRepo, hasher)
	env.sessions.now = clock.Now

	env.verification = NewVerificationTokenService(env.verifyRepo, hasher, DefaultVerificationTTLs)
	env.verification.now = clock.Now

	env.auth = NewAuthService(codec, env.sessions, env.users, cfg)
	env.accounts = NewAccountService(env.users, env.verification, env.auth, env.mailer)
	return env
}

func defaultAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
		MaxDevices: 5,
	}
}

func (e *testEnv) register(email string) *model.User {
	u, err := e.users.Register(context.Background(), "Test User", email, "password123")
	if err != nil {
		panic(err)
	}
	return u
}
