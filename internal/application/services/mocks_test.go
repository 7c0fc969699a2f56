package services

import (
	"context"
	"sync"
	"time"

	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/notification"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/oauth"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/session"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
)

// mockUserRepo is an in-memory user.Repository for engine tests.
type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]*user.User // by ID
	hashes map[string]string     // by email

	createErr error
	getErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:  make(map[string]*user.User),
		hashes: make(map[string]string),
	}
}

func (r *mockUserRepo) Create(ctx context.Context, u *user.User, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperrors.ErrUserAlreadyExists
		}
	}
	r.users[u.ID] = u
	r.hashes[u.Email] = passwordHash
	return nil
}

func (r *mockUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *mockUserRepo) GetCredentials(ctx context.Context, email string) (*user.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &user.Credentials{UserID: u.ID, PasswordHash: r.hashes[email]}, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockUserRepo) Update(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	r.users[u.ID] = u
	return nil
}

func (r *mockUserRepo) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	r.hashes[u.Email] = passwordHash
	return nil
}

func (r *mockUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// failingStorage wraps in-memory storage and fails selected operations or
// selected keys.
type failingStorage struct {
	mu       sync.Mutex
	data     map[string]string
	failOps  map[string]bool // "store", "remove", "retrieve"
	failKeys map[string]bool // keys whose Store fails
	storeErr error
}

func newFailingStorage() *failingStorage {
	return &failingStorage{
		data:     make(map[string]string),
		failOps:  make(map[string]bool),
		failKeys: make(map[string]bool),
		storeErr: apperrors.ErrStorage,
	}
}

func (s *failingStorage) Store(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOps["store"] || s.failKeys[key] {
		return s.storeErr
	}
	s.data[key] = value
	return nil
}

func (s *failingStorage) Retrieve(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOps["retrieve"] {
		return "", false, s.storeErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *failingStorage) Remove(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOps["remove"] {
		return false, s.storeErr
	}
	_, ok := s.data[key]
	delete(s.data, key)
	return ok, nil
}

func (s *failingStorage) Contains(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *failingStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
	return nil
}

func (s *failingStorage) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *failingStorage) ItemCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data), nil
}

// mockRefresher scripts the refresh outcomes per attempt.
type mockRefresher struct {
	mu       sync.Mutex
	calls    int
	failUpTo int   // attempts 1..failUpTo return failErr
	failErr  error // defaults to a network error
	tokenTTL time.Duration
}

func (m *mockRefresher) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failUpTo {
		err := m.failErr
		if err == nil {
			err = apperrors.ErrNetwork
		}
		return session.TokenPair{}, err
	}
	ttl := m.tokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return session.TokenPair{
		AccessToken:  "refreshed-access",
		RefreshToken: "refreshed-refresh",
		ExpiresAt:    time.Now().Add(ttl),
	}, nil
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockOAuthClient scripts a provider exchange.
type mockOAuthClient struct {
	exchangeErr error
	userInfo    oauth.UserInfo

	mu           sync.Mutex
	lastVerifier string
}

func (c *mockOAuthClient) AuthorizationURL(state, codeChallenge string, method oauth.ChallengeMethod) string {
	return "https://provider.example/authorize?state=" + state + "&code_challenge=" + codeChallenge
}

func (c *mockOAuthClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*oauth.ExchangeResult, error) {
	c.mu.Lock()
	c.lastVerifier = codeVerifier
	c.mu.Unlock()
	if c.exchangeErr != nil {
		return nil, c.exchangeErr
	}
	return &oauth.ExchangeResult{
		Tokens: oauth.Tokens{
			AccessToken:  "provider-access",
			RefreshToken: "provider-refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
		UserInfo: c.userInfo,
	}, nil
}

func (c *mockOAuthClient) Refresh(ctx context.Context, refreshToken string) (*oauth.Tokens, error) {
	return &oauth.Tokens{
		AccessToken:  "provider-access-2",
		RefreshToken: "provider-refresh-2",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (c *mockOAuthClient) UserInfo(ctx context.Context, accessToken string) (*oauth.UserInfo, error) {
	info := c.userInfo
	return &info, nil
}

func (c *mockOAuthClient) Revoke(ctx context.Context, token string) (bool, error) {
	return true, nil
}

func (c *mockOAuthClient) Validate(ctx context.Context, accessToken string) (bool, error) {
	return true, nil
}

// mockBiometric scripts the platform prompt.
type mockBiometric struct {
	available bool
	accept    bool
	err       error
}

func (m *mockBiometric) Available(ctx context.Context) bool { return m.available }

func (m *mockBiometric) Authenticate(ctx context.Context, reason string) (bool, error) {
	return m.accept, m.err
}

// mockNotifier records verification sends and accepts a fixed code.
type mockNotifier struct {
	mu        sync.Mutex
	sent      []string
	validCode string
	sendErr   error
}

func (n *mockNotifier) SendVerificationCode(ctx context.Context, ch notification.Channel, recipient string) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.mu.Lock()
	n.sent = append(n.sent, recipient)
	n.mu.Unlock()
	return nil
}

func (n *mockNotifier) VerifyCode(ctx context.Context, recipient, code string) (bool, error) {
	return code == n.validCode, nil
}

func (n *mockNotifier) SendSecurityAlert(ctx context.Context, recipient, message string) error {
	return nil
}

// eventRecorder subscribes to the bus and collects dispatched events.
type eventRecorder struct {
	sub *eventbus.Subscription

	mu   sync.Mutex
	seen []eventbus.Envelope
	done chan struct{}
}

func recordEvents(bus *eventbus.Bus, opts ...eventbus.Option) *eventRecorder {
	r := &eventRecorder{done: make(chan struct{})}
	r.sub = bus.Subscribe(opts...)
	go func() {
		defer close(r.done)
		for env := range r.sub.Events() {
			r.mu.Lock()
			r.seen = append(r.seen, env)
			r.mu.Unlock()
		}
	}()
	return r
}

// stop closes the subscription and waits for the drain goroutine.
func (r *eventRecorder) stop() {
	r.sub.Close()
	<-r.done
}

func (r *eventRecorder) events() []eventbus.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventbus.Envelope, len(r.seen))
	copy(out, r.seen)
	return out
}

func (r *eventRecorder) countKind(kind event.Kind) int {
	n := 0
	for _, env := range r.events() {
		if env.Event.Kind() == kind {
			n++
		}
	}
	return n
}

// waitForKind polls until an event of the kind arrives or the timeout hits.
func (r *eventRecorder) waitForKind(kind event.Kind, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.countKind(kind) > 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func validTokenPair(ttl time.Duration) session.TokenPair {
	return session.TokenPair{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(ttl),
	}
}

func testDevice() session.DeviceInfo {
	return session.DeviceInfo{DeviceName: "test-device", UserAgent: "go-test", Platform: "linux"}
}
