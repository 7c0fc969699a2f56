package services

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/favorize-app/multi-auth-sub004/config"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/anonymous"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/biometric"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/event"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/notification"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/oauth"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/session"
	"github.com/favorize-app/multi-auth-sub004/internal/domain/user"
	"github.com/favorize-app/multi-auth-sub004/internal/eventbus"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/crypto"
	"github.com/favorize-app/multi-auth-sub004/internal/infrastructure/storage"
	"github.com/favorize-app/multi-auth-sub004/internal/metrics"
	apperrors "github.com/favorize-app/multi-auth-sub004/pkg/errors"
	"github.com/favorize-app/multi-auth-sub004/pkg/jwt"
	"github.com/favorize-app/multi-auth-sub004/pkg/logger"
)

const (
	refreshHashKey   = "auth.refresh.hash"
	biometricFlagKey = "auth.biometric.enabled"

	minPasswordLength = 8
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// OperationStatus names a flow's progress for UI binding.
type OperationStatus string

const (
	StatusIdle       OperationStatus = "idle"
	StatusInProgress OperationStatus = "in_progress"
	StatusSuccess    OperationStatus = "success"
	StatusError      OperationStatus = "error"
)

// OperationState is one transition on the operation stream.
type OperationState struct {
	Flow   string
	Status OperationStatus
	Err    *apperrors.AuthError
}

// pendingAuthorization holds in-flight PKCE state between BeginOAuth and
// CompleteOAuth, keyed by the state parameter.
type pendingAuthorization struct {
	Provider     string
	CodeVerifier string
	StartedAt    time.Time
}

// AuthEngine orchestrates every authentication flow over the session
// manager, refresh scheduler, anonymous registry, and injected
// collaborators. It is the single entry point the delivery layer calls.
type AuthEngine struct {
	cfg       config.AuthConfig
	users     user.Repository
	sessions  *SessionManager
	scheduler *RefreshScheduler
	anon      *AnonymousService
	providers map[string]oauth.Client
	notifier  notification.Provider
	biometric biometric.Authenticator
	store     storage.SecureStorage
	hasher    *crypto.Argon2Hasher
	tokens    *crypto.TokenGenerator
	jwt       *jwt.Manager
	bus       *eventbus.Bus
	metrics   metrics.Collector
	log       logger.Logger

	mu       sync.Mutex
	pending  map[string]pendingAuthorization
	provider string // provider backing the current session, "" for local

	ops *eventbus.Broadcaster[OperationState]
}

// EngineDeps bundles the engine's collaborators.
type EngineDeps struct {
	Users     user.Repository
	Sessions  *SessionManager
	Scheduler *RefreshScheduler
	Anonymous *AnonymousService
	Providers map[string]oauth.Client
	Notifier  notification.Provider
	Biometric biometric.Authenticator
	Store     storage.SecureStorage
	Hasher    *crypto.Argon2Hasher
	Tokens    *crypto.TokenGenerator
	JWT       *jwt.Manager
	Bus       *eventbus.Bus
	Metrics   metrics.Collector
	Logger    logger.Logger
}

// NewAuthEngine wires the orchestrator. A nil Biometric falls back to the
// unavailable authenticator and a nil Metrics to the no-op collector.
func NewAuthEngine(cfg config.AuthConfig, deps EngineDeps) *AuthEngine {
	if deps.Biometric == nil {
		deps.Biometric = biometric.Unavailable{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Providers == nil {
		deps.Providers = map[string]oauth.Client{}
	}
	e := &AuthEngine{
		cfg:       cfg,
		users:     deps.Users,
		sessions:  deps.Sessions,
		scheduler: deps.Scheduler,
		anon:      deps.Anonymous,
		providers: deps.Providers,
		notifier:  deps.Notifier,
		biometric: deps.Biometric,
		store:     deps.Store,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		jwt:       deps.JWT,
		bus:       deps.Bus,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		pending:   make(map[string]pendingAuthorization),
		ops:       eventbus.NewBroadcaster[OperationState](),
	}
	e.ops.Publish(OperationState{Flow: "", Status: StatusIdle})
	return e
}

// SetScheduler closes the engine/scheduler cycle: the scheduler polls the
// session manager while delegating the actual refresh back to the engine.
func (e *AuthEngine) SetScheduler(s *RefreshScheduler) {
	e.scheduler = s
}

// OperationStates returns the reactive operation stream and a cancel func.
func (e *AuthEngine) OperationStates() (<-chan OperationState, func()) {
	return e.ops.Subscribe()
}

// SignUp registers a local-credential account and signs it in. Validation
// runs before any I/O, and every invocation dispatches exactly one terminal
// event: completed once the account exists, failed otherwise.
func (e *AuthEngine) SignUp(ctx context.Context, email, password, displayName string, device session.DeviceInfo) (sess *session.Session, err error) {
	defer e.track(e.begin("sign_up"), time.Now(), &err)

	completed := false
	defer func() {
		if err != nil && !completed {
			e.dispatchSignUpFailed(email, err)
		}
	}()

	if err = validateEmail(email); err != nil {
		return nil, err
	}
	if err = validatePassword(password); err != nil {
		return nil, err
	}

	exists, err := e.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrUserAlreadyExists
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.New(apperrors.KindInternal, "failed to hash password").WithCause(err)
	}

	u := user.NewUser(email, displayName)
	u.LinkMethod(user.MethodPassword)
	if err = e.users.Create(ctx, u, hash); err != nil {
		return nil, err
	}

	completed = true
	e.bus.Dispatch(
		event.SignUpCompleted{UserID: u.ID, Email: u.Email},
		event.NewMetadata("auth_engine").WithUser(u.ID),
	)

	sess, err = e.establishSession(ctx, u, device, "")
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// PasswordSignIn authenticates a local-credential account. Blank or
// malformed inputs fail validation before any storage or network call, and
// exactly one terminal event (completed or failed) is dispatched per
// request.
func (e *AuthEngine) PasswordSignIn(ctx context.Context, email, password string, device session.DeviceInfo) (sess *session.Session, err error) {
	defer e.track(e.begin("sign_in"), time.Now(), &err)
	defer func() {
		e.metrics.RecordSignIn(string(user.MethodPassword), err == nil)
		if err != nil {
			e.bus.Dispatch(
				event.SignInFailed{Method: string(user.MethodPassword), Err: apperrors.AsAuthError(err)},
				event.NewMetadata("auth_engine"),
			)
		}
	}()

	if err = validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, apperrors.Validation("password", "must not be blank")
	}

	e.bus.Dispatch(
		event.SignInRequested{Method: string(user.MethodPassword)},
		event.NewMetadata("auth_engine"),
	)

	creds, err := e.users.GetCredentials(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			err = apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := e.hasher.Verify(password, creds.PasswordHash)
	if err != nil {
		err = apperrors.New(apperrors.KindInternal, "failed to verify password").WithCause(err)
		return nil, err
	}
	if !ok {
		err = apperrors.ErrInvalidCredentials
		return nil, err
	}

	u, err := e.users.GetByID(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}

	sess, err = e.establishSession(ctx, u, device, "")
	if err != nil {
		return nil, err
	}

	e.bus.Dispatch(
		event.SignInCompleted{UserID: u.ID, SessionID: sess.ID, Method: string(user.MethodPassword)},
		event.NewMetadata("auth_engine").WithUser(u.ID).WithSession(sess.ID),
	)
	return sess, nil
}

// SignOut ends the current session. Idempotent: signing out with no session
// succeeds without events.
func (e *AuthEngine) SignOut(ctx context.Context) (err error) {
	defer e.track(e.begin("sign_out"), time.Now(), &err)

	current := e.sessions.GetCurrentSession()
	if current == nil {
		return nil
	}
	userID := current.User.ID

	e.bus.Dispatch(
		event.SignOutRequested{UserID: userID},
		event.NewMetadata("auth_engine").WithUser(userID),
	)

	e.scheduler.Stop()

	if err = e.sessions.InvalidateSession(ctx); err != nil {
		e.bus.Dispatch(
			event.SignOutFailed{UserID: userID, Err: apperrors.AsAuthError(err)},
			event.NewMetadata("auth_engine").WithUser(userID),
		)
		return err
	}

	if _, rerr := e.store.Remove(ctx, refreshHashKey); rerr != nil {
		e.log.Warn("failed to clear refresh token hash",
			logger.Component("auth_engine"), logger.Error(rerr))
	}

	e.mu.Lock()
	e.provider = ""
	e.mu.Unlock()

	e.metrics.RecordSignOut()
	e.bus.Dispatch(
		event.SignOutCompleted{UserID: userID},
		event.NewMetadata("auth_engine").WithUser(userID),
	)
	return nil
}

// BeginOAuth starts the PKCE-protected authorization-code flow against the
// named provider, returning the URL to open and the state parameter tying
// the round trip together.
func (e *AuthEngine) BeginOAuth(providerName string) (authURL, state string, err error) {
	client, ok := e.providers[providerName]
	if !ok {
		return "", "", apperrors.New(apperrors.KindValidation, "unknown oauth provider: "+providerName)
	}

	state, err = e.tokens.GenerateState()
	if err != nil {
		return "", "", apperrors.New(apperrors.KindInternal, "failed to generate state").WithCause(err)
	}
	verifier, err := e.tokens.PKCECodeVerifier()
	if err != nil {
		return "", "", apperrors.New(apperrors.KindInternal, "failed to generate code verifier").WithCause(err)
	}
	challenge := e.tokens.PKCECodeChallenge(verifier)

	e.mu.Lock()
	e.pending[state] = pendingAuthorization{
		Provider:     providerName,
		CodeVerifier: verifier,
		StartedAt:    time.Now().UTC(),
	}
	e.mu.Unlock()

	return client.AuthorizationURL(state, challenge, oauth.MethodS256), state, nil
}

// CompleteOAuth finishes the code flow: the state must match a pending
// authorization, the code is exchanged exactly once, and the provider
// identity is linked to a local account (created on first sign-in).
func (e *AuthEngine) CompleteOAuth(ctx context.Context, state, code string, device session.DeviceInfo) (sess *session.Session, err error) {
	defer e.track(e.begin("oauth_sign_in"), time.Now(), &err)
	defer func() {
		e.metrics.RecordSignIn(string(user.MethodOAuth), err == nil)
		if err != nil {
			e.bus.Dispatch(
				event.SignInFailed{Method: string(user.MethodOAuth), Err: apperrors.AsAuthError(err)},
				event.NewMetadata("auth_engine"),
			)
		}
	}()

	e.mu.Lock()
	pending, ok := e.pending[state]
	delete(e.pending, state)
	e.mu.Unlock()

	if !ok {
		return nil, apperrors.New(apperrors.KindTokenInvalid, "unknown or replayed oauth state").
			WithCause(apperrors.ErrTokenInvalid)
	}

	client := e.providers[pending.Provider]

	e.bus.Dispatch(
		event.SignInRequested{Method: string(user.MethodOAuth)},
		event.NewMetadata("auth_engine"),
	)

	result, err := client.ExchangeCode(ctx, code, pending.CodeVerifier)
	if err != nil {
		return nil, err
	}

	u, err := e.users.GetByEmail(ctx, result.UserInfo.Email)
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.ErrUserNotFound):
		u = user.NewUser(result.UserInfo.Email, result.UserInfo.DisplayName)
		if result.UserInfo.EmailVerified {
			u.VerifyEmail()
		}
		if err = e.users.Create(ctx, u, ""); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !u.HasMethod(user.MethodOAuth) {
		u.LinkMethod(user.MethodOAuth)
		if uerr := e.users.Update(ctx, u); uerr != nil {
			e.log.Warn("failed to link oauth method",
				logger.Component("auth_engine"), logger.UserID(u.ID), logger.Error(uerr))
		}
	}

	tokens := session.TokenPair{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresAt:    result.Tokens.ExpiresAt,
	}
	sess, err = e.createSession(ctx, u, tokens, device, pending.Provider)
	if err != nil {
		return nil, err
	}

	e.bus.Dispatch(
		event.SignInCompleted{UserID: u.ID, SessionID: sess.ID, Method: string(user.MethodOAuth)},
		event.NewMetadata("auth_engine").WithUser(u.ID).WithSession(sess.ID),
	)
	return sess, nil
}

// CreateAnonymousSession registers a guest session for the device.
func (e *AuthEngine) CreateAnonymousSession(ctx context.Context, deviceID string) (anon *anonymous.User, err error) {
	defer e.track(e.begin("anonymous_session"), time.Now(), &err)
	return e.anon.Create(ctx, deviceID)
}

// ConvertAnonymousSession upgrades a guest to a full account. The original
// creation timestamp is preserved on the new user, the anonymous entry is
// removed from the registry, and a conversion event replaces the usual
// termination one.
func (e *AuthEngine) ConvertAnonymousSession(ctx context.Context, anonymousID, email, password, displayName string, device session.DeviceInfo) (sess *session.Session, err error) {
	defer e.track(e.begin("anonymous_conversion"), time.Now(), &err)

	if err = validateEmail(email); err != nil {
		return nil, err
	}
	if err = validatePassword(password); err != nil {
		return nil, err
	}

	anon, err := e.anon.Get(anonymousID)
	if err != nil {
		return nil, err
	}

	exists, err := e.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrUserAlreadyExists
	}

	hash, err := e.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.New(apperrors.KindInternal, "failed to hash password").WithCause(err)
	}

	u := user.NewUser(email, displayName)
	u.LinkMethod(user.MethodPassword)
	u.IsAnonymous = false
	u.AnonymousSessionID = anon.SessionID
	u.CreatedAt = anon.CreatedAt
	if err = e.users.Create(ctx, u, hash); err != nil {
		return nil, err
	}

	if _, rerr := e.anon.Remove(anonymousID); rerr != nil {
		e.log.Warn("anonymous session vanished during conversion",
			logger.Component("auth_engine"), logger.String("anonymous_id", anonymousID))
	}

	e.bus.Dispatch(
		event.AnonymousSessionConverted{AnonymousID: anonymousID, UserID: u.ID},
		event.NewMetadata("auth_engine").WithUser(u.ID),
	)

	sess, err = e.establishSession(ctx, u, device, "")
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// TerminateAnonymousSession ends a guest session.
func (e *AuthEngine) TerminateAnonymousSession(ctx context.Context, anonymousID string) error {
	return e.anon.Terminate(ctx, anonymousID)
}

// RefreshNow forces an immediate token refresh.
func (e *AuthEngine) RefreshNow(ctx context.Context) error {
	return e.scheduler.RefreshNow(ctx)
}

// EnableBiometric turns on biometric unlock for the current user after a
// successful platform prompt. Unsupported platforms fail fast.
func (e *AuthEngine) EnableBiometric(ctx context.Context) (err error) {
	defer e.track(e.begin("biometric_enable"), time.Now(), &err)

	u := e.sessions.GetCurrentUser()
	if u == nil {
		return apperrors.ErrSessionNotFound
	}

	if !e.biometric.Available(ctx) {
		err = apperrors.New(apperrors.KindNotSupported, "biometric authentication is not available").
			WithCause(apperrors.ErrNotSupported)
		e.dispatchBiometricFailed(u.ID, err)
		return err
	}

	ok, err := e.biometric.Authenticate(ctx, "Enable biometric sign-in")
	if err != nil {
		e.dispatchBiometricFailed(u.ID, err)
		return err
	}
	if !ok {
		err = apperrors.New(apperrors.KindInvalidCredentials, "biometric prompt rejected").
			WithCause(apperrors.ErrInvalidCredentials)
		e.dispatchBiometricFailed(u.ID, err)
		return err
	}

	if err = e.store.Store(ctx, biometricFlagKey, "true"); err != nil {
		err = apperrors.New(apperrors.KindStorage, "failed to persist biometric flag").WithCause(err)
		return err
	}

	u.LinkMethod(user.MethodBiometric)
	if uerr := e.users.Update(ctx, u); uerr != nil {
		e.log.Warn("failed to link biometric method",
			logger.Component("auth_engine"), logger.UserID(u.ID), logger.Error(uerr))
	}

	e.bus.Dispatch(
		event.BiometricEnabled{UserID: u.ID},
		event.NewMetadata("auth_engine").WithUser(u.ID),
	)
	return nil
}

// DisableBiometric turns off biometric unlock. Idempotent.
func (e *AuthEngine) DisableBiometric(ctx context.Context) (err error) {
	defer e.track(e.begin("biometric_disable"), time.Now(), &err)

	u := e.sessions.GetCurrentUser()
	if u == nil {
		return apperrors.ErrSessionNotFound
	}

	if _, err = e.store.Remove(ctx, biometricFlagKey); err != nil {
		return apperrors.New(apperrors.KindStorage, "failed to clear biometric flag").WithCause(err)
	}

	u.UnlinkMethod(user.MethodBiometric)
	if uerr := e.users.Update(ctx, u); uerr != nil {
		e.log.Warn("failed to unlink biometric method",
			logger.Component("auth_engine"), logger.UserID(u.ID), logger.Error(uerr))
	}

	e.bus.Dispatch(
		event.BiometricDisabled{UserID: u.ID},
		event.NewMetadata("auth_engine").WithUser(u.ID),
	)
	return nil
}

// IsBiometricEnabled reports whether the biometric flag is set.
func (e *AuthEngine) IsBiometricEnabled(ctx context.Context) bool {
	val, ok, err := e.store.Retrieve(ctx, biometricFlagKey)
	return err == nil && ok && val == "true"
}

// SendEmailVerification delivers a verification code to the current user's
// address.
func (e *AuthEngine) SendEmailVerification(ctx context.Context) error {
	u := e.sessions.GetCurrentUser()
	if u == nil {
		return apperrors.ErrSessionNotFound
	}
	if e.notifier == nil {
		return apperrors.New(apperrors.KindNotSupported, "no notification provider configured").
			WithCause(apperrors.ErrNotSupported)
	}
	if err := e.notifier.SendVerificationCode(ctx, notification.ChannelEmail, u.Email); err != nil {
		return apperrors.New(apperrors.KindProvider, "failed to send verification code").WithCause(err)
	}
	return nil
}

// VerifyEmail checks the code and marks the user's address verified.
func (e *AuthEngine) VerifyEmail(ctx context.Context, code string) error {
	u := e.sessions.GetCurrentUser()
	if u == nil {
		return apperrors.ErrSessionNotFound
	}
	if e.notifier == nil {
		return apperrors.New(apperrors.KindNotSupported, "no notification provider configured").
			WithCause(apperrors.ErrNotSupported)
	}

	ok, err := e.notifier.VerifyCode(ctx, u.Email, code)
	if err != nil {
		return apperrors.New(apperrors.KindProvider, "failed to verify code").WithCause(err)
	}
	if !ok {
		return apperrors.Validation("code", "verification code is invalid or expired")
	}

	u.VerifyEmail()
	return e.users.Update(ctx, u)
}

// Refresh implements TokenRefresher. Local sessions rotate the opaque
// refresh token and mint a fresh access token; provider-backed sessions
// delegate to the provider client.
func (e *AuthEngine) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	e.mu.Lock()
	providerName := e.provider
	e.mu.Unlock()

	if providerName != "" {
		client, ok := e.providers[providerName]
		if !ok {
			return session.TokenPair{}, apperrors.New(apperrors.KindInternal, "provider for current session not registered")
		}
		tokens, err := client.Refresh(ctx, refreshToken)
		if err != nil {
			return session.TokenPair{}, err
		}
		return session.TokenPair{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresAt:    tokens.ExpiresAt,
		}, nil
	}

	stored, ok, err := e.store.Retrieve(ctx, refreshHashKey)
	if err != nil {
		return session.TokenPair{}, apperrors.New(apperrors.KindStorage, "failed to read refresh token hash").WithCause(err)
	}
	if !ok || stored != e.tokens.HashToken(refreshToken) {
		return session.TokenPair{}, apperrors.New(apperrors.KindTokenInvalid, "refresh token does not match").
			WithCause(apperrors.ErrTokenInvalid)
	}

	u := e.sessions.GetCurrentUser()
	if u == nil {
		return session.TokenPair{}, apperrors.ErrSessionNotFound
	}
	return e.issueTokens(ctx, u)
}

// establishSession issues a local token pair and installs the session. If
// installing fails, the previously stored refresh hash is put back so a
// still-current session keeps refreshing.
func (e *AuthEngine) establishSession(ctx context.Context, u *user.User, device session.DeviceInfo, providerName string) (*session.Session, error) {
	oldHash, hadHash, herr := e.store.Retrieve(ctx, refreshHashKey)

	tokens, err := e.issueTokens(ctx, u)
	if err != nil {
		return nil, err
	}

	sess, err := e.createSession(ctx, u, tokens, device, providerName)
	if err != nil {
		if herr == nil {
			e.restoreRefreshHash(ctx, oldHash, hadHash)
		}
		return nil, err
	}
	return sess, nil
}

func (e *AuthEngine) restoreRefreshHash(ctx context.Context, oldHash string, hadHash bool) {
	var err error
	if hadHash {
		err = e.store.Store(ctx, refreshHashKey, oldHash)
	} else {
		_, err = e.store.Remove(ctx, refreshHashKey)
	}
	if err != nil {
		e.log.Warn("failed to restore refresh token hash",
			logger.Component("auth_engine"), logger.Error(err))
	}
}

// createSession installs the session, records which provider backs it, and
// starts the refresh scheduler.
func (e *AuthEngine) createSession(ctx context.Context, u *user.User, tokens session.TokenPair, device session.DeviceInfo, providerName string) (*session.Session, error) {
	sess, err := e.sessions.CreateSession(ctx, u, tokens, device)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.provider = providerName
	e.mu.Unlock()

	e.scheduler.Start(context.WithoutCancel(ctx))
	return sess, nil
}

// issueTokens mints a signed access token plus a rotated opaque refresh
// token whose hash is persisted for later comparison.
func (e *AuthEngine) issueTokens(ctx context.Context, u *user.User) (session.TokenPair, error) {
	access, err := e.jwt.CreateAccessToken(u.ID, u.Email, e.cfg.AccessTokenTTL)
	if err != nil {
		return session.TokenPair{}, apperrors.New(apperrors.KindInternal, "failed to sign access token").WithCause(err)
	}
	refresh, err := e.tokens.GenerateRefreshToken()
	if err != nil {
		return session.TokenPair{}, apperrors.New(apperrors.KindInternal, "failed to generate refresh token").WithCause(err)
	}
	if err := e.store.Store(ctx, refreshHashKey, e.tokens.HashToken(refresh)); err != nil {
		return session.TokenPair{}, apperrors.New(apperrors.KindStorage, "failed to persist refresh token hash").WithCause(err)
	}
	return session.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().UTC().Add(e.cfg.AccessTokenTTL),
	}, nil
}

// begin publishes the in-progress transition and returns the flow name, so
// a deferred track call can bracket the invocation.
func (e *AuthEngine) begin(flow string) string {
	e.ops.Publish(OperationState{Flow: flow, Status: StatusInProgress})
	return flow
}

// track records flow latency and publishes the terminal operation state.
func (e *AuthEngine) track(flow string, start time.Time, errp *error) {
	e.metrics.RecordOperationLatency(flow, time.Since(start))
	if *errp != nil {
		e.ops.Publish(OperationState{Flow: flow, Status: StatusError, Err: apperrors.AsAuthError(*errp)})
		return
	}
	e.ops.Publish(OperationState{Flow: flow, Status: StatusSuccess})
}

func (e *AuthEngine) dispatchSignUpFailed(email string, err error) {
	e.bus.Dispatch(
		event.SignUpFailed{Email: email, Err: apperrors.AsAuthError(err)},
		event.NewMetadata("auth_engine"),
	)
}

func (e *AuthEngine) dispatchBiometricFailed(userID string, err error) {
	e.bus.Dispatch(
		event.BiometricFailed{UserID: userID, Err: apperrors.AsAuthError(err)},
		event.NewMetadata("auth_engine").WithUser(userID),
	)
}

func validateEmail(email string) error {
	if email == "" {
		return apperrors.Validation("email", "must not be blank")
	}
	if !emailPattern.MatchString(email) {
		return apperrors.Validation("email", "is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperrors.Validation("password", "must not be blank")
	}
	if len(password) < minPasswordLength {
		return apperrors.Validation("password", "must be at least 8 characters")
	}
	return nil
}
