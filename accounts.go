package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-featuregate/gate"
	"github.com/uptrace/bun"
)

const DefaultCommandTimeout = 10 * time.Second

// AccountsConfig holds the explicit configuration of the account lifecycle
type AccountsConfig struct {
	// AdminEmail is the one address that receives RoleAdmin at signup
	AdminEmail          string
	SecretTTLs          SecretTTLs
	Hasher              HasherConfig
	Token               TokenConfig
	CommandTimeout      time.Duration
	NotificationTimeout time.Duration
	DeterministicIDs    bool
}

// AccountsOption customizes Accounts
type AccountsOption func(*Accounts)

func WithNotifier(n Notifier) AccountsOption {
	return func(a *Accounts) {
		if n != nil {
			a.notifier = n
		}
	}
}

func WithActivitySink(sink ActivitySink) AccountsOption {
	return func(a *Accounts) {
		a.activity = normalizeActivitySink(sink)
	}
}

func WithLogger(logger Logger) AccountsOption {
	return func(a *Accounts) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithFeatureGate enables the users.signup and users.password_reset gates
func WithFeatureGate(fg gate.FeatureGate) AccountsOption {
	return func(a *Accounts) {
		a.featureGate = fg
	}
}

func WithClock(clock Clock) AccountsOption {
	return func(a *Accounts) {
		a.clock = clock
	}
}

// WithPasswordHasher replaces the bounded bcrypt hasher
func WithPasswordHasher(h PasswordHasher) AccountsOption {
	return func(a *Accounts) {
		if h != nil {
			a.hasher = h
		}
	}
}

// Accounts is the account lifecycle service. Every write operation runs as
// a command handler in a single transaction and notifications go out only
// after commit.
type Accounts struct {
	repo        RepositoryManager
	store       *CredentialStore
	secrets     *SecretManager
	tokens      *TokenService
	resolver    *SessionResolver
	hasher      PasswordHasher
	notifier    Notifier
	notify      *notificationDispatcher
	activity    ActivitySink
	featureGate gate.FeatureGate
	logger      Logger
	clock       Clock
	timeout     time.Duration

	signup           *SignupHandler
	verifyEmail      *VerifyEmailHandler
	requestVerify    *RequestVerificationHandler
	login            *LoginHandler
	logoutEverywhere *LogoutEverywhereHandler
	forgotPassword   *InitializePasswordResetHandler
	resetPassword    *FinalizePasswordResetHandler
}

// NewAccounts wires the identity core on top of db
func NewAccounts(db *bun.DB, cfg AccountsConfig, opts ...AccountsOption) (*Accounts, error) {
	a := &Accounts{
		notifier: NoopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		timeout:  cfg.CommandTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.timeout <= 0 {
		a.timeout = DefaultCommandTimeout
	}

	if a.hasher == nil {
		a.hasher = NewHasher(cfg.Hasher)
	}

	tokens, err := NewTokenService(cfg.Token)
	if err != nil {
		return nil, err
	}

	a.repo = NewRepositoryManager(db, WithUsersClock(a.clock))
	a.tokens = tokens.WithClock(a.clock).WithLogger(a.logger)
	a.store = NewCredentialStore(a.repo, a.hasher, CredentialStoreConfig{
		AdminEmail:       cfg.AdminEmail,
		DeterministicIDs: cfg.DeterministicIDs,
	}).WithLogger(a.logger)
	a.secrets = NewSecretManager(a.repo, cfg.SecretTTLs).
		WithClock(a.clock).
		WithLogger(a.logger)
	a.resolver = NewSessionResolver(a.tokens, a.store).WithLogger(a.logger)
	a.notify = newNotificationDispatcher(a.notifier, a.logger, cfg.NotificationTimeout)

	a.signup = &SignupHandler{accounts: a}
	a.verifyEmail = &VerifyEmailHandler{accounts: a}
	a.requestVerify = &RequestVerificationHandler{accounts: a}
	a.login = &LoginHandler{accounts: a}
	a.logoutEverywhere = &LogoutEverywhereHandler{accounts: a}
	a.forgotPassword = &InitializePasswordResetHandler{accounts: a}
	a.resetPassword = &FinalizePasswordResetHandler{accounts: a}

	return a, nil
}

// Signup creates an unverified account, sends a verification secret and
// returns a session for the new user.
func (a *Accounts) Signup(ctx context.Context, msg SignupMessage) (*SignupResult, error) {
	return a.signup.Handle(ctx, msg)
}

// VerifyEmail consumes a verification secret and marks the owner verified
func (a *Accounts) VerifyEmail(ctx context.Context, secret string) (*User, error) {
	return a.verifyEmail.Handle(ctx, VerifyEmailMessage{Secret: secret})
}

// ResendVerification replaces the pending verification secret of the
// principal's account and sends it again
func (a *Accounts) ResendVerification(ctx context.Context, p Principal) error {
	return a.requestVerify.Execute(ctx, RequestVerificationMessage{Principal: p})
}

func (a *Accounts) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return a.login.Handle(ctx, LoginMessage{Email: email, Password: password})
}

// Logout is idempotent. Session tokens are stateless, the caller clears the
// transport credential.
func (a *Accounts) Logout(ctx context.Context, p Principal) {
	identity, ok := AsIdentity(p)
	if !ok {
		return
	}
	a.record(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    identity.ID.String(),
		Email:     identity.Email,
	})
}

// LogoutEverywhere invalidates every session issued to the principal so far
func (a *Accounts) LogoutEverywhere(ctx context.Context, p Principal) error {
	return a.logoutEverywhere.Execute(ctx, LogoutEverywhereMessage{Principal: p})
}

// ForgotPassword sends a reset secret when the email belongs to an account.
// The result is the same whether or not it does.
func (a *Accounts) ForgotPassword(ctx context.Context, email string) error {
	return a.forgotPassword.Execute(ctx, InitializePasswordResetMessage{Email: email})
}

func (a *Accounts) ResetPassword(ctx context.Context, secret, newPassword string) error {
	return a.resetPassword.Execute(ctx, FinalizePasswordResetMessage{
		Secret:   secret,
		Password: newPassword,
	})
}

// CurrentUser returns the account behind an authenticated principal
func (a *Accounts) CurrentUser(ctx context.Context, p Principal) (*User, error) {
	identity, ok := AsIdentity(p)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return a.store.FindByID(ctx, identity.ID.String())
}

// Resolve turns a raw session token into a Principal
func (a *Accounts) Resolve(ctx context.Context, raw string) Principal {
	return a.resolver.Resolve(ctx, raw)
}

// Wait blocks until queued notifications have been delivered or dropped
func (a *Accounts) Wait() {
	a.notify.wait()
}

func (a *Accounts) Repository() RepositoryManager { return a.repo }
func (a *Accounts) Credentials() *CredentialStore { return a.store }
func (a *Accounts) Secrets() *SecretManager       { return a.secrets }
func (a *Accounts) Tokens() *TokenService         { return a.tokens }
func (a *Accounts) Resolver() *SessionResolver    { return a.resolver }

func (a *Accounts) SignupHandler() *SignupHandler                                   { return a.signup }
func (a *Accounts) VerifyEmailHandler() *VerifyEmailHandler                         { return a.verifyEmail }
func (a *Accounts) RequestVerificationHandler() *RequestVerificationHandler         { return a.requestVerify }
func (a *Accounts) LoginHandler() *LoginHandler                                     { return a.login }
func (a *Accounts) LogoutEverywhereHandler() *LogoutEverywhereHandler               { return a.logoutEverywhere }
func (a *Accounts) InitializePasswordResetHandler() *InitializePasswordResetHandler { return a.forgotPassword }
func (a *Accounts) FinalizePasswordResetHandler() *FinalizePasswordResetHandler     { return a.resetPassword }

func (a *Accounts) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Accounts) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = a.clock.now()
	}
	recordActivity(ctx, a.activity, a.logger, event)
}

// guardContext fails fast when ctx is already done
func guardContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ToTemporaryFailure(ctx.Err())
	default:
		return nil
	}
}
