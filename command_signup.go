package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Email    string `json:"email" example:"pepe.rone@example.com" doc:"Account email"`
	Password string `json:"password" example:"some_secret_word" doc:"Password, 8 to 72 characters"`
	Name     string `json:"name" example:"Pepe Rone" doc:"Display name"`
}

func (SignupMessage) Type() string { return "account.signup" }

// SignupResult carries the new account and its first session
type SignupResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

type SignupHandler struct {
	accounts *Accounts
}

var _ command.Commander[SignupMessage] = (*SignupHandler)(nil)

func (h *SignupHandler) Execute(ctx context.Context, msg SignupMessage) error {
	_, err := h.Handle(ctx, msg)
	return err
}

func (h *SignupHandler) Handle(ctx context.Context, msg SignupMessage) (*SignupResult, error) {
	if err := guardContext(ctx); err != nil {
		return nil, err
	}
	return h.handle(ctx, msg)
}

func (h *SignupHandler) handle(ctx context.Context, msg SignupMessage) (*SignupResult, error) {
	a := h.accounts

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := requireFeatureGate(ctx, a.featureGate, gate.FeatureUsersSignup, ErrSignupDisabled); err != nil {
		return nil, err
	}

	user, err := a.store.PrepareAccount(ctx, msg.Email, msg.Password, msg.Name)
	if err != nil {
		return nil, err
	}

	var secret string
	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := a.store.InsertAccountTx(ctx, tx, user); err != nil {
			return err
		}
		secret, _, err = a.secrets.IssueTx(ctx, tx, user.ID, PurposeVerify)
		return err
	})
	if err != nil {
		return nil, classifyError(ctx, err, "failed to create account")
	}

	token, expiresAt, err := a.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	a.logger.Info("account created: %s role=%s", user.Email, user.Role)

	email := user.Email
	a.notify.dispatch(ctx, "verification", email, func(ctx context.Context, n Notifier) error {
		return n.SendVerification(ctx, email, secret)
	})

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventSignup,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Metadata: map[string]any{
			"role": string(user.Role),
		},
	})

	return &SignupResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
