package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type LoginMessage struct {
	Email    string `json:"email" example:"pepe.rone@example.com" doc:"Account email"`
	Password string `json:"password" example:"some_secret_word" doc:"Password"`
}

func (LoginMessage) Type() string { return "account.login" }

type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

type LoginHandler struct {
	accounts *Accounts
}

var _ command.Commander[LoginMessage] = (*LoginHandler)(nil)

func (h *LoginHandler) Execute(ctx context.Context, msg LoginMessage) error {
	_, err := h.Handle(ctx, msg)
	return err
}

func (h *LoginHandler) Handle(ctx context.Context, msg LoginMessage) (*LoginResult, error) {
	if err := guardContext(ctx); err != nil {
		return nil, err
	}
	return h.handle(ctx, msg)
}

func (h *LoginHandler) handle(ctx context.Context, msg LoginMessage) (*LoginResult, error) {
	a := h.accounts

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	user, err := a.store.VerifyCredentials(ctx, msg.Email, msg.Password)
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			a.record(ctx, ActivityEvent{
				EventType: ActivityEventLoginFailure,
				Email:     NormalizeEmail(msg.Email),
			})
		}
		return nil, err
	}

	now := a.clock.now()
	if err := a.repo.Users().TrackSuccessfulLogin(ctx, user.ID, now); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAuthenticationFailed
		}
		return nil, classifyError(ctx, err, "failed to track login")
	}
	user.LastLoginAt = &now

	token, expiresAt, err := a.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return &LoginResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
