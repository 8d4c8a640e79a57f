package auth

import (
	"context"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Secret string `json:"code" example:"4f1c...e9" doc:"Verification secret from the email"`
}

func (VerifyEmailMessage) Type() string { return "account.verify_email" }

type VerifyEmailHandler struct {
	accounts *Accounts
}

var _ command.Commander[VerifyEmailMessage] = (*VerifyEmailHandler)(nil)

func (h *VerifyEmailHandler) Execute(ctx context.Context, msg VerifyEmailMessage) error {
	_, err := h.Handle(ctx, msg)
	return err
}

func (h *VerifyEmailHandler) Handle(ctx context.Context, msg VerifyEmailMessage) (*User, error) {
	if err := guardContext(ctx); err != nil {
		return nil, err
	}
	return h.handle(ctx, msg)
}

func (h *VerifyEmailHandler) handle(ctx context.Context, msg VerifyEmailMessage) (*User, error) {
	a := h.accounts

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var user *User
	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		userID, err := a.secrets.ConsumeTx(ctx, tx, msg.Secret, PurposeVerify)
		if err != nil {
			return err
		}

		if err := a.repo.Users().MarkVerifiedTx(ctx, tx, userID); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUnknownSecret
			}
			return err
		}

		user, err = a.repo.Users().FindByIDTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, classifyError(ctx, err, "failed to verify email")
	}

	email, name := user.Email, user.Name
	a.notify.dispatch(ctx, "welcome", email, func(ctx context.Context, n Notifier) error {
		return n.SendWelcome(ctx, email, name)
	})

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventEmailVerified,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return user, nil
}
