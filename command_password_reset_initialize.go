package auth

import (
	"context"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email" example:"pepe.rone@example.com" doc:"Account email"`
}

func (InitializePasswordResetMessage) Type() string { return "account.password_reset" }

// InitializePasswordResetHandler issues a reset secret for known accounts.
// Unknown emails succeed silently so the response does not reveal which
// addresses are registered.
type InitializePasswordResetHandler struct {
	accounts *Accounts
}

var _ command.Commander[InitializePasswordResetMessage] = (*InitializePasswordResetHandler)(nil)

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, msg InitializePasswordResetMessage) error {
	if err := guardContext(ctx); err != nil {
		return err
	}
	return h.execute(ctx, msg)
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, msg InitializePasswordResetMessage) error {
	a := h.accounts

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := requirePasswordResetGate(ctx, a.featureGate, false); err != nil {
		return err
	}

	email := NormalizeEmail(msg.Email)
	if email == "" {
		return WrapAs(ErrValidationFailed, "email: cannot be blank")
	}

	var user *User
	var secret string
	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = a.repo.Users().FindByEmailTx(ctx, tx, email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				user = nil
				return nil
			}
			return err
		}

		secret, _, err = a.secrets.IssueTx(ctx, tx, user.ID, PurposeReset)
		return err
	})
	if err != nil {
		return classifyError(ctx, err, "failed to start password reset")
	}

	if user == nil {
		a.logger.Debug("password reset requested for unknown email")
		return nil
	}

	a.notify.dispatch(ctx, "password_reset", user.Email, func(ctx context.Context, n Notifier) error {
		return n.SendPasswordReset(ctx, email, secret)
	})

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequested,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return nil
}
