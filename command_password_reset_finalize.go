package auth

import (
	"context"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Secret   string `json:"secret" example:"4f1c...e9" doc:"Reset secret from the email link"`
	Password string `json:"password" example:"some_secret_word" doc:"New password"`
}

func (FinalizePasswordResetMessage) Type() string { return "account.password_reset.finalize" }

type FinalizePasswordResetHandler struct {
	accounts *Accounts
}

var _ command.Commander[FinalizePasswordResetMessage] = (*FinalizePasswordResetHandler)(nil)

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, msg FinalizePasswordResetMessage) error {
	if err := guardContext(ctx); err != nil {
		return err
	}
	return h.execute(ctx, msg)
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, msg FinalizePasswordResetMessage) error {
	a := h.accounts

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := requirePasswordResetGate(ctx, a.featureGate, true); err != nil {
		return err
	}

	if err := a.store.ValidateNewPassword(msg.Password); err != nil {
		return err
	}

	// unknown and expired secrets never reach the hasher pool
	if err := a.secrets.Check(ctx, msg.Secret, PurposeReset); err != nil {
		return err
	}

	// hash before opening the transaction, bcrypt is the slow part
	hash, err := a.store.HashNewPassword(ctx, msg.Password)
	if err != nil {
		return err
	}

	var user *User
	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		userID, err := a.secrets.ConsumeTx(ctx, tx, msg.Secret, PurposeReset)
		if err != nil {
			return err
		}

		if err := a.store.ApplyPasswordHashTx(ctx, tx, userID, hash); err != nil {
			return err
		}

		user, err = a.repo.Users().FindByIDTx(ctx, tx, userID)
		if repository.IsRecordNotFound(err) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return classifyError(ctx, err, "failed to reset password")
	}

	email := user.Email
	a.notify.dispatch(ctx, "reset_confirmation", email, func(ctx context.Context, n Notifier) error {
		return n.SendResetConfirmation(ctx, email)
	})

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return nil
}
